package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tabcli/internal/files"
)

// SaveQuarantine copies the offending source into the quarantine directory
// and writes `<name>.error.log` beside it with the failure detail and the
// validation report when one exists. A failed source copy is tolerated;
// the error log always gets written.
func SaveQuarantine(source, quarantineDir, errMsg, report string) error {
	if err := os.MkdirAll(quarantineDir, 0o755); err != nil {
		return fmt.Errorf("create quarantine dir: %w", err)
	}

	name := filepath.Base(source)
	if source != "" {
		dest := filepath.Join(quarantineDir, name)
		_ = files.Copy(source, dest)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Validation Failed for %s\n", name)
	b.WriteString(strings.Repeat("-", 50) + "\n")
	b.WriteString(errMsg)
	if report != "" {
		b.WriteString("\n\n")
		b.WriteString(report)
	}
	logPath := filepath.Join(quarantineDir, name+".error.log")
	if err := os.WriteFile(logPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write quarantine log: %w", err)
	}
	return nil
}
