package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"tabcli/internal/frame"
	"tabcli/internal/template"
)

// BuildReport renders the human-readable validation summary written next
// to every output file and into quarantine logs.
func BuildReport(source string, rawRows, rawCols int, clean *frame.Frame, m Metrics,
	missing, extra []string, level string, tpl *template.Template) string {

	if level == "" {
		level = ValidationCoerce
	}
	rows, cols := clean.Shape()

	var lines []string
	lines = append(lines, fmt.Sprintf("Source: %s", filepath.Base(source)))
	lines = append(lines, fmt.Sprintf("Validation level: %s", strings.ToUpper(level)))
	lines = append(lines, fmt.Sprintf("Rows before/after: %d -> %d", rawRows, rows))
	lines = append(lines, fmt.Sprintf("Columns before/after: %d -> %d", rawCols, cols))
	if tpl.Unpivot {
		lines = append(lines, fmt.Sprintf("Unpivot shape: rows %d->%d, cols %d->%d",
			m.UnpivotBefore.Rows, m.UnpivotAfter.Rows,
			m.UnpivotBefore.Cols, m.UnpivotAfter.Cols))
	}
	if m.DedupeDropped > 0 {
		lines = append(lines, fmt.Sprintf("Dedupe dropped rows: %d", m.DedupeDropped))
	}
	lines = append(lines, fmt.Sprintf("Date parse failures: %d", m.DateParseFailures))
	lines = append(lines, fmt.Sprintf("Numeric parse failures: %d", m.NumericParseFailures))
	if len(missing) > 0 {
		lines = append(lines, fmt.Sprintf("Missing vs template: %s", strings.Join(missing, ", ")))
	}
	if len(extra) > 0 {
		lines = append(lines, fmt.Sprintf("Extra vs template: %s", strings.Join(extra, ", ")))
	}
	if len(tpl.RequiredFields) > 0 {
		lines = append(lines, fmt.Sprintf("Required fields: %s", strings.Join(tpl.RequiredFields, ", ")))
	}
	return strings.Join(lines, "\n")
}
