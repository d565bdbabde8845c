package template

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Suffix is the marker in template file names: <stem>.df-template.<ext>.
const Suffix = ".df-template"

var templateExts = []string{".json", ".yaml", ".yml"}

// Sentinel errors for template discovery.
var (
	// ErrNotFound means no template file exists for the source.
	ErrNotFound = errors.New("template not found")
	// ErrLegacyName means an old-style `*_template.*` file was found; it
	// must be renamed to the `<stem>.df-template.*` form to be used.
	ErrLegacyName = errors.New("legacy template name")
)

// Locate finds the template file for a data source. The template lives in
// the same directory as the source, named `<stem>.df-template.{json,yaml,yml}`
// where stem is the source file name without extension. Extensions are
// tried in that order and the first hit wins.
func Locate(sourcePath string) (string, error) {
	dir := filepath.Dir(sourcePath)
	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))

	for _, ext := range templateExts {
		candidate := filepath.Join(dir, stem+Suffix+ext)
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	if legacy := findLegacy(dir); legacy != "" {
		return "", fmt.Errorf("%w: rename %s to the %s naming scheme", ErrLegacyName,
			filepath.Base(legacy), Suffix)
	}
	return "", fmt.Errorf("%w: no %s%s.{json,yaml,yml} next to %s",
		ErrNotFound, stem, Suffix, filepath.Base(sourcePath))
}

// LocateDir finds any template in a directory, used for sources that have
// no data file of their own (SQL templates). Extensions are tried in
// order; within one extension the lexically first match wins.
func LocateDir(dir string) (string, error) {
	for _, ext := range templateExts {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+Suffix+ext))
		if err != nil {
			continue
		}
		if len(matches) > 0 {
			sort.Strings(matches)
			return matches[0], nil
		}
	}
	if legacy := findLegacy(dir); legacy != "" {
		return "", fmt.Errorf("%w: rename %s to the %s naming scheme", ErrLegacyName,
			filepath.Base(legacy), Suffix)
	}
	return "", fmt.Errorf("%w: no *%s.{json,yaml,yml} in %s", ErrNotFound, Suffix, dir)
}

// LoadFor locates and loads the template for a source file in one step.
func LoadFor(sourcePath string) (*Template, error) {
	path, err := Locate(sourcePath)
	if err != nil {
		return nil, err
	}
	return Load(path)
}

func findLegacy(dir string) string {
	matches, err := filepath.Glob(filepath.Join(dir, "*_template.*"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[0]
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
