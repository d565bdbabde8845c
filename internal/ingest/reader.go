package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"tabcli/internal/frame"
	"tabcli/internal/headers"
	"tabcli/internal/template"
)

// SQLSource reads a frame for a SQL-backed template. The connection
// registry implements it; ingest stays ignorant of drivers.
type SQLSource interface {
	ReadTemplate(ctx context.Context, tpl *template.Template) (*frame.Frame, error)
}

// Reader loads sources according to their templates.
type Reader struct {
	norm *headers.Normalizer
	sql  SQLSource
	log  *slog.Logger
}

// NewReader wires a reader with the shared header normalizer. The SQL
// source may be nil when no connections are configured.
func NewReader(norm *headers.Normalizer, sql SQLSource, log *slog.Logger) *Reader {
	if log == nil {
		log = slog.Default()
	}
	return &Reader{norm: norm, sql: sql, log: log}
}

// Read loads one source into a frame. The second result reports whether a
// merged header region was detected in a workbook source.
func (r *Reader) Read(ctx context.Context, path string, tpl *template.Template) (*frame.Frame, bool, error) {
	switch {
	case tpl.SourceType == template.SourceSQL:
		if r.sql == nil {
			return nil, false, fmt.Errorf("read %s: no SQL connections configured", path)
		}
		f, err := r.sql.ReadTemplate(ctx, tpl)
		if err != nil {
			return nil, false, err
		}
		return FilterAndRename(f, tpl), false, nil
	case tpl.SourceType == template.SourceCSV || strings.EqualFold(filepath.Ext(path), ".csv"):
		f, err := r.readCSV(path, tpl)
		if err != nil {
			return nil, false, err
		}
		return f, false, nil
	default:
		return r.readWorkbook(path, tpl)
	}
}

// FilterAndRename subsets and renames frame columns per the template.
// Positional header cells win: each cell renames its column index to
// alias, then mapping target, then its own name, and the frame is sliced
// to the mapped width. Without header cells the column list filters and
// the mapping renames by name.
func FilterAndRename(f *frame.Frame, tpl *template.Template) *frame.Frame {
	if len(tpl.Headers) > 0 {
		targets := make([]string, 0, len(tpl.Headers))
		for idx, cell := range tpl.Headers {
			if idx >= f.Cols() {
				continue
			}
			target := cell.Alias
			if target == "" {
				if mapped, ok := tpl.ColumnMappings[cell.Name]; ok {
					target = mapped
				} else {
					target = cell.Name
				}
			}
			targets = append(targets, target)
		}
		if len(targets) > 0 {
			f.SetColumnNames(targets)
			f.SliceColumns(len(targets))
		}
		return f
	}

	if len(tpl.Columns) > 0 {
		f.Select(tpl.Columns)
	}
	if len(tpl.ColumnMappings) > 0 {
		f.Rename(tpl.ColumnMappings)
	}
	return f
}

// splitRows partitions raw rows into header labels and data rows, honoring
// skiprows (zero-based physical rows removed before the header offset
// applies).
func splitRows(rows [][]string, headerRow int, skiprows []int) (hdr []string, data [][]string) {
	skip := make(map[int]bool, len(skiprows))
	for _, s := range skiprows {
		skip[s] = true
	}
	remaining := make([][]string, 0, len(rows))
	for i, row := range rows {
		if !skip[i] {
			remaining = append(remaining, row)
		}
	}
	if headerRow >= len(remaining) {
		return nil, nil
	}
	return remaining[headerRow], remaining[headerRow+1:]
}
