package pipeline

import (
	"log/slog"
	"path/filepath"
	"strings"

	"tabcli/internal/frame"
	"tabcli/internal/schema"
	"tabcli/internal/template"
)

// WarnOnSchemaDiff compares the frame's columns against the headers the
// template expects and logs any drift at WARN. It returns the sorted
// missing and extra column names; both empty when the template declares no
// expectations.
func WarnOnSchemaDiff(f *frame.Frame, tpl *template.Template, source string, log *slog.Logger) (missing, extra []string) {
	if log == nil {
		log = slog.Default()
	}
	expected := tpl.ExpectedHeaders()
	if len(expected) == 0 {
		return []string{}, []string{}
	}
	missing, extra = schema.Diff(f.Columns(), expected)

	ctx := "current file"
	if source != "" {
		ctx = filepath.Base(source)
	}
	tplName := tpl.ProviderName
	if tplName == "" {
		tplName = tpl.SourceFile
	}
	label := ctx
	if tplName != "" {
		label = ctx + "::" + tplName
	}
	if len(missing) > 0 {
		log.Warn("missing columns vs template",
			slog.String("context", label),
			slog.String("columns", strings.Join(missing, ", ")))
	}
	if len(extra) > 0 {
		log.Warn("extra columns vs template",
			slog.String("context", label),
			slog.String("columns", strings.Join(extra, ", ")))
	}
	return missing, extra
}
