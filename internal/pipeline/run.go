package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"tabcli/internal/exporter"
	"tabcli/internal/frame"
	"tabcli/internal/ingest"
	"tabcli/internal/template"
)

// Options tune one pipeline run.
type Options struct {
	FailOnMissing   bool
	FailOnExtra     bool
	ValidationLevel string
	OutputFormat    string
}

func (o Options) level() string {
	if o.ValidationLevel == "" {
		return ValidationCoerce
	}
	return strings.ToLower(o.ValidationLevel)
}

// Runner drives single sources and batches through the pipeline. It owns
// the shared reader (and with it the header cache) for a session.
type Runner struct {
	reader     *ingest.Reader
	log        *slog.Logger
	collectors *Collectors
}

// NewRunner builds a runner. Collectors may be nil when metrics are not
// wanted, the logger defaults to slog.Default.
func NewRunner(reader *ingest.Reader, log *slog.Logger, collectors *Collectors) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{reader: reader, log: log, collectors: collectors}
}

// Run processes one source end to end and reports success. Failures of
// any kind route the source into quarantineDir and return false; Run never
// propagates an error or a panic to the caller.
func (r *Runner) Run(ctx context.Context, sourcePath string, tpl *template.Template,
	outputPath, quarantineDir string, opts Options) (ok bool) {

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("pipeline panic",
				slog.String("source", sourcePath),
				slog.Any("panic", rec))
			if quarantineDir != "" {
				_ = SaveQuarantine(sourcePath, quarantineDir,
					fmt.Sprintf("panic: %v\n%s", rec, debug.Stack()), "")
			}
			ok = false
		}
	}()

	r.log.Info("pipeline started", slog.String("source", filepath.Base(sourcePath)))

	raw, _, err := r.reader.Read(ctx, sourcePath, tpl)
	if err != nil {
		perr := newParseError("ingest", "source read failed", err)
		r.log.Error("pipeline error", slog.String("source", sourcePath), slog.String("error", perr.Error()))
		if quarantineDir != "" {
			_ = SaveQuarantine(sourcePath, quarantineDir, perr.Error(), "")
		}
		return false
	}
	rawRows, rawCols := raw.Shape()

	clean, metrics := Transform(raw, tpl, r.log)
	r.collectors.observe(metrics)

	missing, extra := WarnOnSchemaDiff(clean, tpl, sourcePath, r.log)
	if (opts.FailOnMissing && len(missing) > 0) || (opts.FailOnExtra && len(extra) > 0) {
		derr := newDriftError(missing, extra)
		r.log.Error("schema drift enforced failure",
			slog.String("missing", strings.Join(missing, ",")),
			slog.String("extra", strings.Join(extra, ",")))
		if quarantineDir != "" {
			report := BuildReport(sourcePath, rawRows, rawCols, clean, metrics, missing, extra, opts.level(), tpl)
			_ = SaveQuarantine(sourcePath, quarantineDir, derr.Message, report)
		}
		r.quarantined()
		return false
	}

	if err := Validate(clean, tpl, opts.level()); err != nil {
		var verr *Error
		detail := err.Error()
		if errors.As(err, &verr) {
			detail = verr.FailureDetail()
		}
		r.log.Error("schema validation failed", slog.String("error", err.Error()))
		if quarantineDir != "" {
			report := BuildReport(sourcePath, rawRows, rawCols, clean, metrics, missing, extra, opts.level(), tpl)
			_ = SaveQuarantine(sourcePath, quarantineDir, detail, report)
		}
		r.quarantined()
		return false
	}

	if err := r.load(clean, sourcePath, outputPath, rawRows, rawCols, metrics, missing, extra, opts, tpl); err != nil {
		r.log.Error("pipeline error", slog.String("source", sourcePath), slog.String("error", err.Error()))
		if quarantineDir != "" {
			_ = SaveQuarantine(sourcePath, quarantineDir, err.Error(), "")
		}
		r.quarantined()
		return false
	}

	r.log.Info("pipeline finished", slog.String("output", outputPath))
	return true
}

func (r *Runner) load(clean *frame.Frame, sourcePath, outputPath string, rawRows, rawCols int,
	metrics Metrics, missing, extra []string, opts Options, tpl *template.Template) error {

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return newOutputError("create output dir", err)
	}
	if err := writeOutput(clean, outputPath); err != nil {
		return newOutputError("write output", err)
	}

	report := BuildReport(sourcePath, rawRows, rawCols, clean, metrics, missing, extra, opts.level(), tpl)
	reportPath := outputPath + ".validation.txt"
	if err := os.WriteFile(reportPath, []byte(report), 0o644); err != nil {
		return newOutputError("write validation report", err)
	}
	return nil
}

func writeOutput(f *frame.Frame, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return exporter.WriteXLSX(f, path)
	case ".csv":
		return exporter.WriteCSV(f, path)
	case ".jsonl":
		return exporter.WriteJSONL(f, path)
	default:
		return fmt.Errorf("unsupported output extension %q", filepath.Ext(path))
	}
}

func (r *Runner) quarantined() {
	if r.collectors != nil {
		r.collectors.Quarantined.Inc()
	}
}
