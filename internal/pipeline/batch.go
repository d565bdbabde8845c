package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tabcli/internal/files"
	"tabcli/internal/template"
)

// BatchPaths are the data directories a batch run operates on.
type BatchPaths struct {
	Input      string
	Output     string
	Archive    string
	Quarantine string
}

func (p BatchPaths) forCompany(company string) BatchPaths {
	if company == "" {
		return p
	}
	return BatchPaths{
		Input:      filepath.Join(p.Input, company),
		Output:     filepath.Join(p.Output, company),
		Archive:    filepath.Join(p.Archive, company),
		Quarantine: filepath.Join(p.Quarantine, company),
	}
}

// BatchResult summarizes one batch run.
type BatchResult struct {
	Processed   int
	Archived    int
	Quarantined int
	Skipped     int
}

// RunBatch scans the input directory and processes every discoverable
// source. When the input directory has subdirectories, each one is treated
// as a company with its own output, archive, and quarantine subtrees.
// Successful sources move to archive, failed ones to quarantine, and the
// batch always continues past individual failures.
func (r *Runner) RunBatch(ctx context.Context, paths BatchPaths, opts Options) (BatchResult, error) {
	var total BatchResult

	subdirs, err := files.Subdirs(paths.Input)
	if err != nil {
		return total, err
	}
	if len(subdirs) == 0 {
		res := r.processDirectory(ctx, paths.Input, paths, opts)
		return res, nil
	}
	for _, sub := range subdirs {
		company := filepath.Base(sub)
		res := r.processDirectory(ctx, sub, paths.forCompany(company), opts)
		total.Processed += res.Processed
		total.Archived += res.Archived
		total.Quarantined += res.Quarantined
		total.Skipped += res.Skipped
	}
	return total, nil
}

func (r *Runner) processDirectory(ctx context.Context, dir string, paths BatchPaths, opts Options) BatchResult {
	var res BatchResult

	for _, d := range []string{paths.Output, paths.Archive, paths.Quarantine} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			r.log.Error("cannot create batch directory", slog.String("dir", d), slog.String("error", err.Error()))
			return res
		}
	}
	r.log.Info("scanning directory", slog.String("dir", dir))

	sqlRan := r.runDirectorySQL(ctx, dir, paths, opts, &res)

	sources, err := files.FindSources(dir)
	if err != nil {
		r.log.Error("source discovery failed", slog.String("dir", dir), slog.String("error", err.Error()))
		return res
	}
	if len(sources) == 0 && !sqlRan {
		r.log.Info("no files found in input directory", slog.String("dir", dir))
		return res
	}

	for _, source := range sources {
		r.processBatchItem(ctx, source, paths, opts, &res)
	}
	return res
}

// runDirectorySQL handles a directory-level SQL template once per scan.
func (r *Runner) runDirectorySQL(ctx context.Context, dir string, paths BatchPaths, opts Options, res *BatchResult) bool {
	tplPath, err := template.LocateDir(dir)
	if err != nil {
		if !errors.Is(err, template.ErrNotFound) {
			r.log.Error("SQL template check failed", slog.String("error", err.Error()))
		}
		return false
	}
	tpl, err := template.Load(tplPath)
	if err != nil {
		r.log.Error("SQL template load failed", slog.String("path", tplPath), slog.String("error", err.Error()))
		return false
	}
	if tpl.SourceType != template.SourceSQL {
		return false
	}

	res.Processed++
	outputPath := filepath.Join(paths.Output, "sql_clean."+opts.format())
	if r.Run(ctx, tplPath, tpl, outputPath, paths.Quarantine, opts) {
		r.log.Info("SQL template processed", slog.String("output", outputPath))
	} else {
		res.Quarantined++
		r.log.Warn("SQL template failed, see quarantine")
	}
	return true
}

// processBatchItem runs one file and routes it by outcome. Any error in
// the routing itself is logged and the batch moves on.
func (r *Runner) processBatchItem(ctx context.Context, source string, paths BatchPaths, opts Options, res *BatchResult) {
	r.log.Info("processing", slog.String("file", filepath.Base(source)))

	tpl, err := template.LoadFor(source)
	if err != nil {
		if errors.Is(err, template.ErrNotFound) || errors.Is(err, template.ErrLegacyName) {
			r.log.Warn("no template found, skipping",
				slog.String("file", filepath.Base(source)),
				slog.String("reason", err.Error()))
			res.Skipped++
			return
		}
		r.log.Error("template load failed", slog.String("file", source), slog.String("error", err.Error()))
		res.Skipped++
		return
	}

	res.Processed++
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	outputPath := filepath.Join(paths.Output, fmt.Sprintf("%s_clean.%s", stem, opts.format()))

	if r.Run(ctx, source, tpl, outputPath, paths.Quarantine, opts) {
		dest := files.ArchiveDest(source, paths.Archive, time.Now())
		if err := files.Move(source, dest); err != nil {
			r.log.Error("archive move failed", slog.String("file", source), slog.String("error", err.Error()))
			return
		}
		res.Archived++
		if r.collectors != nil {
			r.collectors.Archived.Inc()
		}
		r.log.Info("archived source file", slog.String("dest", dest))
	} else {
		res.Quarantined++
		dest := filepath.Join(paths.Quarantine, filepath.Base(source))
		if _, statErr := os.Stat(source); statErr == nil {
			if err := files.Move(source, dest); err != nil {
				r.log.Error("quarantine move failed", slog.String("file", source), slog.String("error", err.Error()))
				return
			}
		}
		r.log.Warn("quarantined source file", slog.String("dest", dest))
	}
}

func (o Options) format() string {
	if o.OutputFormat == "" {
		return "xlsx"
	}
	return strings.ToLower(o.OutputFormat)
}
