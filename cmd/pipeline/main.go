// Command pipeline runs the batch cleaning pipeline over an input
// directory, or combines previously cleaned outputs into one file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"tabcli/internal/config"
	"tabcli/internal/connectors"
	"tabcli/internal/exporter"
	"tabcli/internal/headers"
	"tabcli/internal/infrastructure"
	"tabcli/internal/ingest"
	"tabcli/internal/pipeline"
)

func main() {
	configFile := flag.String("config", "", "path to config.yaml")
	inputDir := flag.String("input", "", "input directory (overrides config)")
	outputDir := flag.String("output", "", "output directory (overrides config)")
	archiveDir := flag.String("archive", "", "archive directory (overrides config)")
	quarantineDir := flag.String("quarantine", "", "quarantine directory (overrides config)")
	format := flag.String("format", "", "output format: xlsx, csv or jsonl (overrides config)")
	validationLevel := flag.String("validation-level", "", "validation level: off, coerce or contract")
	failOnMissing := flag.Bool("fail-on-missing", false, "treat missing template columns as failures")
	failOnExtra := flag.Bool("fail-on-extra", false, "treat extra columns as failures")

	combine := flag.Bool("combine", false, "combine cleaned outputs instead of running the batch")
	combineDir := flag.String("combine-dir", "", "directory of cleaned outputs to combine")
	pattern := flag.String("pattern", "*.xlsx", "glob pattern of files to combine")
	mode := flag.String("mode", "concat", "combine mode: concat or merge")
	keys := flag.String("keys", "", "comma-separated merge key columns")
	how := flag.String("how", "inner", "merge join: inner, outer, left or right")
	strictSchema := flag.Bool("strict-schema", false, "require identical columns when concatenating")
	out := flag.String("out", "combined.xlsx", "combined output file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	if *combine {
		if err := runCombine(*combineDir, *pattern, *mode, *keys, *how, *strictSchema, *out); err != nil {
			logger.Error("combine failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("combine finished", slog.String("output", *out))
		return
	}

	applyOverride(&cfg.Paths.Input, *inputDir)
	applyOverride(&cfg.Paths.Output, *outputDir)
	applyOverride(&cfg.Paths.Archive, *archiveDir)
	applyOverride(&cfg.Paths.Quarantine, *quarantineDir)
	applyOverride(&cfg.Pipeline.OutputFormat, *format)
	applyOverride(&cfg.Pipeline.ValidationLevel, *validationLevel)
	if *failOnMissing {
		cfg.Pipeline.FailOnMissing = true
	}
	if *failOnExtra {
		cfg.Pipeline.FailOnExtra = true
	}

	if err := cfg.Paths.Ensure(); err != nil {
		logger.Error("cannot create data directories", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	norm := headers.NewNormalizer(headers.DefaultCacheSize, logger)
	registry := connectors.NewRegistry(cfg.Paths.Connections, logger)
	reader := ingest.NewReader(norm, registry, logger)
	collectors := pipeline.NewCollectors(prometheus.NewRegistry())
	runner := pipeline.NewRunner(reader, logger, collectors)

	res, err := runner.RunBatch(ctx, pipeline.BatchPaths{
		Input:      cfg.Paths.Input,
		Output:     cfg.Paths.Output,
		Archive:    cfg.Paths.Archive,
		Quarantine: cfg.Paths.Quarantine,
	}, pipeline.Options{
		FailOnMissing:   cfg.Pipeline.FailOnMissing,
		FailOnExtra:     cfg.Pipeline.FailOnExtra,
		ValidationLevel: cfg.Pipeline.ValidationLevel,
		OutputFormat:    cfg.Pipeline.OutputFormat,
	})
	if err != nil {
		logger.Error("batch failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("batch finished",
		slog.Int("processed", res.Processed),
		slog.Int("archived", res.Archived),
		slog.Int("quarantined", res.Quarantined),
		slog.Int("skipped", res.Skipped))
	if res.Quarantined > 0 {
		os.Exit(1)
	}
}

func runCombine(dir, pattern, mode, keys, how string, strict bool, out string) error {
	if dir == "" {
		return fmt.Errorf("-combine-dir is required with -combine")
	}
	var keyList []string
	for _, k := range strings.Split(keys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keyList = append(keyList, k)
		}
	}

	f, err := exporter.Combine(dir, exporter.CombineOptions{
		Pattern:      pattern,
		Mode:         mode,
		Keys:         keyList,
		How:          how,
		StrictSchema: strict,
	})
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(out)) {
	case ".xlsx":
		return exporter.WriteXLSX(f, out)
	case ".csv":
		return exporter.WriteCSV(f, out)
	case ".jsonl":
		return exporter.WriteJSONL(f, out)
	default:
		return fmt.Errorf("unsupported output extension %q", filepath.Ext(out))
	}
}

func applyOverride(target *string, value string) {
	if value != "" {
		*target = value
	}
}
