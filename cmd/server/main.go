// Command server runs the engine HTTP API: interactive preview with
// schema candidates, single-source processing, synonym learning, and
// Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"tabcli/internal/config"
	"tabcli/internal/connectors"
	"tabcli/internal/headers"
	"tabcli/internal/infrastructure"
	"tabcli/internal/ingest"
	"tabcli/internal/pipeline"
	"tabcli/internal/services"
	transport "tabcli/internal/transport/http"
)

// version is stamped by the build.
var version = "dev"

func main() {
	configFile := flag.String("config", "", "path to config.yaml")
	schemaConfig := flag.String("schema-config", "", "synonym config file for auto-mapping")
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

	if err := cfg.Paths.Ensure(); err != nil {
		logger.Error("cannot create data directories", slog.String("error", err.Error()))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	collectors := pipeline.NewCollectors(registry)

	norm := headers.NewNormalizer(headers.DefaultCacheSize, logger)
	connRegistry := connectors.NewRegistry(cfg.Paths.Connections, logger)
	reader := ingest.NewReader(norm, connRegistry, logger)
	runner := pipeline.NewRunner(reader, logger, collectors)
	engine := services.NewEngineService(reader, runner, connRegistry,
		*schemaConfig, cfg.Pipeline.PreviewRows, logger)

	handler := transport.NewEngineHandler(engine, version, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      transport.NewRouter(handler, registry),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			slog.String("addr", srv.Addr), slog.String("version", version))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
}
