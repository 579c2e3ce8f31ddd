package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/adapter/files"
	httpadapter "github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/adapter/http"
	kafkaadapter "github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/adapter/kafka"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/adapter/postgres"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/config"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/ingest"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/observability"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/pipeline"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/reference"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		slog.Error("failed to load config", "error", "DATABASE_URL is required")
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, logger); err != nil {
		logger.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	store := postgres.New(db)
	defer store.Close() //nolint:errcheck // process is exiting

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	refs := reference.NewCachedReader(store, cfg.ReferenceCacheTTL, nil)
	svc := ingest.New(cfg.IngestOptions(), files.Sources(cfg.RiskDBFEncoding, logger), store.IngestStores(refs), metrics, logger)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	p := pipeline.New(reader, pipeline.NewProcessor(svc, logger), writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, logger, p, store)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ingest pipeline.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	// A job in flight finishes or is abandoned uncommitted.
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
