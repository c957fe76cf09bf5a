// Package main provides the entrypoint for the argodesk ingestion worker.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/argodesk/argodesk/internal/api/handler"
	"github.com/argodesk/argodesk/internal/api/middleware"
	"github.com/argodesk/argodesk/internal/argofile"
	"github.com/argodesk/argodesk/internal/argofloat"
	"github.com/argodesk/argodesk/internal/config"
	"github.com/argodesk/argodesk/internal/datafile"
	"github.com/argodesk/argodesk/internal/fetch"
	"github.com/argodesk/argodesk/internal/observability"
	"github.com/argodesk/argodesk/internal/resilience"
	"github.com/argodesk/argodesk/internal/storage"
	"github.com/argodesk/argodesk/internal/telemetry"
	"github.com/argodesk/argodesk/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "argodesk-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)
	if cfg.PubSubProjectID == "" {
		log.Fatal().Msg("PUBSUB_PROJECT_ID is required")
	}

	log.Info().Str("build_time", BuildTime).Msg("starting argodesk worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	clock := clockwork.NewRealClock()

	store, err := storage.Open(ctx, storage.Config{
		Driver:     cfg.DBDriver,
		Postgres:   cfg.Postgres,
		SQLitePath: cfg.SQLitePath,
		Clock:      clock,
		Logger:     log,
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to open storage")
	}
	defer store.Close()

	files, err := datafile.NewStore(cfg.DataDir, cfg.MaxUploadBytes)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare data directory")
	}

	floats := argofloat.NewService(argofloat.ServiceConfig{
		Repo:       store.Floats,
		Normalizer: argofile.NewNormalizer(argofile.OpenNetCDF, log),
		Files:      files,
		Metrics:    metrics,
		Logger:     log,
	})

	sources := resilience.NewRegistry()
	fetcher := fetch.New(fetch.Config{
		Timeout:    cfg.FetchTimeout,
		MaxRetries: cfg.FetchMaxRetries,
		Registry:   sources,
		Metrics:    metrics,
		Logger:     log,
	})

	batch := worker.NewBatchJob(worker.BatchJobConfig{
		Config: worker.BatchConfig{Concurrency: cfg.WorkerConcurrency},
		Ingester: worker.IngestFunc(func(ctx context.Context, url string) (*argofloat.IngestResult, error) {
			return fetcher.Ingest(ctx, url, floats)
		}),
		Clock:  clock,
		Logger: log,
	})

	subscriber, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        cfg.PubSubProjectID,
		SubscriptionName: cfg.PubSubSubscription,
		Dispatcher:       worker.NewDispatcher(batch, floats, log),
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub handler")
	}
	defer func() {
		if closeErr := subscriber.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close pubsub client")
		}
	}()

	// The worker exposes health endpoints for the platform's probes.
	ops := handler.NewOpsHandler(handler.OpsConfig{
		Version:   Version,
		BuildTime: BuildTime,
		Storage:   floats,
		Sources:   sources,
	})
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Get("/health", ops.HealthCheck)
	r.Get("/ready", ops.ReadinessCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	go func() {
		if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("pubsub receive stopped")
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	stats := batch.Stats()
	log.Info().
		Int64("runs", stats.Runs).
		Int64("files_inserted", stats.FilesInserted).
		Int64("files_updated", stats.FilesUpdated).
		Int64("files_failed", stats.FilesFailed).
		Msg("worker stopped")
}
