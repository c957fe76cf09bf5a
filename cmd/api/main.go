// Package main provides the entrypoint for the argodesk API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/argodesk/argodesk/internal/api"
	"github.com/argodesk/argodesk/internal/api/middleware"
	"github.com/argodesk/argodesk/internal/argofile"
	"github.com/argodesk/argodesk/internal/argofloat"
	"github.com/argodesk/argodesk/internal/config"
	"github.com/argodesk/argodesk/internal/datafile"
	"github.com/argodesk/argodesk/internal/fetch"
	"github.com/argodesk/argodesk/internal/history"
	"github.com/argodesk/argodesk/internal/observability"
	"github.com/argodesk/argodesk/internal/query"
	"github.com/argodesk/argodesk/internal/resilience"
	"github.com/argodesk/argodesk/internal/storage"
	"github.com/argodesk/argodesk/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "argodesk-api"

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

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Environment).
		Msg("starting argodesk API")

	ctx := context.Background()

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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if cfg.OTelEnabled {
		log.Info().Str("otlp_endpoint", cfg.OTLPEndpoint).Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	domainMetrics := observability.NewMetrics(prometheus.DefaultRegisterer)

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

	floatService := argofloat.NewService(argofloat.ServiceConfig{
		Repo:       store.Floats,
		Normalizer: argofile.NewNormalizer(argofile.OpenNetCDF, log),
		Files:      files,
		Metrics:    domainMetrics,
		Logger:     log,
	})
	historyService := history.NewService(history.ServiceConfig{
		Repo:    store.History,
		Clock:   clock,
		Metrics: domainMetrics,
		Logger:  log,
	})
	processor := query.NewProcessor(store.Floats, domainMetrics, log)

	sources := resilience.NewRegistry()
	fetcher := fetch.New(fetch.Config{
		Timeout:    cfg.FetchTimeout,
		MaxRetries: cfg.FetchMaxRetries,
		Registry:   sources,
		Metrics:    domainMetrics,
		Logger:     log,
	})
	log.Info().Str("driver", store.Driver).Str("data_dir", files.Dir()).Msg("services initialized")

	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		ServiceName:    serviceName,
		Metrics:        httpMetrics,
		RequireTLS:     cfg.RequireTLS,
		FloatService:   floatService,
		QueryProcessor: processor,
		HistoryService: historyService,
		Fetcher:        fetcher,
		Sources:        sources,
	})

	// Uploads of large profile files need more than the usual write window.
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
