// Package api provides the HTTP API for argodesk.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/argodesk/argodesk/internal/api/handler"
	"github.com/argodesk/argodesk/internal/api/middleware"
	"github.com/argodesk/argodesk/internal/argofloat"
	"github.com/argodesk/argodesk/internal/fetch"
	"github.com/argodesk/argodesk/internal/history"
	"github.com/argodesk/argodesk/internal/query"
	"github.com/argodesk/argodesk/internal/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	FloatService   *argofloat.Service
	QueryProcessor *query.Processor
	HistoryService *history.Service
	// Fetcher enables POST /v1/ingest-jobs when set.
	Fetcher *fetch.Fetcher
	Sources *resilience.Registry

	// PrometheusHandler serves /metrics. Defaults to promhttp.Handler().
	PrometheusHandler http.Handler
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "argodesk-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement behind the load balancer

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Storage:   cfg.FloatService,
		Sources:   cfg.Sources,
	})
	fileHandler := handler.NewFileHandler(cfg.FloatService, cfg.Logger)
	floatHandler := handler.NewFloatHandler(cfg.FloatService, cfg.Logger)
	queryHandler := handler.NewQueryHandler(cfg.QueryProcessor, cfg.HistoryService, cfg.Logger)

	uploadRateLimit := middleware.RateLimitByIP(middleware.UploadRateLimit)     // 10 req/min
	queryRateLimit := middleware.RateLimitByIP(middleware.QueryRateLimit)       // 60 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 300 req/min

	promHandler := cfg.PrometheusHandler
	if promHandler == nil {
		promHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", promHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})

		r.With(uploadRateLimit, middleware.RequireMultipart).Post("/files", fileHandler.Upload)

		r.Route("/floats", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", floatHandler.ListFloats)
			r.Route("/{floatId}", func(r chi.Router) {
				r.Get("/", floatHandler.GetFloat)
				r.Delete("/", floatHandler.DeleteFloat)
				r.Get("/profile", floatHandler.GetProfile)
				r.Get("/profile/{parameter}", floatHandler.GetParameterProfile)
			})
		})

		r.With(standardRateLimit).Get("/comparisons/{floatIds}", floatHandler.CompareFloats)
		r.With(standardRateLimit).Get("/trajectories/{date}", floatHandler.GetTrajectory)

		r.Route("/queries", func(r chi.Router) {
			r.With(queryRateLimit, middleware.RequireJSON).Post("/", queryHandler.Ask)
			r.With(standardRateLimit).Get("/history", queryHandler.History)
		})

		if cfg.Fetcher != nil {
			ingestHandler := handler.NewIngestHandler(cfg.Fetcher, cfg.FloatService, cfg.Logger)
			r.With(uploadRateLimit, middleware.RequireJSON).Post("/ingest-jobs", ingestHandler.CreateIngestJob)
		}
	})

	return r
}
