// Package handler provides HTTP handlers for the argodesk API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/argodesk/argodesk/internal/api/models"
	"github.com/argodesk/argodesk/internal/api/response"
	"github.com/argodesk/argodesk/internal/resilience"
)

// readyTimeout bounds the storage ping of a readiness check.
const readyTimeout = 2 * time.Second

// Pinger checks that a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsConfig holds the dependencies of an OpsHandler.
type OpsConfig struct {
	Version   string
	BuildTime string
	// Storage is pinged by the readiness check.
	Storage Pinger
	// Sources, when set, reports remote source circuit states.
	Sources *resilience.Registry
	Clock   clockwork.Clock
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	storage   Pinger
	sources   *resilience.Registry
	clock     clockwork.Clock
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		storage:   cfg.Storage,
		sources:   cfg.Sources,
		clock:     cfg.Clock,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.clock.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - storage must answer a ping.
// An open remote source circuit degrades the status but keeps the API ready.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ready := models.Readiness{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.clock.Now()),
	}

	storage := models.SubsystemStatus{Name: "storage", Status: models.HealthStatusOK}
	if h.storage != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		err := h.storage.Ping(ctx)
		cancel()
		if err != nil {
			detail := err.Error()
			storage.Status = models.HealthStatusFail
			storage.Detail = &detail
			ready.Status = models.HealthStatusFail
		}
	}
	ready.Subsystems = []models.SubsystemStatus{storage}

	if h.sources != nil {
		for _, src := range h.sources.Health() {
			ready.Sources = append(ready.Sources, toSourceStatus(src))
			if !src.Healthy() && ready.Status == models.HealthStatusOK {
				ready.Status = models.HealthStatusDegraded
			}
		}
	}

	status := http.StatusOK
	if ready.Status == models.HealthStatusFail {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, r, status, ready)
}

func toSourceStatus(h resilience.Health) models.SourceStatus {
	s := models.SourceStatus{
		Source:        h.Name,
		Status:        models.HealthStatusOK,
		CircuitState:  h.State,
		LastSuccessAt: models.TimestampPtr(h.LastSuccessAt),
		LastFailureAt: models.TimestampPtr(h.LastFailureAt),
	}
	if !h.Healthy() {
		s.Status = models.HealthStatusDegraded
	}
	if h.LastError != "" {
		msg := h.LastError
		s.Message = &msg
	}
	return s
}
