package history

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/argodesk/argodesk/internal/observability"
)

// Service records answered questions and serves the recent log.
type Service struct {
	repo    Repository
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// ServiceConfig holds configuration for the history service.
type ServiceConfig struct {
	Repo    Repository
	Clock   clockwork.Clock
	Metrics *observability.Metrics
	Logger  zerolog.Logger
}

// NewService creates a new history service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewMetricsForTesting()
	}
	return &Service{
		repo:    cfg.Repo,
		clock:   cfg.Clock,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
}

// Record appends an answered question. A failed write is logged and
// counted but never fails the answer it belongs to.
func (s *Service) Record(ctx context.Context, question, response, intent string) {
	entry := &Entry{
		Question: question,
		Response: response,
		Intent:   intent,
		AskedAt:  s.clock.Now().UTC(),
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		s.metrics.HistoryWriteErrs.Inc()
		s.logger.Warn().Err(err).Str("intent", intent).Msg("failed to record query history")
	}
}

// Recent returns the newest entries first. See ClampLimit for limit handling.
func (s *Service) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	n, err := ClampLimit(limit)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.Recent(ctx, n)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*Entry{}
	}
	return entries, nil
}
