package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrMaxRetriesExceeded wraps the last error once all attempts failed.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// PermanentError marks a failure that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the Executor returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}

// Config holds configuration for an Executor.
type Config struct {
	Name string

	// MaxRetries is the number of retries after the first attempt.
	// Default: 3
	MaxRetries uint64

	// Default: 100ms
	InitialInterval time.Duration

	// Default: 5 seconds
	MaxInterval time.Duration

	// Breaker is the circuit breaker configuration.
	// If nil, uses DefaultBreakerConfig.
	Breaker *BreakerConfig

	// Clock stamps success and failure times. Nil uses the real clock.
	Clock clockwork.Clock
}

// DefaultConfig returns the default executor configuration.
func DefaultConfig(name string) Config {
	breaker := DefaultBreakerConfig(name)
	return Config{
		Name:            name,
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Breaker:         &breaker,
	}
}

// Executor runs operations through a circuit breaker and retries
// transient failures with exponential backoff.
type Executor struct {
	cfg     Config
	breaker *gobreaker.CircuitBreaker[struct{}]

	mu            sync.Mutex
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewExecutor creates a new Executor. Zero durations take their defaults;
// MaxRetries is used as given.
func NewExecutor(cfg Config) *Executor {
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	breaker := DefaultBreakerConfig(cfg.Name)
	if cfg.Breaker != nil {
		breaker = *cfg.Breaker
	}
	return &Executor{cfg: cfg, breaker: newBreaker(breaker)}
}

// Name returns the executor name.
func (e *Executor) Name() string { return e.cfg.Name }

// Do runs op until it succeeds, returns a Permanent error, the retry budget
// is spent or ctx is done. Permanent errors are returned unwrapped.
func (e *Executor) Do(ctx context.Context, op func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.cfg.InitialInterval
	bo.MaxInterval = e.cfg.MaxInterval
	bo.MaxElapsedTime = 0 // bounded by MaxRetries

	var stopped bool
	operation := func() error {
		_, err := e.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, op(ctx)
		})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			stopped = true
			return backoff.Permanent(ErrCircuitOpen)
		case IsPermanent(err):
			stopped = true
			var perm *PermanentError
			errors.As(err, &perm)
			return backoff.Permanent(perm.Err)
		}
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, e.cfg.MaxRetries), ctx))
	if err == nil {
		e.record(nil)
		return nil
	}
	e.record(err)
	if stopped || ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, err)
}

func (e *Executor) record(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.cfg.Clock.Now().UTC()
	if err == nil {
		e.lastSuccessAt = &now
		return
	}
	e.lastFailureAt = &now
	e.lastError = err.Error()
}

// State returns the current circuit breaker state.
func (e *Executor) State() gobreaker.State {
	return e.breaker.State()
}

// Health returns a snapshot of the executor's breaker and last outcomes.
func (e *Executor) Health() Health {
	e.mu.Lock()
	defer e.mu.Unlock()

	counts := e.breaker.Counts()
	return Health{
		Name:          e.cfg.Name,
		State:         e.breaker.State().String(),
		Requests:      counts.Requests,
		Failures:      counts.TotalFailures,
		LastSuccessAt: e.lastSuccessAt,
		LastFailureAt: e.lastFailureAt,
		LastError:     e.lastError,
	}
}
