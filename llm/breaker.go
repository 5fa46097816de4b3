package llm

import (
	"context"
	"errors"
	"io"
	"time"

	"pdf_summarizer/logging"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig holds the configuration for a circuit breaker.
type BreakerConfig struct {
	// Name is the circuit breaker name for logging
	Name string

	// MaxRequests is the maximum number of requests allowed in half-open state
	MaxRequests uint32

	// Interval is the cyclic period of the closed state to clear counts
	Interval time.Duration

	// Timeout is how long to stay open before trying again
	Timeout time.Duration

	// FailureThreshold is the failure ratio that trips the circuit, e.g. 0.6
	FailureThreshold float64

	// MinRequests is the minimum number of requests before the ratio is evaluated
	MinRequests uint32
}

// DefaultBreakerConfig returns settings suited to a single local or hosted
// completion backend.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// BreakerEngine decorates an Engine so Complete fails fast while the backend
// keeps failing. Calls are never retried. Reload bypasses the breaker so
// probing unavailable candidate models cannot trip it.
type BreakerEngine struct {
	inner   Engine
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerEngine wraps inner with a circuit breaker.
func NewBreakerEngine(inner Engine, cfg BreakerConfig, logger *logging.Logger) *BreakerEngine {
	if logger == nil {
		logger = logging.NewNop()
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about backend health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("circuit", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &BreakerEngine{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Reload delegates to the wrapped engine.
func (b *BreakerEngine) Reload(ctx context.Context, modelID string) error {
	return b.inner.Reload(ctx, modelID)
}

// Complete runs the wrapped Complete through the breaker.
func (b *BreakerEngine) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &CompletionError{
				Op:      "complete",
				Message: ErrCircuitOpen.Error(),
				Err:     errors.Join(ErrCircuitOpen, err),
			}
		}
		return nil, err
	}
	return result.(*CompletionResponse), nil
}

// State returns the breaker state.
func (b *BreakerEngine) State() gobreaker.State {
	return b.breaker.State()
}

// SetInitProgressCallback forwards to the wrapped engine when it reports progress.
func (b *BreakerEngine) SetInitProgressCallback(fn func(InitProgress)) {
	if r, ok := b.inner.(InitProgressReporter); ok {
		r.SetInitProgressCallback(fn)
	}
}

// Close closes the wrapped engine when it holds resources.
func (b *BreakerEngine) Close() error {
	if c, ok := b.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
