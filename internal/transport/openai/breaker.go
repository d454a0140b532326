package openai

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/fal1winter/mentorsys/internal/metrics"
)

// BreakerConfig tunes the circuit breaker in front of the provider.
// Zero values select 5 failures, 30s open and 1 half-open probe.
type BreakerConfig struct {
	MaxFailures  uint32
	OpenTimeout  time.Duration
	HalfOpenReqs uint32
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.MaxFailures == 0 {
		c.MaxFailures = 5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.HalfOpenReqs == 0 {
		c.HalfOpenReqs = 1
	}
	return c
}

// newBreaker trips after MaxFailures consecutive provider failures.
// Cancellation by the caller does not count against the provider.
func newBreaker(provider string, cfg BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker {
	cfg = cfg.withDefaults()
	state := metrics.EmbeddingBreakerState.WithLabelValues(provider)
	state.Set(float64(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedding:" + provider,
		MaxRequests: cfg.HalfOpenReqs,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			state.Set(float64(to))
			logger.Warn("Embedding breaker changed state",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})
}
