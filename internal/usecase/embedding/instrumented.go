// Package embedding decorates the provider chain with call deadlines and logging.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fal1winter/mentorsys/internal/domain"
)

// InstrumentedEmbedder bounds each call and logs its outcome.
// Provider metrics are recorded in transport/openai, not here.
type InstrumentedEmbedder struct {
	inner   domain.Embedder
	timeout time.Duration
	logger  *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. provider and model are attached to every log line.
func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string, logger *zap.Logger) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:  inner,
		logger: logger.With(zap.String("provider", provider), zap.String("model", model)),
	}
}

// WithTimeout bounds every call. Zero keeps only the caller's deadline.
func (e *InstrumentedEmbedder) WithTimeout(d time.Duration) *InstrumentedEmbedder {
	if d > 0 {
		e.timeout = d
	}
	return e
}

// Embed implements domain.Embedder.
func (e *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := e.inner.Embed(ctx, text)
	took := zap.Duration("duration", time.Since(start))

	if err != nil {
		// A caller that went away is not a provider incident.
		level := zap.ErrorLevel
		if errors.Is(err, context.Canceled) {
			level = zap.InfoLevel
		}
		e.logger.Log(level, "Embedding failed", took, zap.Int("text_len", len(text)), zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	e.logger.Debug("Embedding done",
		took,
		zap.Int("dimensions", len(res.Embedding)),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return res, nil
}

// HealthCheck forwards to the inner embedder when it can be checked.
func (e *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	hc, ok := e.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	return hc.HealthCheck(ctx)
}
