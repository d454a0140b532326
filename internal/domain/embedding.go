package domain

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// NormalizingEmbedder is the outermost decorator of the embedding chain.
// Blank text maps to the zero vector without reaching the provider,
// and every provider vector is checked for dimension and scaled to unit length.
type NormalizingEmbedder struct {
	inner      Embedder
	dimensions int
}

// NewNormalizingEmbedder wraps inner and fixes the output dimension.
func NewNormalizingEmbedder(inner Embedder, dimensions int) *NormalizingEmbedder {
	return &NormalizingEmbedder{inner: inner, dimensions: dimensions}
}

// Dimensions returns the fixed output dimension.
func (e *NormalizingEmbedder) Dimensions() int { return e.dimensions }

// Embed returns a unit-length vector for text, or the zero vector for blank text.
func (e *NormalizingEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	if strings.TrimSpace(text) == "" {
		return EmbeddingResult{Embedding: make([]float32, e.dimensions)}, nil
	}

	res, err := e.inner.Embed(ctx, text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("normalize embed: %w", err)
	}
	if len(res.Embedding) != e.dimensions {
		return EmbeddingResult{}, fmt.Errorf("%w: got %d, want %d",
			ErrVectorDimMismatch, len(res.Embedding), e.dimensions)
	}

	res.Embedding = Normalize(res.Embedding)
	return res, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (e *NormalizingEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// Normalize returns a copy of v scaled to unit L2 norm. A zero vector stays zero.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}
