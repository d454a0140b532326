// Package openai talks to an OpenAI-compatible /embeddings endpoint, hosted or self-hosted.
package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/fal1winter/mentorsys/internal/domain"
	"github.com/fal1winter/mentorsys/internal/metrics"
)

// Config holds the provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Dimensions is sent as the "dimensions" request field when positive.
	// Self-hosted servers for fixed-size models usually reject it.
	Dimensions int
	User       string
	Provider   string
	Breaker    BreakerConfig
	Logger     *zap.Logger
}

// Embedder calls the provider through a circuit breaker and records metrics per call.
type Embedder struct {
	client     *openai.Client
	breaker    *gobreaker.CircuitBreaker
	model      openai.EmbeddingModel
	dimensions int
	user       string
	provider   string
}

// NewEmbedder creates an Embedder.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		breaker:    newBreaker(cfg.Provider, cfg.Breaker, logger),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   cfg.Provider,
	}
}

// Embed implements domain.Embedder. The vector is returned as the provider sent it.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	resp, err := e.call(ctx, text)
	model := string(e.model)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, model, errorClass(err)).Inc()
		return domain.EmbeddingResult{}, providerError(err)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, model).Observe(time.Since(start).Seconds())
	if u := resp.Usage; u.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "prompt").Add(float64(u.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "total").Add(float64(u.TotalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

func (e *Embedder) call(ctx context.Context, text string) (openai.EmbeddingResponse, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
		Dimensions:     max(e.dimensions, 0),
	}

	out, err := e.breaker.Execute(func() (any, error) {
		resp, err := e.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			return nil, errNoEmbedding
		}
		return resp, nil
	})
	if err != nil {
		return openai.EmbeddingResponse{}, err
	}
	return out.(openai.EmbeddingResponse), nil
}

// HealthCheck lists the provider's models. An open breaker fails without a network call.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if e.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("embedding breaker open: %w", domain.ErrEmbeddingProviderError)
	}
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
