// Package app assembles the components shared by the API server and the reindex job.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fal1winter/mentorsys/internal/config"
	"github.com/fal1winter/mentorsys/internal/db"
	dbRedis "github.com/fal1winter/mentorsys/internal/db/redis"
	"github.com/fal1winter/mentorsys/internal/domain"
	"github.com/fal1winter/mentorsys/internal/metrics"
	collectionrepo "github.com/fal1winter/mentorsys/internal/repository/collection"
	"github.com/fal1winter/mentorsys/internal/repository/embcache"
	openaiEmb "github.com/fal1winter/mentorsys/internal/transport/openai"
	embeddinguc "github.com/fal1winter/mentorsys/internal/usecase/embedding"
)

// probeText is embedded once at startup to verify the provider and its dimension.
const probeText = "semantic search readiness probe"

// OpenStore connects to the vector store and waits until it answers.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (*dbRedis.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("store not ready: %w", err)
	}
	return store, nil
}

// BuildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Normalizing.
// A nil store disables the cache.
func BuildEmbedder(cfg config.EmbeddingConfig, prefix string, store db.KVStore, logger *zap.Logger) *domain.NormalizingEmbedder {
	dims := 0
	if cfg.SendDims {
		dims = cfg.Dimensions
	}

	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: dims,
		Provider:   cfg.Provider,
		Breaker: openaiEmb.BreakerConfig{
			MaxFailures:  cfg.Breaker.MaxFailures,
			OpenTimeout:  time.Duration(cfg.Breaker.OpenTimeoutSec) * time.Second,
			HalfOpenReqs: cfg.Breaker.HalfOpenRequests,
		},
		Logger: logger,
	})

	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, prefix, cfg.Model, cfg.Dimensions, metrics.EmbeddingCacheTotal, logger).
			WithTTL(time.Duration(cfg.CacheTTLSec) * time.Second)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger).
		WithTimeout(time.Duration(cfg.TimeoutSec) * time.Second)

	// Outermost: the cache stores raw provider vectors, normalization happens on every read.
	return domain.NewNormalizingEmbedder(embedder, cfg.Dimensions)
}

// Probe embeds a fixed text and fails when the provider is unreachable or
// returns vectors of the wrong dimension.
func Probe(ctx context.Context, e domain.Embedder) error {
	if _, err := e.Embed(ctx, probeText); err != nil {
		return fmt.Errorf("embedding probe: %w", err)
	}
	return nil
}

// NewCollections creates the collection manager with the configured HNSW parameters.
func NewCollections(store db.IndexManager, prefix string, cfg config.Config) *collectionrepo.Repo {
	return collectionrepo.New(store, prefix, cfg.Embedding.Dimensions).WithHNSW(collectionrepo.HNSWConfig{
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
}
