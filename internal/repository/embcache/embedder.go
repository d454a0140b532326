// Package embcache memoizes embeddings in the key-value store, keyed by model and text hash.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/fal1winter/mentorsys/internal/db"
	"github.com/fal1winter/mentorsys/internal/domain"
)

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder serves repeated texts from the store. Store failures degrade to
// provider calls and are only logged.
type CachedEmbedder struct {
	inner     domain.Embedder
	store     store
	namespace string
	ttl       time.Duration
	lookups   *prometheus.CounterVec
	logger    *zap.Logger
}

// New wraps inner. Entries live under "<prefix>emb_cache:<model>:<dims>:<sha256>", so a
// change of model or dimension starts from a cold cache. Empty model and non-positive
// dims are left out of the key. lookups, when set, is counted by label "result" (hit or miss).
func New(
	inner domain.Embedder,
	s store,
	prefix, model string,
	dims int,
	lookups *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	if prefix == "" {
		prefix = domain.DefaultKeyPrefix
	}
	namespace := prefix + "emb_cache:"
	if model != "" {
		namespace += model + ":"
	}
	if dims > 0 {
		namespace += strconv.Itoa(dims) + ":"
	}
	return &CachedEmbedder{
		inner:     inner,
		store:     s,
		namespace: namespace,
		lookups:   lookups,
		logger:    logger,
	}
}

// WithTTL expires entries after ttl. Without it entries never expire.
func (c *CachedEmbedder) WithTTL(ttl time.Duration) *CachedEmbedder {
	if ttl > 0 {
		c.ttl = ttl
	}
	return c
}

// Embed implements domain.Embedder. A hit reports zero tokens.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec, ok := c.lookup(ctx, key); ok {
		c.count("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	c.count("miss")

	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	c.remember(ctx, key, res.Embedding)
	return res, nil
}

// HealthCheck asks the inner embedder; the cache is not consulted.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	hc, ok := c.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	return hc.HealthCheck(ctx)
}

func (c *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.namespace + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return nil, false
	case err != nil:
		c.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	vec, err := decodeVector(data)
	if err != nil {
		c.logger.Warn("Embedding cache entry unreadable", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) remember(ctx context.Context, key string, vec []float32) {
	data := encodeVector(vec)
	var err error
	if c.ttl > 0 {
		err = c.store.SetWithTTL(ctx, key, data, c.ttl)
	} else {
		err = c.store.Set(ctx, key, data)
	}
	if err != nil {
		c.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedEmbedder) count(result string) {
	if c.lookups != nil {
		c.lookups.WithLabelValues(result).Inc()
	}
}
