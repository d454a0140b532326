package embcache

import (
	"context"
	"time"

	"github.com/fal1winter/mentorsys/internal/db"
	"github.com/fal1winter/mentorsys/internal/domain"
)

// countingEmbedder returns a fixed vector and counts provider calls.
type countingEmbedder struct {
	vec    []float32
	tokens int
	err    error
	calls  int
}

func (e *countingEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	e.calls++
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	return domain.EmbeddingResult{Embedding: e.vec, PromptTokens: e.tokens, TotalTokens: e.tokens}, nil
}

type healthyEmbedder struct {
	countingEmbedder
	health error
}

func (e *healthyEmbedder) HealthCheck(context.Context) error { return e.health }

// memStore is a map-backed key-value store. readErr and writeErr, when set,
// are returned by every read or write.
type memStore struct {
	entries  map[string][]byte
	ttls     map[string]time.Duration
	plain    int
	readErr  error
	writeErr error
}

func newMemStore() *memStore {
	return &memStore{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	v, ok := s.entries[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.plain++
	s.entries[key] = value
	return nil
}

func (s *memStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.entries[key] = value
	s.ttls[key] = ttl
	return nil
}
