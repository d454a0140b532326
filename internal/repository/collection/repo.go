// Package collection manages the per-kind FT indexes backing the vector collections.
package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/fal1winter/mentorsys/internal/db"
	"github.com/fal1winter/mentorsys/internal/domain"
	"github.com/fal1winter/mentorsys/internal/domain/entity"
)

// store is the consumer interface for collections (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo creates and drops collection indexes.
type Repo struct {
	store     store
	prefix    string
	vectorDim int
	hnsw      HNSWConfig
}

// New creates a collection repository. An empty prefix falls back to domain.DefaultKeyPrefix.
func New(s store, prefix string, vectorDim int) *Repo {
	if prefix == "" {
		prefix = domain.DefaultKeyPrefix
	}
	return &Repo{store: s, prefix: prefix, vectorDim: vectorDim, hnsw: HNSWConfig{M: 16, EFConstruct: 200}}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// Ensure creates the index of a kind if it is missing. Returns true if created.
// Losing a creation race to another instance counts as success.
func (r *Repo) Ensure(ctx context.Context, kind entity.Kind) (bool, error) {
	name := IndexName(r.prefix, kind)

	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w: %w", name, domain.ErrBackendUnavailable, err)
	}
	if exists {
		return false, nil
	}

	def, err := buildIndex(r.prefix, kind, r.vectorDim, r.hnsw)
	if err != nil {
		return false, fmt.Errorf("build index: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w: %w", name, domain.ErrBackendUnavailable, err)
	}
	return true, nil
}

// EnsureAll ensures the index of every given kind, stopping at the first failure.
// Returns the kinds whose index was created.
func (r *Repo) EnsureAll(ctx context.Context, kinds ...entity.Kind) ([]entity.Kind, error) {
	var created []entity.Kind
	for _, k := range kinds {
		ok, err := r.Ensure(ctx, k)
		if err != nil {
			return created, fmt.Errorf("ensure %s: %w", k, err)
		}
		if ok {
			created = append(created, k)
		}
	}
	return created, nil
}

// Drop removes the index of a kind. Stored records are kept, so a later
// Ensure re-indexes them under the current parameters. A missing index is not an error.
func (r *Repo) Drop(ctx context.Context, kind entity.Kind) error {
	name := IndexName(r.prefix, kind)
	if err := r.store.DropIndex(ctx, name); err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil
		}
		return fmt.Errorf("drop index %s: %w: %w", name, domain.ErrBackendUnavailable, err)
	}
	return nil
}

// Key patterns: semsync:{collection}:idx, semsync:{collection}:{id}

// IndexName returns the FT index name of a kind.
func IndexName(prefix string, kind entity.Kind) string {
	return fmt.Sprintf("%s%s:idx", prefix, kind.Collection())
}

// KeyPrefix returns the key prefix shared by every record of a kind.
func KeyPrefix(prefix string, kind entity.Kind) string {
	return fmt.Sprintf("%s%s:", prefix, kind.Collection())
}
