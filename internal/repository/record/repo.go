// Package record stores and queries the (id, vector, attributes) records of each collection.
package record

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fal1winter/mentorsys/internal/db"
	"github.com/fal1winter/mentorsys/internal/domain"
	"github.com/fal1winter/mentorsys/internal/domain/document"
	"github.com/fal1winter/mentorsys/internal/domain/entity"
	domrec "github.com/fal1winter/mentorsys/internal/domain/record"
	"github.com/fal1winter/mentorsys/internal/domain/search/result"
	"github.com/fal1winter/mentorsys/internal/repository/collection"
)

// store is the consumer interface for records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

const scoreField = "__vector_score"

// Repo implements the vector collection record operations for every kind.
type Repo struct {
	store  store
	prefix string
}

// New creates a record repository. An empty prefix falls back to domain.DefaultKeyPrefix.
func New(s store, prefix string) *Repo {
	if prefix == "" {
		prefix = domain.DefaultKeyPrefix
	}
	return &Repo{store: s, prefix: prefix}
}

// Insert writes a record. Callers delete the previous record first; HSET alone
// would keep attributes the new record no longer carries.
func (r *Repo) Insert(ctx context.Context, rec domrec.Record) error {
	key := r.key(rec.Kind(), rec.ID())
	if err := r.store.HSet(ctx, key, buildHashFields(rec)); err != nil {
		return fmt.Errorf("hset %s: %w: %w", key, domain.ErrBackendUnavailable, err)
	}
	return nil
}

// Delete removes the record stored under id. Deleting an absent id succeeds.
func (r *Repo) Delete(ctx context.Context, kind entity.Kind, id int64) error {
	key := r.key(kind, id)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w: %w", key, domain.ErrBackendUnavailable, err)
	}
	return nil
}

// Get returns the record stored under id, or domain.ErrNotIndexed.
func (r *Repo) Get(ctx context.Context, kind entity.Kind, id int64) (domrec.Record, error) {
	key := r.key(kind, id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domrec.Record{}, fmt.Errorf("hgetall %s: %w: %w", key, domain.ErrBackendUnavailable, err)
	}
	if len(m) == 0 {
		return domrec.Record{}, fmt.Errorf("%s %d: %w", kind, id, domain.ErrNotIndexed)
	}
	return parseHashFields(kind, id, m)
}

// Search returns up to k records nearest to vector, most similar first.
func (r *Repo) Search(ctx context.Context, kind entity.Kind, vector []float32, k int) ([]result.Result, error) {
	if k <= 0 {
		return []result.Result{}, nil
	}

	fields := append([]string{collection.FieldID}, document.StoredFields(kind)...)
	fields = append(fields, scoreField)

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    collection.IndexName(r.prefix, kind),
		Vector:       vector,
		K:            k,
		ReturnFields: fields,
	})
	if err != nil {
		return nil, fmt.Errorf("knn search %s: %w: %w", kind, domain.ErrBackendUnavailable, err)
	}

	keyPrefix := collection.KeyPrefix(r.prefix, kind)
	out := make([]result.Result, 0, len(res.Entries))
	for _, e := range res.Entries {
		id, ok := entryID(e, keyPrefix)
		if !ok {
			continue
		}
		attrs := make(map[string]string, len(e.Fields))
		for name, v := range e.Fields {
			if name != collection.FieldID {
				attrs[name] = v
			}
		}
		out = append(out, result.New(kind, id, e.Score, attrs))
	}
	result.Rank(out)
	return out, nil
}

// Count returns the number of records of a kind.
func (r *Repo) Count(ctx context.Context, kind entity.Kind) (int, error) {
	n, err := r.store.SearchCount(ctx, collection.IndexName(r.prefix, kind), "*")
	if err != nil {
		return 0, fmt.Errorf("count %s: %w: %w", kind, domain.ErrBackendUnavailable, err)
	}
	return n, nil
}

func (r *Repo) key(kind entity.Kind, id int64) string {
	return collection.KeyPrefix(r.prefix, kind) + strconv.FormatInt(id, 10)
}

// entryID reads the record id from the id field, falling back to the key suffix.
func entryID(e db.SearchEntry, keyPrefix string) (int64, bool) {
	raw, ok := e.Fields[collection.FieldID]
	if !ok || raw == "" {
		raw = strings.TrimPrefix(e.Key, keyPrefix)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
