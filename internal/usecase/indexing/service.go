// Package indexing keeps vector collections in step with entity changes.
package indexing

import (
	"context"
	"fmt"

	"github.com/fal1winter/mentorsys/internal/domain"
	dombatch "github.com/fal1winter/mentorsys/internal/domain/batch"
	"github.com/fal1winter/mentorsys/internal/domain/document"
	"github.com/fal1winter/mentorsys/internal/domain/entity"
	"github.com/fal1winter/mentorsys/internal/domain/record"
)

// MaxBatchSize is the default maximum number of items per batch call.
const MaxBatchSize = 500

// ErrBatchTooLarge is reported for every item of a batch over the size limit.
var ErrBatchTooLarge = fmt.Errorf("batch too large: %w", domain.ErrInvalidDocument)

// Service indexes and removes entity records. Every operation is idempotent.
//
// Index deletes before it inserts, so an id never maps to two records even
// under redelivery. The pair is not atomic: a crash in between leaves the id
// absent until the next index call for it repairs the record.
type Service struct {
	records      RecordWriter
	embed        Embedder
	maxBatchSize int
}

// New creates an indexing service.
func New(records RecordWriter, embed Embedder) *Service {
	return &Service{records: records, embed: embed, maxBatchSize: MaxBatchSize}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Index assembles, embeds and stores a document, replacing any previous record with its id.
func (s *Service) Index(ctx context.Context, doc document.Source) error {
	if doc == nil {
		return fmt.Errorf("nil document: %w", domain.ErrInvalidDocument)
	}
	kind, id := doc.Kind(), doc.EntityID()
	if !kind.Valid() {
		return fmt.Errorf("kind %q: %w", kind, domain.ErrInvalidKind)
	}
	if id <= 0 {
		return fmt.Errorf("%s id %d: %w", kind, id, domain.ErrInvalidDocument)
	}

	assembled := doc.Assemble()

	res, err := s.embed.Embed(ctx, assembled.Text)
	if err != nil {
		return fmt.Errorf("vectorize %s %d: %w", kind, id, err)
	}

	if err := s.records.Delete(ctx, kind, id); err != nil {
		return fmt.Errorf("delete previous %s %d: %w", kind, id, err)
	}

	rec := record.New(kind, id, res.Embedding, assembled.Attributes)
	if err := s.records.Insert(ctx, rec); err != nil {
		return fmt.Errorf("insert %s %d: %w", kind, id, err)
	}
	return nil
}

// Remove deletes the record of an entity. Removing an absent id succeeds.
func (s *Service) Remove(ctx context.Context, kind entity.Kind, id int64) error {
	if !kind.Valid() {
		return fmt.Errorf("kind %q: %w", kind, domain.ErrInvalidKind)
	}
	if err := s.records.Delete(ctx, kind, id); err != nil {
		return fmt.Errorf("remove %s %d: %w", kind, id, err)
	}
	return nil
}

// BatchIndex indexes every document independently. A failed item never stops
// the rest, except for context cancellation which fails all remaining items.
// Returns the number of indexed documents and the per-item outcome.
func (s *Service) BatchIndex(ctx context.Context, docs []document.Source) (int, []dombatch.Result) {
	results := make([]dombatch.Result, len(docs))

	if len(docs) > s.maxBatchSize {
		for i, doc := range docs {
			results[i] = dombatch.NewError(entityID(doc),
				fmt.Errorf("%w: limit is %d", ErrBatchTooLarge, s.maxBatchSize))
		}
		return 0, results
	}

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(docs); j++ {
				results[j] = dombatch.NewError(entityID(docs[j]), fmt.Errorf("batch aborted: %w", err))
			}
			break
		}
		if err := s.Index(ctx, doc); err != nil {
			results[i] = dombatch.NewError(entityID(doc), err)
			continue
		}
		results[i] = dombatch.NewOK(doc.EntityID())
	}

	return dombatch.CountOK(results), results
}

func entityID(doc document.Source) int64 {
	if doc == nil {
		return 0
	}
	return doc.EntityID()
}
