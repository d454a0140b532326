package indexing

import (
	"context"

	"github.com/fal1winter/mentorsys/internal/domain"
	"github.com/fal1winter/mentorsys/internal/domain/entity"
	"github.com/fal1winter/mentorsys/internal/domain/record"
)

// RecordWriter writes and deletes records of a vector collection.
type RecordWriter interface {
	Insert(ctx context.Context, rec record.Record) error
	Delete(ctx context.Context, kind entity.Kind, id int64) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
