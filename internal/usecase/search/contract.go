package search

import (
	"context"

	"github.com/fal1winter/mentorsys/internal/domain"
	"github.com/fal1winter/mentorsys/internal/domain/entity"
	"github.com/fal1winter/mentorsys/internal/domain/record"
	"github.com/fal1winter/mentorsys/internal/domain/search/result"
)

// Repository defines the storage contract for search operations.
type Repository interface {
	Search(ctx context.Context, kind entity.Kind, vector []float32, k int) ([]result.Result, error)
	Get(ctx context.Context, kind entity.Kind, id int64) (record.Record, error)
	Count(ctx context.Context, kind entity.Kind) (int, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
