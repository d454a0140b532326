// Package search answers similarity queries over the vector collections.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/fal1winter/mentorsys/internal/domain"
	"github.com/fal1winter/mentorsys/internal/domain/document"
	"github.com/fal1winter/mentorsys/internal/domain/entity"
	"github.com/fal1winter/mentorsys/internal/domain/search/request"
	"github.com/fal1winter/mentorsys/internal/domain/search/result"
)

// Unified holds one ranked list per kind covered by a unified search.
type Unified struct {
	Papers []result.Result
	Notes  []result.Result
}

// queryTexter is implemented by sources whose similarity probe differs from their indexed text.
type queryTexter interface {
	QueryText() string
}

// Service handles semantic search, unified search and similarity lookups.
type Service struct {
	repo   Repository
	embed  Embedder
	limits request.Limits
}

// New creates a search service.
func New(repo Repository, embed Embedder) *Service {
	return &Service{repo: repo, embed: embed}
}

// WithLimits configures topK defaults and caps.
func (s *Service) WithLimits(l request.Limits) *Service {
	s.limits = l
	return s
}

// Search embeds the query and returns the topK nearest records of a kind.
// A blank query returns an empty list.
func (s *Service) Search(ctx context.Context, kind entity.Kind, query string, topK int) ([]result.Result, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("kind %q: %w", kind, domain.ErrInvalidKind)
	}
	if strings.TrimSpace(query) == "" {
		return []result.Result{}, nil
	}

	vec, err := s.vectorize(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.knn(ctx, kind, vec, s.limits.TopK(topK))
}

// SearchUnified searches papers and notes with a single query embedding.
// Kinds outside the scope, and every kind for an unknown scope, get an empty list.
func (s *Service) SearchUnified(ctx context.Context, query string, topK int, scope request.Scope) (Unified, error) {
	out := Unified{Papers: []result.Result{}, Notes: []result.Result{}}
	if strings.TrimSpace(query) == "" {
		return out, nil
	}
	if !scope.Includes(entity.Paper) && !scope.Includes(entity.Note) {
		return out, nil
	}

	vec, err := s.vectorize(ctx, query)
	if err != nil {
		return Unified{}, err
	}
	k := s.limits.TopK(topK)

	if scope.Includes(entity.Paper) {
		if out.Papers, err = s.knn(ctx, entity.Paper, vec, k); err != nil {
			return Unified{}, err
		}
	}
	if scope.Includes(entity.Note) {
		if out.Notes, err = s.knn(ctx, entity.Note, vec, k); err != nil {
			return Unified{}, err
		}
	}
	return out, nil
}

// SimilarByID returns the topK records nearest to the stored vector of id, excluding id itself.
// Returns domain.ErrNotIndexed when id has no record.
func (s *Service) SimilarByID(ctx context.Context, kind entity.Kind, id int64, topK int) ([]result.Result, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("kind %q: %w", kind, domain.ErrInvalidKind)
	}

	rec, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", kind, id, err)
	}
	if isZero(rec.Vector()) {
		return []result.Result{}, nil
	}

	k := s.limits.TopK(topK)
	hits, err := s.knn(ctx, kind, rec.Vector(), k+1)
	if err != nil {
		return nil, err
	}
	return result.Truncate(result.Without(hits, id), k), nil
}

// SimilarByText embeds a freshly assembled document and returns its topK nearest records.
// excludeID > 0 drops that id from the results. Blank text returns an empty list.
func (s *Service) SimilarByText(
	ctx context.Context, doc document.Source, excludeID int64, topK int,
) ([]result.Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil document: %w", domain.ErrInvalidDocument)
	}
	kind := doc.Kind()

	text := doc.Assemble().Text
	if qt, ok := doc.(queryTexter); ok {
		text = qt.QueryText()
	}
	if strings.TrimSpace(text) == "" {
		return []result.Result{}, nil
	}

	vec, err := s.vectorize(ctx, text)
	if err != nil {
		return nil, err
	}

	k := s.limits.TopK(topK)
	if excludeID <= 0 {
		return s.knn(ctx, kind, vec, k)
	}

	hits, err := s.knn(ctx, kind, vec, k+1)
	if err != nil {
		return nil, err
	}
	return result.Truncate(result.Without(hits, excludeID), k), nil
}

// Stats returns the record count of every kind.
func (s *Service) Stats(ctx context.Context) (map[entity.Kind]int, error) {
	out := make(map[entity.Kind]int, len(entity.All()))
	for _, k := range entity.All() {
		n, err := s.repo.Count(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

func (s *Service) vectorize(ctx context.Context, text string) ([]float32, error) {
	res, err := s.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	return res.Embedding, nil
}

func (s *Service) knn(ctx context.Context, kind entity.Kind, vec []float32, k int) ([]result.Result, error) {
	hits, err := s.repo.Search(ctx, kind, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", kind, err)
	}
	result.Rank(hits)
	return hits, nil
}

// isZero reports whether v has no direction; cosine similarity is undefined for it.
func isZero(v []float32) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}
