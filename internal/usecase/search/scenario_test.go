package search_test

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/fal1winter/mentorsys/internal/domain"
	"github.com/fal1winter/mentorsys/internal/domain/document"
	"github.com/fal1winter/mentorsys/internal/domain/entity"
	"github.com/fal1winter/mentorsys/internal/domain/record"
	"github.com/fal1winter/mentorsys/internal/domain/search/result"
	"github.com/fal1winter/mentorsys/internal/usecase/indexing"
	"github.com/fal1winter/mentorsys/internal/usecase/search"
)

const dim = 64

// --- Mocks ---

// memCollection is a brute-force cosine store shared by both services.
type memCollection struct {
	mu   sync.Mutex
	recs map[entity.Kind]map[int64]record.Record
}

func newMemCollection() *memCollection {
	return &memCollection{recs: make(map[entity.Kind]map[int64]record.Record)}
}

func (m *memCollection) Insert(_ context.Context, rec record.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recs[rec.Kind()] == nil {
		m.recs[rec.Kind()] = make(map[int64]record.Record)
	}
	if _, dup := m.recs[rec.Kind()][rec.ID()]; dup {
		return errors.New("duplicate id")
	}
	m.recs[rec.Kind()][rec.ID()] = rec
	return nil
}

func (m *memCollection) Delete(_ context.Context, kind entity.Kind, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs[kind], id)
	return nil
}

func (m *memCollection) Get(_ context.Context, kind entity.Kind, id int64) (record.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[kind][id]
	if !ok {
		return record.Record{}, domain.ErrNotIndexed
	}
	return rec, nil
}

func (m *memCollection) Search(_ context.Context, kind entity.Kind, vec []float32, k int) ([]result.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]result.Result, 0, len(m.recs[kind]))
	for id, rec := range m.recs[kind] {
		out = append(out, result.New(kind, id, dot(vec, rec.Vector()), rec.Attributes()))
	}
	result.Rank(out)
	return result.Truncate(out, k), nil
}

func (m *memCollection) Count(_ context.Context, kind entity.Kind) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs[kind]), nil
}

// hashEmbedder is a deterministic bag-of-words embedder. Words with the
// same first five letters share a bucket, so "network" matches "networks".
type hashEmbedder struct {
	failOn string
}

func (h hashEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if h.failOn != "" && strings.Contains(text, h.failOn) {
		return domain.EmbeddingResult{}, domain.ErrEmbeddingProviderError
	}
	v := make([]float32, dim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if len(w) > 5 {
			w = w[:5]
		}
		f := fnv.New32a()
		_, _ = f.Write([]byte(w))
		v[f.Sum32()%dim]++
	}
	return domain.EmbeddingResult{Embedding: v}, nil
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func newPipeline(failOn string) (*indexing.Service, *search.Service, *memCollection) {
	store := newMemCollection()
	emb := domain.NewNormalizingEmbedder(hashEmbedder{failOn: failOn}, dim)
	return indexing.New(store, emb), search.New(store, emb), store
}

var gnnPaper = document.Paper{
	ID:           1,
	Title:        "Graph Neural Networks",
	AbstractText: "A survey of GNNs",
	Keywords:     document.StringList{"gnn", "survey"},
	Authors:      document.StringList{"A. Lee"},
}

func TestScenario_IndexThenSearch(t *testing.T) {
	idx, svc, _ := newPipeline("")
	ctx := context.Background()

	if err := idx.Index(ctx, gnnPaper); err != nil {
		t.Fatalf("index: %v", err)
	}

	hits, err := svc.Search(ctx, entity.Paper, "graph neural network survey", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID() != 1 {
		t.Fatalf("expected paper 1, got %v", hits)
	}
	if s := hits[0].Score(); s < -1 || s > 1+1e-6 || math.IsNaN(s) {
		t.Errorf("score %f outside cosine range", s)
	}

	attrs := document.Present(entity.Paper, hits[0].Attributes())
	if attrs["title"] != "Graph Neural Networks" || attrs["abstract"] != "A survey of GNNs" {
		t.Errorf("unexpected attributes: %v", attrs)
	}
	kw, _ := attrs["keywords"].([]string)
	if len(kw) != 2 || kw[0] != "gnn" || kw[1] != "survey" {
		t.Errorf("unexpected keywords: %v", attrs["keywords"])
	}
}

func TestScenario_ReindexReplaces(t *testing.T) {
	idx, svc, store := newPipeline("")
	ctx := context.Background()

	if err := idx.Index(ctx, gnnPaper); err != nil {
		t.Fatalf("index A: %v", err)
	}
	b := gnnPaper
	b.Title = "Diffusion Models"
	for range 3 {
		if err := idx.Index(ctx, b); err != nil {
			t.Fatalf("index B: %v", err)
		}
	}

	if n, _ := store.Count(ctx, entity.Paper); n != 1 {
		t.Fatalf("expected one record, got %d", n)
	}
	rec, err := store.Get(ctx, entity.Paper, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Attributes()[document.AttrTitle] != "Diffusion Models" {
		t.Errorf("expected attributes from B, got %v", rec.Attributes())
	}
	if _, err := svc.Stats(ctx); err != nil {
		t.Fatalf("stats: %v", err)
	}
}

func TestScenario_DeleteThenSimilarIsNotIndexed(t *testing.T) {
	idx, svc, _ := newPipeline("")
	ctx := context.Background()

	if err := idx.Index(ctx, gnnPaper); err != nil {
		t.Fatalf("index: %v", err)
	}
	if err := idx.Remove(ctx, entity.Paper, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := idx.Remove(ctx, entity.Paper, 1); err != nil {
		t.Fatalf("second remove must succeed: %v", err)
	}

	_, err := svc.SimilarByID(ctx, entity.Paper, 1, 5)
	if !errors.Is(err, domain.ErrNotIndexed) {
		t.Fatalf("expected ErrNotIndexed, got %v", err)
	}
}

func TestScenario_SimilarByIDExcludesSelf(t *testing.T) {
	idx, svc, _ := newPipeline("")
	ctx := context.Background()

	docs := []document.Source{
		gnnPaper,
		document.Paper{ID: 2, Title: "Graph Neural Networks for Molecules"},
		document.Paper{ID: 3, Title: "Protein folding"},
	}
	if n, _ := idx.BatchIndex(ctx, docs); n != 3 {
		t.Fatalf("expected 3 indexed, got %d", n)
	}

	hits, err := svc.SimilarByID(ctx, entity.Paper, 1, 2)
	if err != nil {
		t.Fatalf("similar: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	for _, h := range hits {
		if h.ID() == 1 {
			t.Fatal("query id must not be returned")
		}
	}
	if hits[0].ID() != 2 {
		t.Errorf("expected paper 2 first, got %d", hits[0].ID())
	}
}

func TestScenario_BatchNotesPartialFailure(t *testing.T) {
	idx, svc, _ := newPipeline("MALFORMED")
	ctx := context.Background()

	notes := []document.Source{
		document.Note{ID: 10, PaperID: 1, PaperTitle: "GNN survey", Summary: "message passing recap"},
		document.Note{ID: 11, PaperID: 1, PaperTitle: "GNN survey", Summary: "MALFORMED"},
		document.Note{ID: 12, PaperID: 2, PaperTitle: "Transformers", Summary: "attention heads"},
	}
	n, results := idx.BatchIndex(ctx, notes)
	if n != 2 {
		t.Fatalf("expected indexed=2, got %d", n)
	}
	if results[1].Err() == nil {
		t.Error("expected the malformed note to fail")
	}

	for _, q := range []struct {
		query string
		id    int64
	}{{"message passing", 10}, {"attention heads", 12}} {
		hits, err := svc.Search(ctx, entity.Note, q.query, 5)
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(hits) == 0 || hits[0].ID() != q.id {
			t.Errorf("query %q: expected note %d first, got %v", q.query, q.id, hits)
		}
	}
}

func TestScenario_EmptyQueryEveryKind(t *testing.T) {
	_, svc, _ := newPipeline("")
	for _, k := range entity.All() {
		hits, err := svc.Search(context.Background(), k, "", 5)
		if err != nil || len(hits) != 0 {
			t.Errorf("%s: expected empty list, got %v, %v", k, hits, err)
		}
	}
}
