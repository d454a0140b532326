package domain

import (
	"context"
	"errors"
	"math"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    string
	calls  int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = text
	s.calls++
	return s.result, s.err
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

func TestNormalizingEmbedder_BlankTextIsZeroVector(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{1, 2, 3}}}
	emb := NewNormalizingEmbedder(inner, 3)

	for _, text := range []string{"", "   ", "\n\t"} {
		res, err := emb.Embed(context.Background(), text)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", text, err)
		}
		if len(res.Embedding) != 3 {
			t.Fatalf("expected dimension 3, got %d", len(res.Embedding))
		}
		if norm(res.Embedding) != 0 {
			t.Errorf("expected zero vector for %q, got %v", text, res.Embedding)
		}
	}
	if inner.calls != 0 {
		t.Errorf("provider must not be called for blank text, got %d calls", inner.calls)
	}
}

func TestNormalizingEmbedder_UnitLength(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{3, 4}, TotalTokens: 7}}
	emb := NewNormalizingEmbedder(inner, 2)

	res, err := emb.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(norm(res.Embedding)-1) > 1e-6 {
		t.Errorf("expected unit norm, got %f", norm(res.Embedding))
	}
	if math.Abs(float64(res.Embedding[0])-0.6) > 1e-6 || math.Abs(float64(res.Embedding[1])-0.8) > 1e-6 {
		t.Errorf("unexpected vector: %v", res.Embedding)
	}
	if res.TotalTokens != 7 {
		t.Errorf("expected usage to pass through, got %d", res.TotalTokens)
	}
	if inner.got != "hello" {
		t.Errorf("expected text passed as-is, got %q", inner.got)
	}
}

func TestNormalizingEmbedder_Deterministic(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.5, 0.1, 0.9}}}
	emb := NewNormalizingEmbedder(inner, 3)

	a, _ := emb.Embed(context.Background(), "same")
	b, _ := emb.Embed(context.Background(), "same")
	for i := range a.Embedding {
		if a.Embedding[i] != b.Embedding[i] {
			t.Fatalf("vectors differ at %d: %v vs %v", i, a.Embedding, b.Embedding)
		}
	}
}

func TestNormalizingEmbedder_DimensionMismatch(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{1, 2}}}
	emb := NewNormalizingEmbedder(inner, 4)

	_, err := emb.Embed(context.Background(), "text")
	if !errors.Is(err, ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestNormalizingEmbedder_PropagatesError(t *testing.T) {
	inner := &stubEmbedder{err: ErrEmbeddingProviderError}
	emb := NewNormalizingEmbedder(inner, 4)

	_, err := emb.Embed(context.Background(), "text")
	if !errors.Is(err, ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestNormalize_ZeroStaysZero(t *testing.T) {
	out := Normalize([]float32{0, 0, 0})
	if norm(out) != 0 {
		t.Errorf("expected zero vector, got %v", out)
	}
}
