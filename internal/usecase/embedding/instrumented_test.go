package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fal1winter/mentorsys/internal/domain"
)

type mockEmbedder struct {
	result    domain.EmbeddingResult
	err       error
	deadline  time.Time
	hasDL     bool
	healthErr error
}

func (m *mockEmbedder) Embed(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
	m.deadline, m.hasDL = ctx.Deadline()
	return m.result, m.err
}

func (m *mockEmbedder) HealthCheck(_ context.Context) error {
	return m.healthErr
}

func TestInstrumentedEmbedder_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding: []float32{0.1, 0.2, 0.3},
	}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	result, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(result.Embedding))
	}
	if inner.hasDL {
		t.Error("no deadline expected without WithTimeout")
	}
}

func TestInstrumentedEmbedder_WithUsage(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1},
		PromptTokens: 7,
		TotalTokens:  7,
	}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	result, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PromptTokens != 7 || result.TotalTokens != 7 {
		t.Errorf("usage not propagated: %+v", result)
	}
}

func TestInstrumentedEmbedder_Error(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}

func TestInstrumentedEmbedder_WithTimeout(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop()).WithTimeout(2 * time.Second)

	before := time.Now()
	if _, err := p.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inner.hasDL {
		t.Fatal("expected a deadline on the inner call")
	}
	if inner.deadline.Sub(before) > 3*time.Second {
		t.Errorf("deadline too far: %v", inner.deadline.Sub(before))
	}
}

func TestInstrumentedEmbedder_HealthCheck(t *testing.T) {
	inner := &mockEmbedder{healthErr: errors.New("down")}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	if err := p.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health error to propagate")
	}
}

func TestInstrumentedEmbedder_LogLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	for _, err := range []error{domain.ErrEmbeddingProviderError, context.Canceled} {
		inner := &mockEmbedder{err: err}
		if _, got := NewInstrumentedEmbedder(inner, "openai", "bge", logger).Embed(context.Background(), "q"); got == nil {
			t.Fatal("expected error")
		}
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.ErrorLevel || entries[1].Level != zapcore.InfoLevel {
		t.Errorf("levels = %v, %v; want error then info", entries[0].Level, entries[1].Level)
	}
	if entries[0].ContextMap()["model"] != "bge" {
		t.Errorf("model field missing: %v", entries[0].ContextMap())
	}
}
