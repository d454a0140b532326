package app

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fal1winter/mentorsys/internal/config"
	"github.com/fal1winter/mentorsys/internal/domain"
	"github.com/fal1winter/mentorsys/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

func embeddingServer(t *testing.T, vec []float32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "test-model",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": vec},
			},
			"usage": map[string]int{"prompt_tokens": 3, "total_tokens": 3},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func embeddingConfig(url string, dims int) config.EmbeddingConfig {
	cfg := config.Config{Embedding: config.EmbeddingConfig{
		Provider:   "test",
		BaseURL:    url,
		Model:      "test-model",
		Dimensions: dims,
	}}
	cfg.ApplyDefaults()
	return cfg.Embedding
}

func TestBuildEmbedder_NormalizesProviderVector(t *testing.T) {
	srv := embeddingServer(t, []float32{3, 4})

	e := BuildEmbedder(embeddingConfig(srv.URL, 2), "semsync:", nil, zap.NewNop())
	res, err := e.Embed(context.Background(), "graph neural networks")
	require.NoError(t, err)
	require.Len(t, res.Embedding, 2)

	assert.InDelta(t, 0.6, res.Embedding[0], 1e-6)
	assert.InDelta(t, 0.8, res.Embedding[1], 1e-6)

	var norm float64
	for _, f := range res.Embedding {
		norm += float64(f) * float64(f)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestBuildEmbedder_BlankTextSkipsProvider(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := BuildEmbedder(embeddingConfig(srv.URL, 4), "semsync:", nil, zap.NewNop())
	res, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 0}, res.Embedding)
	assert.Zero(t, calls)
}

func TestProbe(t *testing.T) {
	srv := embeddingServer(t, []float32{1, 0, 0})

	ok := BuildEmbedder(embeddingConfig(srv.URL, 3), "semsync:", nil, zap.NewNop())
	assert.NoError(t, Probe(context.Background(), ok))

	wrongDim := BuildEmbedder(embeddingConfig(srv.URL, 512), "semsync:", nil, zap.NewNop())
	err := Probe(context.Background(), wrongDim)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrVectorDimMismatch))
}

func TestProbe_ProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := BuildEmbedder(embeddingConfig(srv.URL, 3), "semsync:", nil, zap.NewNop())
	assert.Error(t, Probe(context.Background(), e))
}
