// Package metrics holds the Prometheus collectors of the service.
// HTTP collectors register at init; the others register from main.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Embedding provider and cache collectors.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "requests_total",
		Help:      "Embedding provider calls by outcome",
	}, []string{"provider", "model", "status"})

	EmbeddingRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "request_duration_seconds",
		Help:      "Latency of embedding provider calls",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2.5, 8),
	}, []string{"provider", "model"})

	EmbeddingTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "tokens_total",
		Help:      "Tokens reported by the provider",
	}, []string{"provider", "model", "type"})

	EmbeddingErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "errors_total",
		Help:      "Failed embedding calls by error class",
	}, []string{"provider", "model", "error_type"})

	// EmbeddingBreakerState is 0 closed, 1 half-open, 2 open.
	EmbeddingBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "breaker_state",
		Help:      "Circuit breaker state of the provider (0 closed, 1 half-open, 2 open)",
	}, []string{"provider"})

	// EmbeddingCacheTotal counts lookups by result: hit or miss.
	EmbeddingCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "cache_total",
		Help:      "Embedding cache lookups",
	}, []string{"result"})
)

var registerEmbedding sync.Once

// RegisterEmbeddingMetrics registers the embedding collectors with the default registry.
// Later calls are no-ops.
func RegisterEmbeddingMetrics() {
	registerEmbedding.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingBreakerState,
			EmbeddingCacheTotal,
		)
	})
}
