package health

import "context"

// DBPinger is the store, probed with PING.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker is the embedding provider chain.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// StreamReporter exposes the supervisor state of each change-event stream.
type StreamReporter interface {
	States() map[string]string
}
