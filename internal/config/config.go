// Package config loads the YAML configuration of the semsync binaries.
package config

import (
	"cmp"
	"errors"
	"fmt"

	"github.com/fal1winter/mentorsys/internal/domain"
)

// Config holds the semsync service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	Index     IndexConfig     `yaml:"index"`
	Storage   StorageConfig   `yaml:"storage"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Search    SearchConfig    `yaml:"search"`
	Reindex   ReindexConfig   `yaml:"reindex"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	HealthSec       int   `yaml:"health_timeout_sec"`
	MaxBodyBytes    int64 `yaml:"max_body_bytes"`
}

// DatabaseConfig holds vector store connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds HNSW index and batch settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
	MaxBatchSize    int `yaml:"max_batch_size"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider    string        `yaml:"provider"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Dimensions  int           `yaml:"dimensions"`
	SendDims    bool          `yaml:"send_dimensions"` // forward Dimensions to the provider
	TimeoutSec  int           `yaml:"timeout_sec"`
	CacheTTLSec int           `yaml:"cache_ttl_sec"` // 0 = keep forever
	Breaker     BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker settings for the embedding provider.
type BreakerConfig struct {
	MaxFailures      uint32 `yaml:"max_failures"`
	OpenTimeoutSec   int    `yaml:"open_timeout_sec"`
	HalfOpenRequests uint32 `yaml:"half_open_requests"`
}

// RabbitMQConfig holds change-event consumer settings.
type RabbitMQConfig struct {
	Enabled        bool   `yaml:"enabled"`
	URL            string `yaml:"url"`
	PaperQueue     string `yaml:"paper_queue"`
	NoteQueue      string `yaml:"note_queue"`
	ScholarQueue   string `yaml:"scholar_queue"`
	ReconnectSec   int    `yaml:"reconnect_sec"`
	RequeueDelayMS int    `yaml:"requeue_delay_ms"`
	HeartbeatSec   int    `yaml:"heartbeat_sec"`
}

// SearchConfig holds topK limits.
type SearchConfig struct {
	DefaultTopK int `yaml:"default_top_k"`
	MaxTopK     int `yaml:"max_top_k"`
}

// ReindexConfig holds the relational source used by the reindex job.
type ReindexConfig struct {
	Driver        string  `yaml:"driver"` // mysql, sqlite
	DSN           string  `yaml:"dsn"`
	RatePerSecond float64 `yaml:"rate_per_second"`
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	orDefault(&c.HTTP.ReadTimeoutSec, 10)
	orDefault(&c.HTTP.WriteTimeoutSec, 30)
	orDefault(&c.HTTP.ShutdownSec, 10)
	orDefault(&c.HTTP.HealthSec, 3)
	orDefault(&c.HTTP.MaxBodyBytes, 10<<20)
	orDefault(&c.Database.ReadinessTimeout, 10)

	orDefault(&c.Index.HNSWM, 16)
	orDefault(&c.Index.HNSWEFConstruct, 200)
	orDefault(&c.Index.MaxBatchSize, 500)
	orDefault(&c.Storage.KeyPrefix, domain.DefaultKeyPrefix)

	e := &c.Embedding
	orDefault(&e.Provider, "openai")
	orDefault(&e.Dimensions, domain.DefaultVectorConfig().Dimensions)
	orDefault(&e.TimeoutSec, 30)
	orDefault(&e.Breaker.MaxFailures, 5)
	orDefault(&e.Breaker.OpenTimeoutSec, 30)
	orDefault(&e.Breaker.HalfOpenRequests, 1)

	// Queue names are shared with the producing backend.
	mq := &c.RabbitMQ
	orDefault(&mq.PaperQueue, "milvus.sync.paper.queue")
	orDefault(&mq.NoteQueue, "milvus.sync.note.queue")
	orDefault(&mq.ScholarQueue, "milvus.sync.scholar.queue")
	orDefault(&mq.ReconnectSec, 5)
	orDefault(&mq.RequeueDelayMS, 1000)
	orDefault(&mq.HeartbeatSec, 60)

	orDefault(&c.Search.DefaultTopK, 10)
	orDefault(&c.Search.MaxTopK, 100)
	orDefault(&c.Reindex.Driver, "mysql")
	orDefault(&c.Reindex.RatePerSecond, 20)
}

// orDefault sets *field to def when it is unset: empty, zero or negative.
func orDefault[T cmp.Ordered](field *T, def T) {
	var zero T
	if *field <= zero {
		*field = def
	}
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}
	if len(c.Database.Addrs) == 0 {
		errs = append(errs, errors.New("database.addrs is required"))
	}
	if c.Embedding.Model == "" {
		errs = append(errs, errors.New("embedding.model is required"))
	}
	if c.Embedding.BaseURL == "" {
		errs = append(errs, errors.New("embedding.base_url is required"))
	}
	if c.Search.DefaultTopK > c.Search.MaxTopK {
		errs = append(errs, fmt.Errorf("search.default_top_k (%d) must not exceed search.max_top_k (%d)",
			c.Search.DefaultTopK, c.Search.MaxTopK))
	}
	if c.RabbitMQ.Enabled && c.RabbitMQ.URL == "" {
		errs = append(errs, errors.New("rabbitmq.url is required when rabbitmq.enabled is true"))
	}
	if d := c.Reindex.Driver; d != "mysql" && d != "sqlite" {
		errs = append(errs, fmt.Errorf("reindex.driver must be \"mysql\" or \"sqlite\", got %q", d))
	}
	return errors.Join(errs...)
}
