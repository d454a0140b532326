// Package consumer applies change events from the broker to the vector index.
//
// Each stream runs its own supervisor with a private session, so a stalled
// or broken queue never holds up the others. Within a stream deliveries are
// processed strictly one at a time to keep per-entity ordering.
package consumer

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Default queue names used by the system of record.
const (
	DefaultPaperQueue   = "milvus.sync.paper.queue"
	DefaultNoteQueue    = "milvus.sync.note.queue"
	DefaultScholarQueue = "milvus.sync.scholar.queue"
)

// Stream names.
const (
	StreamPaper   = "paper"
	StreamNote    = "note"
	StreamScholar = "scholar"
)

// Config configures the change-event consumer.
type Config struct {
	PaperQueue   string
	NoteQueue    string
	ScholarQueue string
	Backoff      time.Duration
	RequeueDelay time.Duration
}

func (c *Config) applyDefaults() {
	if c.PaperQueue == "" {
		c.PaperQueue = DefaultPaperQueue
	}
	if c.NoteQueue == "" {
		c.NoteQueue = DefaultNoteQueue
	}
	if c.ScholarQueue == "" {
		c.ScholarQueue = DefaultScholarQueue
	}
	if c.Backoff <= 0 {
		c.Backoff = DefaultBackoff
	}
}

// Consumer runs the paper, note and scholar streams side by side.
type Consumer struct {
	supervisors []*Supervisor
	logger      *zap.Logger
}

// New creates a consumer for the three change-event streams.
func New(cfg Config, dialer Dialer, idx Indexer, logger *zap.Logger) *Consumer {
	cfg.applyDefaults()
	streams := []Stream{
		{Name: StreamPaper, Queue: cfg.PaperQueue, Handle: PaperHandler(idx, logger)},
		{Name: StreamNote, Queue: cfg.NoteQueue, Handle: NoteHandler(idx, logger)},
		{Name: StreamScholar, Queue: cfg.ScholarQueue, Handle: ScholarHandler(logger)},
	}

	c := &Consumer{logger: logger}
	for _, st := range streams {
		c.supervisors = append(c.supervisors,
			NewSupervisor(st, dialer, logger).
				WithBackoff(cfg.Backoff).
				WithRequeueDelay(cfg.RequeueDelay))
	}
	return c
}

// Run blocks until ctx is cancelled and every stream has finished its
// in-flight message and closed its session.
func (c *Consumer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range c.supervisors {
		g.Go(func() error { return s.Run(ctx) })
	}
	c.logger.Info("change-event consumer started", zap.Int("streams", len(c.supervisors)))
	err := g.Wait()
	c.logger.Info("change-event consumer stopped")
	return err
}

// States returns the state name of every stream.
func (c *Consumer) States() map[string]string {
	out := make(map[string]string, len(c.supervisors))
	for _, s := range c.supervisors {
		out[s.Name()] = s.State().String()
	}
	return out
}
