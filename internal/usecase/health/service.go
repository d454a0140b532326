// Package health aggregates the readiness of the store and the embedding provider.
package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the overall verdict reported by /health.
type Status string

// A single failing dependency degrades the service; all failing makes it unusable.
const (
	Healthy   Status = "ok"
	Degraded  Status = "degraded"
	Unhealthy Status = "error"
)

// CheckResult is the outcome of one dependency probe.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

const defaultProbeTimeout = 3 * time.Second

// Report is the result of one Check.
// Streams carry consumer states for operators only. A broker outage delays
// indexing without affecting the HTTP API, so it never changes Status.
type Report struct {
	Status  Status
	Model   string
	Checks  map[string]CheckResult
	Streams map[string]string
}

type probe struct {
	name string
	run  func(ctx context.Context) error
}

// Service probes dependencies concurrently, each under its own timeout.
type Service struct {
	probes  []probe
	streams StreamReporter
	model   string
	timeout time.Duration
}

// New creates a Service. A nil embedding checker skips the provider probe.
func New(db DBPinger, embedding EmbeddingChecker, model string) *Service {
	s := &Service{model: model, timeout: defaultProbeTimeout}
	s.probes = append(s.probes, probe{name: "database", run: db.Ping})
	if embedding != nil {
		s.probes = append(s.probes, probe{name: "embedding", run: embedding.HealthCheck})
	}
	return s
}

// WithStreams adds change-event stream states to the report.
func (s *Service) WithStreams(r StreamReporter) *Service {
	s.streams = r
	return s
}

// WithTimeout bounds each probe. Non-positive values are ignored.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs every probe and derives the overall status.
func (s *Service) Check(ctx context.Context) Report {
	results := make([]CheckResult, len(s.probes))

	var g errgroup.Group
	for i, p := range s.probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			results[i] = CheckOK
			if p.run(pctx) != nil {
				results[i] = CheckError
			}
			return nil
		})
	}
	_ = g.Wait()

	r := Report{Status: Healthy, Model: s.model, Checks: make(map[string]CheckResult, len(s.probes))}
	failed := 0
	for i, p := range s.probes {
		r.Checks[p.name] = results[i]
		if results[i] == CheckError {
			failed++
		}
	}
	switch {
	case failed == len(s.probes):
		r.Status = Unhealthy
	case failed > 0:
		r.Status = Degraded
	}

	if s.streams != nil {
		r.Streams = s.streams.States()
	}
	return r
}
