package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/fal1winter/mentorsys/internal/metrics"
)

// State is the connection state of a stream supervisor.
type State int32

const (
	// Disconnected is the initial state and the state after any session error.
	Disconnected State = iota
	// Connecting means a dial is in progress.
	Connecting
	// Consuming means deliveries are being processed.
	Consuming
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Consuming:
		return "consuming"
	}
	return "unknown"
}

// DefaultBackoff is the pause between reconnect attempts.
const DefaultBackoff = 5 * time.Second

// ErrMalformed marks a message that can never be processed. It is rejected
// without requeue.
var ErrMalformed = errors.New("malformed message")

var errSessionClosed = errors.New("broker closed the delivery channel")

// Handler processes the body of one message.
type Handler func(ctx context.Context, body []byte) error

// Stream binds a queue to its handler.
type Stream struct {
	Name   string
	Queue  string
	Handle Handler
}

// Supervisor keeps one stream consuming: it dials, processes deliveries one
// at a time, and on any session failure waits and dials again, forever.
type Supervisor struct {
	stream       Stream
	dialer       Dialer
	backoff      time.Duration
	requeueDelay time.Duration
	logger       *zap.Logger
	state        atomic.Int32
}

// NewSupervisor creates a supervisor in the Disconnected state.
func NewSupervisor(stream Stream, dialer Dialer, logger *zap.Logger) *Supervisor {
	s := &Supervisor{
		stream:  stream,
		dialer:  dialer,
		backoff: DefaultBackoff,
		logger:  logger.With(zap.String("stream", stream.Name), zap.String("queue", stream.Queue)),
	}
	s.setState(Disconnected)
	return s
}

// WithBackoff sets the reconnect pause.
func (s *Supervisor) WithBackoff(d time.Duration) *Supervisor {
	if d > 0 {
		s.backoff = d
	}
	return s
}

// WithRequeueDelay holds a failed message for d before returning it to the
// queue, so a backend outage does not spin on redeliveries.
func (s *Supervisor) WithRequeueDelay(d time.Duration) *Supervisor {
	if d >= 0 {
		s.requeueDelay = d
	}
	return s
}

// Name returns the stream name.
func (s *Supervisor) Name() string { return s.stream.Name }

// State returns the current state.
func (s *Supervisor) State() State { return State(s.state.Load()) }

func (s *Supervisor) setState(st State) {
	s.state.Store(int32(st))
	metrics.ConsumerState.WithLabelValues(s.stream.Name).Set(float64(st))
}

// Run consumes until ctx is cancelled. It never returns a session error;
// those trigger a reconnect instead.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		err := s.session(ctx)
		s.setState(Disconnected)
		if ctx.Err() != nil {
			s.logger.Info("stream stopped")
			return nil
		}

		metrics.ConsumerReconnectsTotal.WithLabelValues(s.stream.Name).Inc()
		s.logger.Warn("stream session lost, reconnecting",
			zap.Error(err), zap.Duration("backoff", s.backoff))

		if !s.wait(ctx, s.backoff) {
			s.logger.Info("stream stopped")
			return nil
		}
	}
}

// session runs one broker session. It returns nil only when ctx is done.
func (s *Supervisor) session(ctx context.Context) error {
	s.setState(Connecting)
	sess, err := s.dialer.Dial(ctx, s.stream.Queue)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			s.logger.Debug("close session", zap.Error(cerr))
		}
	}()

	s.setState(Consuming)
	s.logger.Info("stream consuming")

	deliveries := sess.Deliveries()
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errSessionClosed
			}
			if err := s.process(ctx, d); err != nil {
				return err
			}
		}
	}
}

// process handles one delivery to completion even if ctx is cancelled
// meanwhile, then settles it. Only settlement errors are returned.
func (s *Supervisor) process(ctx context.Context, d Delivery) error {
	start := time.Now()
	err := s.stream.Handle(context.WithoutCancel(ctx), d.Body())
	metrics.ConsumerHandleDuration.WithLabelValues(s.stream.Name).Observe(time.Since(start).Seconds())

	var outcome string
	var settleErr error
	switch {
	case err == nil:
		outcome = "ack"
		settleErr = d.Ack()
	case errors.Is(err, ErrMalformed):
		outcome = "reject"
		s.logger.Error("rejecting malformed message", zap.Error(err))
		settleErr = d.Nack(false)
	default:
		outcome = "requeue"
		s.logger.Warn("message failed, requeueing", zap.Error(err))
		s.wait(ctx, s.requeueDelay)
		settleErr = d.Nack(true)
	}
	metrics.ConsumerMessagesTotal.WithLabelValues(s.stream.Name, outcome).Inc()

	if settleErr != nil {
		return fmt.Errorf("settle message (%s): %w", outcome, settleErr)
	}
	return nil
}

// wait sleeps for d and reports false if ctx ended first.
func (s *Supervisor) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
