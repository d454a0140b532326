// Package amqp connects change-event streams to RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/fal1winter/mentorsys/internal/consumer"
)

// Config holds broker connection settings.
type Config struct {
	URL         string
	Heartbeat   time.Duration
	DialTimeout time.Duration
	// Prefetch bounds unacknowledged deliveries per channel. Defaults to 1,
	// which keeps per-entity ordering.
	Prefetch  int
	TagPrefix string
}

// Dialer opens one connection and channel per queue.
type Dialer struct {
	cfg    Config
	logger *zap.Logger
}

// NewDialer creates a Dialer.
func NewDialer(cfg Config, logger *zap.Logger) *Dialer {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 60 * time.Second
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if cfg.TagPrefix == "" {
		cfg.TagPrefix = "semsync"
	}
	return &Dialer{cfg: cfg, logger: logger}
}

// Dial connects, declares the queue durable, sets QoS and starts a
// manual-ack consumer.
func (d *Dialer) Dial(ctx context.Context, queue string) (consumer.Session, error) {
	conn, err := amqp.DialConfig(d.cfg.URL, amqp.Config{
		Heartbeat: d.cfg.Heartbeat,
		Dial: func(network, addr string) (net.Conn, error) {
			nd := net.Dialer{Timeout: d.cfg.DialTimeout}
			return nd.DialContext(ctx, network, addr)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("amqp connect: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	fail := func(step string, err error) (consumer.Session, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp %s %s: %w", step, queue, err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fail("declare", err)
	}
	if err := ch.Qos(d.cfg.Prefetch, 0, false); err != nil {
		return fail("qos", err)
	}

	tag := consumerTag(d.cfg.TagPrefix, queue)
	in, err := ch.Consume(queue, tag, false, false, false, false, nil)
	if err != nil {
		return fail("consume", err)
	}

	d.logger.Debug("amqp session opened", zap.String("queue", queue), zap.String("consumer_tag", tag))
	return newSession(conn, ch, in), nil
}

func consumerTag(prefix, queue string) string {
	return prefix + "-" + queue + "-" + uuid.NewString()
}

type session struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	out  chan consumer.Delivery
	done chan struct{}
	once sync.Once
}

func newSession(conn *amqp.Connection, ch *amqp.Channel, in <-chan amqp.Delivery) *session {
	s := &session{
		conn: conn,
		ch:   ch,
		out:  make(chan consumer.Delivery),
		done: make(chan struct{}),
	}
	go s.forward(in)
	return s
}

// forward relays broker deliveries until the broker closes them or the
// session is closed.
func (s *session) forward(in <-chan amqp.Delivery) {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case d, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- delivery{d: d}:
			case <-s.done:
				return
			}
		}
	}
}

func (s *session) Deliveries() <-chan consumer.Delivery { return s.out }

func (s *session) Close() error {
	var errs []error
	s.once.Do(func() {
		close(s.done)
		if s.ch != nil {
			if err := s.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
				errs = append(errs, fmt.Errorf("close channel: %w", err))
			}
		}
		if s.conn != nil {
			if err := s.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
				errs = append(errs, fmt.Errorf("close connection: %w", err))
			}
		}
	})
	return errors.Join(errs...)
}

type delivery struct {
	d amqp.Delivery
}

func (d delivery) Body() []byte { return d.d.Body }

func (d delivery) Ack() error { return d.d.Ack(false) }

func (d delivery) Nack(requeue bool) error { return d.d.Nack(false, requeue) }
