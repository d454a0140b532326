package consumer

import (
	"context"

	"github.com/fal1winter/mentorsys/internal/domain/document"
	"github.com/fal1winter/mentorsys/internal/domain/entity"
)

// Indexer applies change events to the vector collections.
type Indexer interface {
	Index(ctx context.Context, doc document.Source) error
	Remove(ctx context.Context, kind entity.Kind, id int64) error
}

// Dialer opens a broker session consuming one queue.
// The session is ready to deliver when Dial returns.
type Dialer interface {
	Dial(ctx context.Context, queue string) (Session, error)
}

// Session is one connection and channel bound to a queue.
// Deliveries is closed when the broker drops the session.
type Session interface {
	Deliveries() <-chan Delivery
	Close() error
}

// Delivery is a single unacknowledged message.
type Delivery interface {
	Body() []byte
	Ack() error
	Nack(requeue bool) error
}
