package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/fal1winter/mentorsys/internal/db"
)

// Get returns the value at key, or db.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.do(ctx, s.b().Get().Key(key).Build()).AsBytes()
	switch {
	case err == nil:
		return value, nil
	case rueidis.IsRedisNil(err):
		return nil, db.ErrKeyNotFound
	default:
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
}

// Set stores value without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.set(ctx, s.b().Set().Key(key).Value(rueidis.BinaryString(value)).Build())
}

// SetWithTTL stores value for ttl, rounded down to whole seconds.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.set(ctx, s.b().Set().Key(key).Value(rueidis.BinaryString(value)).Ex(ttl).Build())
}

func (s *Store) set(ctx context.Context, cmd rueidis.Completed) error {
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}
