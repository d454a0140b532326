// Package redis implements db.Store on Redis 8 (or Redis Stack) through rueidis.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/fal1winter/mentorsys/internal/db"
)

var _ db.Store = (*Store)(nil)

const readyPollInterval = 100 * time.Millisecond

// Config holds connection parameters.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
}

// Store is a rueidis-backed db.Store.
type Store struct {
	client rueidis.Client
}

// NewStore connects to the first reachable address in cfg.Addrs.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("redis: at least one address is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		// FT.SEARCH replies are parsed as flat RESP2 arrays.
		AlwaysRESP2: true,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: connect: %w", err)
	}
	return &Store{client: client}, nil
}

// Ping sends PING.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases the connections.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings until the store answers or timeout elapses.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("redis not ready after %s: %w", timeout, ctx.Err())
		case <-ticker.C:
			if s.Ping(ctx) == nil {
				return nil
			}
		}
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// serverErrorMentions reports whether err is a server reply whose message
// contains any of the fragments, ignoring case.
func serverErrorMentions(err error, fragments ...string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	msg := strings.ToLower(re.Error())
	for _, f := range fragments {
		if strings.Contains(msg, strings.ToLower(f)) {
			return true
		}
	}
	return false
}
