package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/redis/rueidis"

	"github.com/kailas-cloud/paralegal/internal/db"
)

var _ db.Store = (*Store)(nil)

// Readiness polling bounds.
const (
	readyFirstDelay = 50 * time.Millisecond
	readyMaxDelay   = time.Second
)

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// ClientName is reported by CLIENT LIST; defaults to "paralegal".
	ClientName string
}

// Store is the Redis 8 (RediSearch built in) document store behind chunk
// retrieval and the embedding cache. One instance is shared by all requests.
type Store struct {
	client rueidis.Client
}

// NewStore connects to Redis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}
	name := cfg.ClientName
	if name == "" {
		name = "paralegal"
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   name,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH replies are parsed as RESP2 arrays
	})
	if err != nil {
		return nil, fmt.Errorf("redis: connect %v: %w", cfg.Addrs, err)
	}
	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings with exponential backoff until Redis answers or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := retry.Do(
		func() error { return s.Ping(ctx) },
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(readyFirstDelay),
		retry.MaxDelay(readyMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("redis not ready after %s: %w", timeout, err)
	}
	return nil
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// isRedisErr reports whether err is a Redis server error mentioning substr, ignoring case.
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
