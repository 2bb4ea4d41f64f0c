package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/podium/internal/domain/distribution"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// RedisStore shares built distributions between service instances. Values use
// the distribution file format. Calls go through a circuit breaker so a dead
// Redis costs one fast failure per request instead of a timeout.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  logger.Logger

	maxFailures uint32
	openFor     time.Duration
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:      client,
		prefix:      "podium:distribution:",
		maxFailures: 5,
		openFor:     30 * time.Second,
		logger:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-store",
		MaxRequests: 1,
		Timeout:     s.openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.maxFailures
		},
		// A miss is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})
	return s
}

// DialRedis parses a redis:// URL, connects and pings.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("repository.dial_redis: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("repository.dial_redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) redisKey(key Key) string { return s.prefix + key.String() }

// Save writes m under key with the configured TTL.
func (s *RedisStore) Save(ctx context.Context, key Key, m distribution.Multiplicities) error {
	const op = "repository.redis_save"
	var buf bytes.Buffer
	if err := WriteDistribution(&buf, m); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Set(ctx, s.redisKey(key), buf.Bytes(), s.ttl).Err()
	})
	if err != nil {
		metrics.RecordError("repository", "redis_save")
		return fmt.Errorf("%s: %s: %w", op, key, s.unavailable(err))
	}
	return nil
}

// Load reads the value stored under key.
func (s *RedisStore) Load(ctx context.Context, key Key) (distribution.Multiplicities, error) {
	const op = "repository.redis_load"
	v, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.Get(ctx, s.redisKey(key)).Bytes()
	})
	switch {
	case errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("%s: %s: %w", op, key, ErrNotFound)
	case err != nil:
		metrics.RecordError("repository", "redis_load")
		return nil, fmt.Errorf("%s: %s: %w", op, key, s.unavailable(err))
	}
	m, err := ReadDistribution(bytes.NewReader(v.([]byte)))
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, key, err)
	}
	if err := key.check(m); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}

// State reports the breaker state: closed, half-open or open.
func (s *RedisStore) State() string { return s.breaker.State().String() }

// Close closes the underlying client.
func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) unavailable(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
