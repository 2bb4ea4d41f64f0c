package repository

import (
	"time"

	"github.com/okian/podium/pkg/logger"
)

// Option applies a configuration option to the CacheStore.
type Option func(*CacheStore)

// WithTTL sets how long a distribution stays cached. Zero or less keeps
// entries until the process exits.
func WithTTL(ttl time.Duration) Option {
	return func(s *CacheStore) {
		s.ttl = ttl
	}
}

// WithBackend puts the cache in front of another store. Misses fall through to
// it and saves are written through.
func WithBackend(next DistributionStore) Option {
	return func(s *CacheStore) {
		if next != nil {
			s.next = next
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *CacheStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// RedisOption applies a configuration option to the RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix namespaces the keys the store writes.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRedisTTL expires stored values after ttl. Zero keeps them forever.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

// WithBreaker opens the circuit after maxFailures consecutive errors and keeps
// it open for openFor before probing again.
func WithBreaker(maxFailures uint32, openFor time.Duration) RedisOption {
	return func(s *RedisStore) {
		if maxFailures > 0 {
			s.maxFailures = maxFailures
		}
		if openFor > 0 {
			s.openFor = openFor
		}
	}
}

// WithRedisLogger sets the logger for breaker state changes.
func WithRedisLogger(l logger.Logger) RedisOption {
	return func(s *RedisStore) {
		if l != nil {
			s.logger = l
		}
	}
}
