package service

import (
	"time"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/distribution"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithScoringTable sets the points per finishing rank.
func WithScoringTable(table model.ScoringTable) Option {
	return func(s *Service) {
		if len(table) > 0 {
			s.table = table.Clone()
		}
	}
}

// WithPlayerCount sets the number of players ranked each round. It must match
// the scoring table length; Start rejects a mismatch.
func WithPlayerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.playerCount = count
		}
	}
}

// WithWorkerCount sets the number of per-team workers. Zero computes odds
// inline on the calling goroutine.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count >= 0 {
			s.workerCount = count
		}
	}
}

// WithStore persists built distributions behind the in-memory cache.
func WithStore(store repository.DistributionStore) Option {
	return func(s *Service) {
		if store != nil {
			s.backend = store
		}
	}
}

// WithCacheTTL sets how long built distributions stay in memory. Zero keeps
// them for the life of the process.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithStrategy selects how distributions are built.
func WithStrategy(strategy distribution.Strategy) Option {
	return func(s *Service) {
		if strategy != "" {
			s.strategy = strategy
		}
	}
}

// WithBuildTimeout bounds a single distribution build. Zero or less leaves
// builds bounded only by their callers.
func WithBuildTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.buildTimeout = timeout
		}
	}
}
