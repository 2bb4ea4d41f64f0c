// Package service wires the distribution builder, the store and the odds
// engine into the operations the HTTP API and the tools call.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/podium/internal/adapters/mq/worker"
	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/dedupe"
	"github.com/okian/podium/internal/domain/distribution"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/odds"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

const stopTimeout = 30 * time.Second

// MaxTeams bounds a roster. Odds cost grows with the fourth power of the
// roster size.
const MaxTeams = 64

// OddsRequest asks for placement odds for a roster.
type OddsRequest struct {
	// Rounds still to be played.
	Rounds int `json:"rounds" validate:"gte=0"`
	// ParticipantCount sizes the outcome space. Zero means one per team.
	ParticipantCount int `json:"participant_count" validate:"gte=0"`
	// Teams in roster order.
	Teams model.Teams `json:"teams" validate:"required,min=1,max=64,dive"`
}

// OddsResponse carries the rounded odds of one run.
type OddsResponse struct {
	RunID            string       `json:"run_id"`
	Rounds           int          `json:"rounds"`
	ParticipantCount int          `json:"participant_count"`
	Results          model.Result `json:"results"`
}

// Service implements the API dependencies for the odds system.
type Service struct {
	mu sync.RWMutex

	// Core components
	builder *distribution.Builder
	store   *repository.CacheStore
	backend repository.DistributionStore
	pool    *worker.Pool
	deduper dedupe.Deduper

	// Configuration
	table        model.ScoringTable
	playerCount  int
	workerCount  int
	cacheTTL     time.Duration
	buildTimeout time.Duration
	strategy     distribution.Strategy

	// State
	started  bool
	builds   atomic.Int64
	oddsRuns atomic.Int64

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	table, _ := model.Preset(model.PresetMarbleRally2020)
	s := &Service{
		table:       table,
		workerCount: runtime.NumCPU(),
		cacheTTL:    time.Hour,
		strategy:    distribution.Convolution,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.playerCount == 0 {
		s.playerCount = s.table.PlayerCount()
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.playerCount != s.table.PlayerCount() {
		return fmt.Errorf("service.start: player count %d, scoring table has %d entries: %w",
			s.playerCount, s.table.PlayerCount(), model.ErrInvalidArgument)
	}

	builder, err := distribution.NewBuilder(s.table,
		distribution.WithStrategy(s.strategy),
		distribution.WithLogger(s.logger.Named("builder")),
	)
	if err != nil {
		return fmt.Errorf("service.start: %w", err)
	}
	s.builder = builder

	storeOpts := []repository.Option{repository.WithTTL(s.cacheTTL)}
	if s.backend != nil {
		storeOpts = append(storeOpts, repository.WithBackend(s.backend))
	}
	s.store = repository.NewCacheStore(ctx, storeOpts...)
	s.deduper = dedupe.NewInFlightDeduper(dedupe.WithTimeout(s.buildTimeout))
	if s.workerCount > 0 {
		s.pool = worker.NewPool(s.workerCount, worker.WithPoolLogger(s.logger.Named("worker-pool")))
	}

	s.started = true
	s.logger.Info(ctx, "odds service started",
		logger.Int("players", s.playerCount),
		logger.String("table", s.table.String()),
		logger.String("strategy", string(s.strategy)),
		logger.Int("workers", s.workerCount),
		logger.Bool("persistent", s.backend != nil),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if s.pool != nil {
		if err := s.pool.Stop(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool did not stop cleanly", logger.Error(err))
		}
	}
	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(ctx, "odds service stopped")
}

// components returns the running components, or ErrNotStarted.
func (s *Service) components() (*distribution.Builder, *repository.CacheStore, dedupe.Deduper, *worker.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, nil, nil, ErrNotStarted
	}
	return s.builder, s.store, s.deduper, s.pool, nil
}

// Distribution returns the multiplicity form for rounds, serving it from the
// store when possible. Concurrent requests for the same rounds share a build.
func (s *Service) Distribution(ctx context.Context, rounds int) (distribution.Multiplicities, error) {
	const op = "service.distribution"
	builder, store, deduper, _, err := s.components()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rounds < 0 {
		return nil, fmt.Errorf("%s: %d rounds: %w", op, rounds, model.ErrInvalidArgument)
	}

	key := repository.KeyFor(builder.Table(), rounds)
	m, err := store.Load(ctx, key)
	switch {
	case err == nil:
		return m, nil
	case ctx.Err() != nil:
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	case errors.Is(err, repository.ErrUnavailable):
		s.logger.Warn(ctx, "distribution store unavailable, building in memory",
			logger.String("key", key.String()), logger.Error(err))
	case !errors.Is(err, repository.ErrNotFound):
		// A damaged file is rebuilt and overwritten.
		s.logger.Warn(ctx, "stored distribution unusable, rebuilding",
			logger.String("key", key.String()), logger.Error(err))
	}

	v, shared, err := deduper.Do(ctx, key.String(), func(ctx context.Context) (any, error) {
		built, err := builder.Build(ctx, rounds)
		if err != nil {
			return nil, err
		}
		s.builds.Add(1)
		if err := store.Save(ctx, key, built); err != nil {
			s.logger.Warn(ctx, "could not persist distribution",
				logger.String("key", key.String()), logger.Error(err))
		}
		return built, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Debug(ctx, "distribution built",
		logger.Int("rounds", rounds),
		logger.Bool("shared", shared),
	)
	return v.(distribution.Multiplicities).Clone(), nil
}

// PlayerCount is the number of players the scoring table ranks each round.
func (s *Service) PlayerCount() int { return s.playerCount }

// Probabilities returns the probability form for rounds over participantCount^rounds
// outcomes. Zero participantCount means the configured player count.
func (s *Service) Probabilities(ctx context.Context, rounds, participantCount int) (distribution.Probabilities, error) {
	const op = "service.probabilities"
	if participantCount < 0 {
		return nil, fmt.Errorf("%s: participant count %d: %w", op, participantCount, model.ErrInvalidArgument)
	}
	if participantCount == 0 {
		participantCount = s.playerCount
	}
	m, err := s.Distribution(ctx, rounds)
	if err != nil {
		return nil, err
	}
	p, err := distribution.Normalize(m, participantCount, rounds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// Odds computes normalized, rounded placement odds for the roster.
func (s *Service) Odds(ctx context.Context, req OddsRequest) (OddsResponse, error) {
	const op = "service.odds"
	if err := req.Teams.Validate(); err != nil {
		return OddsResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(req.Teams) > MaxTeams {
		return OddsResponse{}, fmt.Errorf("%s: %d teams, at most %d: %w", op, len(req.Teams), MaxTeams, model.ErrInvalidArgument)
	}
	if req.ParticipantCount < 0 {
		return OddsResponse{}, fmt.Errorf("%s: participant count %d: %w", op, req.ParticipantCount, model.ErrInvalidArgument)
	}
	participants := req.ParticipantCount
	if participants == 0 {
		participants = len(req.Teams)
	}

	_, _, _, pool, err := s.components()
	if err != nil {
		return OddsResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	dist, err := s.Probabilities(ctx, req.Rounds, participants)
	if err != nil {
		return OddsResponse{}, err
	}

	runID := uuid.NewString()
	s.logger.Debug(ctx, "computing odds",
		logger.String("run_id", runID),
		logger.Any("teams", req.Teams.Names()),
	)
	opts := []odds.Option{odds.WithLogger(s.logger.Named("odds"))}
	if pool != nil {
		opts = append(opts, odds.WithRunner(pool))
	}
	result, err := odds.Compute(ctx, dist, req.Teams, opts...)
	if err != nil {
		metrics.RecordError("service", "odds")
		return OddsResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	s.oddsRuns.Add(1)

	s.logger.Info(ctx, "odds computed",
		logger.String("run_id", runID),
		logger.Int("teams", len(req.Teams)),
		logger.Int("rounds", req.Rounds),
		logger.Int("participants", participants),
	)
	return OddsResponse{
		RunID:            runID,
		Rounds:           req.Rounds,
		ParticipantCount: participants,
		Results:          result,
	}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"playerCount":  s.playerCount,
		"table":        s.table.String(),
		"strategy":     string(s.strategy),
		"workerCount":  s.workerCount,
		"buildTimeout": s.buildTimeout.String(),
		"builds":       s.builds.Load(),
		"oddsRuns":     s.oddsRuns.Load(),
	}

	if s.started {
		cached := s.store.Len()
		stats["cachedDistributions"] = cached
		stats["buildsInFlight"] = s.deduper.InFlight()
		metrics.UpdateCacheItems(cached)
		if s.pool != nil {
			stats["poolRuns"] = s.pool.Runs()
			metrics.UpdateWorkerCount(s.pool.WorkerCount())
		}
	}

	return stats
}
