package tools

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/okian/podium/internal/adapters/mq/worker"
	"github.com/okian/podium/internal/adapters/repository"
	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/distribution"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/odds"
	"github.com/okian/podium/pkg/logger"
)

const defaultRemoteTimeout = 30 * time.Second

// CalculateOdds computes normalized, rounded odds for the teams file. With a
// URL it asks a running service; otherwise it reads the distribution file.
// The result is written to cfg.Out, or to stdout when Out is empty.
func CalculateOdds(ctx context.Context, cfg OddsConfig, stdout io.Writer) (model.Result, error) {
	const op = "tools.calculate_odds"
	teams, err := repository.ReadTeamsFile(cfg.Teams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Participants < 0 || cfg.Rounds < 0 {
		return nil, fmt.Errorf("%s: negative rounds or participants: %w", op, model.ErrInvalidArgument)
	}

	start := time.Now()
	var result model.Result
	if cfg.URL != "" {
		result, err = remoteOdds(ctx, cfg, teams)
	} else {
		result, err = localOdds(ctx, cfg, teams)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.Out == "" {
		err = repository.WriteOdds(stdout, result)
	} else {
		err = repository.WriteOddsFile(cfg.Out, result)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Get().Info(ctx, "odds calculated",
		logger.Int("teams", len(teams)),
		logger.Int("rounds", cfg.Rounds),
		logger.Bool("remote", cfg.URL != ""),
		logger.String("out", cfg.Out),
		logger.Duration("took", time.Since(start)),
	)
	return result, nil
}

func localOdds(ctx context.Context, cfg OddsConfig, teams model.Teams) (model.Result, error) {
	if cfg.Distribution == "" {
		return nil, fmt.Errorf("no distribution file: %w", ErrUsage)
	}
	m, err := repository.ReadDistributionFile(cfg.Distribution)
	if err != nil {
		return nil, err
	}
	participants := cfg.Participants
	if participants == 0 {
		participants = len(teams)
	}
	dist, err := distribution.Normalize(m, participants, cfg.Rounds)
	if err != nil {
		return nil, err
	}

	opts := []odds.Option{odds.WithLogger(logger.Named("odds"))}
	if cfg.Workers > 1 {
		pool := worker.NewPool(cfg.Workers, worker.WithPoolLogger(logger.Named("worker-pool")))
		defer func() { _ = pool.Stop(context.Background()) }()
		opts = append(opts, odds.WithRunner(pool))
	}
	return odds.Compute(ctx, dist, teams, opts...)
}

func remoteOdds(ctx context.Context, cfg OddsConfig, teams model.Teams) (model.Result, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	resp, err := NewHTTPClient(cfg.URL, timeout,
		WithRetries(cfg.Retries),
		WithClientLogger(logger.Named("client")),
	).Odds(ctx, service.OddsRequest{
		Rounds:           cfg.Rounds,
		ParticipantCount: cfg.Participants,
		Teams:            teams,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) != len(teams) {
		return nil, fmt.Errorf("%w: %d results for %d teams", ErrRemote, len(resp.Results), len(teams))
	}
	byName := resp.Results.ByName()
	for _, t := range teams {
		if _, ok := byName[t.Name]; !ok {
			return nil, fmt.Errorf("%w: no odds for team %q", ErrRemote, t.Name)
		}
	}
	logger.Get().Debug(ctx, "remote odds received", logger.String("run_id", resp.RunID))
	return resp.Results, nil
}
