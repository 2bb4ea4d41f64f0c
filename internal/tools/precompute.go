package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/distribution"
	"github.com/okian/podium/pkg/logger"
)

// Precompute builds the distribution for cfg and writes it to a file. It
// returns the path written.
func Precompute(ctx context.Context, cfg PrecomputeConfig) (string, error) {
	const op = "tools.precompute"
	table, err := ResolveTable(cfg.Preset, cfg.Table)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	strategy, err := distribution.ParseStrategy(cfg.Strategy)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	b, err := distribution.NewBuilder(table,
		distribution.WithStrategy(strategy),
		distribution.WithLogger(logger.Named("builder")),
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	start := time.Now()
	m, err := b.Build(ctx, cfg.Rounds)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	out := cfg.Out
	if out == "" {
		out = repository.KeyFor(table, cfg.Rounds).FileName()
	}
	if err := repository.WriteDistributionFile(out, m); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	logger.Get().Info(ctx, "distribution written",
		logger.String("file", out),
		logger.Int("rounds", cfg.Rounds),
		logger.Int("players", table.PlayerCount()),
		logger.String("strategy", string(strategy)),
		logger.Int("scores", len(m)),
		logger.String("total", m.Total().String()),
		logger.Duration("took", time.Since(start)),
	)
	return out, nil
}
