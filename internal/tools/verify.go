package tools

import (
	"context"
	"fmt"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/distribution"
	"github.com/okian/podium/pkg/logger"
)

// VerifyDistribution renormalizes a distribution file over
// participants^rounds and returns the sum of its probabilities. A file that
// matches its outcome space sums to 1.
func VerifyDistribution(ctx context.Context, cfg VerifyConfig) (float64, error) {
	const op = "tools.verify_distribution"
	m, err := repository.ReadDistributionFile(cfg.Distribution)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	sum, err := distribution.Verify(m, cfg.Participants, cfg.Rounds)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	logger.Get().Debug(ctx, "distribution verified",
		logger.String("file", cfg.Distribution),
		logger.Int("participants", cfg.Participants),
		logger.Int("rounds", cfg.Rounds),
		logger.Float64("sum", sum),
	)
	return sum, nil
}
