package distribution

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// Strategy selects how a Builder derives the distribution.
type Strategy string

// Supported strategies.
const (
	// Convolution folds the per-round outcome into the running distribution once
	// per round. Cost grows with rounds × support × distinct point values.
	Convolution Strategy = "convolution"
	// Enumeration walks every placement vector and sums multinomial
	// multiplicities. Cost grows with C(rounds+ranks-1, ranks-1).
	Enumeration Strategy = "enumeration"
)

// ParseStrategy maps a config string to a Strategy. Empty means Convolution.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Convolution:
		return Convolution, nil
	case Enumeration:
		return Enumeration, nil
	default:
		return "", fmt.Errorf("unknown build strategy %q: %w", s, model.ErrInvalidArgument)
	}
}

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithStrategy selects the build strategy.
func WithStrategy(s Strategy) Option {
	return func(b *Builder) {
		if s != "" {
			b.strategy = s
		}
	}
}

// WithLogger sets the logger used for build summaries.
func WithLogger(l logger.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// Builder derives score distributions for one scoring table.
type Builder struct {
	table    model.ScoringTable
	strategy Strategy
	logger   logger.Logger
}

// NewBuilder copies table and returns a Builder for it.
func NewBuilder(table model.ScoringTable, opts ...Option) (*Builder, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	b := &Builder{
		table:    table.Clone(),
		strategy: Convolution,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if _, err := ParseStrategy(string(b.strategy)); err != nil {
		return nil, err
	}
	return b, nil
}

// Table returns a copy of the scoring table.
func (b *Builder) Table() model.ScoringTable { return b.table.Clone() }

// Strategy returns the configured strategy.
func (b *Builder) Strategy() Strategy { return b.strategy }

// Build returns the multiplicity form of the total score after rounds rounds.
func (b *Builder) Build(ctx context.Context, rounds int) (Multiplicities, error) {
	const op = "distribution.build"
	if rounds < 0 {
		metrics.RecordError("builder", "invalid_argument")
		return nil, fmt.Errorf("%s: %d rounds: %w", op, rounds, model.ErrInvalidArgument)
	}

	start := time.Now()
	var (
		dist    Multiplicities
		vectors int
		err     error
	)
	switch b.strategy {
	case Enumeration:
		dist, vectors, err = b.enumerate(ctx, rounds)
	default:
		dist, err = b.convolve(ctx, rounds)
	}
	if err != nil {
		metrics.RecordError("builder", string(b.strategy))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	took := time.Since(start)
	metrics.RecordDistributionBuild(string(b.strategy), float64(took.Microseconds())/1000, len(dist))
	if vectors > 0 {
		metrics.AddPlacementVectors(vectors)
	}
	b.logger.Debug(ctx, "distribution built",
		logger.String("strategy", string(b.strategy)),
		logger.Int("rounds", rounds),
		logger.Int("players", b.table.PlayerCount()),
		logger.Int("support", len(dist)),
		logger.Int("vectors", vectors),
		logger.Duration("took", took),
	)
	return dist, nil
}

// convolve folds the single-round outcome into the distribution once per round.
// Ranks sharing a point value are merged into one step with a weight.
func (b *Builder) convolve(ctx context.Context, rounds int) (Multiplicities, error) {
	step := make(map[int64]*big.Int)
	for _, p := range b.table {
		if w, ok := step[p]; ok {
			w.Add(w, big.NewInt(1))
		} else {
			step[p] = big.NewInt(1)
		}
	}

	cur := Multiplicities{0: big.NewInt(1)}
	var term big.Int
	for r := 0; r < rounds; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next := make(Multiplicities, len(cur)+len(step))
		for s, m := range cur {
			for p, w := range step {
				term.Mul(m, w)
				if acc, ok := next[s+p]; ok {
					acc.Add(acc, &term)
				} else {
					next[s+p] = new(big.Int).Set(&term)
				}
			}
		}
		cur = next
	}
	return cur, nil
}

// enumerate sums multinomial multiplicities over every placement vector.
func (b *Builder) enumerate(ctx context.Context, rounds int) (Multiplicities, int, error) {
	dist := make(Multiplicities)
	vectors := 0
	err := Enumerate(ctx, rounds, b.table.PlayerCount(), func(v model.PlacementVector) error {
		if v.Rounds() != rounds {
			return fmt.Errorf("vector %v sums to %d, want %d: %w", v, v.Rounds(), rounds, model.ErrInternalInconsistency)
		}
		mult, err := Multinomial(v)
		if err != nil {
			return err
		}
		score := Score(v, b.table)
		if acc, ok := dist[score]; ok {
			acc.Add(acc, mult)
		} else {
			dist[score] = mult
		}
		vectors++
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return dist, vectors, nil
}
