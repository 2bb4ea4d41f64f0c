// Package odds turns a score distribution and the teams' starting scores into
// first, second, third and podium probabilities.
//
// Every team's remaining score is an independent draw from the same
// distribution. Pairwise comparisons use a non-strict >=, so an exact tie counts
// as "not behind" from both sides; the per-rank column normalization absorbs the
// resulting excess mass.
package odds

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/podium/internal/domain/distribution"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// Runner executes fn for every index in [0, n). Implementations may run the
// calls concurrently; each call writes only to its own slot.
type Runner interface {
	Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRunner fans per-team work out over r.
func WithRunner(r Runner) Option {
	return func(e *Engine) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine evaluates placement odds for one roster against one distribution.
// It is read-only after construction and safe for concurrent use.
type Engine struct {
	teams model.Teams

	// support in ascending score order, with aligned probabilities and a
	// running total so P(draw <= x) is a binary search.
	scores  []int64
	weights []float64
	cum     []float64

	runner Runner
	logger logger.Logger
}

// NewEngine prepares an engine for teams drawing from dist.
func NewEngine(dist distribution.Probabilities, teams model.Teams, opts ...Option) (*Engine, error) {
	const op = "odds.new_engine"
	if err := dist.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := teams.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	e := &Engine{
		teams:  append(model.Teams(nil), teams...),
		scores: dist.Scores(),
		logger: logger.Discard(),
	}
	e.weights = make([]float64, len(e.scores))
	e.cum = make([]float64, len(e.scores))
	total := 0.0
	for i, s := range e.scores {
		e.weights[i] = dist[s]
		total += dist[s]
		e.cum[i] = total
	}

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Teams returns the roster in index order.
func (e *Engine) Teams() model.Teams { return append(model.Teams(nil), e.teams...) }

// ProbabilityGreaterOrEqual returns P(team's total >= other's total) given that
// team drew score: the mass of draws s with score+start(team) >= s+start(other).
// Indices must be valid roster positions.
func (e *Engine) ProbabilityGreaterOrEqual(team, other int, score int64) float64 {
	base := float64(score) + e.teams[team].StartingScore
	offset := e.teams[other].StartingScore
	// first support index the other team would beat base with
	k := sort.Search(len(e.scores), func(i int) bool {
		return float64(e.scores[i])+offset > base
	})
	if k == 0 {
		return 0
	}
	return e.cum[k-1]
}

// conditional returns ge[i][k] = P(team >= i | team drew scores[k]) for every
// other team i. Row team is left nil.
func (e *Engine) conditional(team int) [][]float64 {
	ge := make([][]float64, len(e.teams))
	for i := range e.teams {
		if i == team {
			continue
		}
		row := make([]float64, len(e.scores))
		for k, s := range e.scores {
			row[k] = e.ProbabilityGreaterOrEqual(team, i, s)
		}
		ge[i] = row
	}
	return ge
}

// CompareTeamsAtScore returns the probability that, having drawn score, team
// finishes behind every team in better and ahead of every other team.
func (e *Engine) CompareTeamsAtScore(team int, better []int, score int64) float64 {
	odds := 1.0
	for i := range e.teams {
		if i == team {
			continue
		}
		p := e.ProbabilityGreaterOrEqual(team, i, score)
		if contains(better, i) {
			odds *= 1 - p
		} else {
			odds *= p
		}
	}
	return odds
}

// CompareTeams integrates CompareTeamsAtScore over team's own draw.
func (e *Engine) CompareTeams(team int, better []int) float64 {
	return e.compare(e.conditional(team), team, better)
}

func (e *Engine) compare(ge [][]float64, team int, better []int) float64 {
	total := 0.0
	for k, w := range e.weights {
		if w == 0 {
			continue
		}
		odds := 1.0
		for i, row := range ge {
			if i == team {
				continue
			}
			if contains(better, i) {
				odds *= 1 - row[k]
			} else {
				odds *= row[k]
			}
		}
		total += w * odds
	}
	return total
}

// FirstOdds is the raw probability team beats everyone.
func (e *Engine) FirstOdds(team int) float64 {
	return e.first(e.conditional(team), team)
}

// SecondOdds is the raw probability exactly one team finishes ahead of team.
func (e *Engine) SecondOdds(team int) float64 {
	odds, _ := e.second(context.Background(), e.conditional(team), team)
	return odds
}

// ThirdOdds is the raw probability exactly two teams finish ahead of team.
func (e *Engine) ThirdOdds(team int) float64 {
	odds, _ := e.third(context.Background(), e.conditional(team), team)
	return odds
}

func (e *Engine) first(ge [][]float64, team int) float64 {
	return e.compare(ge, team, nil)
}

// second and third poll ctx once per leading rival, so a single large team
// stops within one sweep over the roster.
func (e *Engine) second(ctx context.Context, ge [][]float64, team int) (float64, error) {
	odds := 0.0
	for j := range e.teams {
		if j == team {
			continue
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		odds += e.compare(ge, team, []int{j})
	}
	return odds, nil
}

func (e *Engine) third(ctx context.Context, ge [][]float64, team int) (float64, error) {
	odds := 0.0
	for j := range e.teams {
		if j == team {
			continue
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		for k := j + 1; k < len(e.teams); k++ {
			if k == team {
				continue
			}
			odds += e.compare(ge, team, []int{j, k})
		}
	}
	return odds, nil
}

// TeamOdds returns raw first/second/third odds for team and their sum.
func (e *Engine) TeamOdds(team int) model.Odds {
	o, _ := e.teamOdds(context.Background(), team)
	return o
}

func (e *Engine) teamOdds(ctx context.Context, team int) (model.Odds, error) {
	ge := e.conditional(team)
	second, err := e.second(ctx, ge, team)
	if err != nil {
		return model.Odds{}, err
	}
	third, err := e.third(ctx, ge, team)
	if err != nil {
		return model.Odds{}, err
	}
	o := model.Odds{First: e.first(ge, team), Second: second, Third: third}
	o.Podium = o.First + o.Second + o.Third
	return o, nil
}

// Calculate returns raw odds for every team in roster order.
func (e *Engine) Calculate(ctx context.Context) (model.Result, error) {
	const op = "odds.calculate"
	start := time.Now()
	out := make(model.Result, len(e.teams))

	task := func(ctx context.Context, i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		o, err := e.teamOdds(ctx, i)
		if err != nil {
			return err
		}
		out[i] = model.TeamOdds{Name: e.teams[i].Name, Odds: o}
		return nil
	}

	if e.runner != nil {
		if err := e.runner.Run(ctx, len(e.teams), task); err != nil {
			metrics.RecordError("odds", "calculate")
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else {
		for i := range e.teams {
			if err := task(ctx, i); err != nil {
				metrics.RecordError("odds", "calculate")
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
	}

	took := time.Since(start)
	metrics.RecordOddsRun(len(e.teams), float64(took.Microseconds())/1000)
	e.logger.Debug(ctx, "raw odds calculated",
		logger.Int("teams", len(e.teams)),
		logger.Int("support", len(e.scores)),
		logger.Duration("took", took),
	)
	return out, nil
}

func contains(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
