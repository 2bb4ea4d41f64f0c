package odds

import (
	"context"
	"fmt"

	"github.com/okian/podium/internal/domain/distribution"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/metrics"
	"github.com/shopspring/decimal"
)

// DefaultPlaces is the number of decimal places odds are published with.
const DefaultPlaces = 4

// exactExponent is the decimal exponent a float is expanded to before rounding.
const exactExponent = -48

// NormalizeColumns rescales first, second and third so each column sums to 1
// across teams. A column summing to zero (third place with fewer than three
// teams) stays zero. Podium is recomputed from the rescaled columns.
func NormalizeColumns(r model.Result) model.Result {
	var first, second, third float64
	for _, to := range r {
		first += to.First
		second += to.Second
		third += to.Third
	}
	metrics.UpdateColumnSum("first", first)
	metrics.UpdateColumnSum("second", second)
	metrics.UpdateColumnSum("third", third)

	out := r.Clone()
	for i := range out {
		out[i].First = safeDiv(out[i].First, first)
		out[i].Second = safeDiv(out[i].Second, second)
		out[i].Third = safeDiv(out[i].Third, third)
		out[i].Podium = out[i].First + out[i].Second + out[i].Third
	}
	return out
}

func safeDiv(x, sum float64) float64 {
	if sum == 0 {
		return 0
	}
	return x / sum
}

// Round rounds first, second and third half-to-even at places decimals and sets
// podium to the sum of the rounded values. Podium is not rounded on its own, so
// it may carry a little float drift.
func Round(r model.Result, places int32) model.Result {
	out := r.Clone()
	for i := range out {
		out[i].First = roundHalfEven(out[i].First, places)
		out[i].Second = roundHalfEven(out[i].Second, places)
		out[i].Third = roundHalfEven(out[i].Third, places)
		out[i].Podium = out[i].First + out[i].Second + out[i].Third
	}
	return out
}

func roundHalfEven(x float64, places int32) float64 {
	f, _ := decimal.NewFromFloatWithExponent(x, exactExponent).RoundBank(places).Float64()
	return f
}

// Compute runs the full pipeline: raw odds, column normalization and rounding
// to DefaultPlaces.
func Compute(ctx context.Context, dist distribution.Probabilities, teams model.Teams, opts ...Option) (model.Result, error) {
	e, err := NewEngine(dist, teams, opts...)
	if err != nil {
		return nil, err
	}
	raw, err := e.Calculate(ctx)
	if err != nil {
		return nil, err
	}
	if len(raw) != len(teams) {
		return nil, fmt.Errorf("odds.compute: %d results for %d teams: %w", len(raw), len(teams), model.ErrInternalInconsistency)
	}
	return Round(NormalizeColumns(raw), DefaultPlaces), nil
}
