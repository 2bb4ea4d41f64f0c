package distribution

import (
	"fmt"
	"math/big"

	"github.com/okian/podium/internal/domain/model"
)

// OutcomeSpace returns participantCount^roundCount, the number of equally likely
// round-outcome sequences.
func OutcomeSpace(participantCount, roundCount int) (*big.Int, error) {
	if participantCount < 1 {
		return nil, fmt.Errorf("participant count %d: %w", participantCount, model.ErrInvalidArgument)
	}
	if roundCount < 0 {
		return nil, fmt.Errorf("round count %d: %w", roundCount, model.ErrInvalidArgument)
	}
	return new(big.Int).Exp(big.NewInt(int64(participantCount)), big.NewInt(int64(roundCount)), nil), nil
}

// Normalize converts multiplicities to probabilities over the outcome space
// participantCount^roundCount. The participant count is supplied by the caller
// and need not match the player count the distribution was built with, but the
// multiplicities must sum to exactly that outcome space.
func Normalize(m Multiplicities, participantCount, roundCount int) (Probabilities, error) {
	const op = "distribution.normalize"
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	space, err := OutcomeSpace(participantCount, roundCount)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if total := m.Total(); total.Cmp(space) != 0 {
		return nil, fmt.Errorf("%s: multiplicities sum to %s, %d^%d = %s: %w",
			op, total, participantCount, roundCount, space, model.ErrDistributionInconsistent)
	}
	return divide(m, space), nil
}

// Verify renormalizes m without the consistency check and returns the sum of
// the resulting probabilities. A consistent file sums to 1; anything else shows
// how far off a distribution file is from the claimed outcome space.
func Verify(m Multiplicities, participantCount, roundCount int) (float64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	space, err := OutcomeSpace(participantCount, roundCount)
	if err != nil {
		return 0, err
	}
	return divide(m, space).Sum(), nil
}

func divide(m Multiplicities, space *big.Int) Probabilities {
	out := make(Probabilities, len(m))
	var r big.Rat
	for s, v := range m {
		f, _ := r.SetFrac(v, space).Float64()
		out[s] = f
	}
	return out
}
