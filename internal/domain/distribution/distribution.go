// Package distribution builds and normalizes total-score distributions for a
// single participant drawing a uniformly random finishing rank each round.
//
// A distribution comes in two forms. Multiplicities maps a total score to the
// number of equally likely round-outcome sequences producing it; the weights sum
// to player_count^rounds. Probabilities maps a total score to its probability;
// the weights sum to 1.
package distribution

import (
	"fmt"
	"math"
	"math/big"
	"sort"

	"github.com/okian/podium/internal/domain/model"
)

// Multiplicities is the multiplicity form of a score distribution.
// Values are arbitrary precision since player_count^rounds leaves int64 range
// after a handful of rounds.
type Multiplicities map[int64]*big.Int

// Total returns the sum of all multiplicities.
func (m Multiplicities) Total() *big.Int {
	total := new(big.Int)
	for _, v := range m {
		if v != nil {
			total.Add(total, v)
		}
	}
	return total
}

// Scores returns the reachable scores in ascending order.
func (m Multiplicities) Scores() []int64 {
	out := make([]int64, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns a deep copy.
func (m Multiplicities) Clone() Multiplicities {
	out := make(Multiplicities, len(m))
	for s, v := range m {
		out[s] = new(big.Int).Set(v)
	}
	return out
}

// Validate rejects empty distributions and nil or negative weights.
func (m Multiplicities) Validate() error {
	if len(m) == 0 {
		return fmt.Errorf("empty distribution: %w", model.ErrInvalidArgument)
	}
	for s, v := range m {
		if v == nil || v.Sign() < 0 {
			return fmt.Errorf("score %d has invalid multiplicity %v: %w", s, v, model.ErrInvalidArgument)
		}
	}
	return nil
}

// Probabilities is the probability form of a score distribution.
type Probabilities map[int64]float64

// Sum adds every probability in ascending score order.
func (p Probabilities) Sum() float64 {
	total := 0.0
	for _, s := range p.Scores() {
		total += p[s]
	}
	return total
}

// Scores returns the scores in ascending order.
func (p Probabilities) Scores() []int64 {
	out := make([]int64, 0, len(p))
	for s := range p {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate rejects empty distributions and weights that are negative or not finite.
func (p Probabilities) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("empty distribution: %w", model.ErrInvalidArgument)
	}
	for s, w := range p {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("score %d has invalid probability %v: %w", s, w, model.ErrInvalidArgument)
		}
	}
	return nil
}
