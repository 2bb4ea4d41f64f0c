package distribution

import (
	"context"
	"fmt"
	"math/big"

	"github.com/okian/podium/internal/domain/model"
)

// ctxCheckInterval is how many enumeration states run between cancellation checks.
const ctxCheckInterval = 4096

// Factorial returns n!.
func Factorial(n int) (*big.Int, error) {
	if n < 0 {
		return nil, fmt.Errorf("factorial of %d: %w", n, model.ErrInvalidArgument)
	}
	return new(big.Int).MulRange(1, int64(n)), nil
}

// Multinomial returns rounds!/(p0!·p1!·…) for the placement vector, i.e. the number
// of distinct round orderings producing it.
func Multinomial(v model.PlacementVector) (*big.Int, error) {
	result := big.NewInt(1)
	n := int64(0)
	var binom big.Int
	for i, p := range v {
		if p < 0 {
			return nil, fmt.Errorf("placement %d is negative (%d): %w", i, p, model.ErrInvalidArgument)
		}
		n += int64(p)
		// C(n, p) chains into the multinomial one rank at a time.
		result.Mul(result, binom.Binomial(n, int64(p)))
	}
	return result, nil
}

// Score is the dot product of the placement vector with the scoring table.
func Score(v model.PlacementVector, table model.ScoringTable) int64 {
	var score int64
	for i, p := range v {
		if i >= len(table) {
			break
		}
		score += table[i] * int64(p)
	}
	return score
}

// Enumerate walks every composition of rounds into ranks non-negative parts and
// calls fn with each one. The walk uses an explicit stack; the last rank always
// takes the remaining rounds so every frame that reaches it is a complete vector.
// fn must not retain v; it is reused between calls.
func Enumerate(ctx context.Context, rounds, ranks int, fn func(v model.PlacementVector) error) error {
	if rounds < 0 {
		return fmt.Errorf("enumerate %d rounds: %w", rounds, model.ErrInvalidArgument)
	}
	if ranks < 1 {
		return fmt.Errorf("enumerate over %d ranks: %w", ranks, model.ErrInvalidArgument)
	}

	type frame struct {
		rank      int // rank being assigned
		remaining int // rounds not yet assigned to earlier ranks
		next      int // next count to try for this rank
	}

	vec := make(model.PlacementVector, ranks)
	stack := make([]frame, 1, ranks)
	stack[0] = frame{rank: 0, remaining: rounds}

	steps := 0
	for len(stack) > 0 {
		steps++
		if steps%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("enumerate: %w", err)
			}
		}

		top := &stack[len(stack)-1]
		if top.rank >= ranks {
			return fmt.Errorf("rank %d past %d ranks with %d rounds left: %w",
				top.rank, ranks, top.remaining, model.ErrInternalInconsistency)
		}

		if top.rank == ranks-1 {
			vec[top.rank] = top.remaining
			if err := fn(vec); err != nil {
				return err
			}
			stack = stack[:len(stack)-1]
			continue
		}

		if top.next > top.remaining {
			stack = stack[:len(stack)-1]
			continue
		}

		vec[top.rank] = top.next
		child := frame{rank: top.rank + 1, remaining: top.remaining - top.next}
		top.next++
		stack = append(stack, child)
	}
	return nil
}

// CompositionCount returns C(rounds+ranks-1, ranks-1), the number of vectors
// Enumerate emits.
func CompositionCount(rounds, ranks int) *big.Int {
	if rounds < 0 || ranks < 1 {
		return new(big.Int)
	}
	return new(big.Int).Binomial(int64(rounds+ranks-1), int64(ranks-1))
}
