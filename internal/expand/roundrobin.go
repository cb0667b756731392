// Package expand generates the constituent wagers of compound bet products:
// round robin combinations, reverse-bet permutation sequences, and if-bet
// chains. All expansion is deterministic and pure; combinations and
// permutations come out in lexicographic order so results are reproducible.
package expand

import (
	"fmt"

	"github.com/nssports/sportsbook-engine/internal/odds"
	"github.com/nssports/sportsbook-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// Round robin parlay size bounds. MaxSelections caps the pool so the
// expansion tops out at C(15, 8) = 6435 generated parlays.
const (
	MinParlaySize = 2
	MaxParlaySize = 8
	MaxSelections = 15
)

// Parlay is one generated round robin combination priced as a parlay.
type Parlay struct {
	Legs            []types.Leg
	Odds            int // combined American price
	Stake           decimal.Decimal
	PotentialPayout decimal.Decimal
}

// RoundRobinResult is the full expansion of a round robin ticket.
type RoundRobinResult struct {
	Parlays    []Parlay
	TotalStake decimal.Decimal

	// PotentialPayout sums the per-parlay payouts. Only meaningful if
	// every parlay hits; settlement pays each parlay independently.
	PotentialPayout decimal.Decimal
}

// RoundRobin expands n selections into all C(n, parlaySize) parlays, each
// staked at stakePerParlay.
func RoundRobin(selections []types.Leg, parlaySize int, stakePerParlay decimal.Decimal) (*RoundRobinResult, error) {
	n := len(selections)
	if parlaySize < MinParlaySize || parlaySize > MaxParlaySize {
		return nil, &types.ValidationError{
			Rule:    "leg_count",
			Message: fmt.Sprintf("round robin parlay size must be %d-%d, got %d", MinParlaySize, MaxParlaySize, parlaySize),
		}
	}
	if n > MaxSelections {
		return nil, &types.ValidationError{
			Rule:    "leg_count",
			Message: fmt.Sprintf("round robin supports at most %d selections, got %d", MaxSelections, n),
		}
	}
	if parlaySize > n {
		return nil, &types.ValidationError{
			Rule:    "leg_count",
			Message: fmt.Sprintf("parlay size %d exceeds selection count %d", parlaySize, n),
		}
	}
	if !stakePerParlay.IsPositive() {
		return nil, &types.ValidationError{
			Rule:    "stake_bounds",
			Message: "stake per parlay must be positive",
		}
	}

	combos := combinations(n, parlaySize)
	result := &RoundRobinResult{
		Parlays:         make([]Parlay, 0, len(combos)),
		TotalStake:      decimal.Zero,
		PotentialPayout: decimal.Zero,
	}

	for _, combo := range combos {
		legs := make([]types.Leg, 0, parlaySize)
		decimals := make([]decimal.Decimal, 0, parlaySize)
		for _, idx := range combo {
			leg := selections[idx]
			d, err := odds.ToDecimal(leg.Odds)
			if err != nil {
				return nil, err
			}
			legs = append(legs, leg)
			decimals = append(decimals, d)
		}

		combined := odds.CombineDecimal(decimals)
		american, err := odds.ToAmerican(combined)
		if err != nil {
			return nil, err
		}
		payout := stakePerParlay.Mul(combined).Round(2)

		result.Parlays = append(result.Parlays, Parlay{
			Legs:            legs,
			Odds:            american,
			Stake:           stakePerParlay,
			PotentialPayout: payout,
		})
		result.TotalStake = result.TotalStake.Add(stakePerParlay)
		result.PotentialPayout = result.PotentialPayout.Add(payout)
	}

	return result, nil
}

// combinations returns all k-element index subsets of [0, n) in
// lexicographic order, generated by backtracking.
func combinations(n, k int) [][]int {
	var out [][]int
	combo := make([]int, 0, k)

	var backtrack func(start int)
	backtrack = func(start int) {
		if len(combo) == k {
			out = append(out, append([]int(nil), combo...))
			return
		}
		for i := start; i < n; i++ {
			combo = append(combo, i)
			backtrack(i + 1)
			combo = combo[:len(combo)-1]
		}
	}
	backtrack(0)

	return out
}
