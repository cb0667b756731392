package expand

import (
	"fmt"

	"github.com/nssports/sportsbook-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// Reverse bet selection bounds.
const (
	MinReverseLegs = 2
	MaxReverseLegs = 4
)

// ReverseResult is the full expansion of a reverse bet: one if-bet chain
// per permutation of the selections, each staked at stakePerSequence.
type ReverseResult struct {
	Sequences  []*Chain
	TotalStake decimal.Decimal

	// PotentialPayout sums the per-sequence chain payouts; it assumes every
	// leg wins and exists for reporting only.
	PotentialPayout decimal.Decimal
}

// Reverse expands 2-4 selections into all n! permutation sequences. A
// win_reverse advances a sequence only on a win; an action_reverse advances
// on win or push, and a cancelled leg is skipped rather than ending the
// sequence.
func Reverse(selections []types.Leg, typ types.ReverseType, stakePerSequence decimal.Decimal) (*ReverseResult, error) {
	n := len(selections)
	if n < MinReverseLegs || n > MaxReverseLegs {
		return nil, &types.ValidationError{
			Rule:    "leg_count",
			Message: fmt.Sprintf("reverse bet must have %d-%d selections, got %d", MinReverseLegs, MaxReverseLegs, n),
		}
	}

	var condition types.IfBetCondition
	switch typ {
	case types.WinReverse:
		condition = types.IfWinOnly
	case types.ActionReverse:
		condition = types.IfWinOrTie
	default:
		return nil, &types.ValidationError{
			Rule:    "leg_count",
			Message: fmt.Sprintf("unknown reverse type %q", typ),
		}
	}

	perms := permutations(n)
	result := &ReverseResult{
		Sequences:       make([]*Chain, 0, len(perms)),
		TotalStake:      decimal.Zero,
		PotentialPayout: decimal.Zero,
	}

	for _, perm := range perms {
		legs := make([]types.Leg, 0, n)
		for _, idx := range perm {
			legs = append(legs, selections[idx])
		}
		chain, err := NewChain(legs, condition, stakePerSequence)
		if err != nil {
			return nil, err
		}
		payout, err := chain.PotentialPayout()
		if err != nil {
			return nil, err
		}
		result.Sequences = append(result.Sequences, chain)
		result.TotalStake = result.TotalStake.Add(stakePerSequence)
		result.PotentialPayout = result.PotentialPayout.Add(payout)
	}

	return result, nil
}

// permutations returns all orderings of [0, n) in lexicographic order.
func permutations(n int) [][]int {
	var out [][]int
	perm := make([]int, 0, n)
	used := make([]bool, n)

	var backtrack func()
	backtrack = func() {
		if len(perm) == n {
			out = append(out, append([]int(nil), perm...))
			return
		}
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			used[i] = true
			perm = append(perm, i)
			backtrack()
			perm = perm[:len(perm)-1]
			used[i] = false
		}
	}
	backtrack()

	return out
}
