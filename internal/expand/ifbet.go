package expand

import (
	"fmt"

	"github.com/nssports/sportsbook-engine/internal/odds"
	"github.com/nssports/sportsbook-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// If-bet chain length bounds.
const (
	MinChainLegs = 2
	MaxChainLegs = 5
)

// Chain is an ordered if-bet: leg 1 is staked at the initial stake, each
// later leg is staked with the payout of the preceding leg, but only if the
// activating condition held. A single loss terminates the chain, so the
// realized loss is never more than the initial stake.
type Chain struct {
	Legs         []types.Leg
	Condition    types.IfBetCondition
	InitialStake decimal.Decimal
}

// NewChain builds an if-bet chain after checking the leg-count bounds.
func NewChain(legs []types.Leg, condition types.IfBetCondition, initialStake decimal.Decimal) (*Chain, error) {
	if len(legs) < MinChainLegs || len(legs) > MaxChainLegs {
		return nil, &types.ValidationError{
			Rule:    "leg_count",
			Message: fmt.Sprintf("if-bet must have %d-%d legs, got %d", MinChainLegs, MaxChainLegs, len(legs)),
		}
	}
	if condition != types.IfWinOnly && condition != types.IfWinOrTie {
		return nil, &types.ValidationError{
			Rule:    "leg_count",
			Message: fmt.Sprintf("unknown if-bet condition %q", condition),
		}
	}
	if !initialStake.IsPositive() {
		return nil, &types.ValidationError{
			Rule:    "stake_bounds",
			Message: "initial stake must be positive",
		}
	}
	return &Chain{Legs: legs, Condition: condition, InitialStake: initialStake}, nil
}

// ProjectedStakes returns the stake each leg would carry if every preceding
// leg won. Actual per-leg stakes are only known at grading time.
func (c *Chain) ProjectedStakes() ([]decimal.Decimal, error) {
	stakes := make([]decimal.Decimal, 0, len(c.Legs))
	stake := c.InitialStake
	for i, leg := range c.Legs {
		stakes = append(stakes, stake)
		if i == len(c.Legs)-1 {
			break
		}
		next, err := odds.ChainStake(stake, leg.Odds)
		if err != nil {
			return nil, err
		}
		stake = next
	}
	return stakes, nil
}

// PotentialPayout returns the payout of the final leg assuming every leg
// wins: the full value of the chain.
func (c *Chain) PotentialPayout() (decimal.Decimal, error) {
	stakes, err := c.ProjectedStakes()
	if err != nil {
		return decimal.Zero, err
	}
	last := len(c.Legs) - 1
	return odds.Payout(stakes[last], c.Legs[last].Odds)
}
