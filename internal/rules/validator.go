// Package rules implements the bet construction validator: pure rule checks
// over a candidate bet/leg set. The same checks gate both UI affordances and
// server-side placement; placement always re-runs them before persistence.
package rules

import (
	"fmt"
	"strings"

	"github.com/nssports/sportsbook-engine/internal/odds"
	"github.com/nssports/sportsbook-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// Mode selects which rule set applies to a leg combination.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeParlay Mode = "parlay"
	ModeTeaser Mode = "teaser"
)

// Rule identifiers, in precedence order. The first matching rule wins and
// short-circuits the rest.
const (
	RuleDuplicateLeg    = "duplicate_leg"
	RuleTeaserEligible  = "teaser_ineligible"
	RuleOpposingSides   = "opposing_sides"
	RuleOpposingProp    = "opposing_prop_sides"
	RuleSamePlayerProps = "multiple_props_same_player"
	RuleCorrelated      = "correlated_markets"
	RuleLegCount        = "leg_count"
	RuleStakeBounds     = "stake_bounds"
)

// Stake and payout bounds.
var (
	MinStake  = decimal.NewFromFloat(0.01)
	MaxStake  = decimal.NewFromInt(10_000)
	MaxPayout = decimal.NewFromInt(100_000)
)

// Parlay leg bounds.
const (
	MinParlayLegs = 2
	MaxParlayLegs = 15
)

// Violation is a structured rule violation naming the rule and the
// conflicting legs.
type Violation struct {
	Rule    string
	LegIDs  []string
	Message string
}

// Err converts the violation into the placement error type.
func (v *Violation) Err() *types.ValidationError {
	return &types.ValidationError{Rule: v.Rule, LegIDs: v.LegIDs, Message: v.Message}
}

// Validator applies construction rules. It is stateless apart from the
// teaser configuration table.
type Validator struct {
	teasers map[string]odds.TeaserConfig
}

// New creates a validator backed by the given teaser menu.
func New(teasers map[string]odds.TeaserConfig) *Validator {
	return &Validator{teasers: teasers}
}

// Validate checks whether a candidate leg may join the existing set. Returns
// nil if the addition is legal. Pure: no side effects.
func (v *Validator) Validate(existing []types.Leg, candidate types.Leg, mode Mode) *Violation {
	// 1. Duplicate leg.
	for _, leg := range existing {
		if leg.ID == candidate.ID {
			return &Violation{
				Rule:    RuleDuplicateLeg,
				LegIDs:  []string{candidate.ID},
				Message: "leg is already on the ticket",
			}
		}
	}

	// 2. Teaser eligibility.
	if mode == ModeTeaser {
		if candidate.MarketType != types.MarketSpread && candidate.MarketType != types.MarketTotal {
			return &Violation{
				Rule:    RuleTeaserEligible,
				LegIDs:  []string{candidate.ID},
				Message: fmt.Sprintf("market %q cannot be teased", candidate.MarketType),
			}
		}
		if candidate.Line == nil {
			return &Violation{
				Rule:    RuleTeaserEligible,
				LegIDs:  []string{candidate.ID},
				Message: "teaser legs require a line",
			}
		}
		if !odds.TeaserEligibleLeague(candidate.League) {
			return &Violation{
				Rule:    RuleTeaserEligible,
				LegIDs:  []string{candidate.ID},
				Message: fmt.Sprintf("league %q is not teaser eligible", candidate.League),
			}
		}
	}

	for _, leg := range existing {
		if leg.GameID != candidate.GameID {
			continue
		}

		// 3. Opposing sides within one game+market.
		if leg.MarketType == candidate.MarketType && opposingSides(leg, candidate) {
			return &Violation{
				Rule:    RuleOpposingSides,
				LegIDs:  []string{leg.ID, candidate.ID},
				Message: "legs select mutually exclusive sides of the same market",
			}
		}

		// 4. Same player prop, opposite sides of the same line.
		if leg.MarketType == types.MarketPlayerProp && candidate.MarketType == types.MarketPlayerProp &&
			leg.EntityID == candidate.EntityID && leg.StatType == candidate.StatType &&
			sameLine(leg.Line, candidate.Line) && leg.Selection != candidate.Selection {
			return &Violation{
				Rule:    RuleOpposingProp,
				LegIDs:  []string{leg.ID, candidate.ID},
				Message: "over and under on the same player prop",
			}
		}

		// 5. Multiple props on the same player, any stat or side.
		if leg.MarketType == types.MarketPlayerProp && candidate.MarketType == types.MarketPlayerProp &&
			leg.EntityID == candidate.EntityID {
			return &Violation{
				Rule:    RuleSamePlayerProps,
				LegIDs:  []string{leg.ID, candidate.ID},
				Message: "multiple props on the same player in one game",
			}
		}

		// 6. Game total correlated with a team-total prop.
		if correlatedTotals(leg, candidate) {
			return &Violation{
				Rule:    RuleCorrelated,
				LegIDs:  []string{leg.ID, candidate.ID},
				Message: "game total correlates with a team total in the same game",
			}
		}
	}

	return nil
}

// ValidateFull validates a complete leg set plus stake sizing. teaserType is
// consulted only in teaser mode. Pure: no side effects.
func (v *Validator) ValidateFull(legs []types.Leg, mode Mode, teaserType string, stake, potentialPayout decimal.Decimal) *Violation {
	for i := range legs {
		if violation := v.Validate(legs[:i], legs[i], mode); violation != nil {
			return violation
		}
	}

	// 7. Count bounds.
	switch mode {
	case ModeSingle:
		if len(legs) != 1 {
			return &Violation{
				Rule:    RuleLegCount,
				Message: fmt.Sprintf("single bet must have exactly 1 leg, got %d", len(legs)),
			}
		}
	case ModeParlay:
		if len(legs) < MinParlayLegs || len(legs) > MaxParlayLegs {
			return &Violation{
				Rule:    RuleLegCount,
				Message: fmt.Sprintf("parlay must have %d-%d legs, got %d", MinParlayLegs, MaxParlayLegs, len(legs)),
			}
		}
	case ModeTeaser:
		cfg, ok := v.teasers[teaserType]
		if !ok {
			return &Violation{
				Rule:    RuleTeaserEligible,
				Message: fmt.Sprintf("unknown teaser type %q", teaserType),
			}
		}
		if len(legs) < cfg.MinLegs || len(legs) > cfg.MaxLegs {
			return &Violation{
				Rule:    RuleLegCount,
				Message: fmt.Sprintf("%s teaser must have %d-%d legs, got %d", teaserType, cfg.MinLegs, cfg.MaxLegs, len(legs)),
			}
		}
	}

	// 8. Stake bounds.
	if stake.LessThan(MinStake) || stake.GreaterThan(MaxStake) {
		return &Violation{
			Rule:    RuleStakeBounds,
			Message: fmt.Sprintf("stake %s outside [%s, %s]", stake.StringFixed(2), MinStake, MaxStake),
		}
	}
	if potentialPayout.GreaterThan(MaxPayout) {
		return &Violation{
			Rule:    RuleStakeBounds,
			Message: fmt.Sprintf("potential payout %s exceeds maximum %s", potentialPayout.StringFixed(2), MaxPayout),
		}
	}

	return nil
}

// opposingSides reports whether two legs on the same market take mutually
// exclusive sides: home/away on moneyline or spread, over/under on totals.
func opposingSides(a, b types.Leg) bool {
	switch a.MarketType {
	case types.MarketMoneyline, types.MarketSpread:
		return (a.Selection == types.SideHome && b.Selection == types.SideAway) ||
			(a.Selection == types.SideAway && b.Selection == types.SideHome)
	case types.MarketTotal:
		return (a.Selection == types.SideOver && b.Selection == types.SideUnder) ||
			(a.Selection == types.SideUnder && b.Selection == types.SideOver)
	}
	return false
}

// correlatedTotals reports whether one leg is a game total and the other a
// team-total-style game prop in the same game.
func correlatedTotals(a, b types.Leg) bool {
	isTeamTotal := func(l types.Leg) bool {
		return l.MarketType == types.MarketGameProp && strings.HasPrefix(l.StatType, "team_total")
	}
	return (a.MarketType == types.MarketTotal && isTeamTotal(b)) ||
		(b.MarketType == types.MarketTotal && isTeamTotal(a))
}

func sameLine(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
