// Package grading evaluates leg outcomes against finalized game results and
// composes them into compound-bet outcomes. Grading is pure and side-effect
// free: it is always safe to recompute or retry without coordination.
package grading

import (
	"fmt"
	"strings"

	"github.com/nssports/sportsbook-engine/internal/odds"
	"github.com/nssports/sportsbook-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// Outcome is the graded result of one bet: a terminal status plus the
// amount to credit the account. Won bets credit the full payout (stake was
// debited at placement), pushes credit the stake back, losses credit
// nothing.
type Outcome struct {
	Status      types.BetStatus
	Credit      decimal.Decimal
	LegOutcomes map[string]types.LegOutcome
}

// Grader grades bets. Stateless apart from the teaser menu.
type Grader struct {
	teasers map[string]odds.TeaserConfig
}

// New creates a grader backed by the given teaser menu.
func New(teasers map[string]odds.TeaserConfig) *Grader {
	return &Grader{teasers: teasers}
}

// GradeLeg evaluates one leg against a game result. Returns
// types.ErrGradingIncomplete (wrapped) when the game is not finished or a
// required stat is missing; the caller must defer, not fail, the bet.
func (g *Grader) GradeLeg(leg types.Leg, result *types.GameResult) (types.LegOutcome, error) {
	// Administrative voids are settled as voids without consulting the
	// result.
	if leg.Outcome == types.LegVoid {
		return types.LegVoid, nil
	}
	if !result.Finished() {
		return types.LegPending, fmt.Errorf("%w: game %s not finished", types.ErrGradingIncomplete, leg.GameID)
	}

	switch leg.MarketType {
	case types.MarketMoneyline:
		return gradeMoneyline(leg, result), nil
	case types.MarketSpread:
		return gradeSpread(leg, result), nil
	case types.MarketTotal:
		return gradeTotal(leg, result), nil
	case types.MarketPlayerProp, types.MarketGameProp:
		return gradeProp(leg, result)
	default:
		return types.LegPending, fmt.Errorf("grade leg %s: unknown market type %q", leg.ID, leg.MarketType)
	}
}

func gradeMoneyline(leg types.Leg, result *types.GameResult) types.LegOutcome {
	home, away := result.HomeScore, result.AwayScore

	if home == away {
		if leg.Selection == types.SideDraw {
			return types.LegWin
		}
		// Drawless-league convention: a tie refunds home/away legs.
		return types.LegPush
	}
	if leg.Selection == types.SideDraw {
		return types.LegLoss
	}

	winner := types.SideHome
	if away > home {
		winner = types.SideAway
	}
	if leg.Selection == winner {
		return types.LegWin
	}
	return types.LegLoss
}

func gradeSpread(leg types.Leg, result *types.GameResult) types.LegOutcome {
	selected, opponent := result.HomeScore, result.AwayScore
	if leg.Selection == types.SideAway {
		selected, opponent = result.AwayScore, result.HomeScore
	}

	coveredMargin := float64(selected-opponent) + *leg.Line
	switch {
	case coveredMargin > 0:
		return types.LegWin
	case coveredMargin < 0:
		return types.LegLoss
	default:
		return types.LegPush
	}
}

func gradeTotal(leg types.Leg, result *types.GameResult) types.LegOutcome {
	sum := float64(result.HomeScore + result.AwayScore)
	line := *leg.Line

	switch {
	case sum == line:
		return types.LegPush
	case leg.Selection == types.SideOver && sum > line:
		return types.LegWin
	case leg.Selection == types.SideUnder && sum < line:
		return types.LegWin
	default:
		return types.LegLoss
	}
}

// gradeProp grades a player or game prop. Combined stats such as
// "points+rebounds" sum the named components; every component must be
// present in the result or the leg cannot be graded yet.
func gradeProp(leg types.Leg, result *types.GameResult) (types.LegOutcome, error) {
	var actual float64
	for _, stat := range strings.Split(leg.StatType, "+") {
		value, ok := result.StatValue(stat, leg.EntityID)
		if !ok {
			return types.LegPending, fmt.Errorf("%w: stat %q for entity %s missing from game %s",
				types.ErrGradingIncomplete, stat, leg.EntityID, leg.GameID)
		}
		actual += value
	}

	line := *leg.Line
	switch {
	case actual == line:
		return types.LegPush, nil
	case leg.Selection == types.SideOver && actual > line:
		return types.LegWin, nil
	case leg.Selection == types.SideUnder && actual < line:
		return types.LegWin, nil
	default:
		return types.LegLoss, nil
	}
}

// GradeBet grades a whole bet against the result set, composing leg
// outcomes per product. Compound tickets (round robin, reverse) are settled
// through their constituent wagers and are rejected here.
func (g *Grader) GradeBet(bet *types.Bet, results map[string]*types.GameResult) (*Outcome, error) {
	switch bet.Type {
	case types.BetTypeSingle:
		return g.gradeSingle(bet, results)
	case types.BetTypeParlay:
		return g.gradeParlay(bet, results)
	case types.BetTypeTeaser:
		return g.gradeTeaser(bet, results)
	case types.BetTypeIfBet:
		return g.gradeChain(bet, results)
	case types.BetTypeRoundRobin, types.BetTypeReverse:
		return nil, fmt.Errorf("bet %s: compound ticket %q is settled via its constituent wagers", bet.ID, bet.Type)
	default:
		return nil, fmt.Errorf("bet %s: unknown bet type %q", bet.ID, bet.Type)
	}
}

func (g *Grader) gradeSingle(bet *types.Bet, results map[string]*types.GameResult) (*Outcome, error) {
	leg := bet.Legs[0]
	legOutcome, err := g.GradeLeg(leg, results[leg.GameID])
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Credit:      decimal.Zero,
		LegOutcomes: map[string]types.LegOutcome{leg.ID: legOutcome},
	}
	switch legOutcome {
	case types.LegWin:
		payout, err := odds.Payout(bet.Stake, leg.Odds)
		if err != nil {
			return nil, err
		}
		out.Status = types.BetStatusWon
		out.Credit = payout
	case types.LegPush, types.LegVoid:
		out.Status = types.BetStatusPush
		out.Credit = bet.Stake
	default:
		out.Status = types.BetStatusLost
	}
	return out, nil
}

// gradeParlay applies the standard push-reduction rule: any loss loses the
// parlay, pushed legs drop out and the combined odds are recomputed over
// the remaining legs.
func (g *Grader) gradeParlay(bet *types.Bet, results map[string]*types.GameResult) (*Outcome, error) {
	out := &Outcome{
		Credit:      decimal.Zero,
		LegOutcomes: make(map[string]types.LegOutcome, len(bet.Legs)),
	}

	remaining := make([]decimal.Decimal, 0, len(bet.Legs))
	for _, leg := range bet.Legs {
		legOutcome, err := g.GradeLeg(leg, results[leg.GameID])
		if err != nil {
			return nil, err
		}
		out.LegOutcomes[leg.ID] = legOutcome

		switch legOutcome {
		case types.LegLoss:
			out.Status = types.BetStatusLost
		case types.LegWin:
			d, err := odds.ToDecimal(leg.Odds)
			if err != nil {
				return nil, err
			}
			remaining = append(remaining, d)
		}
		// Pushes and voids drop out of the combination.
	}

	if out.Status == types.BetStatusLost {
		return out, nil
	}
	if len(remaining) == 0 {
		// Every leg pushed: refund.
		out.Status = types.BetStatusPush
		out.Credit = bet.Stake
		return out, nil
	}

	combined := odds.CombineDecimal(remaining)
	out.Status = types.BetStatusWon
	out.Credit = bet.Stake.Mul(combined).Round(2)
	return out, nil
}

func (g *Grader) gradeTeaser(bet *types.Bet, results map[string]*types.GameResult) (*Outcome, error) {
	cfg, ok := g.teasers[bet.TeaserType]
	if !ok {
		return nil, &types.ConfigurationError{
			Field:   "teaserType",
			Message: fmt.Sprintf("unknown teaser type %q on bet %s", bet.TeaserType, bet.ID),
		}
	}

	out := &Outcome{
		Credit:      decimal.Zero,
		LegOutcomes: make(map[string]types.LegOutcome, len(bet.Legs)),
	}

	wins, pushes := 0, 0
	for _, leg := range bet.Legs {
		legOutcome, err := g.GradeLeg(leg, results[leg.GameID])
		if err != nil {
			return nil, err
		}
		out.LegOutcomes[leg.ID] = legOutcome

		switch legOutcome {
		case types.LegLoss:
			out.Status = types.BetStatusLost
		case types.LegWin:
			wins++
		case types.LegPush, types.LegVoid:
			pushes++
		}
	}

	if out.Status == types.BetStatusLost {
		return out, nil
	}

	if pushes == 0 {
		payout, err := odds.Payout(bet.Stake, bet.Odds)
		if err != nil {
			return nil, err
		}
		out.Status = types.BetStatusWon
		out.Credit = payout
		return out, nil
	}

	switch cfg.PushRule {
	case odds.PushRulePush:
		// Conservative tie handling: any push voids the whole ticket.
		out.Status = types.BetStatusPush
		out.Credit = bet.Stake
	case odds.PushRuleLose:
		out.Status = types.BetStatusLost
	case odds.PushRuleRevert:
		// Pushed legs drop out and the ticket reverts to the odds of the
		// smaller leg count. Below the configured floor the teaser voids
		// entirely.
		if wins < cfg.RevertFloor {
			out.Status = types.BetStatusPush
			out.Credit = bet.Stake
			return out, nil
		}
		revertedOdds, ok := cfg.LegOdds[wins]
		if !ok {
			return nil, &types.ConfigurationError{
				Field:   "teaserType",
				Message: fmt.Sprintf("teaser %q has no odds for %d legs", cfg.Key, wins),
			}
		}
		payout, err := odds.Payout(bet.Stake, revertedOdds)
		if err != nil {
			return nil, err
		}
		out.Status = types.BetStatusWon
		out.Credit = payout
	default:
		return nil, &types.ConfigurationError{
			Field:   "pushRule",
			Message: fmt.Sprintf("unknown teaser push rule %q", cfg.PushRule),
		}
	}
	return out, nil
}

// gradeChain grades an if-bet (or one reverse-bet sequence): legs are
// staked progressively, the activating condition decides whether a push
// advances the chain, and a single loss ends it with the later legs void,
// so the realized loss never exceeds the initial stake.
func (g *Grader) gradeChain(bet *types.Bet, results map[string]*types.GameResult) (*Outcome, error) {
	out := &Outcome{
		Credit:      decimal.Zero,
		LegOutcomes: make(map[string]types.LegOutcome, len(bet.Legs)),
	}

	stake := bet.Stake
	anyWin, anyLoss := false, false
	stopped := false

	for i, leg := range bet.Legs {
		if stopped {
			out.LegOutcomes[leg.ID] = types.LegVoid
			continue
		}

		legOutcome, err := g.GradeLeg(leg, results[leg.GameID])
		if err != nil {
			return nil, err
		}
		out.LegOutcomes[leg.ID] = legOutcome
		last := i == len(bet.Legs)-1

		switch legOutcome {
		case types.LegWin:
			anyWin = true
			payout, err := odds.Payout(stake, leg.Odds)
			if err != nil {
				return nil, err
			}
			if last {
				out.Credit = payout
			} else {
				stake = payout
			}
		case types.LegPush:
			// The pushed leg refunds its stake. if_win_or_tie carries the
			// same stake forward; if_win_only ends the chain here.
			if bet.IfCondition == types.IfWinOrTie && !last {
				continue
			}
			out.Credit = stake
			stopped = true
		case types.LegVoid:
			// Cancelled legs are skipped; the chain continues regardless
			// of condition.
			if last {
				out.Credit = stake
			}
		case types.LegLoss:
			anyLoss = true
			out.Credit = decimal.Zero
			stopped = true
		}
	}

	switch {
	case anyLoss:
		out.Status = types.BetStatusLost
	case anyWin:
		out.Status = types.BetStatusWon
	default:
		out.Status = types.BetStatusPush
	}
	return out, nil
}
