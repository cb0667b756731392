package odds

import (
	"fmt"

	"github.com/nssports/sportsbook-engine/pkg/types"
)

// PushRule controls how a pushed leg affects a teaser.
type PushRule string

const (
	// PushRulePush voids the whole teaser, stake returned.
	PushRulePush PushRule = "push"
	// PushRuleLose grades the whole teaser as lost.
	PushRuleLose PushRule = "lose"
	// PushRuleRevert drops the pushed leg and reverts the payout to the
	// odds of the next-smaller configured leg count.
	PushRuleRevert PushRule = "revert"
)

// TeaserConfig describes one teaser product tier.
type TeaserConfig struct {
	Key    string
	Sport  string  // "football" or "basketball"
	Points float64 // line adjustment applied to every leg

	// LegOdds maps leg count to the flat American price for the ticket.
	LegOdds map[int]int

	MinLegs int
	MaxLegs int

	PushRule PushRule

	// RevertFloor is the minimum leg count a reverting teaser may shrink
	// to. Below it the teaser voids entirely (stake returned).
	RevertFloor int
}

// DefaultTeaserConfigs returns the standard teaser menu.
func DefaultTeaserConfigs() map[string]TeaserConfig {
	return map[string]TeaserConfig{
		"football_6": {
			Key: "football_6", Sport: "football", Points: 6.0,
			LegOdds:  map[int]int{2: -110, 3: 160, 4: 260, 5: 400, 6: 600},
			MinLegs:  2, MaxLegs: 6,
			PushRule: PushRuleRevert, RevertFloor: 2,
		},
		"football_6_5": {
			Key: "football_6_5", Sport: "football", Points: 6.5,
			LegOdds:  map[int]int{2: -120, 3: 140, 4: 220, 5: 350, 6: 500},
			MinLegs:  2, MaxLegs: 6,
			PushRule: PushRulePush, RevertFloor: 2,
		},
		"football_7": {
			Key: "football_7", Sport: "football", Points: 7.0,
			LegOdds:  map[int]int{2: -130, 3: 120, 4: 180, 5: 300, 6: 400},
			MinLegs:  2, MaxLegs: 6,
			PushRule: PushRulePush, RevertFloor: 2,
		},
		// Super teasers trade bigger adjustments for worse odds and
		// grade ties as losses.
		"football_super": {
			Key: "football_super", Sport: "football", Points: 10.0,
			LegOdds:  map[int]int{3: -120, 4: 100},
			MinLegs:  3, MaxLegs: 4,
			PushRule: PushRuleLose, RevertFloor: 3,
		},
		"basketball_4": {
			Key: "basketball_4", Sport: "basketball", Points: 4.0,
			LegOdds:  map[int]int{2: -110, 3: 160, 4: 260, 5: 400, 6: 600},
			MinLegs:  2, MaxLegs: 6,
			PushRule: PushRuleRevert, RevertFloor: 2,
		},
		"basketball_4_5": {
			Key: "basketball_4_5", Sport: "basketball", Points: 4.5,
			LegOdds:  map[int]int{2: -120, 3: 140, 4: 220, 5: 350, 6: 500},
			MinLegs:  2, MaxLegs: 6,
			PushRule: PushRulePush, RevertFloor: 2,
		},
		"basketball_super": {
			Key: "basketball_super", Sport: "basketball", Points: 7.0,
			LegOdds:  map[int]int{3: -120, 4: 100},
			MinLegs:  3, MaxLegs: 4,
			PushRule: PushRuleLose, RevertFloor: 3,
		},
	}
}

// teaserLeagues maps teaser-eligible leagues to their sport family.
var teaserLeagues = map[string]string{
	"NFL":   "football",
	"NCAAF": "football",
	"NBA":   "basketball",
	"NCAAB": "basketball",
}

// TeaserEligibleLeague reports whether a league may appear in a teaser.
func TeaserEligibleLeague(league string) bool {
	_, ok := teaserLeagues[league]
	return ok
}

// TeaserSport returns the sport family of a teaser-eligible league.
func TeaserSport(league string) (string, bool) {
	s, ok := teaserLeagues[league]
	return s, ok
}

// AdjustLine shifts a line in the bettor's favor by the teaser points.
// Spreads move uniformly toward the bettor regardless of favorite or
// underdog sign; totals move the target away from the selection.
func AdjustLine(original float64, selection string, points float64, market types.MarketType) (float64, error) {
	switch market {
	case types.MarketSpread:
		return original + points, nil
	case types.MarketTotal:
		switch selection {
		case types.SideOver:
			return original - points, nil
		case types.SideUnder:
			return original + points, nil
		default:
			return 0, fmt.Errorf("adjust line: invalid total selection %q", selection)
		}
	default:
		return 0, fmt.Errorf("adjust line: market %q is not teasable", market)
	}
}
