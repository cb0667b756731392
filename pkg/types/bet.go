package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BetType identifies the bet product.
type BetType string

const (
	BetTypeSingle     BetType = "single"
	BetTypeParlay     BetType = "parlay"
	BetTypeTeaser     BetType = "teaser"
	BetTypeRoundRobin BetType = "round_robin"
	BetTypeIfBet      BetType = "if_bet"
	BetTypeReverse    BetType = "reverse_bet"
)

// BetStatus is the lifecycle state of a bet. Transitions only run
// pending/processing -> {won, lost, push, cancelled}, never backward.
type BetStatus string

const (
	BetStatusPending    BetStatus = "pending"
	BetStatusProcessing BetStatus = "processing"
	BetStatusWon        BetStatus = "won"
	BetStatusLost       BetStatus = "lost"
	BetStatusPush       BetStatus = "push"
	BetStatusCancelled  BetStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s BetStatus) Terminal() bool {
	switch s {
	case BetStatusWon, BetStatusLost, BetStatusPush, BetStatusCancelled:
		return true
	}
	return false
}

// MarketType identifies the market a leg was taken on.
type MarketType string

const (
	MarketSpread     MarketType = "spread"
	MarketMoneyline  MarketType = "moneyline"
	MarketTotal      MarketType = "total"
	MarketPlayerProp MarketType = "player_prop"
	MarketGameProp   MarketType = "game_prop"
)

// Leg selection sides.
const (
	SideHome  = "home"
	SideAway  = "away"
	SideDraw  = "draw"
	SideOver  = "over"
	SideUnder = "under"
)

// LegOutcome is the graded result of a single leg. Void is only reachable
// through if-bet / reverse-bet chain short-circuits, never direct grading.
type LegOutcome string

const (
	LegPending LegOutcome = "pending"
	LegWin     LegOutcome = "win"
	LegLoss    LegOutcome = "loss"
	LegPush    LegOutcome = "push"
	LegVoid    LegOutcome = "void"
)

// Leg is one atomic selection within a bet. Legs are immutable once the
// owning bet reaches a terminal status.
type Leg struct {
	ID         string     `json:"id"`
	GameID     string     `json:"gameId"`
	League     string     `json:"league"`
	MarketType MarketType `json:"marketType"`
	Selection  string     `json:"selection"`
	Line       *float64   `json:"line,omitempty"`
	Odds       int        `json:"odds"` // American

	// Prop-only fields.
	EntityID string `json:"entityId,omitempty"` // player or team the prop references
	StatType string `json:"statType,omitempty"` // e.g. "points", "points+rebounds"

	Outcome LegOutcome `json:"outcome"`
}

// Validate enforces the per-market shape of a leg. It is the tagged-union
// check applied at the persistence boundary: the grading engine never sees a
// leg whose fields do not match its market type.
func (l *Leg) Validate() error {
	if l.GameID == "" {
		return fmt.Errorf("leg %s: missing game id", l.ID)
	}
	switch l.MarketType {
	case MarketMoneyline:
		if l.Selection != SideHome && l.Selection != SideAway && l.Selection != SideDraw {
			return fmt.Errorf("leg %s: moneyline selection must be home, away or draw", l.ID)
		}
	case MarketSpread:
		if l.Line == nil {
			return fmt.Errorf("leg %s: spread leg requires a line", l.ID)
		}
		if l.Selection != SideHome && l.Selection != SideAway {
			return fmt.Errorf("leg %s: spread selection must be home or away", l.ID)
		}
	case MarketTotal:
		if l.Line == nil {
			return fmt.Errorf("leg %s: total leg requires a line", l.ID)
		}
		if l.Selection != SideOver && l.Selection != SideUnder {
			return fmt.Errorf("leg %s: total selection must be over or under", l.ID)
		}
	case MarketPlayerProp, MarketGameProp:
		if l.EntityID == "" || l.StatType == "" {
			return fmt.Errorf("leg %s: prop leg requires entity and stat type", l.ID)
		}
		if l.Line == nil {
			return fmt.Errorf("leg %s: prop leg requires a line", l.ID)
		}
		if l.Selection != SideOver && l.Selection != SideUnder {
			return fmt.Errorf("leg %s: prop selection must be over or under", l.ID)
		}
	default:
		return fmt.Errorf("leg %s: unknown market type %q", l.ID, l.MarketType)
	}
	return nil
}

// IfBetCondition controls how an if-bet chain advances.
type IfBetCondition string

const (
	IfWinOnly  IfBetCondition = "if_win_only"
	IfWinOrTie IfBetCondition = "if_win_or_tie"
)

// ReverseType controls how a reverse-bet sequence advances.
type ReverseType string

const (
	WinReverse    ReverseType = "win_reverse"
	ActionReverse ReverseType = "action_reverse"
)

// Bet is a persisted wager. Compound products (round robins, reverse bets)
// are stored as a parent ticket plus one child Bet per constituent wager;
// only leaf bets carry a ledger effect at settlement.
type Bet struct {
	ID     string  `json:"id"`
	UserID string  `json:"userId"`
	Type   BetType `json:"betType"`

	// ParentID links a constituent wager back to its compound ticket.
	ParentID string `json:"parentId,omitempty"`

	Legs []Leg `json:"legs"`

	Stake           decimal.Decimal `json:"stake"`
	Odds            int             `json:"odds"` // zero for compound tickets
	PotentialPayout decimal.Decimal `json:"potentialPayout"`

	// Teaser-only.
	TeaserType string `json:"teaserType,omitempty"`

	// If-bet / reverse-sequence only.
	IfCondition IfBetCondition `json:"ifCondition,omitempty"`

	Status         BetStatus  `json:"status"`
	PlacedAt       time.Time  `json:"placedAt"`
	SettledAt      *time.Time `json:"settledAt,omitempty"`
	IdempotencyKey string     `json:"idempotencyKey,omitempty"`
}

// GameIDs returns the distinct game ids referenced by the bet's legs.
func (b *Bet) GameIDs() []string {
	seen := make(map[string]struct{}, len(b.Legs))
	ids := make([]string, 0, len(b.Legs))
	for _, leg := range b.Legs {
		if _, ok := seen[leg.GameID]; ok {
			continue
		}
		seen[leg.GameID] = struct{}{}
		ids = append(ids, leg.GameID)
	}
	return ids
}

// Validate checks the bet-level invariants: positive stake and well-formed
// legs for the bet type.
func (b *Bet) Validate() error {
	if !b.Stake.IsPositive() {
		return fmt.Errorf("bet %s: stake must be positive", b.ID)
	}
	if len(b.Legs) == 0 {
		return fmt.Errorf("bet %s: no legs", b.ID)
	}
	for i := range b.Legs {
		if err := b.Legs[i].Validate(); err != nil {
			return fmt.Errorf("bet %s: %w", b.ID, err)
		}
	}
	return nil
}
