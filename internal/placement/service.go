// Package placement builds, validates, prices and persists bets. It is the
// single write path: every bet passes the construction rules, gets priced
// by the odds calculator and debits the account in one transaction with the
// insert.
package placement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nssports/sportsbook-engine/internal/expand"
	"github.com/nssports/sportsbook-engine/internal/odds"
	"github.com/nssports/sportsbook-engine/internal/rules"
	"github.com/nssports/sportsbook-engine/internal/settlement"
	"github.com/nssports/sportsbook-engine/internal/storage"
	"github.com/nssports/sportsbook-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Request is one placement attempt. Stake is per wager: the whole stake for
// singles, parlays, teasers and if-bets, per parlay for round robins and
// per sequence for reverse bets.
type Request struct {
	UserID string          `json:"userId"`
	Type   types.BetType   `json:"betType"`
	Legs   []types.Leg     `json:"legs"`
	Stake  decimal.Decimal `json:"stake"`

	// Round robin only.
	ParlaySize int `json:"parlaySize,omitempty"`

	// Teaser only.
	TeaserType string `json:"teaserType,omitempty"`

	// If-bet only.
	IfCondition types.IfBetCondition `json:"ifCondition,omitempty"`

	// Reverse bet only.
	ReverseType types.ReverseType `json:"reverseType,omitempty"`

	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// Receipt is the persisted result of a placement. Children holds the
// constituent wagers of compound products.
type Receipt struct {
	Bet        *types.Bet      `json:"bet"`
	Children   []*types.Bet    `json:"children,omitempty"`
	TotalStake decimal.Decimal `json:"totalStake"`

	// Duplicate marks a replayed idempotency key: the original placement
	// is returned and nothing was written.
	Duplicate bool `json:"duplicate"`
}

// Service is the placement service.
type Service struct {
	store     storage.Store
	validator *rules.Validator
	teasers   map[string]odds.TeaserConfig
	applier   *settlement.Applier
	logger    *zap.Logger
}

// NewService creates a placement service.
func NewService(store storage.Store, validator *rules.Validator, teasers map[string]odds.TeaserConfig, applier *settlement.Applier, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		validator: validator,
		teasers:   teasers,
		applier:   applier,
		logger:    logger,
	}
}

// Place validates, prices and persists a bet. The stake debit, the bet rows
// and the audit transaction commit atomically; a replayed idempotency key
// returns the original placement without writing anything.
func (s *Service) Place(ctx context.Context, req Request) (*Receipt, error) {
	if req.IdempotencyKey != "" {
		existing, err := s.store.GetBetByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
		if err == nil {
			return s.replayReceipt(ctx, existing)
		}
		if err != storage.ErrNotFound {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
	}

	bet, children, err := s.build(req)
	if err != nil {
		return nil, err
	}

	totalStake := bet.Stake
	err = s.store.WithinTx(ctx, func(tx storage.Tx) error {
		err := tx.InsertBet(ctx, bet)
		if err != nil {
			return err
		}
		for _, child := range children {
			err = tx.InsertBet(ctx, child)
			if err != nil {
				return err
			}
		}
		_, err = s.applier.ApplyDebit(ctx, tx, req.UserID, bet.ID, totalStake)
		return err
	})
	if errors.Is(err, storage.ErrDuplicateKey) {
		// A concurrent placement with the same key won the insert race;
		// serve its receipt instead of failing.
		existing, lookupErr := s.store.GetBetByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
		if lookupErr != nil {
			return nil, fmt.Errorf("idempotency lookup after conflict: %w", lookupErr)
		}
		return s.replayReceipt(ctx, existing)
	}
	if err != nil {
		return nil, err
	}

	PlacementsTotal.WithLabelValues(string(bet.Type)).Inc()
	StakePlaced.Observe(totalStake.InexactFloat64())
	s.logger.Info("bet-placed",
		zap.String("bet-id", bet.ID),
		zap.String("user-id", bet.UserID),
		zap.String("bet-type", string(bet.Type)),
		zap.Int("legs", len(bet.Legs)),
		zap.Int("children", len(children)),
		zap.String("total-stake", totalStake.StringFixed(2)))

	return &Receipt{Bet: bet, Children: children, TotalStake: totalStake}, nil
}

// replayReceipt rebuilds the receipt for an already-placed idempotency key.
func (s *Service) replayReceipt(ctx context.Context, bet *types.Bet) (*Receipt, error) {
	receipt := &Receipt{Bet: bet, TotalStake: bet.Stake, Duplicate: true}
	if bet.Type == types.BetTypeRoundRobin || bet.Type == types.BetTypeReverse {
		children, err := s.store.ChildBets(ctx, bet.ID)
		if err != nil {
			return nil, fmt.Errorf("load children: %w", err)
		}
		receipt.Children = children
	}
	DuplicatePlacementsTotal.Inc()
	return receipt, nil
}

// build constructs the bet rows for one request: validation, pricing and,
// for compound products, expansion into constituent wagers.
func (s *Service) build(req Request) (*types.Bet, []*types.Bet, error) {
	switch req.Type {
	case types.BetTypeSingle:
		return s.buildSingle(req)
	case types.BetTypeParlay:
		return s.buildParlay(req)
	case types.BetTypeTeaser:
		return s.buildTeaser(req)
	case types.BetTypeIfBet:
		return s.buildIfBet(req)
	case types.BetTypeRoundRobin:
		return s.buildRoundRobin(req)
	case types.BetTypeReverse:
		return s.buildReverse(req)
	default:
		return nil, nil, &types.ValidationError{
			Rule:    rules.RuleLegCount,
			Message: fmt.Sprintf("unknown bet type %q", req.Type),
		}
	}
}

func (s *Service) check(legs []types.Leg, mode rules.Mode, teaserType string, stake, payout decimal.Decimal) error {
	violation := s.validator.ValidateFull(legs, mode, teaserType, stake, payout)
	if violation != nil {
		rules.ViolationsTotal.WithLabelValues(violation.Rule).Inc()
		return violation.Err()
	}
	return nil
}

func (s *Service) buildSingle(req Request) (*types.Bet, []*types.Bet, error) {
	if len(req.Legs) != 1 {
		return nil, nil, &types.ValidationError{
			Rule:    rules.RuleLegCount,
			Message: fmt.Sprintf("single bet must have exactly 1 leg, got %d", len(req.Legs)),
		}
	}
	leg := req.Legs[0]

	payout, err := odds.Payout(req.Stake, leg.Odds)
	if err != nil {
		return nil, nil, err
	}
	err = s.check(req.Legs, rules.ModeSingle, "", req.Stake, payout)
	if err != nil {
		return nil, nil, err
	}

	return s.newBet(req, types.BetTypeSingle, req.Legs, req.Stake, leg.Odds, payout), nil, nil
}

func (s *Service) buildParlay(req Request) (*types.Bet, []*types.Bet, error) {
	decimals := make([]decimal.Decimal, 0, len(req.Legs))
	for _, leg := range req.Legs {
		d, err := odds.ToDecimal(leg.Odds)
		if err != nil {
			return nil, nil, err
		}
		decimals = append(decimals, d)
	}

	// Payout is priced from the exact decimal product, matching what
	// settlement credits. The rounded American price is display only.
	combined := odds.CombineDecimal(decimals)
	american, err := odds.ToAmerican(combined)
	if err != nil {
		return nil, nil, err
	}
	payout := req.Stake.Mul(combined).Round(2)

	err = s.check(req.Legs, rules.ModeParlay, "", req.Stake, payout)
	if err != nil {
		return nil, nil, err
	}

	return s.newBet(req, types.BetTypeParlay, req.Legs, req.Stake, american, payout), nil, nil
}

func (s *Service) buildTeaser(req Request) (*types.Bet, []*types.Bet, error) {
	cfg, ok := s.teasers[req.TeaserType]
	if !ok {
		return nil, nil, &types.ValidationError{
			Rule:    rules.RuleTeaserEligible,
			Message: fmt.Sprintf("unknown teaser type %q", req.TeaserType),
		}
	}

	// Legs are stored with the teased lines; grading reads them as-is.
	teased := make([]types.Leg, len(req.Legs))
	for i, leg := range req.Legs {
		sport, ok := odds.TeaserSport(leg.League)
		if !ok || sport != cfg.Sport {
			return nil, nil, &types.ValidationError{
				Rule:    rules.RuleTeaserEligible,
				LegIDs:  []string{leg.ID},
				Message: fmt.Sprintf("league %q does not belong to a %s teaser", leg.League, cfg.Sport),
			}
		}
		if leg.Line == nil {
			return nil, nil, &types.ValidationError{
				Rule:    rules.RuleTeaserEligible,
				LegIDs:  []string{leg.ID},
				Message: "teaser legs require a line",
			}
		}
		adjusted, err := odds.AdjustLine(*leg.Line, leg.Selection, cfg.Points, leg.MarketType)
		if err != nil {
			return nil, nil, err
		}
		teased[i] = leg
		teased[i].Line = &adjusted
	}

	ticketOdds, ok := cfg.LegOdds[len(teased)]
	if !ok {
		return nil, nil, &types.ValidationError{
			Rule:    rules.RuleLegCount,
			Message: fmt.Sprintf("%s teaser has no price for %d legs", cfg.Key, len(teased)),
		}
	}
	payout, err := odds.Payout(req.Stake, ticketOdds)
	if err != nil {
		return nil, nil, err
	}
	err = s.check(teased, rules.ModeTeaser, req.TeaserType, req.Stake, payout)
	if err != nil {
		return nil, nil, err
	}

	bet := s.newBet(req, types.BetTypeTeaser, teased, req.Stake, ticketOdds, payout)
	bet.TeaserType = req.TeaserType
	return bet, nil, nil
}

func (s *Service) buildIfBet(req Request) (*types.Bet, []*types.Bet, error) {
	chain, err := expand.NewChain(req.Legs, req.IfCondition, req.Stake)
	if err != nil {
		return nil, nil, err
	}
	payout, err := chain.PotentialPayout()
	if err != nil {
		return nil, nil, err
	}
	// Chain legs follow the parlay conflict rules; the chain itself already
	// enforced the 2-5 leg bound.
	err = s.check(req.Legs, rules.ModeParlay, "", req.Stake, payout)
	if err != nil {
		return nil, nil, err
	}

	bet := s.newBet(req, types.BetTypeIfBet, req.Legs, req.Stake, 0, payout)
	bet.IfCondition = req.IfCondition
	return bet, nil, nil
}

func (s *Service) buildRoundRobin(req Request) (*types.Bet, []*types.Bet, error) {
	result, err := expand.RoundRobin(req.Legs, req.ParlaySize, req.Stake)
	if err != nil {
		return nil, nil, err
	}

	if result.TotalStake.GreaterThan(rules.MaxStake) {
		rules.ViolationsTotal.WithLabelValues(rules.RuleStakeBounds).Inc()
		return nil, nil, &types.ValidationError{
			Rule:    rules.RuleStakeBounds,
			Message: fmt.Sprintf("aggregate stake %s exceeds maximum %s", result.TotalStake.StringFixed(2), rules.MaxStake),
		}
	}
	if result.PotentialPayout.GreaterThan(rules.MaxPayout) {
		rules.ViolationsTotal.WithLabelValues(rules.RuleStakeBounds).Inc()
		return nil, nil, &types.ValidationError{
			Rule:    rules.RuleStakeBounds,
			Message: fmt.Sprintf("aggregate payout %s exceeds maximum %s", result.PotentialPayout.StringFixed(2), rules.MaxPayout),
		}
	}

	parent := s.newBet(req, types.BetTypeRoundRobin, req.Legs, result.TotalStake, 0, result.PotentialPayout)

	children := make([]*types.Bet, 0, len(result.Parlays))
	for i, parlay := range result.Parlays {
		err = s.check(parlay.Legs, rules.ModeParlay, "", parlay.Stake, parlay.PotentialPayout)
		if err != nil {
			return nil, nil, err
		}
		child := &types.Bet{
			ID:              fmt.Sprintf("%s-p%d", parent.ID, i+1),
			UserID:          req.UserID,
			Type:            types.BetTypeParlay,
			ParentID:        parent.ID,
			Legs:            pendingLegs(parlay.Legs),
			Stake:           parlay.Stake,
			Odds:            parlay.Odds,
			PotentialPayout: parlay.PotentialPayout,
			Status:          types.BetStatusPending,
			PlacedAt:        parent.PlacedAt,
		}
		children = append(children, child)
	}

	expand.ExpansionsTotal.WithLabelValues("round_robin").Inc()
	expand.WagersGenerated.Observe(float64(len(children)))
	return parent, children, nil
}

func (s *Service) buildReverse(req Request) (*types.Bet, []*types.Bet, error) {
	result, err := expand.Reverse(req.Legs, req.ReverseType, req.Stake)
	if err != nil {
		return nil, nil, err
	}

	// Conflict rules run once over the selection set; every sequence is a
	// permutation of the same legs.
	err = s.check(req.Legs, rules.ModeParlay, "", req.Stake, result.PotentialPayout)
	if err != nil {
		return nil, nil, err
	}

	parent := s.newBet(req, types.BetTypeReverse, req.Legs, result.TotalStake, 0, result.PotentialPayout)

	children := make([]*types.Bet, 0, len(result.Sequences))
	for i, seq := range result.Sequences {
		payout, err := seq.PotentialPayout()
		if err != nil {
			return nil, nil, err
		}
		child := &types.Bet{
			ID:              fmt.Sprintf("%s-s%d", parent.ID, i+1),
			UserID:          req.UserID,
			Type:            types.BetTypeIfBet,
			ParentID:        parent.ID,
			Legs:            pendingLegs(seq.Legs),
			Stake:           seq.InitialStake,
			PotentialPayout: payout,
			IfCondition:     seq.Condition,
			Status:          types.BetStatusPending,
			PlacedAt:        parent.PlacedAt,
		}
		children = append(children, child)
	}

	expand.ExpansionsTotal.WithLabelValues("reverse_bet").Inc()
	expand.WagersGenerated.Observe(float64(len(children)))
	return parent, children, nil
}

func (s *Service) newBet(req Request, betType types.BetType, legs []types.Leg, stake decimal.Decimal, american int, payout decimal.Decimal) *types.Bet {
	return &types.Bet{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		Type:            betType,
		Legs:            pendingLegs(legs),
		Stake:           stake,
		Odds:            american,
		PotentialPayout: payout,
		Status:          types.BetStatusPending,
		PlacedAt:        time.Now().UTC(),
		IdempotencyKey:  req.IdempotencyKey,
	}
}

// pendingLegs copies legs with their outcome set to pending, so an ungraded
// leg always carries the explicit pending state rather than a zero value.
func pendingLegs(legs []types.Leg) []types.Leg {
	out := make([]types.Leg, len(legs))
	for i, leg := range legs {
		leg.Outcome = types.LegPending
		out[i] = leg
	}
	return out
}
