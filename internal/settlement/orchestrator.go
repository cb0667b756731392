package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nssports/sportsbook-engine/internal/grading"
	"github.com/nssports/sportsbook-engine/internal/queue"
	"github.com/nssports/sportsbook-engine/internal/results"
	"github.com/nssports/sportsbook-engine/internal/storage"
	"github.com/nssports/sportsbook-engine/pkg/types"
	"go.uber.org/zap"
)

// errDeferred signals that a bet references a game that has not finished;
// the bet stays pending and a later event settles it.
var errDeferred = errors.New("settlement deferred")

// Config holds orchestrator tuning knobs.
type Config struct {
	Workers        int
	MaxAttempts    int
	RetryBaseDelay time.Duration
	JobTimeout     time.Duration
}

// Orchestrator settles all pending bets for a game when a game-finished
// event arrives. Settlement is idempotent: the bet's status compare-and-set
// guards the ledger mutation, so duplicate events are harmless.
type Orchestrator struct {
	store   storage.Store
	results results.Provider
	grader  *grading.Grader
	applier *Applier
	cfg     Config
	logger  *zap.Logger
}

// New creates an Orchestrator. Zero config fields get sensible defaults.
func New(cfg Config, store storage.Store, provider results.Provider, grader *grading.Grader, applier *Applier, logger *zap.Logger) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 100 * time.Millisecond
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	return &Orchestrator{
		store:   store,
		results: provider,
		grader:  grader,
		applier: applier,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run consumes game-finished events from the source until ctx is cancelled
// or the source's channel closes. Events fan out across the worker pool;
// each event is handled independently.
func (o *Orchestrator) Run(ctx context.Context, source queue.EventSource) {
	var wg sync.WaitGroup
	for i := 0; i < o.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-source.Events():
					if !ok {
						return
					}
					jobCtx, cancel := context.WithTimeout(ctx, o.cfg.JobTimeout)
					err := o.HandleGameFinished(jobCtx, ev.GameID)
					cancel()
					if err != nil {
						o.logger.Error("settle-game-failed",
							zap.String("game-id", ev.GameID),
							zap.Error(err))
					}
				}
			}
		}()
	}
	wg.Wait()
}

// HandleGameFinished settles every pending bet referencing the game. Bets
// whose other games have not finished are left pending for a later event.
// Per-bet failures are isolated: one bad bet never blocks the rest.
func (o *Orchestrator) HandleGameFinished(ctx context.Context, gameID string) error {
	start := time.Now()
	GamesHandledTotal.Inc()

	bets, err := o.store.PendingBetsForGame(ctx, gameID)
	if err != nil {
		return fmt.Errorf("list pending bets for game %s: %w", gameID, err)
	}

	o.logger.Info("settling-game",
		zap.String("game-id", gameID),
		zap.Int("pending-bets", len(bets)))

	parents := make(map[string]bool)
	for _, bet := range bets {
		if bet.Type == types.BetTypeRoundRobin || bet.Type == types.BetTypeReverse {
			// Compound tickets settle through their constituents.
			parents[bet.ID] = true
			continue
		}
		err := o.settleWithRetry(ctx, bet)
		if err != nil {
			o.logger.Error("settle-bet-failed",
				zap.String("bet-id", bet.ID),
				zap.String("game-id", gameID),
				zap.Error(err))
			continue
		}
		if bet.ParentID != "" {
			parents[bet.ParentID] = true
		}
	}

	for parentID := range parents {
		err := o.finalizeParent(ctx, parentID)
		if err != nil {
			o.logger.Error("finalize-ticket-failed",
				zap.String("bet-id", parentID),
				zap.Error(err))
		}
	}

	SettleDuration.Observe(time.Since(start).Seconds())
	return nil
}

// settleWithRetry retries transient failures with exponential backoff.
// Grading that stays incomplete after every game finished means the feed
// is missing data the bet needs; those bets are parked in processing for
// an operator instead of retrying forever.
func (o *Orchestrator) settleWithRetry(ctx context.Context, bet *types.Bet) error {
	var lastErr error
	for attempt := 0; attempt < o.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			RetriesTotal.Inc()
			delay := o.cfg.RetryBaseDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := o.settleBet(ctx, bet)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, errDeferred):
			BetsDeferredTotal.Inc()
			o.logger.Debug("settlement-deferred",
				zap.String("bet-id", bet.ID))
			return nil
		case ctx.Err() != nil:
			return err
		default:
			lastErr = err
			o.logger.Warn("settle-attempt-failed",
				zap.String("bet-id", bet.ID),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
		}
	}

	if errors.Is(lastErr, types.ErrGradingIncomplete) {
		return o.parkForOperator(ctx, bet, lastErr)
	}
	return fmt.Errorf("settle bet %s: retries exhausted: %w", bet.ID, lastErr)
}

// settleBet grades one bet and applies the outcome atomically with the
// status transition.
func (o *Orchestrator) settleBet(ctx context.Context, bet *types.Bet) error {
	resultsByGame := make(map[string]*types.GameResult)
	for _, id := range bet.GameIDs() {
		res, err := o.results.GameResult(ctx, id)
		if err != nil {
			if errors.Is(err, results.ErrNotFound) {
				return fmt.Errorf("game %s: %w", id, errDeferred)
			}
			return fmt.Errorf("fetch result for game %s: %w", id, err)
		}
		if !res.Finished() {
			return fmt.Errorf("game %s not finished: %w", id, errDeferred)
		}
		resultsByGame[id] = res
	}

	outcome, err := o.grader.GradeBet(bet, resultsByGame)
	if err != nil {
		if errors.Is(err, types.ErrGradingIncomplete) {
			grading.GradingIncompleteTotal.Inc()
		}
		return fmt.Errorf("grade bet %s: %w", bet.ID, err)
	}

	settled := false
	err = o.store.WithinTx(ctx, func(tx storage.Tx) error {
		ok, err := tx.UpdateBetStatusCAS(ctx, bet.ID, outcome.Status, time.Now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		err = tx.UpdateLegOutcomes(ctx, bet.ID, outcome.LegOutcomes)
		if err != nil {
			return err
		}
		_, err = o.applier.ApplyOutcome(ctx, tx, bet, outcome)
		if err != nil {
			return err
		}
		settled = true
		return nil
	})
	if err != nil {
		return err
	}

	if !settled {
		AlreadySettledTotal.Inc()
		return nil
	}

	BetsSettledTotal.WithLabelValues(string(outcome.Status)).Inc()
	grading.BetsGradedTotal.WithLabelValues(string(outcome.Status)).Inc()
	for _, lo := range outcome.LegOutcomes {
		grading.LegsGradedTotal.WithLabelValues(string(lo)).Inc()
	}

	o.logger.Info("bet-settled",
		zap.String("bet-id", bet.ID),
		zap.String("user-id", bet.UserID),
		zap.String("status", string(outcome.Status)),
		zap.String("credit", outcome.Credit.StringFixed(2)))
	return nil
}

// parkForOperator moves a bet to processing and raises an alert. The bet
// never transitions to a terminal status without a grade, so no ledger
// mutation happens here.
func (o *Orchestrator) parkForOperator(ctx context.Context, bet *types.Bet, cause error) error {
	err := o.store.WithinTx(ctx, func(tx storage.Tx) error {
		return tx.MarkProcessing(ctx, bet.ID)
	})
	if err != nil {
		return fmt.Errorf("park bet %s: %w", bet.ID, err)
	}

	OperatorAlertsTotal.Inc()
	o.logger.Error("bet-needs-operator",
		zap.String("bet-id", bet.ID),
		zap.String("user-id", bet.UserID),
		zap.Error(cause))

	return &types.PermanentDataError{
		BetID:  bet.ID,
		Reason: cause.Error(),
	}
}

// finalizeParent marks a compound ticket terminal once every constituent
// wager is. The ticket itself carries no ledger effect; payouts flowed
// through the constituents.
func (o *Orchestrator) finalizeParent(ctx context.Context, parentID string) error {
	children, err := o.store.ChildBets(ctx, parentID)
	if err != nil {
		return fmt.Errorf("list children of %s: %w", parentID, err)
	}
	if len(children) == 0 {
		return nil
	}

	anyWon := false
	anyLost := false
	for _, child := range children {
		if !child.Status.Terminal() {
			return nil
		}
		switch child.Status {
		case types.BetStatusWon:
			anyWon = true
		case types.BetStatusLost:
			anyLost = true
		}
	}

	status := types.BetStatusPush
	if anyWon {
		status = types.BetStatusWon
	} else if anyLost {
		status = types.BetStatusLost
	}

	finalized := false
	err = o.store.WithinTx(ctx, func(tx storage.Tx) error {
		ok, err := tx.UpdateBetStatusCAS(ctx, parentID, status, time.Now().UTC())
		if err != nil {
			return err
		}
		finalized = ok
		return nil
	})
	if err != nil {
		return err
	}

	if finalized {
		BetsSettledTotal.WithLabelValues(string(status)).Inc()
		o.logger.Info("ticket-finalized",
			zap.String("bet-id", parentID),
			zap.String("status", string(status)))
	}
	return nil
}
