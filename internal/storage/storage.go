// Package storage provides the persistence boundary for bets, accounts and
// the audit ledger. Implementations must support atomic multi-row
// transactions; the settlement path relies on the status compare-and-set
// and the ledger mutation committing together.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/nssports/sportsbook-engine/pkg/types"
)

// ErrNotFound is returned when a bet or account does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateKey is returned by InsertBet when another bet already holds
// the same (user, idempotency key) pair. Placement maps it to a replay of
// the original receipt.
var ErrDuplicateKey = errors.New("duplicate idempotency key")

// Tx is the set of operations available inside one atomic transaction.
type Tx interface {
	// InsertBet persists a bet and its legs.
	InsertBet(ctx context.Context, bet *types.Bet) error

	// UpdateBetStatusCAS transitions a bet to a terminal status only if it
	// is still pending or processing. Returns false, without error, when
	// the guard fails; the caller treats that as already settled.
	UpdateBetStatusCAS(ctx context.Context, betID string, to types.BetStatus, settledAt time.Time) (bool, error)

	// MarkProcessing moves a pending bet to processing.
	MarkProcessing(ctx context.Context, betID string) error

	// UpdateLegOutcomes records graded leg outcomes on a bet.
	UpdateLegOutcomes(ctx context.Context, betID string, outcomes map[string]types.LegOutcome) error

	// GetAccountForUpdate reads an account under a row lock, serializing
	// concurrent ledger mutations for the same user.
	GetAccountForUpdate(ctx context.Context, userID string) (*types.Account, error)

	// UpdateAccount writes an account's balance and risk.
	UpdateAccount(ctx context.Context, account *types.Account) error

	// AppendTransaction appends one audit ledger row.
	AppendTransaction(ctx context.Context, txn *types.Transaction) error
}

// Store is the repository interface consumed by placement and settlement.
type Store interface {
	// WithinTx runs fn inside one atomic transaction, committing on nil
	// and rolling back on error. Serialization failures surface as
	// types.ErrLedgerConflict for the caller to retry.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	GetBet(ctx context.Context, betID string) (*types.Bet, error)
	GetBetByIdempotencyKey(ctx context.Context, userID, key string) (*types.Bet, error)

	// PendingBetsForGame returns bets in pending/processing with at least
	// one leg referencing the game.
	PendingBetsForGame(ctx context.Context, gameID string) ([]*types.Bet, error)

	// ChildBets returns the constituent wagers of a compound ticket.
	ChildBets(ctx context.Context, parentID string) ([]*types.Bet, error)

	GetAccount(ctx context.Context, userID string) (*types.Account, error)

	Close() error
}
