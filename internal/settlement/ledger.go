package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nssports/sportsbook-engine/internal/grading"
	"github.com/nssports/sportsbook-engine/internal/storage"
	"github.com/nssports/sportsbook-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Applier performs the deterministic balance mutation for a settled or
// placed bet and writes the audit transaction row. Every method runs inside
// a caller-supplied storage transaction so the ledger mutation and the bet
// status transition commit together.
type Applier struct {
	logger *zap.Logger
}

// NewApplier creates a ledger applier.
func NewApplier(logger *zap.Logger) *Applier {
	return &Applier{logger: logger}
}

// ApplyOutcome credits a settled bet's result to the account under the row
// lock. Won credits the full payout (the stake was debited at placement),
// push and void credit the stake back, lost credits nothing. The bet's
// stake leaves the account's risk in all cases.
func (a *Applier) ApplyOutcome(ctx context.Context, tx storage.Tx, bet *types.Bet, out *grading.Outcome) (*types.Transaction, error) {
	account, err := tx.GetAccountForUpdate(ctx, bet.UserID)
	if err != nil {
		return nil, fmt.Errorf("lock account %s: %w", bet.UserID, err)
	}

	var txnType types.TransactionType
	switch out.Status {
	case types.BetStatusWon:
		txnType = types.TxnPayout
	case types.BetStatusPush, types.BetStatusCancelled:
		txnType = types.TxnRefund
	case types.BetStatusLost:
		txnType = types.TxnLoss
	default:
		return nil, fmt.Errorf("apply outcome: non-terminal status %q for bet %s", out.Status, bet.ID)
	}

	before := account.Balance
	account.Balance = account.Balance.Add(out.Credit)
	account.Risk = account.Risk.Sub(bet.Stake)

	err = tx.UpdateAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("update account %s: %w", bet.UserID, err)
	}

	txn := &types.Transaction{
		ID:            uuid.New().String(),
		UserID:        bet.UserID,
		BetID:         bet.ID,
		Type:          txnType,
		Amount:        out.Credit,
		BalanceBefore: before,
		BalanceAfter:  account.Balance,
		Reason:        fmt.Sprintf("settlement:%s", out.Status),
		CreatedAt:     time.Now().UTC(),
	}
	err = tx.AppendTransaction(ctx, txn)
	if err != nil {
		return nil, fmt.Errorf("append transaction: %w", err)
	}

	a.logger.Debug("ledger-applied",
		zap.String("bet-id", bet.ID),
		zap.String("user-id", bet.UserID),
		zap.String("status", string(out.Status)),
		zap.String("credit", out.Credit.StringFixed(2)))

	return txn, nil
}

// ApplyDebit debits the total stake at placement time, after checking the
// available balance under the row lock. The stake enters the account's
// risk until settlement releases it.
func (a *Applier) ApplyDebit(ctx context.Context, tx storage.Tx, userID, betID string, totalStake decimal.Decimal) (*types.Transaction, error) {
	account, err := tx.GetAccountForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lock account %s: %w", userID, err)
	}

	if account.Available().LessThan(totalStake) {
		return nil, &types.InsufficientBalanceError{
			UserID:    userID,
			Available: account.Available(),
			Required:  totalStake,
		}
	}

	before := account.Balance
	account.Balance = account.Balance.Sub(totalStake)
	account.Risk = account.Risk.Add(totalStake)

	err = tx.UpdateAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("update account %s: %w", userID, err)
	}

	txn := &types.Transaction{
		ID:            uuid.New().String(),
		UserID:        userID,
		BetID:         betID,
		Type:          types.TxnStakeDebit,
		Amount:        totalStake,
		BalanceBefore: before,
		BalanceAfter:  account.Balance,
		Reason:        "placement:stake",
		CreatedAt:     time.Now().UTC(),
	}
	err = tx.AppendTransaction(ctx, txn)
	if err != nil {
		return nil, fmt.Errorf("append transaction: %w", err)
	}

	return txn, nil
}
