package settlement

import (
	"context"
	"errors"
	"testing"

	"github.com/nssports/sportsbook-engine/internal/grading"
	"github.com/nssports/sportsbook-engine/internal/storage"
	"github.com/nssports/sportsbook-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestApplyDebitRejectsInsufficientBalance(t *testing.T) {
	store := storage.NewMemory(zap.NewNop())
	store.SeedAccount("user-1", decimal.RequireFromString("50"))
	applier := NewApplier(zap.NewNop())
	ctx := context.Background()

	err := store.WithinTx(ctx, func(tx storage.Tx) error {
		_, err := applier.ApplyDebit(ctx, tx, "user-1", "bet-1", decimal.RequireFromString("80"))
		return err
	})

	var insufficient *types.InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("got %v, want InsufficientBalanceError", err)
	}
	if insufficient.Available.StringFixed(2) != "50.00" {
		t.Errorf("available = %s, want 50.00", insufficient.Available.StringFixed(2))
	}

	// The rejected transaction left no trace.
	account, err := store.GetAccount(ctx, "user-1")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account.Balance.StringFixed(2) != "50.00" || !account.Risk.IsZero() {
		t.Errorf("account mutated by rejected debit: %+v", account)
	}
	if len(store.Transactions()) != 0 {
		t.Error("transaction row written for rejected debit")
	}
}

func TestApplyDebitReservesRisk(t *testing.T) {
	store := storage.NewMemory(zap.NewNop())
	store.SeedAccount("user-1", decimal.RequireFromString("100"))
	applier := NewApplier(zap.NewNop())
	ctx := context.Background()

	err := store.WithinTx(ctx, func(tx storage.Tx) error {
		_, err := applier.ApplyDebit(ctx, tx, "user-1", "bet-1", decimal.RequireFromString("60"))
		return err
	})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}

	// Only 40 remains after the first debit.
	err = store.WithinTx(ctx, func(tx storage.Tx) error {
		_, err := applier.ApplyDebit(ctx, tx, "user-1", "bet-2", decimal.RequireFromString("41"))
		return err
	})
	var insufficient *types.InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("second debit: got %v, want InsufficientBalanceError", err)
	}

	txns := store.Transactions()
	if len(txns) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txns))
	}
	if txns[0].Type != types.TxnStakeDebit || txns[0].BalanceAfter.StringFixed(2) != "40.00" {
		t.Errorf("debit txn = %s after %s", txns[0].Type, txns[0].BalanceAfter.StringFixed(2))
	}
}

func TestApplyOutcomeWritesAuditRow(t *testing.T) {
	tests := []struct {
		name       string
		status     types.BetStatus
		credit     string
		txnType    types.TransactionType
		endBalance string
	}{
		{name: "won-credits-payout", status: types.BetStatusWon, credit: "16.67", txnType: types.TxnPayout, endBalance: "106.67"},
		{name: "push-refunds-stake", status: types.BetStatusPush, credit: "10", txnType: types.TxnRefund, endBalance: "100.00"},
		{name: "lost-credits-nothing", status: types.BetStatusLost, credit: "0", txnType: types.TxnLoss, endBalance: "90.00"},
		{name: "cancelled-refunds-stake", status: types.BetStatusCancelled, credit: "10", txnType: types.TxnRefund, endBalance: "100.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemory(zap.NewNop())
			store.SeedAccount("user-1", decimal.RequireFromString("100"))
			applier := NewApplier(zap.NewNop())
			ctx := context.Background()

			bet := singleBet("bet-1", "user-1", "game-1")
			err := store.WithinTx(ctx, func(tx storage.Tx) error {
				err := tx.InsertBet(ctx, bet)
				if err != nil {
					return err
				}
				_, err = applier.ApplyDebit(ctx, tx, "user-1", "bet-1", bet.Stake)
				return err
			})
			if err != nil {
				t.Fatalf("place: %v", err)
			}

			out := &grading.Outcome{
				Status: tt.status,
				Credit: decimal.RequireFromString(tt.credit),
			}
			err = store.WithinTx(ctx, func(tx storage.Tx) error {
				_, err := applier.ApplyOutcome(ctx, tx, bet, out)
				return err
			})
			if err != nil {
				t.Fatalf("apply outcome: %v", err)
			}

			account, _ := store.GetAccount(ctx, "user-1")
			if account.Balance.StringFixed(2) != tt.endBalance {
				t.Errorf("balance = %s, want %s", account.Balance.StringFixed(2), tt.endBalance)
			}
			if !account.Risk.IsZero() {
				t.Errorf("risk = %s, want 0", account.Risk.StringFixed(2))
			}

			txns := store.Transactions()
			if len(txns) != 2 {
				t.Fatalf("got %d transactions, want 2", len(txns))
			}
			audit := txns[1]
			if audit.Type != tt.txnType {
				t.Errorf("txn type = %s, want %s", audit.Type, tt.txnType)
			}
			if audit.BalanceBefore.StringFixed(2) != "90.00" {
				t.Errorf("balanceBefore = %s, want 90.00", audit.BalanceBefore.StringFixed(2))
			}
			if audit.BalanceAfter.StringFixed(2) != tt.endBalance {
				t.Errorf("balanceAfter = %s, want %s", audit.BalanceAfter.StringFixed(2), tt.endBalance)
			}
		})
	}
}

func TestApplyOutcomeRejectsNonTerminalStatus(t *testing.T) {
	store := storage.NewMemory(zap.NewNop())
	store.SeedAccount("user-1", decimal.RequireFromString("100"))
	applier := NewApplier(zap.NewNop())
	ctx := context.Background()

	bet := singleBet("bet-1", "user-1", "game-1")
	out := &grading.Outcome{Status: types.BetStatusPending, Credit: decimal.Zero}

	err := store.WithinTx(ctx, func(tx storage.Tx) error {
		_, err := applier.ApplyOutcome(ctx, tx, bet, out)
		return err
	})
	if err == nil {
		t.Fatal("expected error for non-terminal status")
	}
}
