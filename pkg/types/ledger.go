package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a user's ledger account. Stakes are debited from the balance
// at placement, so the balance alone is what placement may still draw on.
// Risk tracks the stake-in-flight on unsettled bets for exposure reporting.
type Account struct {
	UserID  string          `json:"userId"`
	Balance decimal.Decimal `json:"balance"`
	Risk    decimal.Decimal `json:"risk"`
}

// Available returns the funds placement may draw on.
func (a *Account) Available() decimal.Decimal {
	return a.Balance
}

// TransactionType classifies an audit ledger entry.
type TransactionType string

const (
	TxnStakeDebit TransactionType = "stake_debit"
	TxnPayout     TransactionType = "payout"
	TxnRefund     TransactionType = "refund"
	TxnLoss       TransactionType = "loss"
)

// Transaction is one append-only audit row. Never mutated once written.
type Transaction struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	BetID         string          `json:"betId"`
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	Reason        string          `json:"reason"`
	CreatedAt     time.Time       `json:"createdAt"`
}
