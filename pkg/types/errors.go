package types

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrGradingIncomplete signals that a bet cannot be graded yet because a
// referenced game is not finished or required result data is missing.
// It is a deferred state, not a failure: callers defer the bet and
// re-evaluate on the next relevant trigger.
var ErrGradingIncomplete = errors.New("grading incomplete")

// ErrLedgerConflict signals a concurrent update was detected while mutating
// an account. Transient: retried with backoff.
var ErrLedgerConflict = errors.New("ledger conflict")

// ValidationError is a bet-construction rule violation. Surfaced to the
// caller before any persistence; never retried.
type ValidationError struct {
	Rule    string   // rule identifier, e.g. "opposing_sides"
	LegIDs  []string // legs involved in the violation
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.LegIDs) > 0 {
		return fmt.Sprintf("validation failed (%s): %s (legs: %v)", e.Rule, e.Message, e.LegIDs)
	}
	return fmt.Sprintf("validation failed (%s): %s", e.Rule, e.Message)
}

// ConfigurationError is a fatal setup problem, such as a zero or missing
// odds value. Bets carrying one are rejected outright.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (%s): %s", e.Field, e.Message)
}

// InsufficientBalanceError is a placement-time rejection: the account's
// available balance cannot cover the total stake.
type InsufficientBalanceError struct {
	UserID    string
	Available decimal.Decimal
	Required  decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for user %s: available %s, required %s",
		e.UserID, e.Available.StringFixed(2), e.Required.StringFixed(2))
}

// PermanentDataError marks required result data that stayed unavailable
// past the retry budget. The bet is left in processing and an operator
// alert is raised; no outcome is ever guessed.
type PermanentDataError struct {
	BetID  string
	GameID string
	Reason string
}

func (e *PermanentDataError) Error() string {
	return fmt.Sprintf("permanent data error for bet %s (game %s): %s", e.BetID, e.GameID, e.Reason)
}
