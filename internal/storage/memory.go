package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nssports/sportsbook-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Memory implements Store in process memory. It backs STORAGE_MODE=memory
// for local development and the package tests. A single mutex held for the
// whole transaction gives serializable semantics; rollback restores a
// snapshot taken at transaction start.
type Memory struct {
	mu           sync.Mutex
	bets         map[string]*types.Bet
	accounts     map[string]*types.Account
	transactions []*types.Transaction
	logger       *zap.Logger
}

// NewMemory creates an empty in-memory store.
func NewMemory(logger *zap.Logger) *Memory {
	return &Memory{
		bets:     make(map[string]*types.Bet),
		accounts: make(map[string]*types.Account),
		logger:   logger,
	}
}

// SeedAccount creates or replaces an account. Test and dev helper.
func (m *Memory) SeedAccount(userID string, balance decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[userID] = &types.Account{UserID: userID, Balance: balance, Risk: decimal.Zero}
}

// Transactions returns a copy of the audit log. Test helper.
func (m *Memory) Transactions() []*types.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.Transaction, len(m.transactions))
	copy(out, m.transactions)
	return out
}

func (m *Memory) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	err := fn(&memTx{store: m})
	if err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memSnapshot struct {
	bets     map[string]*types.Bet
	accounts map[string]*types.Account
	txnLen   int
}

// snapshot copies the maps. Values are replaced, never mutated in place, so
// a shallow copy is enough to roll back.
func (m *Memory) snapshot() memSnapshot {
	bets := make(map[string]*types.Bet, len(m.bets))
	for k, v := range m.bets {
		bets[k] = v
	}
	accounts := make(map[string]*types.Account, len(m.accounts))
	for k, v := range m.accounts {
		accounts[k] = v
	}
	return memSnapshot{bets: bets, accounts: accounts, txnLen: len(m.transactions)}
}

func (m *Memory) restore(s memSnapshot) {
	m.bets = s.bets
	m.accounts = s.accounts
	m.transactions = m.transactions[:s.txnLen]
}

func (m *Memory) GetBet(ctx context.Context, betID string) (*types.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bet, ok := m.bets[betID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBet(bet), nil
}

func (m *Memory) GetBetByIdempotencyKey(ctx context.Context, userID, key string) (*types.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, bet := range m.bets {
		if bet.UserID == userID && bet.IdempotencyKey == key {
			return cloneBet(bet), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) PendingBetsForGame(ctx context.Context, gameID string) ([]*types.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*types.Bet
	for _, bet := range m.bets {
		if bet.Status != types.BetStatusPending && bet.Status != types.BetStatusProcessing {
			continue
		}
		for _, leg := range bet.Legs {
			if leg.GameID == gameID {
				out = append(out, cloneBet(bet))
				break
			}
		}
	}
	sortBetsByPlacedAt(out)
	return out, nil
}

func (m *Memory) ChildBets(ctx context.Context, parentID string) ([]*types.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*types.Bet
	for _, bet := range m.bets {
		if bet.ParentID == parentID {
			out = append(out, cloneBet(bet))
		}
	}
	sortBetsByPlacedAt(out)
	return out, nil
}

func (m *Memory) GetAccount(ctx context.Context, userID string) (*types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *account
	return &clone, nil
}

func (m *Memory) Close() error {
	return nil
}

// memTx applies operations directly; the store mutex is already held and
// the caller rolls back via snapshot on error.
type memTx struct {
	store *Memory
}

func (t *memTx) InsertBet(ctx context.Context, bet *types.Bet) error {
	err := bet.Validate()
	if err != nil {
		return err
	}
	if bet.IdempotencyKey != "" {
		for _, existing := range t.store.bets {
			if existing.ID != bet.ID && existing.UserID == bet.UserID &&
				existing.IdempotencyKey == bet.IdempotencyKey {
				return ErrDuplicateKey
			}
		}
	}
	t.store.bets[bet.ID] = cloneBet(bet)
	return nil
}

func (t *memTx) UpdateBetStatusCAS(ctx context.Context, betID string, to types.BetStatus, settledAt time.Time) (bool, error) {
	bet, ok := t.store.bets[betID]
	if !ok {
		return false, ErrNotFound
	}
	if bet.Status != types.BetStatusPending && bet.Status != types.BetStatusProcessing {
		return false, nil
	}
	updated := cloneBet(bet)
	updated.Status = to
	updated.SettledAt = &settledAt
	t.store.bets[betID] = updated
	return true, nil
}

func (t *memTx) MarkProcessing(ctx context.Context, betID string) error {
	bet, ok := t.store.bets[betID]
	if !ok {
		return ErrNotFound
	}
	if bet.Status != types.BetStatusPending {
		return nil
	}
	updated := cloneBet(bet)
	updated.Status = types.BetStatusProcessing
	t.store.bets[betID] = updated
	return nil
}

func (t *memTx) UpdateLegOutcomes(ctx context.Context, betID string, outcomes map[string]types.LegOutcome) error {
	bet, ok := t.store.bets[betID]
	if !ok {
		return ErrNotFound
	}
	updated := cloneBet(bet)
	for i := range updated.Legs {
		if outcome, ok := outcomes[updated.Legs[i].ID]; ok {
			updated.Legs[i].Outcome = outcome
		}
	}
	t.store.bets[betID] = updated
	return nil
}

func (t *memTx) GetAccountForUpdate(ctx context.Context, userID string) (*types.Account, error) {
	account, ok := t.store.accounts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *account
	return &clone, nil
}

func (t *memTx) UpdateAccount(ctx context.Context, account *types.Account) error {
	clone := *account
	t.store.accounts[account.UserID] = &clone
	return nil
}

func (t *memTx) AppendTransaction(ctx context.Context, txn *types.Transaction) error {
	clone := *txn
	t.store.transactions = append(t.store.transactions, &clone)
	return nil
}

func cloneBet(bet *types.Bet) *types.Bet {
	clone := *bet
	clone.Legs = make([]types.Leg, len(bet.Legs))
	copy(clone.Legs, bet.Legs)
	if bet.SettledAt != nil {
		settledAt := *bet.SettledAt
		clone.SettledAt = &settledAt
	}
	return &clone
}

func sortBetsByPlacedAt(bets []*types.Bet) {
	sort.Slice(bets, func(i, j int) bool {
		if bets[i].PlacedAt.Equal(bets[j].PlacedAt) {
			return bets[i].ID < bets[j].ID
		}
		return bets[i].PlacedAt.Before(bets[j].PlacedAt)
	})
}
