package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/nssports/sportsbook-engine/internal/grading"
	"github.com/nssports/sportsbook-engine/internal/odds"
	"github.com/nssports/sportsbook-engine/internal/queue"
	"github.com/nssports/sportsbook-engine/internal/results"
	"github.com/nssports/sportsbook-engine/internal/storage"
	"github.com/nssports/sportsbook-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func ptr(f float64) *float64 { return &f }

type fixture struct {
	store    *storage.Memory
	provider *results.StaticProvider
	orch     *Orchestrator
	applier  *Applier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	store := storage.NewMemory(logger)
	provider := results.NewStaticProvider(nil)
	applier := NewApplier(logger)
	orch := New(Config{
		Workers:        1,
		MaxAttempts:    2,
		RetryBaseDelay: time.Millisecond,
		JobTimeout:     5 * time.Second,
	}, store, provider, grading.New(odds.DefaultTeaserConfigs()), applier, logger)
	return &fixture{store: store, provider: provider, orch: orch, applier: applier}
}

// place seeds the account, inserts the bet and debits the stake the way
// the placement service does.
func (f *fixture) place(t *testing.T, bet *types.Bet, seed string) {
	t.Helper()
	ctx := context.Background()
	f.store.SeedAccount(bet.UserID, decimal.RequireFromString(seed))
	err := f.store.WithinTx(ctx, func(tx storage.Tx) error {
		err := tx.InsertBet(ctx, bet)
		if err != nil {
			return err
		}
		_, err = f.applier.ApplyDebit(ctx, tx, bet.UserID, bet.ID, bet.Stake)
		return err
	})
	if err != nil {
		t.Fatalf("place bet: %v", err)
	}
}

func (f *fixture) balance(t *testing.T, userID string) (balance, risk string) {
	t.Helper()
	account, err := f.store.GetAccount(context.Background(), userID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return account.Balance.StringFixed(2), account.Risk.StringFixed(2)
}

// staticSource delivers a fixed set of events and closes, so Run drains
// and returns.
type staticSource struct {
	ch chan queue.GameFinishedEvent
}

func newTestSource(gameIDs ...string) *staticSource {
	ch := make(chan queue.GameFinishedEvent, len(gameIDs))
	for _, id := range gameIDs {
		ch <- queue.GameFinishedEvent{GameID: id, FinishedAt: time.Now().UTC()}
	}
	close(ch)
	return &staticSource{ch: ch}
}

func (s *staticSource) Start(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (s *staticSource) Events() <-chan queue.GameFinishedEvent { return s.ch }

func (s *staticSource) Close() error { return nil }

func finishedGame(gameID string, home, away int) *types.GameResult {
	return &types.GameResult{
		GameID: gameID, League: "NBA", Status: types.GameFinished,
		HomeScore: home, AwayScore: away,
	}
}

func singleBet(id, userID, gameID string) *types.Bet {
	return &types.Bet{
		ID:     id,
		UserID: userID,
		Type:   types.BetTypeSingle,
		Legs: []types.Leg{
			{ID: id + "-leg", GameID: gameID, League: "NBA", MarketType: types.MarketMoneyline, Selection: types.SideHome, Odds: -150},
		},
		Stake:    decimal.RequireFromString("10"),
		Odds:     -150,
		Status:   types.BetStatusPending,
		PlacedAt: time.Now().UTC(),
	}
}

func TestHandleGameFinishedSettlesWinningSingle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bet := singleBet("bet-1", "user-1", "game-1")
	f.place(t, bet, "100")
	f.provider.Put(finishedGame("game-1", 110, 95))

	err := f.orch.HandleGameFinished(ctx, "game-1")
	if err != nil {
		t.Fatalf("handle game finished: %v", err)
	}

	settled, err := f.store.GetBet(ctx, "bet-1")
	if err != nil {
		t.Fatalf("get bet: %v", err)
	}
	if settled.Status != types.BetStatusWon {
		t.Errorf("status = %s, want won", settled.Status)
	}
	if settled.SettledAt == nil {
		t.Error("settledAt not set")
	}
	if settled.Legs[0].Outcome != types.LegWin {
		t.Errorf("leg outcome = %s, want win", settled.Legs[0].Outcome)
	}

	// $10 at -150 pays 16.67: 90 after the debit, 106.67 after the credit.
	balance, risk := f.balance(t, "user-1")
	if balance != "106.67" || risk != "0.00" {
		t.Errorf("account = %s / %s, want 106.67 / 0.00", balance, risk)
	}

	txns := f.store.Transactions()
	if len(txns) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txns))
	}
	if txns[1].Type != types.TxnPayout || txns[1].Amount.StringFixed(2) != "16.67" {
		t.Errorf("payout txn = %s %s", txns[1].Type, txns[1].Amount.StringFixed(2))
	}
}

func TestHandleGameFinishedIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bet := singleBet("bet-1", "user-1", "game-1")
	f.place(t, bet, "100")
	f.provider.Put(finishedGame("game-1", 110, 95))

	for i := 0; i < 2; i++ {
		err := f.orch.HandleGameFinished(ctx, "game-1")
		if err != nil {
			t.Fatalf("handle game finished (run %d): %v", i+1, err)
		}
	}

	balance, _ := f.balance(t, "user-1")
	if balance != "106.67" {
		t.Errorf("balance after duplicate event = %s, want 106.67", balance)
	}
	if txns := f.store.Transactions(); len(txns) != 2 {
		t.Errorf("got %d transactions after duplicate event, want 2", len(txns))
	}
}

func TestSettleBetSkipsAlreadySettled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bet := singleBet("bet-1", "user-1", "game-1")
	f.place(t, bet, "100")
	f.provider.Put(finishedGame("game-1", 110, 95))

	// Settle out of band so the compare-and-set guard fires.
	err := f.store.WithinTx(ctx, func(tx storage.Tx) error {
		_, err := tx.UpdateBetStatusCAS(ctx, "bet-1", types.BetStatusLost, time.Now().UTC())
		return err
	})
	if err != nil {
		t.Fatalf("pre-settle: %v", err)
	}

	err = f.orch.settleBet(ctx, bet)
	if err != nil {
		t.Fatalf("settle bet: %v", err)
	}

	// Only the placement debit; the guard blocked the credit.
	if txns := f.store.Transactions(); len(txns) != 1 {
		t.Errorf("got %d transactions, want 1", len(txns))
	}
}

func TestMultiGameParlayDefersUntilAllFinished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bet := &types.Bet{
		ID:     "parlay-1",
		UserID: "user-1",
		Type:   types.BetTypeParlay,
		Legs: []types.Leg{
			{ID: "a", GameID: "game-1", League: "NBA", MarketType: types.MarketMoneyline, Selection: types.SideHome, Odds: -110},
			{ID: "b", GameID: "game-2", League: "NBA", MarketType: types.MarketMoneyline, Selection: types.SideHome, Odds: -110},
		},
		Stake:    decimal.RequireFromString("10"),
		Odds:     264,
		Status:   types.BetStatusPending,
		PlacedAt: time.Now().UTC(),
	}
	f.place(t, bet, "100")
	f.provider.Put(finishedGame("game-1", 110, 95))

	err := f.orch.HandleGameFinished(ctx, "game-1")
	if err != nil {
		t.Fatalf("handle first game: %v", err)
	}

	pending, err := f.store.GetBet(ctx, "parlay-1")
	if err != nil {
		t.Fatalf("get bet: %v", err)
	}
	if pending.Status != types.BetStatusPending {
		t.Fatalf("status after first game = %s, want pending", pending.Status)
	}
	if txns := f.store.Transactions(); len(txns) != 1 {
		t.Errorf("got %d transactions while deferred, want 1", len(txns))
	}

	f.provider.Put(finishedGame("game-2", 101, 99))
	err = f.orch.HandleGameFinished(ctx, "game-2")
	if err != nil {
		t.Fatalf("handle second game: %v", err)
	}

	settled, err := f.store.GetBet(ctx, "parlay-1")
	if err != nil {
		t.Fatalf("get bet: %v", err)
	}
	if settled.Status != types.BetStatusWon {
		t.Errorf("status = %s, want won", settled.Status)
	}

	// Two -110 winners on $10 pay 36.45.
	balance, risk := f.balance(t, "user-1")
	if balance != "126.45" || risk != "0.00" {
		t.Errorf("account = %s / %s, want 126.45 / 0.00", balance, risk)
	}
}

func TestPushRefundsStake(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bet := &types.Bet{
		ID:     "bet-1",
		UserID: "user-1",
		Type:   types.BetTypeSingle,
		Legs: []types.Leg{
			{ID: "a", GameID: "game-1", League: "NBA", MarketType: types.MarketSpread, Selection: types.SideHome, Line: ptr(-5.0), Odds: -110},
		},
		Stake:    decimal.RequireFromString("25"),
		Odds:     -110,
		Status:   types.BetStatusPending,
		PlacedAt: time.Now().UTC(),
	}
	f.place(t, bet, "100")
	// Home wins by exactly 5: push.
	f.provider.Put(finishedGame("game-1", 100, 95))

	err := f.orch.HandleGameFinished(ctx, "game-1")
	if err != nil {
		t.Fatalf("handle game finished: %v", err)
	}

	settled, _ := f.store.GetBet(ctx, "bet-1")
	if settled.Status != types.BetStatusPush {
		t.Errorf("status = %s, want push", settled.Status)
	}

	balance, risk := f.balance(t, "user-1")
	if balance != "100.00" || risk != "0.00" {
		t.Errorf("account = %s / %s, want 100.00 / 0.00", balance, risk)
	}

	txns := f.store.Transactions()
	if len(txns) != 2 || txns[1].Type != types.TxnRefund || txns[1].Amount.StringFixed(2) != "25.00" {
		t.Errorf("refund txn missing or wrong: %+v", txns[len(txns)-1])
	}
}

func TestMissingStatParksBetForOperator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bet := &types.Bet{
		ID:     "bet-1",
		UserID: "user-1",
		Type:   types.BetTypeSingle,
		Legs: []types.Leg{
			{ID: "a", GameID: "game-1", League: "NBA", MarketType: types.MarketPlayerProp, Selection: types.SideOver, Line: ptr(25.5), Odds: -115, EntityID: "player-9", StatType: "points"},
		},
		Stake:    decimal.RequireFromString("10"),
		Odds:     -115,
		Status:   types.BetStatusPending,
		PlacedAt: time.Now().UTC(),
	}
	f.place(t, bet, "100")
	// Finished game with no stat sheet for the player.
	f.provider.Put(finishedGame("game-1", 110, 95))

	err := f.orch.HandleGameFinished(ctx, "game-1")
	if err != nil {
		t.Fatalf("handle game finished: %v", err)
	}

	parked, _ := f.store.GetBet(ctx, "bet-1")
	if parked.Status != types.BetStatusProcessing {
		t.Errorf("status = %s, want processing", parked.Status)
	}

	// No credit, stake still at risk.
	balance, risk := f.balance(t, "user-1")
	if balance != "90.00" || risk != "10.00" {
		t.Errorf("account = %s / %s, want 90.00 / 10.00", balance, risk)
	}
}

func TestRoundRobinTicketFinalizedFromChildren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	selections := []types.Leg{
		{ID: "s1", GameID: "game-1", League: "NBA", MarketType: types.MarketMoneyline, Selection: types.SideHome, Odds: -110},
		{ID: "s2", GameID: "game-2", League: "NBA", MarketType: types.MarketMoneyline, Selection: types.SideHome, Odds: -110},
		{ID: "s3", GameID: "game-3", League: "NBA", MarketType: types.MarketMoneyline, Selection: types.SideHome, Odds: -110},
	}
	parent := &types.Bet{
		ID:       "ticket-1",
		UserID:   "user-1",
		Type:     types.BetTypeRoundRobin,
		Legs:     selections,
		Stake:    decimal.RequireFromString("30"),
		Status:   types.BetStatusPending,
		PlacedAt: time.Now().UTC(),
	}
	children := []*types.Bet{
		{ID: "ticket-1-p1", UserID: "user-1", Type: types.BetTypeParlay, ParentID: "ticket-1",
			Legs: []types.Leg{selections[0], selections[1]}, Stake: decimal.RequireFromString("10"),
			Status: types.BetStatusPending, PlacedAt: time.Now().UTC()},
		{ID: "ticket-1-p2", UserID: "user-1", Type: types.BetTypeParlay, ParentID: "ticket-1",
			Legs: []types.Leg{selections[0], selections[2]}, Stake: decimal.RequireFromString("10"),
			Status: types.BetStatusPending, PlacedAt: time.Now().UTC()},
		{ID: "ticket-1-p3", UserID: "user-1", Type: types.BetTypeParlay, ParentID: "ticket-1",
			Legs: []types.Leg{selections[1], selections[2]}, Stake: decimal.RequireFromString("10"),
			Status: types.BetStatusPending, PlacedAt: time.Now().UTC()},
	}

	f.store.SeedAccount("user-1", decimal.RequireFromString("100"))
	err := f.store.WithinTx(ctx, func(tx storage.Tx) error {
		err := tx.InsertBet(ctx, parent)
		if err != nil {
			return err
		}
		for _, child := range children {
			err = tx.InsertBet(ctx, child)
			if err != nil {
				return err
			}
		}
		_, err = f.applier.ApplyDebit(ctx, tx, "user-1", "ticket-1", decimal.RequireFromString("30"))
		return err
	})
	if err != nil {
		t.Fatalf("place ticket: %v", err)
	}

	// Games 1 and 2 win, game 3 loses: one parlay cashes, two lose.
	f.provider.Put(finishedGame("game-1", 110, 95))
	f.provider.Put(finishedGame("game-2", 101, 99))
	f.provider.Put(finishedGame("game-3", 90, 95))

	for _, gameID := range []string{"game-1", "game-2", "game-3"} {
		err = f.orch.HandleGameFinished(ctx, gameID)
		if err != nil {
			t.Fatalf("handle %s: %v", gameID, err)
		}
	}

	ticket, err := f.store.GetBet(ctx, "ticket-1")
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if ticket.Status != types.BetStatusWon {
		t.Errorf("ticket status = %s, want won", ticket.Status)
	}

	// 100 - 30 staked + 36.45 from the surviving parlay.
	balance, risk := f.balance(t, "user-1")
	if balance != "106.45" || risk != "0.00" {
		t.Errorf("account = %s / %s, want 106.45 / 0.00", balance, risk)
	}

	// One debit, three child settlements, no ledger row for the ticket.
	if txns := f.store.Transactions(); len(txns) != 4 {
		t.Errorf("got %d transactions, want 4", len(txns))
	}
}

func TestRunProcessesEventsFromSource(t *testing.T) {
	f := newFixture(t)

	bet := singleBet("bet-1", "user-1", "game-1")
	f.place(t, bet, "100")
	f.provider.Put(finishedGame("game-1", 110, 95))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan struct{})
	go func() {
		defer close(events)
		f.orch.Run(ctx, newTestSource("game-1"))
	}()

	select {
	case <-events:
	case <-time.After(5 * time.Second):
		t.Fatal("orchestrator did not drain the source")
	}

	settled, err := f.store.GetBet(context.Background(), "bet-1")
	if err != nil {
		t.Fatalf("get bet: %v", err)
	}
	if settled.Status != types.BetStatusWon {
		t.Errorf("status = %s, want won", settled.Status)
	}
}
