package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/nssports/sportsbook-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Postgres implements Store on PostgreSQL.
type Postgres struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgres opens and pings a PostgreSQL-backed store.
func NewPostgres(cfg *PostgresConfig) (*Postgres, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-store-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &Postgres{db: db, logger: cfg.Logger}, nil
}

// schema is applied by Migrate. bet_games is the index that lets settlement
// find every bet touching a finished game without scanning leg payloads.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	user_id TEXT PRIMARY KEY,
	balance NUMERIC(14,2) NOT NULL DEFAULT 0,
	risk    NUMERIC(14,2) NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS bets (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL REFERENCES accounts(user_id),
	parent_id        TEXT,
	bet_type         TEXT NOT NULL,
	legs             JSONB NOT NULL,
	stake            NUMERIC(14,2) NOT NULL,
	odds             INTEGER NOT NULL DEFAULT 0,
	potential_payout NUMERIC(14,2) NOT NULL,
	teaser_type      TEXT,
	if_condition     TEXT,
	status           TEXT NOT NULL,
	placed_at        TIMESTAMPTZ NOT NULL,
	settled_at       TIMESTAMPTZ,
	idempotency_key  TEXT,
	UNIQUE (user_id, idempotency_key)
);

CREATE INDEX IF NOT EXISTS idx_bets_parent ON bets (parent_id) WHERE parent_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_bets_status ON bets (status) WHERE status IN ('pending', 'processing');

CREATE TABLE IF NOT EXISTS bet_games (
	bet_id  TEXT NOT NULL REFERENCES bets(id),
	game_id TEXT NOT NULL,
	PRIMARY KEY (bet_id, game_id)
);

CREATE INDEX IF NOT EXISTS idx_bet_games_game ON bet_games (game_id);

CREATE TABLE IF NOT EXISTS transactions (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL REFERENCES accounts(user_id),
	bet_id         TEXT NOT NULL,
	txn_type       TEXT NOT NULL,
	amount         NUMERIC(14,2) NOT NULL,
	balance_before NUMERIC(14,2) NOT NULL,
	balance_after  NUMERIC(14,2) NOT NULL,
	reason         TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
);
`

// Migrate creates the schema if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// WithinTx runs fn in one database transaction. Serialization and deadlock
// failures are mapped to types.ErrLedgerConflict so callers retry them.
func (p *Postgres) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback()

	err = fn(&pgTx{tx: dbTx})
	if err != nil {
		return mapConflict(err)
	}

	err = dbTx.Commit()
	if err != nil {
		return mapConflict(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// mapConflict translates Postgres concurrency failures into the transient
// ledger conflict error.
func mapConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %v", types.ErrLedgerConflict, err)
		}
	}
	return err
}

const betColumns = `id, user_id, COALESCE(parent_id, ''), bet_type, legs, stake, odds,
	potential_payout, COALESCE(teaser_type, ''), COALESCE(if_condition, ''), status,
	placed_at, settled_at, COALESCE(idempotency_key, '')`

func (p *Postgres) GetBet(ctx context.Context, betID string) (*types.Bet, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+betColumns+` FROM bets WHERE id = $1`, betID)
	return scanBet(row)
}

func (p *Postgres) GetBetByIdempotencyKey(ctx context.Context, userID, key string) (*types.Bet, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+betColumns+` FROM bets WHERE user_id = $1 AND idempotency_key = $2`, userID, key)
	return scanBet(row)
}

func (p *Postgres) PendingBetsForGame(ctx context.Context, gameID string) ([]*types.Bet, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+betColumns+` FROM bets b
		 WHERE b.status IN ('pending', 'processing')
		   AND EXISTS (SELECT 1 FROM bet_games bg WHERE bg.bet_id = b.id AND bg.game_id = $1)
		 ORDER BY b.placed_at`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query pending bets: %w", err)
	}
	defer rows.Close()
	return scanBets(rows)
}

func (p *Postgres) ChildBets(ctx context.Context, parentID string) ([]*types.Bet, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+betColumns+` FROM bets WHERE parent_id = $1 ORDER BY placed_at, id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("query child bets: %w", err)
	}
	defer rows.Close()
	return scanBets(rows)
}

func (p *Postgres) GetAccount(ctx context.Context, userID string) (*types.Account, error) {
	return scanAccount(p.db.QueryRowContext(ctx,
		`SELECT user_id, balance, risk FROM accounts WHERE user_id = $1`, userID))
}

// Close closes the database connection.
func (p *Postgres) Close() error {
	p.logger.Info("closing-postgres-store")
	return p.db.Close()
}

// pgTx implements Tx on a live database transaction.
type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) InsertBet(ctx context.Context, bet *types.Bet) error {
	err := bet.Validate()
	if err != nil {
		return err
	}

	legs, err := json.Marshal(bet.Legs)
	if err != nil {
		return fmt.Errorf("marshal legs: %w", err)
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO bets (
			id, user_id, parent_id, bet_type, legs, stake, odds,
			potential_payout, teaser_type, if_condition, status,
			placed_at, settled_at, idempotency_key
		) VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8,
			NULLIF($9, ''), NULLIF($10, ''), $11, $12, $13, NULLIF($14, ''))`,
		bet.ID, bet.UserID, bet.ParentID, string(bet.Type), legs,
		bet.Stake.StringFixed(2), bet.Odds, bet.PotentialPayout.StringFixed(2),
		bet.TeaserType, string(bet.IfCondition), string(bet.Status),
		bet.PlacedAt, bet.SettledAt, bet.IdempotencyKey,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
		}
		return fmt.Errorf("insert bet: %w", err)
	}

	for _, gameID := range bet.GameIDs() {
		_, err = t.tx.ExecContext(ctx,
			`INSERT INTO bet_games (bet_id, game_id) VALUES ($1, $2)`, bet.ID, gameID)
		if err != nil {
			return fmt.Errorf("insert bet game: %w", err)
		}
	}
	return nil
}

func (t *pgTx) UpdateBetStatusCAS(ctx context.Context, betID string, to types.BetStatus, settledAt time.Time) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE bets SET status = $2, settled_at = $3
		WHERE id = $1 AND status IN ('pending', 'processing')`,
		betID, string(to), settledAt)
	if err != nil {
		return false, fmt.Errorf("cas bet status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cas rows affected: %w", err)
	}
	return n > 0, nil
}

func (t *pgTx) MarkProcessing(ctx context.Context, betID string) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE bets SET status = 'processing' WHERE id = $1 AND status = 'pending'`, betID)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateLegOutcomes(ctx context.Context, betID string, outcomes map[string]types.LegOutcome) error {
	row := t.tx.QueryRowContext(ctx, `SELECT legs FROM bets WHERE id = $1 FOR UPDATE`, betID)

	var raw []byte
	err := row.Scan(&raw)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read legs: %w", err)
	}

	var legs []types.Leg
	err = json.Unmarshal(raw, &legs)
	if err != nil {
		return fmt.Errorf("unmarshal legs: %w", err)
	}
	for i := range legs {
		if outcome, ok := outcomes[legs[i].ID]; ok {
			legs[i].Outcome = outcome
		}
	}
	updated, err := json.Marshal(legs)
	if err != nil {
		return fmt.Errorf("marshal legs: %w", err)
	}

	_, err = t.tx.ExecContext(ctx, `UPDATE bets SET legs = $2 WHERE id = $1`, betID, updated)
	if err != nil {
		return fmt.Errorf("update legs: %w", err)
	}
	return nil
}

func (t *pgTx) GetAccountForUpdate(ctx context.Context, userID string) (*types.Account, error) {
	return scanAccount(t.tx.QueryRowContext(ctx,
		`SELECT user_id, balance, risk FROM accounts WHERE user_id = $1 FOR UPDATE`, userID))
}

func (t *pgTx) UpdateAccount(ctx context.Context, account *types.Account) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET balance = $2, risk = $3 WHERE user_id = $1`,
		account.UserID, account.Balance.StringFixed(2), account.Risk.StringFixed(2))
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

func (t *pgTx) AppendTransaction(ctx context.Context, txn *types.Transaction) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO transactions (
			id, user_id, bet_id, txn_type, amount,
			balance_before, balance_after, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		txn.ID, txn.UserID, txn.BetID, string(txn.Type),
		txn.Amount.StringFixed(2), txn.BalanceBefore.StringFixed(2),
		txn.BalanceAfter.StringFixed(2), txn.Reason, txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBet(row rowScanner) (*types.Bet, error) {
	var (
		bet          types.Bet
		betType      string
		ifCondition  string
		status       string
		legs         []byte
		stake        string
		payout       string
		settledAt    sql.NullTime
	)

	err := row.Scan(&bet.ID, &bet.UserID, &bet.ParentID, &betType, &legs, &stake,
		&bet.Odds, &payout, &bet.TeaserType, &ifCondition, &status,
		&bet.PlacedAt, &settledAt, &bet.IdempotencyKey)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan bet: %w", err)
	}

	bet.Type = types.BetType(betType)
	bet.IfCondition = types.IfBetCondition(ifCondition)
	bet.Status = types.BetStatus(status)
	if settledAt.Valid {
		bet.SettledAt = &settledAt.Time
	}

	err = json.Unmarshal(legs, &bet.Legs)
	if err != nil {
		return nil, fmt.Errorf("unmarshal legs: %w", err)
	}
	bet.Stake, err = decimal.NewFromString(stake)
	if err != nil {
		return nil, fmt.Errorf("parse stake: %w", err)
	}
	bet.PotentialPayout, err = decimal.NewFromString(payout)
	if err != nil {
		return nil, fmt.Errorf("parse payout: %w", err)
	}

	// Legs are validated at the persistence boundary so the grading engine
	// never sees a malformed payload.
	err = bet.Validate()
	if err != nil {
		return nil, err
	}
	return &bet, nil
}

func scanBets(rows *sql.Rows) ([]*types.Bet, error) {
	var bets []*types.Bet
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		bets = append(bets, bet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bets: %w", err)
	}
	return bets, nil
}

func scanAccount(row rowScanner) (*types.Account, error) {
	var (
		account types.Account
		balance string
		risk    string
	)
	err := row.Scan(&account.UserID, &balance, &risk)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	account.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}
	account.Risk, err = decimal.NewFromString(risk)
	if err != nil {
		return nil, fmt.Errorf("parse risk: %w", err)
	}
	return &account, nil
}
