// Package ledger manages user point balances. Every balance mutation is
// paired with an audit entry in the same transaction, so the entries are a
// complete history of how each balance came to be.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInsufficientFunds is returned by Debit when the user's balance does
// not cover the amount. No entry is written and the balance is unchanged.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Reasons recorded on audit entries.
const (
	ReasonBet     = "bet"
	ReasonDouble  = "double"
	ReasonSplit   = "split"
	ReasonPayout  = "payout"
	ReasonRefund  = "refund"
	ReasonDeposit = "deposit"
)

// Ledger is the balance collaborator consumed by the game orchestrator:
// debit at bet time, credit at settlement or refund.
type Ledger interface {
	Balance(ctx context.Context, userID int64) (int64, error)
	Debit(ctx context.Context, userID int64, amount int64, reason, gameID string) error
	Credit(ctx context.Context, userID int64, amount int64, reason, gameID string) error
}

// Entry is one audit record
type Entry struct {
	ID        string
	UserID    int64
	Amount    int64 // negative for debits
	Reason    string
	GameID    string
	CreatedAt time.Time
}

// SQLLedger implements Ledger on a SQL database
type SQLLedger struct {
	db *sql.DB
}

// NewSQLLedger creates a ledger backed by the given database. The caller
// owns the database lifecycle; Migrate must have been run.
func NewSQLLedger(db *sql.DB) *SQLLedger {
	return &SQLLedger{db: db}
}

// Migrate creates the ledger tables
func (l *SQLLedger) Migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS balances (
			user_id INTEGER PRIMARY KEY,
			balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			reason TEXT NOT NULL,
			game_id TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_entries_user ON ledger_entries(user_id, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("ledger migration failed: %w", err)
		}
	}
	return nil
}

// Balance returns the user's current balance. Unknown users have zero.
func (l *SQLLedger) Balance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := l.db.QueryRowContext(ctx,
		`SELECT balance FROM balances WHERE user_id = ?`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return balance, nil
}

// Debit atomically deducts amount from the user's balance and records an
// audit entry. Fails with ErrInsufficientFunds without side effects when
// the balance is too low.
func (l *SQLLedger) Debit(ctx context.Context, userID int64, amount int64, reason, gameID string) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin debit: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE balances SET balance = balance - ? WHERE user_id = ? AND balance >= ?`,
		amount, userID, amount)
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	if n == 0 {
		return ErrInsufficientFunds
	}

	if err := appendEntry(ctx, tx, userID, -amount, reason, gameID); err != nil {
		return err
	}
	return tx.Commit()
}

// Credit atomically adds amount to the user's balance and records an
// audit entry. Crediting an unknown user creates their balance row.
func (l *SQLLedger) Credit(ctx context.Context, userID int64, amount int64, reason, gameID string) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin credit: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO balances (user_id, balance) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET balance = balance + excluded.balance`,
		userID, amount)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}

	if err := appendEntry(ctx, tx, userID, amount, reason, gameID); err != nil {
		return err
	}
	return tx.Commit()
}

// Entries returns the most recent audit entries for a user, newest first
func (l *SQLLedger) Entries(ctx context.Context, userID int64, limit int) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, user_id, amount, reason, game_id, created_at
		 FROM ledger_entries WHERE user_id = ?
		 ORDER BY rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Reason, &e.GameID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func appendEntry(ctx context.Context, tx *sql.Tx, userID int64, amount int64, reason, gameID string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (id, user_id, amount, reason, game_id) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), userID, amount, reason, gameID)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}
