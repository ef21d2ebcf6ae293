package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coder/quartz"
	_ "modernc.org/sqlite"

	"github.com/cardhouse/blackjackd/internal/blackjack"
)

// SQLiteStore implements GameStore on SQLite. Games are stored as full
// JSON snapshots; user_id and expires_at are mirrored into columns for the
// one-active-game-per-user constraint and the expiry sweep. A version
// column provides optimistic concurrency across processes.
type SQLiteStore struct {
	db    *sql.DB
	clock quartz.Clock
	ttl   time.Duration
}

// OpenDB opens the SQLite database in WAL mode. The same handle is shared
// with the ledger so both live in one database file.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return db, nil
}

// NewSQLiteStore creates a game store with the given TTL for abandoned
// games. The TTL window is renewed on every update.
func NewSQLiteStore(db *sql.DB, clock quartz.Clock, ttl time.Duration) *SQLiteStore {
	return &SQLiteStore{db: db, clock: clock, ttl: ttl}
}

// Migrate creates the games table
func (s *SQLiteStore) Migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS games (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL UNIQUE,
			state TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			expires_at INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_games_expires ON games(expires_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}
	return nil
}

// TTL returns the configured abandonment window
func (s *SQLiteStore) TTL() time.Duration {
	return s.ttl
}

// Create inserts a new game. The UNIQUE constraint on user_id makes the
// one-active-game-per-user check atomic with the insert.
func (s *SQLiteStore) Create(ctx context.Context, g *blackjack.Game) error {
	state, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO games (id, user_id, state, version, expires_at) VALUES (?, ?, ?, 1, ?)`,
		g.ID, g.UserID, string(state), g.ExpiresAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateActiveGame
		}
		return fmt.Errorf("insert game: %w", err)
	}
	g.Version = 1
	return nil
}

// Load fetches a game by id
func (s *SQLiteStore) Load(ctx context.Context, gameID string) (*blackjack.Game, error) {
	return s.load(ctx, `SELECT state, version FROM games WHERE id = ?`, gameID)
}

// LoadActiveForUser fetches the user's active game, or ErrNotFound
func (s *SQLiteStore) LoadActiveForUser(ctx context.Context, userID int64) (*blackjack.Game, error) {
	return s.load(ctx, `SELECT state, version FROM games WHERE user_id = ?`, userID)
}

func (s *SQLiteStore) load(ctx context.Context, query string, arg any) (*blackjack.Game, error) {
	var state string
	var version int64
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&state, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query game: %w", err)
	}
	var g blackjack.Game
	if err := json.Unmarshal([]byte(state), &g); err != nil {
		return nil, fmt.Errorf("unmarshal game: %w", err)
	}
	g.Version = version
	return &g, nil
}

// Update overwrites the stored snapshot, renewing the TTL window. The
// version check rejects writes against state someone else changed first.
func (s *SQLiteStore) Update(ctx context.Context, g *blackjack.Game) error {
	g.ExpiresAt = s.clock.Now().UTC().Add(s.ttl)
	state, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE games SET state = ?, version = version + 1, expires_at = ?,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ? AND version = ?`,
		string(state), g.ExpiresAt.UnixMilli(), g.ID, g.Version)
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	if n == 0 {
		// Either the game vanished or its version moved on.
		if _, loadErr := s.Load(ctx, g.ID); errors.Is(loadErr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	g.Version++
	return nil
}

// Delete removes a game
func (s *SQLiteStore) Delete(ctx context.Context, gameID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, gameID)
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	return nil
}

// Expired returns games whose TTL elapsed. The caller refunds the locked
// bets and deletes each one.
func (s *SQLiteStore) Expired(ctx context.Context) ([]*blackjack.Game, error) {
	now := s.clock.Now().UTC().UnixMilli()
	rows, err := s.db.QueryContext(ctx,
		`SELECT state, version FROM games WHERE expires_at <= ?`, now)
	if err != nil {
		return nil, fmt.Errorf("query expired games: %w", err)
	}
	defer rows.Close()

	var games []*blackjack.Game
	for rows.Next() {
		var state string
		var version int64
		if err := rows.Scan(&state, &version); err != nil {
			return nil, fmt.Errorf("scan expired game: %w", err)
		}
		var g blackjack.Game
		if err := json.Unmarshal([]byte(state), &g); err != nil {
			return nil, fmt.Errorf("unmarshal expired game: %w", err)
		}
		g.Version = version
		games = append(games, &g)
	}
	return games, rows.Err()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
