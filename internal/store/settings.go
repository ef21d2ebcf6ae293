package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Settings are the operator-controlled game parameters, read once per
// start request. Bets are validated against the range at that moment; a
// disabled game rejects new starts without touching games in flight.
type Settings struct {
	Enabled bool  `json:"enabled"`
	MinBet  int64 `json:"minBet"`
	MaxBet  int64 `json:"maxBet"`
}

// SettingsProvider is the settings collaborator consumed at start time
type SettingsProvider interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

// SQLiteSettings persists a single settings row in SQLite
type SQLiteSettings struct {
	db       *sql.DB
	defaults Settings
}

// NewSQLiteSettings creates a settings provider. The defaults are
// returned until a row is saved, and seeded on Migrate.
func NewSQLiteSettings(db *sql.DB, defaults Settings) *SQLiteSettings {
	return &SQLiteSettings{db: db, defaults: defaults}
}

// Migrate creates the settings table and seeds the default row
func (s *SQLiteSettings) Migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS game_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		enabled INTEGER NOT NULL,
		min_bet INTEGER NOT NULL,
		max_bet INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("settings migration failed: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT OR IGNORE INTO game_settings (id, enabled, min_bet, max_bet) VALUES (1, ?, ?, ?)`,
		s.defaults.Enabled, s.defaults.MinBet, s.defaults.MaxBet)
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}

// Load returns the current settings
func (s *SQLiteSettings) Load(ctx context.Context) (Settings, error) {
	var out Settings
	err := s.db.QueryRowContext(ctx,
		`SELECT enabled, min_bet, max_bet FROM game_settings WHERE id = 1`).
		Scan(&out.Enabled, &out.MinBet, &out.MaxBet)
	if errors.Is(err, sql.ErrNoRows) {
		return s.defaults, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return out, nil
}

// Save overwrites the settings row
func (s *SQLiteSettings) Save(ctx context.Context, settings Settings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO game_settings (id, enabled, min_bet, max_bet) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET enabled = excluded.enabled,
		 min_bet = excluded.min_bet, max_bet = excluded.max_bet`,
		settings.Enabled, settings.MinBet, settings.MaxBet)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
