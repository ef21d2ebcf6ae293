// Package store persists in-progress games. The store is the only home of
// game state between requests; handler processes keep nothing in memory,
// so every action is a load-mutate-save cycle against it.
package store

import (
	"context"
	"errors"

	"github.com/cardhouse/blackjackd/internal/blackjack"
)

var (
	// ErrNotFound is returned when no game exists for the given key
	ErrNotFound = errors.New("game not found")

	// ErrDuplicateActiveGame is returned by Create when the user already
	// has an unsettled game. Creation is atomic check-and-set, so two
	// racing starts cannot both succeed.
	ErrDuplicateActiveGame = errors.New("user already has an active game")

	// ErrVersionConflict is returned by Update when the game was modified
	// since it was loaded. The caller must reload and retry or give up.
	ErrVersionConflict = errors.New("game was modified concurrently")
)

// GameStore is the durable keyed storage for in-progress games
type GameStore interface {
	Create(ctx context.Context, g *blackjack.Game) error
	Load(ctx context.Context, gameID string) (*blackjack.Game, error)
	LoadActiveForUser(ctx context.Context, userID int64) (*blackjack.Game, error)
	Update(ctx context.Context, g *blackjack.Game) error
	Delete(ctx context.Context, gameID string) error

	// Expired returns games whose TTL has elapsed, for the refund sweep.
	Expired(ctx context.Context) ([]*blackjack.Game, error)
}
