package server

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/cardhouse/blackjackd/internal/deck"
	"github.com/cardhouse/blackjackd/internal/gameid"
	"github.com/cardhouse/blackjackd/internal/ledger"
	"github.com/cardhouse/blackjackd/internal/store"
)

// Server is the request orchestrator. It owns no game state of its own:
// every request is load from store, transition, save. Balance movements
// go through the ledger at bet lock-in and settlement only.
type Server struct {
	logger   zerolog.Logger
	games    store.GameStore
	settings store.SettingsProvider
	ledger   ledger.Ledger
	locks    *userLocks
	clock    quartz.Clock
	ids      *gameid.Generator
	newDeck  func() deck.Deck
	ttl      time.Duration
	httpSrv  *http.Server
}

// Option customizes a Server
type Option func(*Server)

// WithClock injects a clock, used by tests to control TTL expiry
func WithClock(clock quartz.Clock) Option {
	return func(s *Server) { s.clock = clock }
}

// WithDeckFunc injects the deck source, used by tests to stack decks
func WithDeckFunc(fn func() deck.Deck) Option {
	return func(s *Server) { s.newDeck = fn }
}

// WithLockWait overrides the bounded wait for the per-user lock
func WithLockWait(wait time.Duration) Option {
	return func(s *Server) { s.locks = newUserLocks(wait) }
}

// WithTTL sets the abandoned-game window used for new games. It should
// match the store's TTL so lazy expiry and the sweep agree.
func WithTTL(ttl time.Duration) Option {
	return func(s *Server) { s.ttl = ttl }
}

// New creates a server
func New(logger zerolog.Logger, games store.GameStore, settings store.SettingsProvider, lgr ledger.Ledger, opts ...Option) *Server {
	s := &Server{
		logger:   logger.With().Str("component", "server").Logger(),
		games:    games,
		settings: settings,
		ledger:   lgr,
		locks:    newUserLocks(defaultLockWait),
		clock:    quartz.NewReal(),
		ids:      gameid.NewGenerator(nil),
		newDeck:  func() deck.Deck { return deck.NewShuffled(deck.CryptoSource{}) },
		ttl:      10 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the HTTP handler
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireUser)
		r.Get("/balance", s.handleBalance)
		r.Get("/game", s.handleGetGame)
		r.Post("/game", s.handleStart)
		r.Post("/game/{gameID}/{action:hit|stand|double|split}", s.handleAction)
	})

	return r
}

// Start runs the HTTP server until Shutdown is called
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Info().Str("addr", addr).Msg("starting blackjack server")
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
