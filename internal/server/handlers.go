package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sethvargo/go-retry"

	"github.com/cardhouse/blackjackd/internal/blackjack"
	"github.com/cardhouse/blackjackd/internal/gameid"
	"github.com/cardhouse/blackjackd/internal/ledger"
	"github.com/cardhouse/blackjackd/internal/store"
)

type ctxKey int

const userIDKey ctxKey = iota

// requireUser resolves the requesting user from the X-User-ID header.
// Authentication itself is an upstream concern; by the time requests
// reach this service the header is trusted.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
		if err != nil || userID <= 0 {
			s.writeErrorType(w, http.StatusUnauthorized, errTypeUnauthorized, "missing or invalid X-User-ID header")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userID(r *http.Request) int64 {
	return r.Context().Value(userIDKey).(int64)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.ledger.Balance(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

// handleGetGame returns the user's active game, lazily expiring and
// refunding an abandoned one.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := userID(r)

	release, err := s.locks.Acquire(uid)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer release()

	g, err := s.loadActive(ctx, uid)
	if errors.Is(err, store.ErrNotFound) {
		s.writeErrorType(w, http.StatusNotFound, errTypeNoActiveGame, "no active game")
		return
	}
	if errors.Is(err, errExpired) {
		s.writeErrorType(w, http.StatusNotFound, errTypeGameExpired, "game expired; bets refunded")
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	if g.Settled() {
		// A previously interrupted settlement: finish paying out.
		if err := s.creditPayoutAndDelete(ctx, g); err != nil {
			s.writeError(w, err)
			return
		}
	}

	s.respondWithGame(ctx, w, http.StatusOK, g)
}

type startRequest struct {
	Bet int64 `json:"bet"`
}

// handleStart validates the bet, debits it, and deals a new game. A
// natural on either side resolves immediately; the settled snapshot
// still passes through the store so an interrupted payout can be
// resumed, exactly as on the action path.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := userID(r)

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorType(w, http.StatusBadRequest, errTypeValidation, "invalid request body")
		return
	}

	release, err := s.locks.Acquire(uid)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer release()

	// Resume instead of erroring destructively if a game is in flight.
	// This runs before bet validation so the client always gets the live
	// game back, whatever they asked for.
	if existing, err := s.loadActive(ctx, uid); err == nil {
		s.respondActiveConflict(ctx, w, existing)
		return
	} else if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, errExpired) {
		s.writeError(w, err)
		return
	}

	settings, err := s.settings.Load(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !settings.Enabled {
		s.writeError(w, ErrGameDisabled)
		return
	}
	if req.Bet < settings.MinBet || req.Bet > settings.MaxBet {
		s.writeErrorType(w, http.StatusBadRequest, errTypeValidation,
			fmt.Sprintf("bet must be between %d and %d", settings.MinBet, settings.MaxBet))
		return
	}

	id := s.ids.Generate()
	if err := s.ledger.Debit(ctx, uid, req.Bet, ledger.ReasonBet, id); err != nil {
		s.writeError(w, err)
		return
	}

	now := s.clock.Now().UTC()
	g, err := blackjack.New(id, uid, req.Bet, s.newDeck(), now, s.ttl)
	if err != nil {
		s.refund(ctx, uid, req.Bet, id)
		s.writeError(w, err)
		return
	}

	if g.Settled() {
		// Natural blackjack on either side. Persist the settled snapshot
		// before crediting so a payout that fails here is resumed by the
		// next request instead of lost.
		if err := s.games.Create(ctx, g); err != nil {
			s.refund(ctx, uid, req.Bet, id)
			s.writeError(w, err)
			return
		}
		if err := s.creditPayoutAndDelete(ctx, g); err != nil {
			s.writeError(w, err)
			return
		}
		s.logGameOver(g)
		s.respondWithGame(ctx, w, http.StatusCreated, g)
		return
	}

	if err := s.games.Create(ctx, g); err != nil {
		s.refund(ctx, uid, req.Bet, id)
		if errors.Is(err, store.ErrDuplicateActiveGame) {
			if existing, loadErr := s.loadActive(ctx, uid); loadErr == nil {
				s.respondActiveConflict(ctx, w, existing)
				return
			}
		}
		s.writeError(w, err)
		return
	}

	s.logger.Info().Int64("user_id", uid).Str("game_id", id).Int64("bet", req.Bet).Msg("game started")
	s.respondWithGame(ctx, w, http.StatusCreated, g)
}

// handleAction applies hit/stand/double/split to the caller's game
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := userID(r)
	gameID := chi.URLParam(r, "gameID")
	action := chi.URLParam(r, "action")

	if err := gameid.Validate(gameID); err != nil {
		s.writeErrorType(w, http.StatusNotFound, errTypeNotFound, "game not found")
		return
	}

	release, err := s.locks.Acquire(uid)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer release()

	g, err := s.games.Load(ctx, gameID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if g.UserID != uid {
		// Acting on someone else's game is an abuse signal, not a user
		// mistake worth a friendly message.
		s.logger.Warn().Int64("user_id", uid).Str("game_id", gameID).
			Int64("owner_id", g.UserID).Msg("cross-user game access denied")
		s.writeError(w, ErrForbidden)
		return
	}
	if s.isExpired(g) {
		if err := s.expireGame(ctx, g); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeErrorType(w, http.StatusGone, errTypeGameExpired, "game expired; bets refunded")
		return
	}
	if g.Settled() {
		// A previously interrupted settlement: finish paying out.
		if err := s.creditPayoutAndDelete(ctx, g); err != nil {
			s.writeError(w, err)
			return
		}
		s.respondWithGame(ctx, w, http.StatusOK, g)
		return
	}

	// Extra bets are debited before the transition and compensated if
	// anything after the debit fails.
	var extraDebit int64
	switch action {
	case "hit":
		err = g.Hit()
	case "stand":
		err = g.Stand()
	case "double":
		if !g.CanDouble() {
			err = blackjack.ErrIllegalAction
			break
		}
		extraDebit = g.ActiveBet()
		if err = s.ledger.Debit(ctx, uid, extraDebit, ledger.ReasonDouble, g.ID); err != nil {
			extraDebit = 0
			break
		}
		err = g.Double()
	case "split":
		if !g.CanSplit() {
			err = blackjack.ErrIllegalAction
			break
		}
		extraDebit = g.MainBet
		if err = s.ledger.Debit(ctx, uid, extraDebit, ledger.ReasonSplit, g.ID); err != nil {
			extraDebit = 0
			break
		}
		err = g.Split()
	}
	if err != nil {
		if extraDebit > 0 {
			s.refund(ctx, uid, extraDebit, g.ID)
		}
		s.writeError(w, err)
		return
	}

	s.logger.Debug().Int64("user_id", uid).Str("game_id", g.ID).
		Str("action", action).Str("phase", string(g.Phase)).Msg("action applied")

	// Persist the post-action state first so a settlement interrupted
	// between credit attempts can be resumed, then credit and delete.
	if err := s.games.Update(ctx, g); err != nil {
		if extraDebit > 0 {
			s.refund(ctx, uid, extraDebit, g.ID)
		}
		s.writeError(w, err)
		return
	}

	if g.Settled() {
		if err := s.creditPayoutAndDelete(ctx, g); err != nil {
			s.writeError(w, err)
			return
		}
		s.logGameOver(g)
	}

	s.respondWithGame(ctx, w, http.StatusOK, g)
}

// loadActive loads the user's game, expiring it first when the TTL has
// elapsed. Returns errExpired after a successful refund-and-delete.
func (s *Server) loadActive(ctx context.Context, uid int64) (*blackjack.Game, error) {
	g, err := s.games.LoadActiveForUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	if s.isExpired(g) {
		if err := s.expireGame(ctx, g); err != nil {
			return nil, err
		}
		return nil, errExpired
	}
	return g, nil
}

var errExpired = errors.New("game expired")

func (s *Server) isExpired(g *blackjack.Game) bool {
	return s.clock.Now().After(g.ExpiresAt)
}

// expireGame refunds every locked-in bet and deletes the game. No outcome
// was determined, so the player gets their stake back rather than a
// payout.
func (s *Server) expireGame(ctx context.Context, g *blackjack.Game) error {
	if err := s.ledger.Credit(ctx, g.UserID, g.TotalBet(), ledger.ReasonRefund, g.ID); err != nil {
		return fmt.Errorf("refund expired game %s: %w", g.ID, err)
	}
	if err := s.games.Delete(ctx, g.ID); err != nil {
		return err
	}
	s.logger.Info().Int64("user_id", g.UserID).Str("game_id", g.ID).
		Int64("refunded", g.TotalBet()).Msg("expired game refunded")
	return nil
}

// creditPayout credits a settled game's payout with a short retry. Losing
// a player's win to a transient ledger hiccup is the one failure mode
// this service must not have.
func (s *Server) creditPayout(ctx context.Context, g *blackjack.Game) error {
	if g.Payout == 0 {
		return nil
	}
	backoff := retry.WithMaxRetries(3, retry.NewConstant(50*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.ledger.Credit(ctx, g.UserID, g.Payout, ledger.ReasonPayout, g.ID); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// creditPayoutAndDelete completes settlement. The game is only removed
// once the credit has landed; on failure it stays in the store marked
// settled and the next request resumes from here.
func (s *Server) creditPayoutAndDelete(ctx context.Context, g *blackjack.Game) error {
	if err := s.creditPayout(ctx, g); err != nil {
		return err
	}
	return s.games.Delete(ctx, g.ID)
}

// refund compensates a debit whose follow-up work failed
func (s *Server) refund(ctx context.Context, uid, amount int64, gameID string) {
	if err := s.ledger.Credit(ctx, uid, amount, ledger.ReasonRefund, gameID); err != nil {
		// Operator attention needed: the user is out of pocket.
		s.logger.Error().Err(err).Int64("user_id", uid).Str("game_id", gameID).
			Int64("amount", amount).Msg("failed to refund debit")
	}
}

func (s *Server) respondWithGame(ctx context.Context, w http.ResponseWriter, status int, g *blackjack.Game) {
	balance, err := s.ledger.Balance(ctx, g.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, status, project(g, balance))
}

func (s *Server) respondActiveConflict(ctx context.Context, w http.ResponseWriter, g *blackjack.Game) {
	balance, err := s.ledger.Balance(ctx, g.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusConflict, errorResponse{
		Error: apiError{Type: errTypeGameActive, Message: "a game is already in progress"},
		Game:  project(g, balance),
	})
}

func (s *Server) logGameOver(g *blackjack.Game) {
	evt := s.logger.Info().Int64("user_id", g.UserID).Str("game_id", g.ID).
		Str("result", string(g.MainResult)).Int64("bet", g.TotalBet()).Int64("payout", g.Payout)
	if g.HasSplit {
		evt = evt.Str("split_result", string(g.SplitResult))
	}
	evt.Msg("game settled")
}

