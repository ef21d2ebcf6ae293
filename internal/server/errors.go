package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cardhouse/blackjackd/internal/blackjack"
	"github.com/cardhouse/blackjackd/internal/ledger"
	"github.com/cardhouse/blackjackd/internal/store"
)

var (
	// ErrBusy is returned when another request holds the user's lock past
	// the bounded wait. The client should retry shortly.
	ErrBusy = errors.New("another action for this user is in progress")

	// ErrForbidden is returned when a game id does not belong to the
	// requesting user
	ErrForbidden = errors.New("game belongs to another user")

	// ErrGameDisabled is returned by start when the operator has disabled
	// the game
	ErrGameDisabled = errors.New("blackjack is currently disabled")
)

// Error type identifiers in API responses
const (
	errTypeValidation        = "validation"
	errTypeInsufficientFunds = "insufficient_funds"
	errTypeIllegalAction     = "illegal_action"
	errTypeGameActive        = "game_already_active"
	errTypeForbidden         = "forbidden"
	errTypeNotFound          = "not_found"
	errTypeNoActiveGame      = "no_active_game"
	errTypeGameExpired       = "game_expired"
	errTypeGameDisabled      = "game_disabled"
	errTypeBusy              = "busy"
	errTypeUnauthorized      = "unauthorized"
	errTypeInternal          = "internal"
)

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
	// Game carries the existing game's projection on game_already_active
	// so the client can resume instead of losing state.
	Game *GameProjection `json:"game,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeErrorType(w http.ResponseWriter, status int, errType, message string) {
	s.writeJSON(w, status, errorResponse{Error: apiError{Type: errType, Message: message}})
}

// writeError maps domain errors onto HTTP responses. Business failures get
// typed responses; anything unrecognized is an opaque internal error so
// invariant violations like deck exhaustion are never dressed up as
// outcomes a client could act on.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, blackjack.ErrIllegalAction):
		s.writeErrorType(w, http.StatusBadRequest, errTypeIllegalAction, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		s.writeErrorType(w, http.StatusPaymentRequired, errTypeInsufficientFunds, err.Error())
	case errors.Is(err, store.ErrNotFound):
		s.writeErrorType(w, http.StatusNotFound, errTypeNotFound, "game not found")
	case errors.Is(err, store.ErrVersionConflict), errors.Is(err, ErrBusy):
		s.writeErrorType(w, http.StatusConflict, errTypeBusy, "try again shortly")
	case errors.Is(err, ErrForbidden):
		s.writeErrorType(w, http.StatusForbidden, errTypeForbidden, err.Error())
	case errors.Is(err, ErrGameDisabled):
		s.writeErrorType(w, http.StatusServiceUnavailable, errTypeGameDisabled, err.Error())
	default:
		s.logger.Error().Err(err).Msg("internal error")
		s.writeErrorType(w, http.StatusInternalServerError, errTypeInternal, "internal error")
	}
}
