package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/duelcircle/duelcircle/internal/duel"
	"github.com/duelcircle/duelcircle/internal/httputil"
	"github.com/duelcircle/duelcircle/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// serviceError translates domain errors to HTTP status codes. Anything not
// recognized is a real failure and logs as a 500.
func serviceError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrTournamentNotFound),
		errors.Is(err, service.ErrRoundNotFound),
		errors.Is(err, service.ErrMatchNotFound),
		errors.Is(err, service.ErrPlayerNotFound):
		httputil.NotFound(w, err.Error(), nil)

	case errors.Is(err, service.ErrInvalidPassword),
		errors.Is(err, service.ErrAdminNotSetUp):
		httputil.Unauthorized(w, err.Error())

	case errors.Is(err, service.ErrScheduleAlreadyGenerated),
		errors.Is(err, service.ErrRegistrationClosed),
		errors.Is(err, service.ErrTournamentFull),
		errors.Is(err, service.ErrPlayerNameTaken):
		httputil.Conflict(w, err.Error())

	case errors.Is(err, service.ErrTournamentNotStarted),
		errors.Is(err, service.ErrMatchNotInProgress),
		errors.Is(err, service.ErrNotEnoughPlayers),
		errors.Is(err, service.ErrNotInMatch),
		errors.Is(err, service.ErrInvalidCapacity),
		errors.Is(err, service.ErrInvalidLife),
		errors.Is(err, service.ErrNameRequired):
		httputil.BadRequest(w, err.Error(), nil)

	default:
		httputil.InternalServerError(w, msg, err)
	}
}

// matchPlayerRequest parses the common {match id in path, player id in body}
// request shape.
func matchPlayerRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	matchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, "Invalid match ID", err)
		return uuid.Nil, uuid.Nil, false
	}

	var req struct {
		PlayerID uuid.UUID `json:"player_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "Invalid request body", err)
		return uuid.Nil, uuid.Nil, false
	}
	return matchID, req.PlayerID, true
}

func matchJSON(m *duel.Match) map[string]any {
	return map[string]any{
		"match_id":       m.ID,
		"player1_id":     m.Player1ID,
		"player2_id":     m.Player2ID,
		"player1_health": m.Player1Health,
		"player2_health": m.Player2Health,
		"winner_id":      m.WinnerID,
		"status":         m.Status,
		"started_at":     m.StartedAt,
		"completed_at":   m.CompletedAt,
	}
}
