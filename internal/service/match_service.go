package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/duelcircle/duelcircle/internal/duel"
	"github.com/duelcircle/duelcircle/internal/event"
	"github.com/duelcircle/duelcircle/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type MatchService struct {
	db          *sqlx.DB
	store       *store.TournamentStore
	tournaments *TournamentService
	events      event.Broadcaster
}

func NewMatchService(db *sqlx.DB, store *store.TournamentStore, tournaments *TournamentService, events event.Broadcaster) *MatchService {
	return &MatchService{db: db, store: store, tournaments: tournaments, events: events}
}

func (s *MatchService) Get(ctx context.Context, matchID uuid.UUID) (*duel.Match, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return match, nil
}

func (s *MatchService) Events(ctx context.Context, matchID uuid.UUID) ([]duel.MatchEvent, error) {
	if _, err := s.Get(ctx, matchID); err != nil {
		return nil, err
	}
	events, err := s.store.ListMatchEvents(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list match events: %w", err)
	}
	return events, nil
}

// PlayerMatchState is the acting player's view of their own match. It never
// carries the opponent's life total; the public dashboard is the only place
// both totals are visible.
type PlayerMatchState struct {
	MatchID      uuid.UUID        `json:"match_id"`
	YourHealth   *int             `json:"your_health"`
	OpponentID   uuid.UUID        `json:"opponent_id"`
	OpponentName string           `json:"opponent_name"`
	Status       duel.MatchStatus `json:"status"`
}

// Join seats a player at their match, initializing their life total from the
// tournament's starting life. Joining twice is a no-op; the match transitions
// to in_progress once both players have joined.
func (s *MatchService) Join(ctx context.Context, matchID, playerID uuid.UUID) (*PlayerMatchState, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.store.GetMatchTx(ctx, tx, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	slot, ok := match.SlotOf(playerID)
	if !ok {
		return nil, ErrNotInMatch
	}
	if match.Status == duel.MatchCompleted {
		return nil, ErrMatchNotInProgress
	}
	if match.HealthOf(slot) != nil {
		// Already joined, e.g. after a page reload. Nothing was written, so
		// let go of the transaction before reading the opponent's name.
		tx.Rollback()
		return s.playerState(ctx, match, playerID, slot)
	}

	round, err := s.store.GetRoundTx(ctx, tx, match.RoundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	tournament, err := s.store.GetTournamentTx(ctx, tx, round.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}

	match.SetHealth(slot, tournament.StartingLife)
	if match.BothJoined() {
		now := time.Now().UTC()
		match.Status = duel.MatchInProgress
		match.StartedAt = &now
	}

	if err := s.store.UpdateMatch(ctx, tx, match); err != nil {
		return nil, fmt.Errorf("failed to update match: %w", err)
	}

	life := tournament.StartingLife
	if err := s.store.CreateMatchEvent(ctx, tx, &duel.MatchEvent{
		ID:        uuid.New(),
		MatchID:   match.ID,
		PlayerID:  playerID,
		EventType: duel.EventMatchStart,
		NewValue:  &life,
	}); err != nil {
		return nil, fmt.Errorf("failed to record match event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.events.HealthChanged(match.ID, playerID, tournament.StartingLife)
	return s.playerState(ctx, match, playerID, slot)
}

// playerState projects a match onto the acting player's slot.
func (s *MatchService) playerState(ctx context.Context, match *duel.Match, playerID uuid.UUID, slot int) (*PlayerMatchState, error) {
	opponentID, _ := match.Opponent(playerID)
	opponent, err := s.store.GetPlayer(ctx, opponentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get opponent: %w", err)
	}
	return &PlayerMatchState{
		MatchID:      match.ID,
		YourHealth:   match.HealthOf(slot),
		OpponentID:   opponentID,
		OpponentName: opponent.Name,
		Status:       match.Status,
	}, nil
}

// HealthUpdate is what the acting player gets back after a life change:
// their own new total, nothing about the opponent.
type HealthUpdate struct {
	MatchID   uuid.UUID        `json:"match_id"`
	NewHealth int              `json:"new_health"`
	Status    duel.MatchStatus `json:"status"`
}

// AdjustHealth applies a signed life delta for one player. Life is clamped at
// zero and never goes negative; reaching zero does not end the match, only an
// explicit defeat confirmation does.
func (s *MatchService) AdjustHealth(ctx context.Context, matchID, playerID uuid.UUID, delta int) (*HealthUpdate, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.store.GetMatchTx(ctx, tx, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	slot, ok := match.SlotOf(playerID)
	if !ok {
		return nil, ErrNotInMatch
	}
	if match.Status != duel.MatchInProgress {
		return nil, ErrMatchNotInProgress
	}

	old := *match.HealthOf(slot)
	next := old + delta
	if next < 0 {
		next = 0
	}
	match.SetHealth(slot, next)

	if err := s.store.UpdateMatch(ctx, tx, match); err != nil {
		return nil, fmt.Errorf("failed to update match: %w", err)
	}
	if err := s.store.CreateMatchEvent(ctx, tx, &duel.MatchEvent{
		ID:        uuid.New(),
		MatchID:   match.ID,
		PlayerID:  playerID,
		EventType: duel.EventHealthChange,
		OldValue:  &old,
		NewValue:  &next,
	}); err != nil {
		return nil, fmt.Errorf("failed to record match event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.events.HealthChanged(match.ID, playerID, next)
	return &HealthUpdate{MatchID: match.ID, NewHealth: next, Status: match.Status}, nil
}

// MatchOutcome is the result of any operation that can complete a match. When
// the completion finished the round's last match, Advance carries the
// tournament's new position.
type MatchOutcome struct {
	Match   *duel.Match
	Advance *RoundAdvance
}

// ConfirmDefeat completes the match with the confirming player's opponent as
// winner. The report is trusted as-is: it is the losing player pressing the
// button on their own device, and life totals are self-tracked anyway.
func (s *MatchService) ConfirmDefeat(ctx context.Context, matchID, playerID uuid.UUID) (*MatchOutcome, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.store.GetMatchTx(ctx, tx, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	slot, ok := match.SlotOf(playerID)
	if !ok {
		return nil, ErrNotInMatch
	}
	if match.Status != duel.MatchInProgress {
		return nil, ErrMatchNotInProgress
	}

	winner, _ := match.Opponent(playerID)
	outcome, err := s.completeMatchTx(ctx, tx, match, &winner, playerID, match.HealthOf(slot))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.announce(outcome)
	return outcome, nil
}

// SetResult lets the admin decide a match directly, regardless of the
// players' joined state.
func (s *MatchService) SetResult(ctx context.Context, matchID, winnerID uuid.UUID) (*MatchOutcome, error) {
	return s.endMatch(ctx, matchID, &winnerID)
}

// ForceEnd completes a stuck match from the admin panel with no winner;
// neither player earns the win. An admin who knows the result uses SetResult.
func (s *MatchService) ForceEnd(ctx context.Context, matchID uuid.UUID) (*MatchOutcome, error) {
	return s.endMatch(ctx, matchID, nil)
}

func (s *MatchService) endMatch(ctx context.Context, matchID uuid.UUID, winnerID *uuid.UUID) (*MatchOutcome, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.store.GetMatchTx(ctx, tx, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match.Status == duel.MatchCompleted {
		return nil, ErrMatchNotInProgress
	}

	eventPlayer := match.Player1ID
	if winnerID != nil {
		if _, ok := match.SlotOf(*winnerID); !ok {
			return nil, ErrNotInMatch
		}
		eventPlayer = *winnerID
	}

	outcome, err := s.completeMatchTx(ctx, tx, match, winnerID, eventPlayer, nil)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.announce(outcome)
	return outcome, nil
}

// completeMatchTx marks the match completed, records the terminal event and
// runs the round completion check, all inside the caller's transaction so a
// match can never be completed without its round being re-evaluated.
func (s *MatchService) completeMatchTx(ctx context.Context, tx *sqlx.Tx, match *duel.Match, winnerID *uuid.UUID, eventPlayer uuid.UUID, finalHealth *int) (*MatchOutcome, error) {
	now := time.Now().UTC()
	match.WinnerID = winnerID
	match.Status = duel.MatchCompleted
	match.CompletedAt = &now

	if err := s.store.UpdateMatch(ctx, tx, match); err != nil {
		return nil, fmt.Errorf("failed to update match: %w", err)
	}
	if err := s.store.CreateMatchEvent(ctx, tx, &duel.MatchEvent{
		ID:        uuid.New(),
		MatchID:   match.ID,
		PlayerID:  eventPlayer,
		EventType: duel.EventMatchEnd,
		OldValue:  finalHealth,
	}); err != nil {
		return nil, fmt.Errorf("failed to record match event: %w", err)
	}

	advance, err := s.checkRoundCompletionTx(ctx, tx, match.RoundID)
	if err != nil {
		return nil, err
	}
	return &MatchOutcome{Match: match, Advance: advance}, nil
}

// checkRoundCompletionTx advances the tournament when the round's last match
// just completed. Completing the round is a compare-and-set, so when two
// matches finish concurrently only one transaction performs the advancement.
func (s *MatchService) checkRoundCompletionTx(ctx context.Context, tx *sqlx.Tx, roundID uuid.UUID) (*RoundAdvance, error) {
	incomplete, err := s.store.CountIncompleteMatchesTx(ctx, tx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to count incomplete matches: %w", err)
	}
	if incomplete > 0 {
		return nil, nil
	}

	round, err := s.store.GetRoundTx(ctx, tx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}

	completed, err := s.store.CompleteRound(ctx, tx, round.ID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to complete round: %w", err)
	}
	if !completed {
		return nil, nil
	}

	return s.tournaments.advanceRoundTx(ctx, tx, round.TournamentID)
}

func (s *MatchService) announce(outcome *MatchOutcome) {
	s.events.MatchCompleted(outcome.Match.ID, outcome.Match.WinnerID)
	if outcome.Advance != nil {
		s.events.RoundCompleted(outcome.Advance.CurrentRound)
	}
}
