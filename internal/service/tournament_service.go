package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/duelcircle/duelcircle/internal/duel"
	"github.com/duelcircle/duelcircle/internal/event"
	"github.com/duelcircle/duelcircle/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TournamentService struct {
	db     *sqlx.DB
	store  *store.TournamentStore
	events event.Broadcaster
}

func NewTournamentService(db *sqlx.DB, store *store.TournamentStore, events event.Broadcaster) *TournamentService {
	return &TournamentService{db: db, store: store, events: events}
}

func (s *TournamentService) Create(ctx context.Context, name string, maxPlayers, startingLife int) (*duel.Tournament, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}
	if maxPlayers < 2 {
		return nil, ErrInvalidCapacity
	}
	if startingLife <= 0 {
		return nil, ErrInvalidLife
	}

	tournament := &duel.Tournament{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(name),
		MaxPlayers:   maxPlayers,
		StartingLife: startingLife,
		Status:       duel.TournamentRegistration,
		CurrentRound: 0,
	}
	if err := s.store.CreateTournament(ctx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return tournament, nil
}

func (s *TournamentService) Get(ctx context.Context, id uuid.UUID) (*duel.Tournament, error) {
	tournament, err := s.store.GetTournament(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTournamentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	return tournament, nil
}

type ScheduleSummary struct {
	RoundsCreated int `json:"rounds_created"`
	TotalMatches  int `json:"total_matches"`
}

// GenerateSchedule builds the full round-robin schedule in one transaction:
// every round with its matches, round 1 started, tournament moved to
// in_progress with current_round 1. Rounds are never created after this.
func (s *TournamentService) GenerateSchedule(ctx context.Context, tournamentID uuid.UUID) (*ScheduleSummary, error) {
	tournament, err := s.Get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != duel.TournamentRegistration {
		return nil, ErrScheduleAlreadyGenerated
	}

	players, err := s.store.ListPlayers(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	if len(players) < 2 {
		return nil, ErrNotEnoughPlayers
	}

	playerIDs := make([]uuid.UUID, len(players))
	for i, p := range players {
		playerIDs[i] = p.ID
	}
	schedule := duel.GenerateSchedule(playerIDs)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	totalMatches := 0
	for i, pairings := range schedule {
		round := &duel.Round{
			ID:           uuid.New(),
			TournamentID: tournamentID,
			RoundNumber:  i + 1,
			Status:       duel.RoundPending,
		}
		if round.RoundNumber == 1 {
			round.Status = duel.RoundInProgress
			round.StartedAt = &now
		}
		if err := s.store.CreateRound(ctx, tx, round); err != nil {
			return nil, fmt.Errorf("failed to create round %d: %w", round.RoundNumber, err)
		}

		matches := make([]duel.Match, len(pairings))
		for j, pairing := range pairings {
			matches[j] = duel.Match{
				ID:        uuid.New(),
				RoundID:   round.ID,
				Player1ID: pairing.Player1,
				Player2ID: pairing.Player2,
				Status:    duel.MatchPending,
			}
		}
		if err := s.store.CreateMatches(ctx, tx, matches); err != nil {
			return nil, fmt.Errorf("failed to create matches for round %d: %w", round.RoundNumber, err)
		}
		totalMatches += len(matches)
	}

	tournament.Status = duel.TournamentInProgress
	tournament.CurrentRound = 1
	if err := s.store.UpdateTournamentProgress(ctx, tx, tournament); err != nil {
		return nil, fmt.Errorf("failed to update tournament: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &ScheduleSummary{RoundsCreated: len(schedule), TotalMatches: totalMatches}, nil
}

type RoundAdvance struct {
	CurrentRound int                   `json:"current_round"`
	Status       duel.TournamentStatus `json:"status"`
}

// AdvanceRound manually advances the tournament, e.g. from the admin panel.
// Automatic advancement after the last match of a round goes through
// advanceRoundTx inside the match completion transaction instead.
func (s *TournamentService) AdvanceRound(ctx context.Context, tournamentID uuid.UUID) (*RoundAdvance, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	advance, err := s.advanceRoundTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.events.RoundCompleted(advance.CurrentRound)
	return advance, nil
}

// advanceRoundTx completes the current round (idempotently) and either starts
// the next round or, when none exists, marks the tournament completed. This
// is the only place the tournament's terminal state is decided.
func (s *TournamentService) advanceRoundTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) (*RoundAdvance, error) {
	tournament, err := s.store.GetTournamentTx(ctx, tx, tournamentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTournamentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	if tournament.Status != duel.TournamentInProgress {
		return nil, ErrTournamentNotStarted
	}

	now := time.Now().UTC()

	current, err := s.store.GetRoundByNumberTx(ctx, tx, tournamentID, tournament.CurrentRound)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get current round: %w", err)
	}
	if current != nil {
		if _, err := s.store.CompleteRound(ctx, tx, current.ID, now); err != nil {
			return nil, fmt.Errorf("failed to complete round %d: %w", current.RoundNumber, err)
		}
	}

	next, err := s.store.GetRoundByNumberTx(ctx, tx, tournamentID, tournament.CurrentRound+1)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get next round: %w", err)
	}

	if next != nil {
		tournament.CurrentRound++
		if err := s.store.StartRound(ctx, tx, next.ID, now); err != nil {
			return nil, fmt.Errorf("failed to start round %d: %w", next.RoundNumber, err)
		}
	} else {
		tournament.Status = duel.TournamentCompleted
		tournament.CompletedAt = &now
	}

	if err := s.store.UpdateTournamentProgress(ctx, tx, tournament); err != nil {
		return nil, fmt.Errorf("failed to update tournament: %w", err)
	}

	return &RoundAdvance{CurrentRound: tournament.CurrentRound, Status: tournament.Status}, nil
}

// Standings folds completed matches into the ranked win/loss/points view.
// Derived on every call; nothing is cached. A force-ended match without a
// winner counts as a loss for both participants, since losses are computed
// as completed participations minus wins.
func (s *TournamentService) Standings(ctx context.Context, tournamentID uuid.UUID) ([]duel.Standing, error) {
	if _, err := s.Get(ctx, tournamentID); err != nil {
		return nil, err
	}

	players, err := s.store.ListPlayers(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	completed, err := s.store.ListCompletedMatches(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed matches: %w", err)
	}

	wins := make(map[uuid.UUID]int)
	participated := make(map[uuid.UUID]int)
	for _, m := range completed {
		participated[m.Player1ID]++
		participated[m.Player2ID]++
		if m.WinnerID != nil {
			wins[*m.WinnerID]++
		}
	}

	standings := make([]duel.Standing, 0, len(players))
	for _, p := range players {
		w := wins[p.ID]
		standings = append(standings, duel.Standing{
			PlayerID:  p.ID,
			Name:      p.Name,
			AvatarURL: avatarURL(p.AvatarPath),
			Colors:    parseColors(p.Colors),
			Wins:      w,
			Losses:    participated[p.ID] - w,
			Points:    w * 3,
		})
	}

	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Points != standings[j].Points {
			return standings[i].Points > standings[j].Points
		}
		return standings[i].Name < standings[j].Name
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}

	return standings, nil
}

type MatchSchedule struct {
	MatchID uuid.UUID `json:"match_id"`
	Player1 string    `json:"player1"`
	Player2 string    `json:"player2"`
	Winner  *string   `json:"winner,omitempty"`
}

type RoundSchedule struct {
	RoundNumber int              `json:"round_number"`
	Status      duel.RoundStatus `json:"status"`
	Matches     []MatchSchedule  `json:"matches"`
}

func (s *TournamentService) Schedule(ctx context.Context, tournamentID uuid.UUID) ([]RoundSchedule, error) {
	if _, err := s.Get(ctx, tournamentID); err != nil {
		return nil, err
	}

	players, err := s.store.ListPlayers(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	names := make(map[uuid.UUID]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
	}

	rounds, err := s.store.ListRounds(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}

	schedule := make([]RoundSchedule, 0, len(rounds))
	for _, round := range rounds {
		matches, err := s.store.ListMatchesByRound(ctx, round.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list matches for round %d: %w", round.RoundNumber, err)
		}

		matchSchedules := make([]MatchSchedule, 0, len(matches))
		for _, m := range matches {
			ms := MatchSchedule{
				MatchID: m.ID,
				Player1: names[m.Player1ID],
				Player2: names[m.Player2ID],
			}
			if m.WinnerID != nil {
				winner := names[*m.WinnerID]
				ms.Winner = &winner
			}
			matchSchedules = append(matchSchedules, ms)
		}

		schedule = append(schedule, RoundSchedule{
			RoundNumber: round.RoundNumber,
			Status:      round.Status,
			Matches:     matchSchedules,
		})
	}

	return schedule, nil
}

type MatchPlayerInfo struct {
	PlayerID  uuid.UUID `json:"player_id"`
	Name      string    `json:"name"`
	AvatarURL *string   `json:"avatar_url"`
	Colors    []string  `json:"colors"`
	Health    *int      `json:"health"`
}

type MatchDetails struct {
	MatchID  uuid.UUID        `json:"match_id"`
	Player1  MatchPlayerInfo  `json:"player1"`
	Player2  MatchPlayerInfo  `json:"player2"`
	Status   duel.MatchStatus `json:"status"`
	WinnerID *uuid.UUID       `json:"winner_id"`
}

type CurrentRoundData struct {
	RoundNumber int              `json:"round_number"`
	Status      duel.RoundStatus `json:"status"`
	Matches     []MatchDetails   `json:"matches"`
}

// CurrentRound returns the live dashboard view of the round in progress,
// with both life totals visible.
func (s *TournamentService) CurrentRound(ctx context.Context, tournamentID uuid.UUID) (*CurrentRoundData, error) {
	tournament, err := s.Get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.CurrentRound == 0 {
		return nil, ErrTournamentNotStarted
	}

	round, err := s.store.GetRoundByNumber(ctx, tournamentID, tournament.CurrentRound)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current round: %w", err)
	}

	players, err := s.store.ListPlayers(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	byID := make(map[uuid.UUID]duel.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	matches, err := s.store.ListMatchesByRound(ctx, round.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	details := make([]MatchDetails, 0, len(matches))
	for _, m := range matches {
		p1 := byID[m.Player1ID]
		p2 := byID[m.Player2ID]
		details = append(details, MatchDetails{
			MatchID: m.ID,
			Player1: MatchPlayerInfo{
				PlayerID:  p1.ID,
				Name:      p1.Name,
				AvatarURL: avatarURL(p1.AvatarPath),
				Colors:    parseColors(p1.Colors),
				Health:    m.Player1Health,
			},
			Player2: MatchPlayerInfo{
				PlayerID:  p2.ID,
				Name:      p2.Name,
				AvatarURL: avatarURL(p2.AvatarPath),
				Colors:    parseColors(p2.Colors),
				Health:    m.Player2Health,
			},
			Status:   m.Status,
			WinnerID: m.WinnerID,
		})
	}

	return &CurrentRoundData{
		RoundNumber: round.RoundNumber,
		Status:      round.Status,
		Matches:     details,
	}, nil
}

type TournamentSummary struct {
	TournamentID uuid.UUID             `json:"tournament_id"`
	Name         string                `json:"name"`
	Status       duel.TournamentStatus `json:"status"`
	CurrentRound int                   `json:"current_round"`
	TotalRounds  int                   `json:"total_rounds"`
	PlayersCount int                   `json:"players_count"`
	StartingLife int                   `json:"starting_life"`
}

// Current returns the most recently created tournament's status summary.
func (s *TournamentService) Current(ctx context.Context) (*TournamentSummary, error) {
	tournament, err := s.store.GetLatestTournament(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTournamentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest tournament: %w", err)
	}

	totalRounds, err := s.store.CountRounds(ctx, tournament.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count rounds: %w", err)
	}
	playersCount, err := s.store.CountPlayers(ctx, tournament.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count players: %w", err)
	}

	return &TournamentSummary{
		TournamentID: tournament.ID,
		Name:         tournament.Name,
		Status:       tournament.Status,
		CurrentRound: tournament.CurrentRound,
		TotalRounds:  totalRounds,
		PlayersCount: playersCount,
		StartingLife: tournament.StartingLife,
	}, nil
}

type TournamentHistoryEntry struct {
	TournamentID uuid.UUID             `json:"tournament_id"`
	Name         string                `json:"name"`
	Status       duel.TournamentStatus `json:"status"`
	PlayersCount int                   `json:"players_count"`
	CompletedAt  *time.Time            `json:"completed_at"`
}

func (s *TournamentService) History(ctx context.Context) ([]TournamentHistoryEntry, error) {
	tournaments, err := s.store.ListTournaments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}

	history := make([]TournamentHistoryEntry, 0, len(tournaments))
	for _, t := range tournaments {
		count, err := s.store.CountPlayers(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count players: %w", err)
		}
		history = append(history, TournamentHistoryEntry{
			TournamentID: t.ID,
			Name:         t.Name,
			Status:       t.Status,
			PlayersCount: count,
			CompletedAt:  t.CompletedAt,
		})
	}
	return history, nil
}

func (s *TournamentService) Delete(ctx context.Context, tournamentID uuid.UUID) error {
	if _, err := s.Get(ctx, tournamentID); err != nil {
		return err
	}
	if err := s.store.DeleteTournament(ctx, tournamentID); err != nil {
		return fmt.Errorf("failed to delete tournament: %w", err)
	}
	return nil
}
