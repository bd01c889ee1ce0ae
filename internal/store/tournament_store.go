package store

import (
	"context"
	"time"

	"github.com/duelcircle/duelcircle/internal/duel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

func (s *TournamentStore) CreateTournament(ctx context.Context, tournament *duel.Tournament) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO tournaments (id, name, max_players, starting_life, status, current_round)
		VALUES (:id, :name, :max_players, :starting_life, :status, :current_round)`, tournament)
	return err
}

func (s *TournamentStore) GetTournament(ctx context.Context, id uuid.UUID) (*duel.Tournament, error) {
	var tournament duel.Tournament
	err := s.db.GetContext(ctx, &tournament, "SELECT * FROM tournaments WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &tournament, nil
}

func (s *TournamentStore) GetTournamentTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*duel.Tournament, error) {
	var tournament duel.Tournament
	err := tx.GetContext(ctx, &tournament, "SELECT * FROM tournaments WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &tournament, nil
}

// GetLatestTournament returns the most recently created tournament.
func (s *TournamentStore) GetLatestTournament(ctx context.Context) (*duel.Tournament, error) {
	var tournament duel.Tournament
	err := s.db.GetContext(ctx, &tournament, "SELECT * FROM tournaments ORDER BY created_at DESC, id DESC LIMIT 1")
	if err != nil {
		return nil, err
	}
	return &tournament, nil
}

func (s *TournamentStore) ListTournaments(ctx context.Context) ([]duel.Tournament, error) {
	var tournaments []duel.Tournament
	err := s.db.SelectContext(ctx, &tournaments, "SELECT * FROM tournaments ORDER BY created_at DESC, id DESC")
	return tournaments, err
}

func (s *TournamentStore) UpdateTournamentProgress(ctx context.Context, tx *sqlx.Tx, tournament *duel.Tournament) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE tournaments SET status = :status, current_round = :current_round, completed_at = :completed_at
		WHERE id = :id`, tournament)
	return err
}

// DeleteTournament removes a tournament; players, rounds, matches and match
// events cascade through foreign keys.
func (s *TournamentStore) DeleteTournament(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM tournaments WHERE id = ?", id)
	return err
}

func (s *TournamentStore) CreatePlayer(ctx context.Context, player *duel.Player) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO players (id, tournament_id, name, avatar_path, colors)
		VALUES (:id, :tournament_id, :name, :avatar_path, :colors)`, player)
	return err
}

func (s *TournamentStore) GetPlayer(ctx context.Context, id uuid.UUID) (*duel.Player, error) {
	var player duel.Player
	err := s.db.GetContext(ctx, &player, "SELECT * FROM players WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *TournamentStore) ListPlayers(ctx context.Context, tournamentID uuid.UUID) ([]duel.Player, error) {
	var players []duel.Player
	err := s.db.SelectContext(ctx, &players, "SELECT * FROM players WHERE tournament_id = ? ORDER BY joined_at ASC, id ASC", tournamentID)
	return players, err
}

func (s *TournamentStore) CountPlayers(ctx context.Context, tournamentID uuid.UUID) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM players WHERE tournament_id = ?", tournamentID)
	return count, err
}

func (s *TournamentStore) PlayerNameTaken(ctx context.Context, tournamentID uuid.UUID, name string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM players WHERE tournament_id = ? AND name = ?", tournamentID, name)
	return count > 0, err
}

func (s *TournamentStore) UpdatePlayer(ctx context.Context, player *duel.Player) error {
	_, err := s.db.NamedExecContext(ctx, `UPDATE players SET name = :name, avatar_path = :avatar_path, colors = :colors
		WHERE id = :id`, player)
	return err
}

func (s *TournamentStore) CreateRound(ctx context.Context, tx *sqlx.Tx, round *duel.Round) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO rounds (id, tournament_id, round_number, status, started_at)
		VALUES (:id, :tournament_id, :round_number, :status, :started_at)`, round)
	return err
}

func (s *TournamentStore) GetRound(ctx context.Context, id uuid.UUID) (*duel.Round, error) {
	var round duel.Round
	err := s.db.GetContext(ctx, &round, "SELECT * FROM rounds WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &round, nil
}

func (s *TournamentStore) GetRoundTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*duel.Round, error) {
	var round duel.Round
	err := tx.GetContext(ctx, &round, "SELECT * FROM rounds WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &round, nil
}

func (s *TournamentStore) GetRoundByNumber(ctx context.Context, tournamentID uuid.UUID, roundNumber int) (*duel.Round, error) {
	var round duel.Round
	err := s.db.GetContext(ctx, &round, "SELECT * FROM rounds WHERE tournament_id = ? AND round_number = ?", tournamentID, roundNumber)
	if err != nil {
		return nil, err
	}
	return &round, nil
}

func (s *TournamentStore) GetRoundByNumberTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID, roundNumber int) (*duel.Round, error) {
	var round duel.Round
	err := tx.GetContext(ctx, &round, "SELECT * FROM rounds WHERE tournament_id = ? AND round_number = ?", tournamentID, roundNumber)
	if err != nil {
		return nil, err
	}
	return &round, nil
}

func (s *TournamentStore) ListRounds(ctx context.Context, tournamentID uuid.UUID) ([]duel.Round, error) {
	var rounds []duel.Round
	err := s.db.SelectContext(ctx, &rounds, "SELECT * FROM rounds WHERE tournament_id = ? ORDER BY round_number ASC", tournamentID)
	return rounds, err
}

func (s *TournamentStore) CountRounds(ctx context.Context, tournamentID uuid.UUID) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM rounds WHERE tournament_id = ?", tournamentID)
	return count, err
}

// CompleteRound transitions a round to completed with a compare-and-set on
// its status. It reports whether this call performed the transition; a false
// result means another caller already completed the round, and only the
// caller that got true may go on to advance the tournament.
func (s *TournamentStore) CompleteRound(ctx context.Context, tx *sqlx.Tx, roundID uuid.UUID, completedAt time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE rounds SET status = ?, completed_at = ?
		WHERE id = ? AND status != ?`, duel.RoundCompleted, completedAt, roundID, duel.RoundCompleted)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *TournamentStore) StartRound(ctx context.Context, tx *sqlx.Tx, roundID uuid.UUID, startedAt time.Time) error {
	_, err := tx.ExecContext(ctx, "UPDATE rounds SET status = ?, started_at = ? WHERE id = ?",
		duel.RoundInProgress, startedAt, roundID)
	return err
}

func (s *TournamentStore) CreateMatches(ctx context.Context, tx *sqlx.Tx, matches []duel.Match) error {
	if len(matches) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO matches (id, round_id, player1_id, player2_id, status)
		VALUES (:id, :round_id, :player1_id, :player2_id, :status)`, matches)
	return err
}

func (s *TournamentStore) GetMatch(ctx context.Context, id uuid.UUID) (*duel.Match, error) {
	var match duel.Match
	err := s.db.GetContext(ctx, &match, "SELECT * FROM matches WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *TournamentStore) GetMatchTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*duel.Match, error) {
	var match duel.Match
	err := tx.GetContext(ctx, &match, "SELECT * FROM matches WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *TournamentStore) UpdateMatch(ctx context.Context, tx *sqlx.Tx, match *duel.Match) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE matches SET
		player1_health = :player1_health,
		player2_health = :player2_health,
		winner_id = :winner_id,
		status = :status,
		started_at = :started_at,
		completed_at = :completed_at
		WHERE id = :id`, match)
	return err
}

func (s *TournamentStore) ListMatchesByRound(ctx context.Context, roundID uuid.UUID) ([]duel.Match, error) {
	var matches []duel.Match
	err := s.db.SelectContext(ctx, &matches, "SELECT * FROM matches WHERE round_id = ? ORDER BY created_at ASC, id ASC", roundID)
	return matches, err
}

func (s *TournamentStore) CountIncompleteMatchesTx(ctx context.Context, tx *sqlx.Tx, roundID uuid.UUID) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM matches WHERE round_id = ? AND status != ?",
		roundID, duel.MatchCompleted)
	return count, err
}

// ListCompletedMatches returns every completed match across all rounds of a
// tournament, the input for standings computation.
func (s *TournamentStore) ListCompletedMatches(ctx context.Context, tournamentID uuid.UUID) ([]duel.Match, error) {
	var matches []duel.Match
	err := s.db.SelectContext(ctx, &matches, `SELECT m.* FROM matches m
		JOIN rounds r ON r.id = m.round_id
		WHERE r.tournament_id = ? AND m.status = ?`, tournamentID, duel.MatchCompleted)
	return matches, err
}

// FindMatchForPlayer returns the player's match within a round, or
// sql.ErrNoRows when the player byes that round.
func (s *TournamentStore) FindMatchForPlayer(ctx context.Context, roundID, playerID uuid.UUID) (*duel.Match, error) {
	var match duel.Match
	err := s.db.GetContext(ctx, &match, `SELECT * FROM matches
		WHERE round_id = ? AND (player1_id = ? OR player2_id = ?)`, roundID, playerID, playerID)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *TournamentStore) CreateMatchEvent(ctx context.Context, tx *sqlx.Tx, event *duel.MatchEvent) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO match_events (id, match_id, player_id, event_type, old_value, new_value)
		VALUES (:id, :match_id, :player_id, :event_type, :old_value, :new_value)`, event)
	return err
}

func (s *TournamentStore) ListMatchEvents(ctx context.Context, matchID uuid.UUID) ([]duel.MatchEvent, error) {
	var events []duel.MatchEvent
	// rowid preserves insertion order; created_at only has second resolution
	err := s.db.SelectContext(ctx, &events, "SELECT * FROM match_events WHERE match_id = ? ORDER BY rowid ASC", matchID)
	return events, err
}
