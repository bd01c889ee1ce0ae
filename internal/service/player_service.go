package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/duelcircle/duelcircle/internal/duel"
	"github.com/duelcircle/duelcircle/internal/store"
	"github.com/duelcircle/duelcircle/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PlayerService struct {
	db    *sqlx.DB
	store *store.TournamentStore
}

func NewPlayerService(db *sqlx.DB, store *store.TournamentStore) *PlayerService {
	return &PlayerService{db: db, store: store}
}

// Join registers a player into a tournament still in its registration phase.
// Names are unique per tournament.
func (s *PlayerService) Join(ctx context.Context, tournamentID uuid.UUID, name string, avatarPath *string, colors []string) (*duel.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	tournament, err := s.store.GetTournament(ctx, tournamentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTournamentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	if tournament.Status != duel.TournamentRegistration {
		return nil, ErrRegistrationClosed
	}

	count, err := s.store.CountPlayers(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count players: %w", err)
	}
	if count >= tournament.MaxPlayers {
		return nil, ErrTournamentFull
	}

	taken, err := s.store.PlayerNameTaken(ctx, tournamentID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check player name: %w", err)
	}
	if taken {
		return nil, ErrPlayerNameTaken
	}

	player := &duel.Player{
		ID:           uuid.New(),
		TournamentID: tournamentID,
		Name:         name,
		AvatarPath:   utils.StringOrNil(utils.OrZero(avatarPath)),
		Colors:       encodeColors(colors),
	}
	if err := s.store.CreatePlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return player, nil
}

func (s *PlayerService) Get(ctx context.Context, playerID uuid.UUID) (*duel.Player, error) {
	player, err := s.store.GetPlayer(ctx, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

type PlayerProfile struct {
	PlayerID     uuid.UUID `json:"player_id"`
	TournamentID uuid.UUID `json:"tournament_id"`
	Name         string    `json:"name"`
	AvatarURL    *string   `json:"avatar_url"`
	Colors       []string  `json:"colors"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
}

func (s *PlayerService) Profile(ctx context.Context, playerID uuid.UUID) (*PlayerProfile, error) {
	player, err := s.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}

	completed, err := s.store.ListCompletedMatches(ctx, player.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed matches: %w", err)
	}

	wins, participated := 0, 0
	for _, m := range completed {
		if m.Player1ID != player.ID && m.Player2ID != player.ID {
			continue
		}
		participated++
		if m.WinnerID != nil && *m.WinnerID == player.ID {
			wins++
		}
	}

	return &PlayerProfile{
		PlayerID:     player.ID,
		TournamentID: player.TournamentID,
		Name:         player.Name,
		AvatarURL:    avatarURL(player.AvatarPath),
		Colors:       parseColors(player.Colors),
		Wins:         wins,
		Losses:       participated - wins,
	}, nil
}

func (s *PlayerService) UpdateProfile(ctx context.Context, playerID uuid.UUID, name string, avatarPath *string, colors []string) (*duel.Player, error) {
	player, err := s.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if name != player.Name {
		taken, err := s.store.PlayerNameTaken(ctx, player.TournamentID, name)
		if err != nil {
			return nil, fmt.Errorf("failed to check player name: %w", err)
		}
		if taken {
			return nil, ErrPlayerNameTaken
		}
	}

	player.Name = name
	if avatarPath != nil {
		player.AvatarPath = utils.StringOrNil(*avatarPath)
	}
	if colors != nil {
		player.Colors = encodeColors(colors)
	}

	if err := s.store.UpdatePlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}
	return player, nil
}

type PlayerRoundMatch struct {
	RoundNumber int              `json:"round_number"`
	RoundStatus duel.RoundStatus `json:"round_status"`

	// MatchID is nil when the player sits out this round on a bye. The
	// opponent's life total is deliberately absent; only the dashboard
	// shows both sides.
	MatchID      *uuid.UUID        `json:"match_id"`
	OpponentID   *uuid.UUID        `json:"opponent_id"`
	OpponentName *string           `json:"opponent_name"`
	YourHealth   *int              `json:"your_health"`
	Status       *duel.MatchStatus `json:"status"`
	WinnerID     *uuid.UUID        `json:"winner_id"`
}

// Matches returns the player's schedule round by round, byes included.
func (s *PlayerService) Matches(ctx context.Context, playerID uuid.UUID) ([]PlayerRoundMatch, error) {
	player, err := s.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}

	rounds, err := s.store.ListRounds(ctx, player.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	players, err := s.store.ListPlayers(ctx, player.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	names := make(map[uuid.UUID]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
	}

	result := make([]PlayerRoundMatch, 0, len(rounds))
	for _, round := range rounds {
		entry := PlayerRoundMatch{
			RoundNumber: round.RoundNumber,
			RoundStatus: round.Status,
		}

		match, err := s.store.FindMatchForPlayer(ctx, round.ID, player.ID)
		if errors.Is(err, sql.ErrNoRows) {
			result = append(result, entry)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to find match for round %d: %w", round.RoundNumber, err)
		}

		slot, _ := match.SlotOf(player.ID)
		opponentID, _ := match.Opponent(player.ID)
		opponentName := names[opponentID]

		id := match.ID
		opp := opponentID
		status := match.Status
		entry.MatchID = &id
		entry.OpponentID = &opp
		entry.OpponentName = &opponentName
		entry.YourHealth = match.HealthOf(slot)
		entry.Status = &status
		entry.WinnerID = match.WinnerID

		result = append(result, entry)
	}

	return result, nil
}

// avatarURL maps a stored avatar path to its public URL. Absolute URLs are
// passed through untouched.
func avatarURL(path *string) *string {
	if path == nil {
		return nil
	}
	if strings.HasPrefix(*path, "http") {
		return path
	}
	url := "/uploads/avatars/" + *path
	return &url
}

func parseColors(raw *string) []string {
	if raw == nil {
		return nil
	}
	var colors []string
	if err := json.Unmarshal([]byte(*raw), &colors); err != nil {
		return nil
	}
	return colors
}

func encodeColors(colors []string) *string {
	if len(colors) == 0 {
		return nil
	}
	encoded, err := json.Marshal(colors)
	if err != nil {
		return nil
	}
	s := string(encoded)
	return &s
}
