package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/duelcircle/duelcircle/internal/duel"
	"github.com/duelcircle/duelcircle/internal/event"
	"github.com/duelcircle/duelcircle/internal/store"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	database.SetMaxOpenConns(1)

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err, "Failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"sqlite3",
		driver,
	)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to apply migrations")
	}

	return database
}

type testEnv struct {
	db          *sqlx.DB
	store       *store.TournamentStore
	tournaments *TournamentService
	matches     *MatchService
	players     *PlayerService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	tournamentStore := store.NewTournamentStore(db)
	tournaments := NewTournamentService(db, tournamentStore, event.Nop{})
	return &testEnv{
		db:          db,
		store:       tournamentStore,
		tournaments: tournaments,
		matches:     NewMatchService(db, tournamentStore, tournaments, event.Nop{}),
		players:     NewPlayerService(db, tournamentStore),
	}
}

// newTournamentWithPlayers creates a tournament and registers numPlayers
// players named Player 1..n.
func newTournamentWithPlayers(t *testing.T, env *testEnv, numPlayers, startingLife int) (uuid.UUID, []uuid.UUID) {
	t.Helper()

	ctx := context.Background()
	tournament, err := env.tournaments.Create(ctx, "Test Tournament", 16, startingLife)
	require.NoError(t, err)

	playerIDs := make([]uuid.UUID, numPlayers)
	for i := range playerIDs {
		player, err := env.players.Join(ctx, tournament.ID, fmt.Sprintf("Player %d", i+1), nil, nil)
		require.NoError(t, err)
		playerIDs[i] = player.ID
	}
	return tournament.ID, playerIDs
}

func TestCreateTournamentValidation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.tournaments.Create(ctx, "  ", 8, 20)
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = env.tournaments.Create(ctx, "Duel Night", 1, 20)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = env.tournaments.Create(ctx, "Duel Night", 8, 0)
	assert.ErrorIs(t, err, ErrInvalidLife)

	tournament, err := env.tournaments.Create(ctx, "  Duel Night  ", 8, 20)
	require.NoError(t, err)
	assert.Equal(t, "Duel Night", tournament.Name)
	assert.Equal(t, duel.TournamentRegistration, tournament.Status)
	assert.Equal(t, 0, tournament.CurrentRound)
}

func TestGenerateScheduleCreatesFullRoundRobin(t *testing.T) {
	testCases := []struct {
		numPlayers      int
		expectedRounds  int
		expectedMatches int
	}{
		{2, 1, 1},
		{4, 3, 6},
		{5, 5, 10},
		{8, 7, 28},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%d players", tc.numPlayers), func(t *testing.T) {
			env := setupTestEnv(t)
			ctx := context.Background()
			tournamentID, _ := newTournamentWithPlayers(t, env, tc.numPlayers, 20)

			summary, err := env.tournaments.GenerateSchedule(ctx, tournamentID)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedRounds, summary.RoundsCreated)
			assert.Equal(t, tc.expectedMatches, summary.TotalMatches)

			tournament, err := env.tournaments.Get(ctx, tournamentID)
			require.NoError(t, err)
			assert.Equal(t, duel.TournamentInProgress, tournament.Status)
			assert.Equal(t, 1, tournament.CurrentRound)

			rounds, err := env.store.ListRounds(ctx, tournamentID)
			require.NoError(t, err)
			require.Len(t, rounds, tc.expectedRounds)
			assert.Equal(t, duel.RoundInProgress, rounds[0].Status)
			require.NotNil(t, rounds[0].StartedAt)
			for _, round := range rounds[1:] {
				assert.Equal(t, duel.RoundPending, round.Status)
			}
		})
	}
}

func TestGenerateScheduleValidation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	tournamentID, _ := newTournamentWithPlayers(t, env, 1, 20)
	_, err := env.tournaments.GenerateSchedule(ctx, tournamentID)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	_, err = env.players.Join(ctx, tournamentID, "Player 2", nil, nil)
	require.NoError(t, err)
	_, err = env.tournaments.GenerateSchedule(ctx, tournamentID)
	require.NoError(t, err)

	// Rounds are fixed once generated
	_, err = env.tournaments.GenerateSchedule(ctx, tournamentID)
	assert.ErrorIs(t, err, ErrScheduleAlreadyGenerated)

	_, err = env.tournaments.GenerateSchedule(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestPlayerRegistration(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	tournament, err := env.tournaments.Create(ctx, "Small Duel", 2, 20)
	require.NoError(t, err)

	_, err = env.players.Join(ctx, tournament.ID, "Alice", nil, []string{"W", "U"})
	require.NoError(t, err)

	_, err = env.players.Join(ctx, tournament.ID, "Alice", nil, nil)
	assert.ErrorIs(t, err, ErrPlayerNameTaken)

	_, err = env.players.Join(ctx, tournament.ID, "", nil, nil)
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = env.players.Join(ctx, tournament.ID, "Bob", nil, nil)
	require.NoError(t, err)

	_, err = env.players.Join(ctx, tournament.ID, "Carol", nil, nil)
	assert.ErrorIs(t, err, ErrTournamentFull)

	_, err = env.tournaments.GenerateSchedule(ctx, tournament.ID)
	require.NoError(t, err)

	// No late joins once the schedule exists
	_, err = env.players.Join(ctx, uuid.New(), "Dave", nil, nil)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
	_, err = env.players.Join(ctx, tournament.ID, "Dave", nil, nil)
	assert.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestAdvanceRoundManually(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	tournamentID, _ := newTournamentWithPlayers(t, env, 4, 20)

	_, err := env.tournaments.AdvanceRound(ctx, tournamentID)
	assert.ErrorIs(t, err, ErrTournamentNotStarted)

	_, err = env.tournaments.GenerateSchedule(ctx, tournamentID)
	require.NoError(t, err)

	advance, err := env.tournaments.AdvanceRound(ctx, tournamentID)
	require.NoError(t, err)
	assert.Equal(t, 2, advance.CurrentRound)
	assert.Equal(t, duel.TournamentInProgress, advance.Status)

	round1, err := env.store.GetRoundByNumber(ctx, tournamentID, 1)
	require.NoError(t, err)
	assert.Equal(t, duel.RoundCompleted, round1.Status)
	require.NotNil(t, round1.CompletedAt)

	round2, err := env.store.GetRoundByNumber(ctx, tournamentID, 2)
	require.NoError(t, err)
	assert.Equal(t, duel.RoundInProgress, round2.Status)

	advance, err = env.tournaments.AdvanceRound(ctx, tournamentID)
	require.NoError(t, err)
	assert.Equal(t, 3, advance.CurrentRound)

	// Advancing past the final round completes the tournament
	advance, err = env.tournaments.AdvanceRound(ctx, tournamentID)
	require.NoError(t, err)
	assert.Equal(t, duel.TournamentCompleted, advance.Status)

	tournament, err := env.tournaments.Get(ctx, tournamentID)
	require.NoError(t, err)
	assert.Equal(t, duel.TournamentCompleted, tournament.Status)
	require.NotNil(t, tournament.CompletedAt)
}

func TestStandings(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	tournamentID, playerIDs := newTournamentWithPlayers(t, env, 4, 20)

	_, err := env.tournaments.GenerateSchedule(ctx, tournamentID)
	require.NoError(t, err)

	// Player 1 wins every match they play, everyone else loses to them and
	// splits the rest alphabetically.
	for {
		tournament, err := env.tournaments.Get(ctx, tournamentID)
		require.NoError(t, err)
		if tournament.Status == duel.TournamentCompleted {
			break
		}

		round, err := env.store.GetRoundByNumber(ctx, tournamentID, tournament.CurrentRound)
		require.NoError(t, err)
		matches, err := env.store.ListMatchesByRound(ctx, round.ID)
		require.NoError(t, err)

		for _, match := range matches {
			if match.Status == duel.MatchCompleted {
				continue
			}
			winner := match.Player1ID
			if match.Player2ID == playerIDs[0] {
				winner = match.Player2ID
			}
			_, err := env.matches.SetResult(ctx, match.ID, winner)
			require.NoError(t, err)
		}
	}

	standings, err := env.tournaments.Standings(ctx, tournamentID)
	require.NoError(t, err)
	require.Len(t, standings, 4)

	assert.Equal(t, playerIDs[0], standings[0].PlayerID)
	assert.Equal(t, 3, standings[0].Wins)
	assert.Equal(t, 0, standings[0].Losses)
	assert.Equal(t, 9, standings[0].Points)
	assert.Equal(t, 1, standings[0].Rank)

	totalWins := 0
	for i, s := range standings {
		assert.Equal(t, i+1, s.Rank)
		assert.Equal(t, s.Wins*3, s.Points)
		assert.Equal(t, 3, s.Wins+s.Losses, "everyone played 3 matches")
		totalWins += s.Wins
		if i > 0 {
			prev := standings[i-1]
			assert.True(t, prev.Points > s.Points || (prev.Points == s.Points && prev.Name < s.Name),
				"standings must be ordered by points desc, then name")
		}
	}
	assert.Equal(t, 6, totalWins, "every decided match contributes one win")

	// Same input, same order
	again, err := env.tournaments.Standings(ctx, tournamentID)
	require.NoError(t, err)
	assert.Equal(t, standings, again)
}

func TestCurrentAndHistory(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.tournaments.Current(ctx)
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	tournamentID, _ := newTournamentWithPlayers(t, env, 4, 30)
	_, err = env.tournaments.GenerateSchedule(ctx, tournamentID)
	require.NoError(t, err)

	summary, err := env.tournaments.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, tournamentID, summary.TournamentID)
	assert.Equal(t, 1, summary.CurrentRound)
	assert.Equal(t, 3, summary.TotalRounds)
	assert.Equal(t, 4, summary.PlayersCount)
	assert.Equal(t, 30, summary.StartingLife)

	history, err := env.tournaments.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, tournamentID, history[0].TournamentID)
	assert.Equal(t, 4, history[0].PlayersCount)

	require.NoError(t, env.tournaments.Delete(ctx, tournamentID))
	history, err = env.tournaments.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCurrentRoundView(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	tournamentID, playerIDs := newTournamentWithPlayers(t, env, 4, 20)

	_, err := env.tournaments.CurrentRound(ctx, tournamentID)
	assert.ErrorIs(t, err, ErrTournamentNotStarted)

	_, err = env.tournaments.GenerateSchedule(ctx, tournamentID)
	require.NoError(t, err)

	view, err := env.tournaments.CurrentRound(ctx, tournamentID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.RoundNumber)
	assert.Equal(t, duel.RoundInProgress, view.Status)
	require.Len(t, view.Matches, 2)

	seen := make(map[uuid.UUID]bool)
	for _, match := range view.Matches {
		assert.Nil(t, match.Player1.Health, "health unset before joining")
		assert.Nil(t, match.Player2.Health)
		seen[match.Player1.PlayerID] = true
		seen[match.Player2.PlayerID] = true
	}
	for _, id := range playerIDs {
		assert.True(t, seen[id], "every player has a round 1 match")
	}
}
