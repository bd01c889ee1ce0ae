package service

import (
	"context"
	"testing"

	"github.com/duelcircle/duelcircle/internal/duel"
	"github.com/duelcircle/duelcircle/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerProfile(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	tournament, err := env.tournaments.Create(ctx, "Profile Test", 8, 20)
	require.NoError(t, err)

	player, err := env.players.Join(ctx, tournament.ID, "Alice", utils.Ptr("alice.png"), []string{"W", "U"})
	require.NoError(t, err)
	_, err = env.players.Join(ctx, tournament.ID, "Bob", nil, nil)
	require.NoError(t, err)

	profile, err := env.players.Profile(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.Name)
	require.NotNil(t, profile.AvatarURL)
	assert.Equal(t, "/uploads/avatars/alice.png", *profile.AvatarURL)
	assert.Equal(t, []string{"W", "U"}, profile.Colors)
	assert.Equal(t, 0, profile.Wins)
	assert.Equal(t, 0, profile.Losses)

	_, err = env.players.Profile(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestUpdateProfile(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	tournament, err := env.tournaments.Create(ctx, "Profile Test", 8, 20)
	require.NoError(t, err)
	player, err := env.players.Join(ctx, tournament.ID, "Alice", nil, nil)
	require.NoError(t, err)
	_, err = env.players.Join(ctx, tournament.ID, "Bob", nil, nil)
	require.NoError(t, err)

	// Keeping your own name is allowed, taking someone else's is not
	_, err = env.players.UpdateProfile(ctx, player.ID, "Alice", nil, []string{"R"})
	require.NoError(t, err)
	_, err = env.players.UpdateProfile(ctx, player.ID, "Bob", nil, nil)
	assert.ErrorIs(t, err, ErrPlayerNameTaken)
	_, err = env.players.UpdateProfile(ctx, player.ID, "  ", nil, nil)
	assert.ErrorIs(t, err, ErrNameRequired)

	updated, err := env.players.UpdateProfile(ctx, player.ID, "Alicia", utils.Ptr("new.png"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", updated.Name)

	profile, err := env.players.Profile(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", profile.Name)
	require.NotNil(t, profile.AvatarURL)
	assert.Equal(t, "/uploads/avatars/new.png", *profile.AvatarURL)
	assert.Equal(t, []string{"R"}, profile.Colors, "colors survive an update that omits them")
}

func TestPlayerMatchesWithBye(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	tournamentID, playerIDs := newTournamentWithPlayers(t, env, 3, 20)

	_, err := env.tournaments.GenerateSchedule(ctx, tournamentID)
	require.NoError(t, err)

	// 3 players, so 3 rounds with one bye each
	matches, err := env.players.Matches(ctx, playerIDs[0])
	require.NoError(t, err)
	require.Len(t, matches, 3)

	byes := 0
	for _, m := range matches {
		if m.MatchID == nil {
			byes++
			assert.Nil(t, m.OpponentID)
			continue
		}
		require.NotNil(t, m.OpponentID)
		assert.NotEqual(t, playerIDs[0], *m.OpponentID)
		require.NotNil(t, m.Status)
		assert.Equal(t, duel.MatchPending, *m.Status)
	}
	assert.Equal(t, 1, byes)
}

// The per-player schedule shows the player's own total only; the opponent's
// life never leaves the dashboard view.
func TestPlayerMatchesOmitOpponentHealth(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	tournamentID, playerIDs := newTournamentWithPlayers(t, env, 2, 20)
	_, err := env.tournaments.GenerateSchedule(ctx, tournamentID)
	require.NoError(t, err)

	round, err := env.store.GetRoundByNumber(ctx, tournamentID, 1)
	require.NoError(t, err)
	match, err := env.store.FindMatchForPlayer(ctx, round.ID, playerIDs[0])
	require.NoError(t, err)
	_, err = env.matches.Join(ctx, match.ID, playerIDs[0])
	require.NoError(t, err)
	_, err = env.matches.Join(ctx, match.ID, playerIDs[1])
	require.NoError(t, err)
	_, err = env.matches.AdjustHealth(ctx, match.ID, playerIDs[1], -6)
	require.NoError(t, err)

	matches, err := env.players.Matches(ctx, playerIDs[0])
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.NotNil(t, matches[0].YourHealth)
	assert.Equal(t, 20, *matches[0].YourHealth)

	fields := jsonFields(t, matches[0])
	assert.NotContains(t, fields, "opponent_health")
	assert.EqualValues(t, 20, fields["your_health"])
}

func TestProfileCountsWinsAndLosses(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	tournamentID, playerIDs := newTournamentWithPlayers(t, env, 2, 20)
	_, err := env.tournaments.GenerateSchedule(ctx, tournamentID)
	require.NoError(t, err)

	round, err := env.store.GetRoundByNumber(ctx, tournamentID, 1)
	require.NoError(t, err)
	match, err := env.store.FindMatchForPlayer(ctx, round.ID, playerIDs[0])
	require.NoError(t, err)

	_, err = env.matches.SetResult(ctx, match.ID, playerIDs[0])
	require.NoError(t, err)

	winner, err := env.players.Profile(ctx, playerIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 1, winner.Wins)
	assert.Equal(t, 0, winner.Losses)

	loser, err := env.players.Profile(ctx, playerIDs[1])
	require.NoError(t, err)
	assert.Equal(t, 0, loser.Wins)
	assert.Equal(t, 1, loser.Losses)
}
