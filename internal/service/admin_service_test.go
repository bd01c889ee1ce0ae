package service

import (
	"context"
	"testing"

	"github.com/duelcircle/duelcircle/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminLogin(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	admin := NewAdminService(store.NewAdminStore(db))
	ctx := context.Background()

	err := admin.Login(ctx, "hunter2")
	assert.ErrorIs(t, err, ErrAdminNotSetUp)

	require.NoError(t, admin.EnsureAdmin(ctx, "hunter2"))

	assert.NoError(t, admin.Login(ctx, "hunter2"))
	assert.ErrorIs(t, admin.Login(ctx, "wrong"), ErrInvalidPassword)

	// The first configured password sticks
	require.NoError(t, admin.EnsureAdmin(ctx, "changed"))
	assert.NoError(t, admin.Login(ctx, "hunter2"))
	assert.ErrorIs(t, admin.Login(ctx, "changed"), ErrInvalidPassword)
}
