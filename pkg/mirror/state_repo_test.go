package mirror

import (
	"context"
	"testing"
	"time"

	"github.com/calmirror/calmirror/internal/test_utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStateRepoTest(t *testing.T) (*StateRepoImpl, context.Context) {
	db := test_utils.SetupTestDB(t)
	seedSubscriptionRow(t, db, 1)
	return NewStateRepo(db), context.Background()
}

func TestStateRepoImpl_GetAbsentReturnsZeroState(t *testing.T) {
	repo, ctx := setupStateRepoTest(t)

	state, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, state.SubscriptionID)
	assert.Empty(t, state.SyncToken)
	assert.Empty(t, state.LastStatus)
	assert.True(t, state.LastRunAt.IsZero())
}

func TestStateRepoImpl_SetAndClearSyncToken(t *testing.T) {
	repo, ctx := setupStateRepoTest(t)

	require.NoError(t, repo.SetSyncToken(ctx, 1, "token-1"))

	state, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "token-1", state.SyncToken)

	require.NoError(t, repo.SetSyncToken(ctx, 1, "token-2"))
	state, err = repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "token-2", state.SyncToken)

	require.NoError(t, repo.ClearSyncToken(ctx, 1))
	state, err = repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, state.SyncToken)
}

func TestStateRepoImpl_RecordRunKeepsSyncToken(t *testing.T) {
	repo, ctx := setupStateRepoTest(t)

	require.NoError(t, repo.SetSyncToken(ctx, 1, "token-1"))

	runAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordRun(ctx, 1, StatusOK, runAt))

	state, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "token-1", state.SyncToken)
	assert.Equal(t, StatusOK, state.LastStatus)
	assert.Equal(t, runAt.Unix(), state.LastRunAt.Unix())
}

func TestStateRepoImpl_RecordRunWithoutPriorState(t *testing.T) {
	repo, ctx := setupStateRepoTest(t)

	runAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordRun(ctx, 1, StatusError, runAt))

	state, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusError, state.LastStatus)
	assert.Empty(t, state.SyncToken)
}
