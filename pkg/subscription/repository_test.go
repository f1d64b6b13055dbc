package subscription

import (
	"context"
	"database/sql"
	"strconv"
	"testing"
	"time"

	"github.com/calmirror/calmirror/internal/test_utils"
	"github.com/calmirror/calmirror/pkg/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProfileRow(t *testing.T, db *sql.DB, id int) {
	t.Helper()
	_, err := db.Exec("INSERT INTO profile (id, uid, display_name) VALUES (?, ?, 'Test Profile')", id, "profile-"+strconv.Itoa(id))
	require.NoError(t, err)
}

func setupRepositoryTest(t *testing.T) (*RepositoryImpl, context.Context) {
	db := test_utils.SetupTestDB(t)
	seedProfileRow(t, db, 1)
	seedProfileRow(t, db, 2)
	return NewRepository(db), context.Background()
}

func testSub() Subscription {
	now := time.Unix(1750000000, 0)
	return Subscription{
		SourceCalendarID: "src@example.com",
		TargetCalendarID: "dst@example.com",
		Filter:           FilterRule{Kind: filter.KindKeywords, Pattern: "lecture, seminar"},
		Enabled:          true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestRepositoryImpl_StoreAndGet(t *testing.T) {
	repo, ctx := setupRepositoryTest(t)

	sub := testSub()
	id, err := repo.Store(ctx, 1, sub)
	require.NoError(t, err)
	assert.Greater(t, id, 0)

	stored, err := repo.GetByID(ctx, 1, id)
	require.NoError(t, err)
	assert.Equal(t, id, stored.ID)
	assert.Equal(t, 1, stored.ProfileID)
	assert.Equal(t, sub.SourceCalendarID, stored.SourceCalendarID)
	assert.Equal(t, sub.TargetCalendarID, stored.TargetCalendarID)
	assert.Equal(t, sub.Filter, stored.Filter)
	assert.True(t, stored.Enabled)
	assert.Equal(t, sub.CreatedAt.Unix(), stored.CreatedAt.Unix())
}

func TestRepositoryImpl_GetScopedToProfile(t *testing.T) {
	repo, ctx := setupRepositoryTest(t)

	id, err := repo.Store(ctx, 1, testSub())
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, 2, id)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestRepositoryImpl_ListByProfile(t *testing.T) {
	repo, ctx := setupRepositoryTest(t)

	first := testSub()
	second := testSub()
	second.SourceCalendarID = "other@example.com"
	_, err := repo.Store(ctx, 1, first)
	require.NoError(t, err)
	_, err = repo.Store(ctx, 1, second)
	require.NoError(t, err)
	_, err = repo.Store(ctx, 2, testSub())
	require.NoError(t, err)

	subs, err := repo.ListByProfile(ctx, 1)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "src@example.com", subs[0].SourceCalendarID)
	assert.Equal(t, "other@example.com", subs[1].SourceCalendarID)
}

func TestRepositoryImpl_ListEnabled(t *testing.T) {
	repo, ctx := setupRepositoryTest(t)

	enabled := testSub()
	disabled := testSub()
	disabled.Enabled = false
	enabledID, err := repo.Store(ctx, 1, enabled)
	require.NoError(t, err)
	_, err = repo.Store(ctx, 2, disabled)
	require.NoError(t, err)

	subs, err := repo.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, enabledID, subs[0].ID)
}

func TestRepositoryImpl_Update(t *testing.T) {
	repo, ctx := setupRepositoryTest(t)

	sub := testSub()
	id, err := repo.Store(ctx, 1, sub)
	require.NoError(t, err)

	sub.ID = id
	sub.Filter = FilterRule{Kind: filter.KindRegex, Pattern: `^math \d+$`}
	sub.Enabled = false
	sub.UpdatedAt = sub.UpdatedAt.Add(time.Hour)
	updated, err := repo.Update(ctx, 1, sub)
	require.NoError(t, err)
	assert.True(t, updated)

	stored, err := repo.GetByID(ctx, 1, id)
	require.NoError(t, err)
	assert.Equal(t, sub.Filter, stored.Filter)
	assert.False(t, stored.Enabled)
	assert.Equal(t, sub.UpdatedAt.Unix(), stored.UpdatedAt.Unix())
}

func TestRepositoryImpl_UpdateWrongProfile(t *testing.T) {
	repo, ctx := setupRepositoryTest(t)

	sub := testSub()
	id, err := repo.Store(ctx, 1, sub)
	require.NoError(t, err)
	sub.ID = id

	updated, err := repo.Update(ctx, 2, sub)
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestRepositoryImpl_Delete(t *testing.T) {
	repo, ctx := setupRepositoryTest(t)

	id, err := repo.Store(ctx, 1, testSub())
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, 1, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = repo.GetByID(ctx, 1, id)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)

	deleted, err = repo.Delete(ctx, 1, id)
	require.NoError(t, err)
	assert.False(t, deleted)
}
