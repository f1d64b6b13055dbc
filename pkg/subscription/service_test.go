package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/calmirror/calmirror/internal/utils"
	"github.com/calmirror/calmirror/pkg/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCursorStore struct {
	cleared []int
}

func (r *recordingCursorStore) ClearSyncToken(_ context.Context, subscriptionID int) error {
	r.cleared = append(r.cleared, subscriptionID)
	return nil
}

type recordingMappingWiper struct {
	wiped []int
}

func (r *recordingMappingWiper) DeleteBySubscription(_ context.Context, subscriptionID int) error {
	r.wiped = append(r.wiped, subscriptionID)
	return nil
}

type serviceFixture struct {
	service *ServiceImpl
	repo    *StubRepository
	cursors *recordingCursorStore
	wiper   *recordingMappingWiper
}

func setupService(t *testing.T) (serviceFixture, context.Context) {
	t.Helper()
	repo := NewStubRepository()
	cursors := &recordingCursorStore{}
	wiper := &recordingMappingWiper{}
	clock := &utils.MockClock{FixedNow: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	return serviceFixture{
		service: NewService(repo, cursors, wiper, clock),
		repo:    repo,
		cursors: cursors,
		wiper:   wiper,
	}, context.Background()
}

func serviceTestSub() Subscription {
	return Subscription{
		SourceCalendarID: "src@example.com",
		TargetCalendarID: "dst@example.com",
		Filter:           FilterRule{Kind: filter.KindKeywords, Pattern: "lecture"},
		Enabled:          true,
	}
}

func TestServiceImpl_Create(t *testing.T) {
	f, ctx := setupService(t)

	created, err := f.service.Create(ctx, 1, serviceTestSub())
	require.NoError(t, err)
	assert.Equal(t, 1, created.ID)
	assert.Equal(t, 1, created.ProfileID)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), created.CreatedAt)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
}

func TestServiceImpl_CreateRejectsInvalidFilter(t *testing.T) {
	f, ctx := setupService(t)

	sub := serviceTestSub()
	sub.Filter = FilterRule{Kind: filter.KindRegex, Pattern: "("}
	_, err := f.service.Create(ctx, 1, sub)
	assert.ErrorContains(t, err, "invalid filter")
}

func TestServiceImpl_CreateRejectsSameCalendar(t *testing.T) {
	f, ctx := setupService(t)

	sub := serviceTestSub()
	sub.TargetCalendarID = sub.SourceCalendarID
	_, err := f.service.Create(ctx, 1, sub)
	assert.ErrorContains(t, err, "must differ")
}

func TestServiceImpl_UpdateFilterClearsCursor(t *testing.T) {
	f, ctx := setupService(t)

	created, err := f.service.Create(ctx, 1, serviceTestSub())
	require.NoError(t, err)

	created.Filter.Pattern = "seminar"
	_, err = f.service.Update(ctx, 1, created)
	require.NoError(t, err)

	assert.Equal(t, []int{created.ID}, f.cursors.cleared)
	// The filter changed but the target calendar did not, so the prune pass
	// can retire stale copies through the existing mappings.
	assert.Empty(t, f.wiper.wiped)
}

func TestServiceImpl_UpdateTargetCalendarWipesMappings(t *testing.T) {
	f, ctx := setupService(t)

	created, err := f.service.Create(ctx, 1, serviceTestSub())
	require.NoError(t, err)

	created.TargetCalendarID = "archive@example.com"
	_, err = f.service.Update(ctx, 1, created)
	require.NoError(t, err)

	assert.Equal(t, []int{created.ID}, f.cursors.cleared)
	assert.Equal(t, []int{created.ID}, f.wiper.wiped)
}

func TestServiceImpl_UpdateWithoutScopeChangeKeepsCursor(t *testing.T) {
	f, ctx := setupService(t)

	created, err := f.service.Create(ctx, 1, serviceTestSub())
	require.NoError(t, err)

	_, err = f.service.Update(ctx, 1, created)
	require.NoError(t, err)

	assert.Empty(t, f.cursors.cleared)
	assert.Empty(t, f.wiper.wiped)
}

func TestServiceImpl_UpdateUnknownSubscription(t *testing.T) {
	f, ctx := setupService(t)

	sub := serviceTestSub()
	sub.ID = 42
	_, err := f.service.Update(ctx, 1, sub)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestServiceImpl_SetEnabled(t *testing.T) {
	f, ctx := setupService(t)

	created, err := f.service.Create(ctx, 1, serviceTestSub())
	require.NoError(t, err)

	updated, err := f.service.SetEnabled(ctx, 1, created.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.Enabled)

	stored, err := f.repo.GetByID(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.False(t, stored.Enabled)
}

func TestServiceImpl_DeleteWipesState(t *testing.T) {
	f, ctx := setupService(t)

	created, err := f.service.Create(ctx, 1, serviceTestSub())
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(ctx, 1, created.ID))

	assert.Equal(t, []int{created.ID}, f.wiper.wiped)
	assert.Equal(t, []int{created.ID}, f.cursors.cleared)
	_, err = f.repo.GetByID(ctx, 1, created.ID)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}
