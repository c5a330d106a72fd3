package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docbase/internal/gateway/domain/model"
	"docbase/internal/gateway/domain/repository"
	"docbase/internal/gateway/usecase"
	"docbase/internal/shared/errors"
	"docbase/internal/shared/logger"
)

func newUsageLogger(store *fakeUsageStore, cache *fakeRollupCache) *usecase.UsageLogger {
	// Avoid wrapping a nil *fakeRollupCache in a non-nil interface value.
	var c repository.RollupCache
	if cache != nil {
		c = cache
	}
	return usecase.NewUsageLogger(store, c, time.Minute, logger.NewLogger(), nil)
}

func TestWindowRange(t *testing.T) {
	// A Wednesday mid-month, mid-day.
	at := time.Date(2024, time.March, 13, 15, 4, 5, 0, time.UTC)

	cases := []struct {
		window model.RollupWindow
		start  time.Time
		end    time.Time
	}{
		{
			window: model.RollupDaily,
			start:  time.Date(2024, time.March, 13, 0, 0, 0, 0, time.UTC),
			end:    time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			window: model.RollupWeekly,
			start:  time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC), // Monday
			end:    time.Date(2024, time.March, 18, 0, 0, 0, 0, time.UTC),
		},
		{
			window: model.RollupMonthly,
			start:  time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			end:    time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		t.Run(string(tc.window), func(t *testing.T) {
			start, end, err := usecase.WindowRange(tc.window, at)
			require.NoError(t, err)
			assert.Equal(t, tc.start, start)
			assert.Equal(t, tc.end, end)
		})
	}

	_, _, err := usecase.WindowRange(model.RollupWindow("hourly"), at)
	assert.True(t, errors.IsValidation(err))
}

func TestWindowRange_SundayBelongsToPrecedingWeek(t *testing.T) {
	sunday := time.Date(2024, time.March, 17, 23, 59, 59, 0, time.UTC)
	start, end, err := usecase.WindowRange(model.RollupWeekly, sunday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, time.March, 18, 0, 0, 0, 0, time.UTC), end)
}

func TestRollup_HalfOpenWindow(t *testing.T) {
	store := &fakeUsageStore{}
	u := newUsageLogger(store, nil)

	dayStart := time.Date(2024, time.March, 13, 0, 0, 0, 0, time.UTC)
	nextDay := dayStart.AddDate(0, 0, 1)

	// One entry exactly at the window start, one just inside the end, and one
	// exactly at the end boundary which belongs to the next day only.
	store.entries = []*model.OperationLogEntry{
		{TenantID: "acme", OperationType: model.OperationWrite, ResourceType: model.ResourceDocument, Count: 5, CreatedAt: dayStart},
		{TenantID: "acme", OperationType: model.OperationWrite, ResourceType: model.ResourceDocument, Count: 2, CreatedAt: nextDay.Add(-time.Nanosecond)},
		{TenantID: "acme", OperationType: model.OperationWrite, ResourceType: model.ResourceDocument, Count: 100, CreatedAt: nextDay},
	}

	day1, err := u.Rollup(context.Background(), "acme", model.RollupDaily, dayStart.Add(12*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(7), day1.RecordsAdded)

	day2, err := u.Rollup(context.Background(), "acme", model.RollupDaily, nextDay.Add(12*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(100), day2.RecordsAdded)

	// No entry is counted twice across adjacent windows.
	assert.Equal(t, int64(107), day1.RecordsAdded+day2.RecordsAdded)
}

func TestRollup_SeparatesOperationTypes(t *testing.T) {
	store := &fakeUsageStore{}
	u := newUsageLogger(store, nil)
	now := time.Date(2024, time.March, 13, 10, 0, 0, 0, time.UTC)

	store.entries = []*model.OperationLogEntry{
		{TenantID: "acme", OperationType: model.OperationWrite, ResourceType: model.ResourceDocument, Count: 4, CreatedAt: now},
		{TenantID: "acme", OperationType: model.OperationDelete, ResourceType: model.ResourceDocument, Count: 1, CreatedAt: now},
		{TenantID: "acme", OperationType: model.OperationRead, ResourceType: model.ResourceDocument, Count: 9, CreatedAt: now},
		// Collection-level traffic does not count as document records.
		{TenantID: "acme", OperationType: model.OperationWrite, ResourceType: model.ResourceCollection, Count: 3, CreatedAt: now},
		// Other tenants are invisible.
		{TenantID: "globex", OperationType: model.OperationWrite, ResourceType: model.ResourceDocument, Count: 50, CreatedAt: now},
	}

	rollup, err := u.Rollup(context.Background(), "acme", model.RollupDaily, now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), rollup.RecordsAdded)
	assert.Equal(t, int64(1), rollup.RecordsRemoved)
	assert.Equal(t, int64(9), rollup.RecordsRead)
}

func TestRollup_UsesCache(t *testing.T) {
	store := &fakeUsageStore{}
	cache := newFakeRollupCache()
	u := newUsageLogger(store, cache)
	now := time.Date(2024, time.March, 13, 10, 0, 0, 0, time.UTC)

	store.entries = []*model.OperationLogEntry{
		{TenantID: "acme", OperationType: model.OperationWrite, ResourceType: model.ResourceDocument, Count: 4, CreatedAt: now},
	}

	first, err := u.Rollup(context.Background(), "acme", model.RollupDaily, now)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	// Entries appended after the cache fill are not reflected until expiry.
	store.entries = append(store.entries, &model.OperationLogEntry{
		TenantID: "acme", OperationType: model.OperationWrite, ResourceType: model.ResourceDocument, Count: 10, CreatedAt: now,
	})
	second, err := u.Rollup(context.Background(), "acme", model.RollupDaily, now)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.RecordsAdded, second.RecordsAdded)
}

func TestLog_SwallowsAppendFailure(t *testing.T) {
	store := &fakeUsageStore{failAppend: errors.NewUpstreamStoreError("log store down")}
	u := newUsageLogger(store, nil)

	// Must not panic or surface the error to the caller.
	u.Log(context.Background(), "acme", model.OperationWrite, model.ResourceDocument, "d1", 3)
	assert.Empty(t, store.entries)
}

func TestLog_SkipsNonPositiveCounts(t *testing.T) {
	store := &fakeUsageStore{}
	u := newUsageLogger(store, nil)

	u.Log(context.Background(), "acme", model.OperationRead, model.ResourceDocument, "d1", 0)
	u.Log(context.Background(), "acme", model.OperationRead, model.ResourceDocument, "d1", -4)
	assert.Empty(t, store.entries)

	u.Log(context.Background(), "acme", model.OperationRead, model.ResourceDocument, "d1", 1)
	require.Len(t, store.entries, 1)
	assert.Equal(t, int64(1), store.entries[0].Count)
	assert.False(t, store.entries[0].CreatedAt.IsZero())
}

func TestAggregate_Validation(t *testing.T) {
	store := &fakeUsageStore{}
	u := newUsageLogger(store, nil)
	now := time.Now().UTC()

	_, err := u.Aggregate(context.Background(), "acme", model.OperationType("SCAN"), model.ResourceAny, now.Add(-time.Hour), now)
	assert.True(t, errors.IsValidation(err))

	_, err = u.Aggregate(context.Background(), "acme", model.OperationRead, model.ResourceAny, now, now)
	assert.True(t, errors.IsValidation(err), "empty window is rejected")
}

func TestGatewayUsage_DefaultsToNow(t *testing.T) {
	env := newTestEnv()
	db := env.mustCreateDatabase(t, "acme", "crm", "users")
	seedDocuments(t, env, db.ID, "users", 5)

	rollup, err := env.gw.Usage(context.Background(), "acme", usecase.UsageRequest{Window: model.RollupDaily})
	require.NoError(t, err)
	assert.Equal(t, int64(5), rollup.RecordsAdded)
	assert.Equal(t, "acme", rollup.TenantID)
	assert.True(t, rollup.End.After(rollup.Start))
}
