package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-quake-feed/internal/models"
)

func setupTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(":memory:")
	require.NoError(t, err, "failed to create test db")
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mag(m float64) *float64 { return &m }

func TestSQLiteDB_SaveAndLoad(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	fetchedAt := time.UnixMilli(1_700_000_000_123).UTC()
	snap := &models.Snapshot{
		SourceKey: "all_day",
		RequestID: "req-1",
		FetchedAt: fetchedAt,
		Events: []models.EarthquakeEvent{
			{ID: "us1", Magnitude: mag(5.2), Place: "Tokyo", TimeMillis: 1000, DepthKm: 10, Longitude: 139.7, Latitude: 35.7, DetailURL: "https://example.test/us1"},
			{ID: "nc2", Place: "", TimeMillis: 2000, DetailURL: "#"},
		},
	}
	require.NoError(t, db.SaveSnapshot(ctx, snap))

	got, err := db.LatestSnapshot(ctx, "all_day")
	require.NoError(t, err)
	assert.Equal(t, snap, got)
	assert.Nil(t, got.Events[1].Magnitude)
}

func TestSQLiteDB_SaveReplaces(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := &models.Snapshot{SourceKey: "all_hour", RequestID: "a", FetchedAt: time.UnixMilli(1000).UTC(),
		Events: []models.EarthquakeEvent{{ID: "old", DetailURL: "#"}}}
	second := &models.Snapshot{SourceKey: "all_hour", RequestID: "b", FetchedAt: time.UnixMilli(2000).UTC(),
		Events: []models.EarthquakeEvent{{ID: "new1", DetailURL: "#"}, {ID: "new2", DetailURL: "#"}}}

	require.NoError(t, db.SaveSnapshot(ctx, first))
	require.NoError(t, db.SaveSnapshot(ctx, second))

	got, err := db.LatestSnapshot(ctx, "all_hour")
	require.NoError(t, err)
	assert.Equal(t, "b", got.RequestID)
	require.Len(t, got.Events, 2)
	assert.Equal(t, "new1", got.Events[0].ID)
}

func TestSQLiteDB_OlderSnapshotDoesNotReplaceNewer(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	newer := &models.Snapshot{SourceKey: "all_week", RequestID: "newer", FetchedAt: time.UnixMilli(5000).UTC()}
	older := &models.Snapshot{SourceKey: "all_week", RequestID: "older", FetchedAt: time.UnixMilli(4000).UTC()}

	require.NoError(t, db.SaveSnapshot(ctx, newer))
	require.NoError(t, db.SaveSnapshot(ctx, older))

	got, err := db.LatestSnapshot(ctx, "all_week")
	require.NoError(t, err)
	assert.Equal(t, "newer", got.RequestID)
}

func TestSQLiteDB_FeedsAreIndependent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveSnapshot(ctx, &models.Snapshot{SourceKey: "all_day", RequestID: "d", FetchedAt: time.UnixMilli(1).UTC()}))

	_, err := db.LatestSnapshot(ctx, "all_week")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := db.LatestSnapshot(ctx, "all_day")
	require.NoError(t, err)
	assert.Empty(t, got.Events)
}

func TestSQLiteDB_ContextCancelled(t *testing.T) {
	db := setupTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := db.SaveSnapshot(ctx, &models.Snapshot{SourceKey: "all_day", FetchedAt: time.Now()})
	assert.Error(t, err)
}
