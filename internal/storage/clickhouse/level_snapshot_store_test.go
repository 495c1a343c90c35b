package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghostpool/internal/domain"
	"ghostpool/internal/storage"
)

func testSnapshot(level int, scanID, timestampMs int64) *domain.LevelSnapshot {
	return &domain.LevelSnapshot{
		Level:              level,
		ScanID:             scanID,
		TimestampMs:        timestampMs,
		TotalStaked:        50_000,
		AliveCount:         20,
		AccRewardsPerShare: 123_456_789,
		TotalDead:          5_000,
		DeathCount:         3,
	}
}

func TestLevelSnapshotStore_InsertBulkAndGetByLevel(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLevelSnapshotStore(conn)
	ctx := context.Background()

	points := []*domain.LevelSnapshot{
		testSnapshot(3, 2, 2_000),
		testSnapshot(3, 1, 1_000),
		testSnapshot(4, 1, 1_500),
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	retrieved, err := store.GetByLevel(ctx, 3)
	require.NoError(t, err)
	require.Len(t, retrieved, 2)

	assert.Equal(t, int64(1_000), retrieved[0].TimestampMs)
	assert.Equal(t, int64(2_000), retrieved[1].TimestampMs)
	assert.Equal(t, int64(50_000), retrieved[0].TotalStaked)
	assert.Equal(t, 20, retrieved[0].AliveCount)
	assert.Equal(t, int64(123_456_789), retrieved[0].AccRewardsPerShare)
	assert.Equal(t, 3, retrieved[0].DeathCount)
}

func TestLevelSnapshotStore_DuplicateDetection(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLevelSnapshotStore(conn)
	ctx := context.Background()

	// Intra-batch duplicate on (level, scan_id).
	err := store.InsertBulk(ctx, []*domain.LevelSnapshot{
		testSnapshot(3, 1, 1_000),
		testSnapshot(3, 1, 2_000),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	require.NoError(t, store.InsertBulk(ctx, []*domain.LevelSnapshot{
		testSnapshot(3, 1, 1_000),
	}))

	// Duplicate against an existing row.
	err = store.InsertBulk(ctx, []*domain.LevelSnapshot{
		testSnapshot(3, 1, 3_000),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestLevelSnapshotStore_InsertBulkEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLevelSnapshotStore(conn)
	require.NoError(t, store.InsertBulk(context.Background(), nil))
}
