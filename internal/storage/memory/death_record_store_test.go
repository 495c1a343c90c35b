package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghostpool/internal/domain"
	"ghostpool/internal/idhash"
	"ghostpool/internal/storage"
)

func deathRecord(level int, scanID int64, user string, recordedAt int64) *domain.DeathRecord {
	return &domain.DeathRecord{
		RecordID:   idhash.ComputeDeathRecordID(level, scanID, user),
		Level:      level,
		ScanID:     scanID,
		User:       user,
		Amount:     100,
		RollBps:    1200,
		RateBps:    2500,
		RecordedAt: recordedAt,
	}
}

func TestDeathRecordStore_InsertBulkAndGetByScan(t *testing.T) {
	ctx := context.Background()
	s := NewDeathRecordStore()

	batch := []*domain.DeathRecord{
		deathRecord(3, 1, "carol", 30),
		deathRecord(3, 1, "alice", 10),
		deathRecord(3, 2, "bob", 20),
	}
	require.NoError(t, s.InsertBulk(ctx, batch))

	got, err := s.GetByScan(ctx, 3, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alice", got[0].User)
	assert.Equal(t, "carol", got[1].User)
}

func TestDeathRecordStore_BulkIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewDeathRecordStore()

	require.NoError(t, s.InsertBulk(ctx, []*domain.DeathRecord{deathRecord(1, 1, "alice", 1)}))

	// Batch containing one duplicate must not apply its fresh entries.
	err := s.InsertBulk(ctx, []*domain.DeathRecord{
		deathRecord(1, 1, "bob", 2),
		deathRecord(1, 1, "alice", 3),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := s.GetByScan(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].User)
}

func TestDeathRecordStore_IntraBatchDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewDeathRecordStore()

	err := s.InsertBulk(ctx, []*domain.DeathRecord{
		deathRecord(1, 1, "alice", 1),
		deathRecord(1, 1, "alice", 2),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := s.GetByScan(ctx, 1, 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeathRecordStore_GetByUser(t *testing.T) {
	ctx := context.Background()
	s := NewDeathRecordStore()

	require.NoError(t, s.InsertBulk(ctx, []*domain.DeathRecord{
		deathRecord(2, 5, "alice", 50),
		deathRecord(1, 1, "alice", 10),
		deathRecord(1, 1, "bob", 10),
	}))

	got, err := s.GetByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(10), got[0].RecordedAt)
	assert.Equal(t, int64(50), got[1].RecordedAt)
}

func TestDeathRecordStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewDeathRecordStore()

	require.NoError(t, s.InsertBulk(ctx, []*domain.DeathRecord{deathRecord(1, 1, "alice", 1)}))

	got, err := s.GetByScan(ctx, 1, 1)
	require.NoError(t, err)
	got[0].Amount = 999

	again, err := s.GetByScan(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), again[0].Amount)
}
