package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghostpool/internal/domain"
	"ghostpool/internal/idhash"
	"ghostpool/internal/storage"
)

func TestCascadeRecordStore_InsertAndGetBySourceLevel(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCascadeRecordStore(pool)
	ctx := context.Background()

	record := &domain.CascadeRecord{
		RecordID:    idhash.ComputeCascadeRecordID(3, 7, "scan"),
		SourceLevel: 3,
		ScanID:      7,
		TotalDead:   10_000,
		SameLevel:   3_000,
		Upstream:    3_000,
		Burned:      3_000,
		Treasury:    1_000,
		RecordedAt:  1_700_000_000_000,
	}
	require.NoError(t, store.Insert(ctx, record))
	assert.ErrorIs(t, store.Insert(ctx, record), storage.ErrDuplicateKey)

	records, err := store.GetBySourceLevel(ctx, 3)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(3_000), records[0].SameLevel)
	assert.Equal(t, int64(1_000), records[0].Treasury)
}

func TestCullRecordStore_InsertAndGetByEntrant(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCullRecordStore(pool)
	ctx := context.Background()

	record := &domain.CullRecord{
		RecordID:   idhash.ComputeCullRecordID(4, "victim", "entrant", 1_700_000_000_000),
		Level:      4,
		Victim:     "victim",
		Entrant:    "entrant",
		Stake:      1_000,
		Penalty:    800,
		Returned:   200,
		RecordedAt: 1_700_000_000_000,
	}
	require.NoError(t, store.Insert(ctx, record))
	assert.ErrorIs(t, store.Insert(ctx, record), storage.ErrDuplicateKey)

	records, err := store.GetByEntrant(ctx, "entrant")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "victim", records[0].Victim)
	assert.Equal(t, int64(800), records[0].Penalty)

	none, err := store.GetByEntrant(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestResetEventStore_InsertAndGetAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewResetEventStore(pool)
	ctx := context.Background()

	for _, epoch := range []int64{2, 1} {
		require.NoError(t, store.Insert(ctx, &domain.ResetEvent{
			EventID:     idhash.ComputeResetEventID(epoch),
			Epoch:       epoch,
			FiredAtMs:   1_700_000_000_000 + epoch,
			TriggeredBy: "watcher",
			TVL:         100_000,
			PenaltyBps:  500,
			Jackpot:     2_500,
			JackpotTo:   "alice",
			Burned:      1_500,
			Treasury:    1_000,
		}))
	}

	// Same epoch under a different event id still violates uniqueness.
	err := store.Insert(ctx, &domain.ResetEvent{
		EventID: "different-id",
		Epoch:   1,
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	events, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].Epoch)
	assert.Equal(t, int64(2), events[1].Epoch)
}

func TestBoostGrantStore_NonceUniquePerUser(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBoostGrantStore(pool)
	ctx := context.Background()

	grant := &domain.BoostGrantRecord{
		RecordID:   idhash.ComputeBoostGrantID("alice", "nonce-1"),
		User:       "alice",
		Kind:       domain.BoostDeathRate,
		ValueBps:   500,
		ExpiryMs:   1_700_000_060_000,
		Nonce:      "nonce-1",
		RecordedAt: 1_700_000_000_000,
	}
	require.NoError(t, store.Insert(ctx, grant))
	assert.ErrorIs(t, store.Insert(ctx, grant), storage.ErrDuplicateKey)

	// The same nonce is fine for a different user.
	other := &domain.BoostGrantRecord{
		RecordID:   idhash.ComputeBoostGrantID("bob", "nonce-1"),
		User:       "bob",
		Kind:       domain.BoostYield,
		ValueBps:   1_000,
		ExpiryMs:   1_700_000_060_000,
		Nonce:      "nonce-1",
		RecordedAt: 1_700_000_001_000,
	}
	require.NoError(t, store.Insert(ctx, other))

	grants, err := store.GetByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, domain.BoostDeathRate, grants[0].Kind)
	assert.Equal(t, int64(500), grants[0].ValueBps)
}
