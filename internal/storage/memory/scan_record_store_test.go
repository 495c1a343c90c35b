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

func scanRecord(level int, scanID int64) *domain.ScanRecord {
	return &domain.ScanRecord{
		RecordID:      idhash.ComputeScanRecordID(level, scanID),
		Level:         level,
		ScanID:        scanID,
		Seed:          "seed",
		ExecutedAtMs:  1000,
		FinalizedAtMs: 2000,
		TotalDead:     500,
		DeathCount:    3,
		Survivors:     7,
	}
}

func TestScanRecordStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewScanRecordStore()

	r := scanRecord(2, 1)
	require.NoError(t, s.Insert(ctx, r))

	got, err := s.GetByID(ctx, r.RecordID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.TotalDead)

	// Duplicate (level, scan_id) rejected
	assert.ErrorIs(t, s.Insert(ctx, scanRecord(2, 1)), storage.ErrDuplicateKey)
}

func TestScanRecordStore_GetByLevelOrdered(t *testing.T) {
	ctx := context.Background()
	s := NewScanRecordStore()

	require.NoError(t, s.Insert(ctx, scanRecord(1, 3)))
	require.NoError(t, s.Insert(ctx, scanRecord(1, 1)))
	require.NoError(t, s.Insert(ctx, scanRecord(2, 2)))

	got, err := s.GetByLevel(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ScanID)
	assert.Equal(t, int64(3), got[1].ScanID)
}

func TestScanRecordStore_NotFound(t *testing.T) {
	s := NewScanRecordStore()

	_, err := s.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestScanRecordStore_InvalidInput(t *testing.T) {
	s := NewScanRecordStore()

	assert.ErrorIs(t, s.Insert(context.Background(), nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, s.Insert(context.Background(), &domain.ScanRecord{}), storage.ErrInvalidInput)
}
