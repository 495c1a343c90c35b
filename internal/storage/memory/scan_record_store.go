package memory

import (
	"context"
	"sort"
	"sync"

	"ghostpool/internal/domain"
	"ghostpool/internal/storage"
)

// ScanRecordStore is an in-memory implementation of storage.ScanRecordStore.
type ScanRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ScanRecord // keyed by record_id
}

// NewScanRecordStore creates a new in-memory scan record store.
func NewScanRecordStore() *ScanRecordStore {
	return &ScanRecordStore{
		data: make(map[string]*domain.ScanRecord),
	}
}

// Insert adds a finalized scan record. Returns ErrDuplicateKey if it exists.
func (s *ScanRecordStore) Insert(_ context.Context, r *domain.ScanRecord) error {
	if r == nil || r.RecordID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RecordID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	recordCopy := *r
	s.data[r.RecordID] = &recordCopy
	return nil
}

// GetByLevel retrieves all records for a level, ordered by scan_id ASC.
func (s *ScanRecordStore) GetByLevel(_ context.Context, level int) ([]*domain.ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScanRecord
	for _, r := range s.data {
		if r.Level == level {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ScanID < result[j].ScanID
	})

	return result, nil
}

// GetByID retrieves one record. Returns ErrNotFound if not exists.
func (s *ScanRecordStore) GetByID(_ context.Context, recordID string) (*domain.ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[recordID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recordCopy := *r
	return &recordCopy, nil
}

// Verify interface compliance at compile time.
var _ storage.ScanRecordStore = (*ScanRecordStore)(nil)
