package memory

import (
	"context"
	"sort"
	"sync"

	"ghostpool/internal/domain"
	"ghostpool/internal/storage"
)

// CascadeRecordStore is an in-memory implementation of storage.CascadeRecordStore.
type CascadeRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CascadeRecord // keyed by record_id
}

// NewCascadeRecordStore creates a new in-memory cascade record store.
func NewCascadeRecordStore() *CascadeRecordStore {
	return &CascadeRecordStore{
		data: make(map[string]*domain.CascadeRecord),
	}
}

// Insert adds a cascade record. Returns ErrDuplicateKey if it exists.
func (s *CascadeRecordStore) Insert(_ context.Context, r *domain.CascadeRecord) error {
	if r == nil || r.RecordID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RecordID]; exists {
		return storage.ErrDuplicateKey
	}

	recordCopy := *r
	s.data[r.RecordID] = &recordCopy
	return nil
}

// GetBySourceLevel retrieves cascades originating at a level, ordered by
// recorded_at ASC.
func (s *CascadeRecordStore) GetBySourceLevel(_ context.Context, level int) ([]*domain.CascadeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CascadeRecord
	for _, r := range s.data {
		if r.SourceLevel == level {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RecordedAt < result[j].RecordedAt
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.CascadeRecordStore = (*CascadeRecordStore)(nil)
