package memory

import (
	"context"
	"sort"
	"sync"

	"ghostpool/internal/domain"
	"ghostpool/internal/storage"
)

// CullRecordStore is an in-memory implementation of storage.CullRecordStore.
type CullRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CullRecord // keyed by record_id
}

// NewCullRecordStore creates a new in-memory cull record store.
func NewCullRecordStore() *CullRecordStore {
	return &CullRecordStore{
		data: make(map[string]*domain.CullRecord),
	}
}

// Insert adds a cull record. Returns ErrDuplicateKey if it exists.
func (s *CullRecordStore) Insert(_ context.Context, r *domain.CullRecord) error {
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

// GetByEntrant retrieves culls attributed to an entrant.
func (s *CullRecordStore) GetByEntrant(_ context.Context, entrant string) ([]*domain.CullRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CullRecord
	for _, r := range s.data {
		if r.Entrant == entrant {
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
var _ storage.CullRecordStore = (*CullRecordStore)(nil)
