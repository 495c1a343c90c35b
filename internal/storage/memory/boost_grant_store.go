package memory

import (
	"context"
	"sort"
	"sync"

	"ghostpool/internal/domain"
	"ghostpool/internal/storage"
)

// BoostGrantStore is an in-memory implementation of storage.BoostGrantStore.
type BoostGrantStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BoostGrantRecord // keyed by record_id
}

// NewBoostGrantStore creates a new in-memory boost grant store.
func NewBoostGrantStore() *BoostGrantStore {
	return &BoostGrantStore{
		data: make(map[string]*domain.BoostGrantRecord),
	}
}

// Insert adds a grant record. Returns ErrDuplicateKey if the nonce was
// already recorded for the user.
func (s *BoostGrantStore) Insert(_ context.Context, r *domain.BoostGrantRecord) error {
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

// GetByUser retrieves a user's grants, ordered by recorded_at ASC.
func (s *BoostGrantStore) GetByUser(_ context.Context, user string) ([]*domain.BoostGrantRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BoostGrantRecord
	for _, r := range s.data {
		if r.User == user {
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
var _ storage.BoostGrantStore = (*BoostGrantStore)(nil)
