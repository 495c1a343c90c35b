package memory

import (
	"context"
	"sort"
	"sync"

	"ghostpool/internal/domain"
	"ghostpool/internal/storage"
)

// DeathRecordStore is an in-memory implementation of storage.DeathRecordStore.
type DeathRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DeathRecord // keyed by record_id
}

// NewDeathRecordStore creates a new in-memory death record store.
func NewDeathRecordStore() *DeathRecordStore {
	return &DeathRecordStore{
		data: make(map[string]*domain.DeathRecord),
	}
}

// InsertBulk adds all deaths of one submission atomically.
// Fails the entire batch on any duplicate.
func (s *DeathRecordStore) InsertBulk(_ context.Context, records []*domain.DeathRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if r == nil || r.RecordID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before applying any of it
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, exists := s.data[r.RecordID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, dup := seen[r.RecordID]; dup {
			return storage.ErrDuplicateKey
		}
		seen[r.RecordID] = struct{}{}
	}

	for _, r := range records {
		recordCopy := *r
		s.data[r.RecordID] = &recordCopy
	}
	return nil
}

// GetByScan retrieves all deaths of one scan, ordered by user ASC.
func (s *DeathRecordStore) GetByScan(_ context.Context, level int, scanID int64) ([]*domain.DeathRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DeathRecord
	for _, r := range s.data {
		if r.Level == level && r.ScanID == scanID {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].User < result[j].User
	})

	return result, nil
}

// GetByUser retrieves a user's deaths, ordered by recorded_at ASC.
func (s *DeathRecordStore) GetByUser(_ context.Context, user string) ([]*domain.DeathRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DeathRecord
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
var _ storage.DeathRecordStore = (*DeathRecordStore)(nil)
