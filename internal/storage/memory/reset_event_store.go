package memory

import (
	"context"
	"sort"
	"sync"

	"ghostpool/internal/domain"
	"ghostpool/internal/storage"
)

// ResetEventStore is an in-memory implementation of storage.ResetEventStore.
type ResetEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ResetEvent // keyed by event_id
}

// NewResetEventStore creates a new in-memory reset event store.
func NewResetEventStore() *ResetEventStore {
	return &ResetEventStore{
		data: make(map[string]*domain.ResetEvent),
	}
}

// Insert adds a reset event. Returns ErrDuplicateKey if the epoch exists.
func (s *ResetEventStore) Insert(_ context.Context, e *domain.ResetEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.EventID]; exists {
		return storage.ErrDuplicateKey
	}

	eventCopy := *e
	s.data[e.EventID] = &eventCopy
	return nil
}

// GetAll retrieves all reset events, ordered by epoch ASC.
func (s *ResetEventStore) GetAll(_ context.Context) ([]*domain.ResetEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ResetEvent, 0, len(s.data))
	for _, e := range s.data {
		eventCopy := *e
		result = append(result, &eventCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Epoch < result[j].Epoch
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ResetEventStore = (*ResetEventStore)(nil)
