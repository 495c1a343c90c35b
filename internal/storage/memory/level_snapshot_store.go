package memory

import (
	"context"
	"sort"
	"sync"

	"ghostpool/internal/domain"
	"ghostpool/internal/storage"
)

// snapshotKey is the uniqueness key of one snapshot point.
type snapshotKey struct {
	level  int
	scanID int64
}

// LevelSnapshotStore is an in-memory implementation of storage.LevelSnapshotStore.
type LevelSnapshotStore struct {
	mu   sync.RWMutex
	data map[snapshotKey]*domain.LevelSnapshot
}

// NewLevelSnapshotStore creates a new in-memory level snapshot store.
func NewLevelSnapshotStore() *LevelSnapshotStore {
	return &LevelSnapshotStore{
		data: make(map[snapshotKey]*domain.LevelSnapshot),
	}
}

// InsertBulk adds multiple points. Fails entire batch on duplicate (level, scan_id).
func (s *LevelSnapshotStore) InsertBulk(_ context.Context, points []*domain.LevelSnapshot) error {
	if len(points) == 0 {
		return nil
	}
	for _, p := range points {
		if p == nil {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before applying any of it
	seen := make(map[snapshotKey]struct{}, len(points))
	for _, p := range points {
		k := snapshotKey{p.Level, p.ScanID}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, p := range points {
		pointCopy := *p
		s.data[snapshotKey{p.Level, p.ScanID}] = &pointCopy
	}
	return nil
}

// GetByLevel retrieves all points for a level, ordered by timestamp ASC.
func (s *LevelSnapshotStore) GetByLevel(_ context.Context, level int) ([]*domain.LevelSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LevelSnapshot
	for _, p := range s.data {
		if p.Level == level {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.LevelSnapshotStore = (*LevelSnapshotStore)(nil)
