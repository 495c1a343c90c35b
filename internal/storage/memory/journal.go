package memory

import "ghostpool/internal/storage"

// NewJournal creates a fully in-memory journal.
func NewJournal() *storage.Journal {
	return &storage.Journal{
		Scans:     NewScanRecordStore(),
		Deaths:    NewDeathRecordStore(),
		Cascades:  NewCascadeRecordStore(),
		Culls:     NewCullRecordStore(),
		Resets:    NewResetEventStore(),
		Boosts:    NewBoostGrantStore(),
		Snapshots: NewLevelSnapshotStore(),
	}
}
