package postgres

import "ghostpool/internal/storage"

// NewJournal wires a PostgreSQL-backed journal. Snapshots are analytics data
// and stay nil here; production wires them to ClickHouse separately.
func NewJournal(pool *Pool) *storage.Journal {
	return &storage.Journal{
		Scans:    NewScanRecordStore(pool),
		Deaths:   NewDeathRecordStore(pool),
		Cascades: NewCascadeRecordStore(pool),
		Culls:    NewCullRecordStore(pool),
		Resets:   NewResetEventStore(pool),
		Boosts:   NewBoostGrantStore(pool),
	}
}
