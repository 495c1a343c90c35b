// Package storage defines the append-only audit journal behind the
// settlement engine. The live ledger is engine memory; these stores make the
// settlement history durable and queryable. Every record id is deterministic
// (see internal/idhash), so a retried write after an external failure hits
// ErrDuplicateKey instead of duplicating the row.
package storage

import (
	"context"

	"ghostpool/internal/domain"
)

// ScanRecordStore persists finalized scans.
type ScanRecordStore interface {
	// Insert adds a finalized scan record. Returns ErrDuplicateKey if the
	// (level, scan_id) record exists.
	Insert(ctx context.Context, r *domain.ScanRecord) error

	// GetByLevel retrieves all records for a level, ordered by scan_id ASC.
	GetByLevel(ctx context.Context, level int) ([]*domain.ScanRecord, error)

	// GetByID retrieves one record. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, recordID string) (*domain.ScanRecord, error)
}

// DeathRecordStore persists verified deaths.
type DeathRecordStore interface {
	// InsertBulk adds all deaths of one submission atomically. Fails the
	// entire batch on any duplicate.
	InsertBulk(ctx context.Context, records []*domain.DeathRecord) error

	// GetByScan retrieves all deaths of one scan, ordered by user ASC.
	GetByScan(ctx context.Context, level int, scanID int64) ([]*domain.DeathRecord, error)

	// GetByUser retrieves a user's deaths, ordered by recorded_at ASC.
	GetByUser(ctx context.Context, user string) ([]*domain.DeathRecord, error)
}

// CascadeRecordStore persists dead-pool distributions, including the
// synthetic cascades produced by capacity culls.
type CascadeRecordStore interface {
	// Insert adds a cascade record. Returns ErrDuplicateKey if it exists.
	Insert(ctx context.Context, r *domain.CascadeRecord) error

	// GetBySourceLevel retrieves cascades originating at a level, ordered
	// by recorded_at ASC.
	GetBySourceLevel(ctx context.Context, level int) ([]*domain.CascadeRecord, error)
}

// CullRecordStore persists capacity evictions.
type CullRecordStore interface {
	// Insert adds a cull record. Returns ErrDuplicateKey if it exists.
	Insert(ctx context.Context, r *domain.CullRecord) error

	// GetByEntrant retrieves culls attributed to an entrant.
	GetByEntrant(ctx context.Context, entrant string) ([]*domain.CullRecord, error)
}

// ResetEventStore persists fired system resets.
type ResetEventStore interface {
	// Insert adds a reset event. Returns ErrDuplicateKey if the epoch exists.
	Insert(ctx context.Context, e *domain.ResetEvent) error

	// GetAll retrieves all reset events, ordered by epoch ASC.
	GetAll(ctx context.Context) ([]*domain.ResetEvent, error)
}

// BoostGrantStore persists accepted boost grants.
type BoostGrantStore interface {
	// Insert adds a grant record. Returns ErrDuplicateKey if the nonce
	// was already recorded for the user.
	Insert(ctx context.Context, r *domain.BoostGrantRecord) error

	// GetByUser retrieves a user's grants, ordered by recorded_at ASC.
	GetByUser(ctx context.Context, user string) ([]*domain.BoostGrantRecord, error)
}

// LevelSnapshotStore persists per-finalize level state timeseries points.
// Analytics only; backed by ClickHouse in production.
type LevelSnapshotStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate
	// (level, scan_id).
	InsertBulk(ctx context.Context, points []*domain.LevelSnapshot) error

	// GetByLevel retrieves all points for a level, ordered by timestamp ASC.
	GetByLevel(ctx context.Context, level int) ([]*domain.LevelSnapshot, error)
}

// Journal bundles every store the engine writes to.
type Journal struct {
	Scans     ScanRecordStore
	Deaths    DeathRecordStore
	Cascades  CascadeRecordStore
	Culls     CullRecordStore
	Resets    ResetEventStore
	Boosts    BoostGrantStore
	Snapshots LevelSnapshotStore
}
