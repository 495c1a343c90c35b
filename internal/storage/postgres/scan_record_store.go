package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ghostpool/internal/domain"
	"ghostpool/internal/storage"
)

// ScanRecordStore implements storage.ScanRecordStore using PostgreSQL.
type ScanRecordStore struct {
	pool *Pool
}

// NewScanRecordStore creates a new ScanRecordStore.
func NewScanRecordStore(pool *Pool) *ScanRecordStore {
	return &ScanRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScanRecordStore = (*ScanRecordStore)(nil)

// Insert adds a finalized scan record. Returns ErrDuplicateKey if the
// (level, scan_id) record exists.
func (s *ScanRecordStore) Insert(ctx context.Context, r *domain.ScanRecord) error {
	if r == nil || r.RecordID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO scan_records (
			record_id, level, scan_id, seed, executed_at_ms, finalized_at_ms,
			total_dead, death_count, survivors, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RecordID,
		r.Level,
		r.ScanID,
		r.Seed,
		r.ExecutedAtMs,
		r.FinalizedAtMs,
		r.TotalDead,
		r.DeathCount,
		r.Survivors,
		r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert scan record: %w", err)
	}
	return nil
}

// GetByLevel retrieves all records for a level, ordered by scan_id ASC.
func (s *ScanRecordStore) GetByLevel(ctx context.Context, level int) ([]*domain.ScanRecord, error) {
	query := `
		SELECT record_id, level, scan_id, seed, executed_at_ms, finalized_at_ms,
		       total_dead, death_count, survivors, created_at
		FROM scan_records
		WHERE level = $1
		ORDER BY scan_id ASC
	`

	rows, err := s.pool.Query(ctx, query, level)
	if err != nil {
		return nil, fmt.Errorf("get scan records by level: %w", err)
	}
	defer rows.Close()

	return scanScanRecords(rows)
}

// GetByID retrieves one record. Returns ErrNotFound if not exists.
func (s *ScanRecordStore) GetByID(ctx context.Context, recordID string) (*domain.ScanRecord, error) {
	query := `
		SELECT record_id, level, scan_id, seed, executed_at_ms, finalized_at_ms,
		       total_dead, death_count, survivors, created_at
		FROM scan_records
		WHERE record_id = $1
	`

	var r domain.ScanRecord
	err := s.pool.QueryRow(ctx, query, recordID).Scan(
		&r.RecordID,
		&r.Level,
		&r.ScanID,
		&r.Seed,
		&r.ExecutedAtMs,
		&r.FinalizedAtMs,
		&r.TotalDead,
		&r.DeathCount,
		&r.Survivors,
		&r.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get scan record by id: %w", err)
	}
	return &r, nil
}

// scanScanRecords scans multiple rows into a slice of ScanRecord.
func scanScanRecords(rows pgx.Rows) ([]*domain.ScanRecord, error) {
	var records []*domain.ScanRecord

	for rows.Next() {
		var r domain.ScanRecord

		err := rows.Scan(
			&r.RecordID,
			&r.Level,
			&r.ScanID,
			&r.Seed,
			&r.ExecutedAtMs,
			&r.FinalizedAtMs,
			&r.TotalDead,
			&r.DeathCount,
			&r.Survivors,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan scan record row: %w", err)
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scan record rows: %w", err)
	}

	return records, nil
}
