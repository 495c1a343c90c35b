package postgres

import (
	"context"
	"fmt"

	"ghostpool/internal/domain"
	"ghostpool/internal/storage"
)

// CascadeRecordStore implements storage.CascadeRecordStore using PostgreSQL.
type CascadeRecordStore struct {
	pool *Pool
}

// NewCascadeRecordStore creates a new CascadeRecordStore.
func NewCascadeRecordStore(pool *Pool) *CascadeRecordStore {
	return &CascadeRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CascadeRecordStore = (*CascadeRecordStore)(nil)

// Insert adds a cascade record. Returns ErrDuplicateKey if it exists.
func (s *CascadeRecordStore) Insert(ctx context.Context, r *domain.CascadeRecord) error {
	if r == nil || r.RecordID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO cascade_records (
			record_id, source_level, scan_id, total_dead, same_level,
			upstream, burned, treasury, recorded_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RecordID,
		r.SourceLevel,
		r.ScanID,
		r.TotalDead,
		r.SameLevel,
		r.Upstream,
		r.Burned,
		r.Treasury,
		r.RecordedAt,
		r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert cascade record: %w", err)
	}
	return nil
}

// GetBySourceLevel retrieves cascades originating at a level, ordered by
// recorded_at ASC.
func (s *CascadeRecordStore) GetBySourceLevel(ctx context.Context, level int) ([]*domain.CascadeRecord, error) {
	query := `
		SELECT record_id, source_level, scan_id, total_dead, same_level,
		       upstream, burned, treasury, recorded_at, created_at
		FROM cascade_records
		WHERE source_level = $1
		ORDER BY recorded_at ASC, record_id ASC
	`

	rows, err := s.pool.Query(ctx, query, level)
	if err != nil {
		return nil, fmt.Errorf("get cascade records by source level: %w", err)
	}
	defer rows.Close()

	var records []*domain.CascadeRecord
	for rows.Next() {
		var r domain.CascadeRecord

		err := rows.Scan(
			&r.RecordID,
			&r.SourceLevel,
			&r.ScanID,
			&r.TotalDead,
			&r.SameLevel,
			&r.Upstream,
			&r.Burned,
			&r.Treasury,
			&r.RecordedAt,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cascade record row: %w", err)
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cascade record rows: %w", err)
	}

	return records, nil
}
