package postgres

import (
	"context"
	"fmt"

	"ghostpool/internal/domain"
	"ghostpool/internal/storage"
)

// CullRecordStore implements storage.CullRecordStore using PostgreSQL.
type CullRecordStore struct {
	pool *Pool
}

// NewCullRecordStore creates a new CullRecordStore.
func NewCullRecordStore(pool *Pool) *CullRecordStore {
	return &CullRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CullRecordStore = (*CullRecordStore)(nil)

// Insert adds a cull record. Returns ErrDuplicateKey if it exists.
func (s *CullRecordStore) Insert(ctx context.Context, r *domain.CullRecord) error {
	if r == nil || r.RecordID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO cull_records (
			record_id, level, victim, entrant, stake, penalty, returned,
			recorded_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RecordID,
		r.Level,
		r.Victim,
		r.Entrant,
		r.Stake,
		r.Penalty,
		r.Returned,
		r.RecordedAt,
		r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert cull record: %w", err)
	}
	return nil
}

// GetByEntrant retrieves culls attributed to an entrant.
func (s *CullRecordStore) GetByEntrant(ctx context.Context, entrant string) ([]*domain.CullRecord, error) {
	query := `
		SELECT record_id, level, victim, entrant, stake, penalty, returned,
		       recorded_at, created_at
		FROM cull_records
		WHERE entrant = $1
		ORDER BY recorded_at ASC
	`

	rows, err := s.pool.Query(ctx, query, entrant)
	if err != nil {
		return nil, fmt.Errorf("get cull records by entrant: %w", err)
	}
	defer rows.Close()

	var records []*domain.CullRecord
	for rows.Next() {
		var r domain.CullRecord

		err := rows.Scan(
			&r.RecordID,
			&r.Level,
			&r.Victim,
			&r.Entrant,
			&r.Stake,
			&r.Penalty,
			&r.Returned,
			&r.RecordedAt,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cull record row: %w", err)
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cull record rows: %w", err)
	}

	return records, nil
}
