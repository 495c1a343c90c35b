package postgres

import (
	"context"
	"fmt"

	"ghostpool/internal/domain"
	"ghostpool/internal/storage"
)

// BoostGrantStore implements storage.BoostGrantStore using PostgreSQL.
type BoostGrantStore struct {
	pool *Pool
}

// NewBoostGrantStore creates a new BoostGrantStore.
func NewBoostGrantStore(pool *Pool) *BoostGrantStore {
	return &BoostGrantStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BoostGrantStore = (*BoostGrantStore)(nil)

// Insert adds a grant record. Returns ErrDuplicateKey if the nonce was
// already recorded for the user.
func (s *BoostGrantStore) Insert(ctx context.Context, r *domain.BoostGrantRecord) error {
	if r == nil || r.RecordID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO boost_grants (
			record_id, user_id, kind, value_bps, expiry_ms, nonce,
			recorded_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RecordID,
		r.User,
		string(r.Kind),
		r.ValueBps,
		r.ExpiryMs,
		r.Nonce,
		r.RecordedAt,
		r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert boost grant: %w", err)
	}
	return nil
}

// GetByUser retrieves a user's grants, ordered by recorded_at ASC.
func (s *BoostGrantStore) GetByUser(ctx context.Context, user string) ([]*domain.BoostGrantRecord, error) {
	query := `
		SELECT record_id, user_id, kind, value_bps, expiry_ms, nonce,
		       recorded_at, created_at
		FROM boost_grants
		WHERE user_id = $1
		ORDER BY recorded_at ASC
	`

	rows, err := s.pool.Query(ctx, query, user)
	if err != nil {
		return nil, fmt.Errorf("get boost grants by user: %w", err)
	}
	defer rows.Close()

	var records []*domain.BoostGrantRecord
	for rows.Next() {
		var r domain.BoostGrantRecord
		var kind string

		err := rows.Scan(
			&r.RecordID,
			&r.User,
			&kind,
			&r.ValueBps,
			&r.ExpiryMs,
			&r.Nonce,
			&r.RecordedAt,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan boost grant row: %w", err)
		}

		r.Kind = domain.BoostKind(kind)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boost grant rows: %w", err)
	}

	return records, nil
}
