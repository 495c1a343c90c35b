package postgres

import (
	"context"
	"fmt"

	"ghostpool/internal/domain"
	"ghostpool/internal/storage"
)

// ResetEventStore implements storage.ResetEventStore using PostgreSQL.
type ResetEventStore struct {
	pool *Pool
}

// NewResetEventStore creates a new ResetEventStore.
func NewResetEventStore(pool *Pool) *ResetEventStore {
	return &ResetEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ResetEventStore = (*ResetEventStore)(nil)

// Insert adds a reset event. Returns ErrDuplicateKey if the epoch exists.
func (s *ResetEventStore) Insert(ctx context.Context, e *domain.ResetEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO reset_events (
			event_id, epoch, fired_at_ms, triggered_by, tvl, penalty_bps,
			jackpot, jackpot_to, burned, treasury, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		e.EventID,
		e.Epoch,
		e.FiredAtMs,
		e.TriggeredBy,
		e.TVL,
		e.PenaltyBps,
		e.Jackpot,
		e.JackpotTo,
		e.Burned,
		e.Treasury,
		e.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert reset event: %w", err)
	}
	return nil
}

// GetAll retrieves all reset events, ordered by epoch ASC.
func (s *ResetEventStore) GetAll(ctx context.Context) ([]*domain.ResetEvent, error) {
	query := `
		SELECT event_id, epoch, fired_at_ms, triggered_by, tvl, penalty_bps,
		       jackpot, jackpot_to, burned, treasury, created_at
		FROM reset_events
		ORDER BY epoch ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get reset events: %w", err)
	}
	defer rows.Close()

	var events []*domain.ResetEvent
	for rows.Next() {
		var e domain.ResetEvent

		err := rows.Scan(
			&e.EventID,
			&e.Epoch,
			&e.FiredAtMs,
			&e.TriggeredBy,
			&e.TVL,
			&e.PenaltyBps,
			&e.Jackpot,
			&e.JackpotTo,
			&e.Burned,
			&e.Treasury,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan reset event row: %w", err)
		}

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reset event rows: %w", err)
	}

	return events, nil
}
