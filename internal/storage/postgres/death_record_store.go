package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ghostpool/internal/domain"
	"ghostpool/internal/storage"
)

// DeathRecordStore implements storage.DeathRecordStore using PostgreSQL.
type DeathRecordStore struct {
	pool *Pool
}

// NewDeathRecordStore creates a new DeathRecordStore.
func NewDeathRecordStore(pool *Pool) *DeathRecordStore {
	return &DeathRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DeathRecordStore = (*DeathRecordStore)(nil)

const deathRecordColumns = `
	record_id, level, scan_id, user_id, amount, roll_bps, rate_bps,
	submitted_by, recorded_at, created_at
`

// InsertBulk adds all deaths of one submission atomically. Fails the entire
// batch on any duplicate.
func (s *DeathRecordStore) InsertBulk(ctx context.Context, records []*domain.DeathRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if r == nil || r.RecordID == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO death_records (` + deathRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for _, r := range records {
		_, err := tx.Exec(ctx, query,
			r.RecordID,
			r.Level,
			r.ScanID,
			r.User,
			r.Amount,
			r.RollBps,
			r.RateBps,
			r.SubmittedBy,
			r.RecordedAt,
			r.CreatedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert death record in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByScan retrieves all deaths of one scan, ordered by user ASC.
func (s *DeathRecordStore) GetByScan(ctx context.Context, level int, scanID int64) ([]*domain.DeathRecord, error) {
	query := `
		SELECT ` + deathRecordColumns + `
		FROM death_records
		WHERE level = $1 AND scan_id = $2
		ORDER BY user_id ASC
	`

	rows, err := s.pool.Query(ctx, query, level, scanID)
	if err != nil {
		return nil, fmt.Errorf("get death records by scan: %w", err)
	}
	defer rows.Close()

	return scanDeathRecords(rows)
}

// GetByUser retrieves a user's deaths, ordered by recorded_at ASC.
func (s *DeathRecordStore) GetByUser(ctx context.Context, user string) ([]*domain.DeathRecord, error) {
	query := `
		SELECT ` + deathRecordColumns + `
		FROM death_records
		WHERE user_id = $1
		ORDER BY recorded_at ASC
	`

	rows, err := s.pool.Query(ctx, query, user)
	if err != nil {
		return nil, fmt.Errorf("get death records by user: %w", err)
	}
	defer rows.Close()

	return scanDeathRecords(rows)
}

// scanDeathRecords scans multiple rows into a slice of DeathRecord.
func scanDeathRecords(rows pgx.Rows) ([]*domain.DeathRecord, error) {
	var records []*domain.DeathRecord

	for rows.Next() {
		var r domain.DeathRecord

		err := rows.Scan(
			&r.RecordID,
			&r.Level,
			&r.ScanID,
			&r.User,
			&r.Amount,
			&r.RollBps,
			&r.RateBps,
			&r.SubmittedBy,
			&r.RecordedAt,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan death record row: %w", err)
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate death record rows: %w", err)
	}

	return records, nil
}
