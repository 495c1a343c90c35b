package clickhouse

import (
	"context"
	"fmt"

	"ghostpool/internal/domain"
	"ghostpool/internal/storage"
)

// LevelSnapshotStore implements storage.LevelSnapshotStore using ClickHouse.
type LevelSnapshotStore struct {
	conn *Conn
}

// NewLevelSnapshotStore creates a new LevelSnapshotStore.
func NewLevelSnapshotStore(conn *Conn) *LevelSnapshotStore {
	return &LevelSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.LevelSnapshotStore = (*LevelSnapshotStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate
// (level, scan_id). MergeTree does not enforce uniqueness, so duplicates are
// checked explicitly before the batch is sent.
func (s *LevelSnapshotStore) InsertBulk(ctx context.Context, points []*domain.LevelSnapshot) error {
	if len(points) == 0 {
		return nil
	}

	type key struct {
		level  int
		scanID int64
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		k := key{p.Level, p.ScanID}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, p := range points {
		exists, err := s.exists(ctx, p.Level, p.ScanID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO level_snapshots (
			level, scan_id, timestamp_ms, total_staked, alive_count,
			acc_rewards_per_share, total_dead, death_count
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			int32(p.Level), uint64(p.ScanID), uint64(p.TimestampMs),
			p.TotalStaked, uint32(p.AliveCount),
			p.AccRewardsPerShare, p.TotalDead, uint32(p.DeathCount),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByLevel retrieves all points for a level, ordered by timestamp ASC.
func (s *LevelSnapshotStore) GetByLevel(ctx context.Context, level int) ([]*domain.LevelSnapshot, error) {
	query := `
		SELECT level, scan_id, timestamp_ms, total_staked, alive_count,
		       acc_rewards_per_share, total_dead, death_count
		FROM level_snapshots
		WHERE level = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, int32(level))
	if err != nil {
		return nil, fmt.Errorf("query by level: %w", err)
	}
	defer rows.Close()

	var points []*domain.LevelSnapshot
	for rows.Next() {
		var p domain.LevelSnapshot
		var level int32
		var scanID, timestampMs uint64
		var aliveCount, deathCount uint32

		err := rows.Scan(
			&level, &scanID, &timestampMs, &p.TotalStaked, &aliveCount,
			&p.AccRewardsPerShare, &p.TotalDead, &deathCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan level snapshot row: %w", err)
		}

		p.Level = int(level)
		p.ScanID = int64(scanID)
		p.TimestampMs = int64(timestampMs)
		p.AliveCount = int(aliveCount)
		p.DeathCount = int(deathCount)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate level snapshot rows: %w", err)
	}

	return points, nil
}

// exists checks if a point with the given key exists.
func (s *LevelSnapshotStore) exists(ctx context.Context, level int, scanID int64) (bool, error) {
	query := `
		SELECT count(*) FROM level_snapshots
		WHERE level = ? AND scan_id = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, int32(level), uint64(scanID)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
