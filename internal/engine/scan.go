package engine

import (
	"context"
	"fmt"

	"ghostpool/internal/domain"
	"ghostpool/internal/entropy"
	"ghostpool/internal/idhash"
)

// ExecuteScan opens a culling round for a level whose timer has elapsed.
// Callable by anyone. The seed is fixed here: later phases can be delayed
// but never re-rolled.
func (e *Engine) ExecuteScan(ctx context.Context, level int) (*domain.Scan, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return nil, ErrPaused
	}
	cfg, ok := e.configs[level]
	if !ok {
		return nil, ErrInvalidLevel
	}
	state := e.states[level]
	nowMs := e.now()
	if nowMs < state.NextScanTimeMs {
		return nil, ErrScanNotReady
	}
	if _, active := e.scans[level]; active {
		return nil, ErrScanAlreadyActive
	}

	sample, err := e.entropy.Sample(ctx)
	if err != nil {
		return nil, fmt.Errorf("sample entropy: %w", err)
	}
	state.ScanNonce++
	seed := entropy.DeriveSeed(sample, nowMs, level, state.ScanNonce)

	e.lastScanID[level]++
	scan := &domain.Scan{
		Level:                level,
		ScanID:               e.lastScanID[level],
		Seed:                 seed,
		ExecutedAtMs:         nowMs,
		SubmissionDeadlineMs: nowMs + cfg.SubmissionWindowMs,
	}
	e.scans[level] = scan

	e.emit(domain.Event{Kind: domain.EventScanExecuted, Level: level, ScanID: scan.ScanID, TimestampMs: nowMs})

	scanCopy := *scan
	return &scanCopy, nil
}

// deathVerdict is the pre-validated outcome for one submitted candidate.
type deathVerdict struct {
	pos     *domain.Position
	rollBps int64
	rateBps int64
}

// SubmitDeaths verifies a batch of claimed deaths against the scan seed and
// applies the verified ones. Callable by anyone. Already-recorded and
// non-alive candidates are skipped silently (third-party submitters race
// each other and must not be punished for benign staleness); a candidate
// whose recomputed roll proves survival fails the entire batch.
func (e *Engine) SubmitDeaths(ctx context.Context, level int, candidates []string, submitter string) (int, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return 0, ErrPaused
	}
	cfg, ok := e.configs[level]
	if !ok {
		return 0, ErrInvalidLevel
	}
	scan, active := e.scans[level]
	if !active {
		return 0, ErrScanNotActive
	}
	if scan.Finalized {
		return 0, ErrScanAlreadyFinalized
	}
	nowMs := e.now()
	if nowMs >= scan.SubmissionDeadlineMs {
		return 0, ErrSubmissionWindowClosed
	}
	if len(candidates) > cfg.MaxDeathBatch {
		return 0, ErrBatchTooLarge
	}

	// Validate the whole batch before touching any state: one provably
	// alive candidate poisons everything, so padding a batch costs the
	// submitter the entire call.
	verdicts := make(map[string]deathVerdict, len(candidates))
	for _, user := range candidates {
		if _, recorded := e.deadInScan[deadKey{level, scan.ScanID, user}]; recorded {
			continue // idempotent no-op
		}
		if _, pending := verdicts[user]; pending {
			continue // duplicate within the batch
		}
		pos, exists := e.positions[user]
		if !exists || !pos.Alive || pos.Level != level {
			continue // stale claim, skip silently
		}
		roll := entropy.DeathRoll(scan.Seed, user)
		rate := e.effectiveDeathRateLocked(user, cfg.BaseDeathRateBps, nowMs)
		if roll >= rate {
			return 0, fmt.Errorf("%w: %s rolled %d against rate %d", ErrUserNotDead, user, roll, rate)
		}
		verdicts[user] = deathVerdict{pos: pos, rollBps: roll, rateBps: rate}
	}

	if len(verdicts) == 0 {
		return 0, nil
	}

	state := e.states[level]
	records := make([]*domain.DeathRecord, 0, len(verdicts))
	for _, user := range candidates {
		v, ok := verdicts[user]
		if !ok {
			continue
		}
		delete(verdicts, user) // apply each candidate once, in submission order
		pos := v.pos

		e.settleEpochPenaltyLocked(pos)
		e.settlePendingLocked(pos, state)

		forfeited := pos.Amount
		state.TotalStaked -= forfeited
		state.AliveCount--
		e.arenas[level].remove(user)

		pos.Alive = false
		pos.Amount = 0
		pos.GhostStreak = 0
		pos.DeadRewards += pos.AccruedRewards
		pos.AccruedRewards = 0
		pos.RewardDebt = 0

		scan.TotalDead += forfeited
		scan.DeathCount++
		e.deadInScan[deadKey{level, scan.ScanID, user}] = struct{}{}

		records = append(records, &domain.DeathRecord{
			RecordID:    idhash.ComputeDeathRecordID(level, scan.ScanID, user),
			Level:       level,
			ScanID:      scan.ScanID,
			User:        user,
			Amount:      forfeited,
			RollBps:     v.rollBps,
			RateBps:     v.rateBps,
			SubmittedBy: submitter,
			RecordedAt:  nowMs,
		})
	}

	if e.journal != nil && e.journal.Deaths != nil {
		e.journalErr("deaths", e.journal.Deaths.InsertBulk(ctx, records))
	}

	e.emit(domain.Event{Kind: domain.EventDeathsRecorded, Level: level, Amount: scan.TotalDead, ScanID: scan.ScanID, TimestampMs: nowMs})
	return len(records), nil
}

// FinalizeScan closes the round once the submission window has passed.
// Callable by anyone. Cascades the accumulated dead value, advances every
// survivor's ghost streak and re-arms the level timer from now (scans drift
// rather than back-fill).
func (e *Engine) FinalizeScan(ctx context.Context, level int) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return ErrPaused
	}
	cfg, ok := e.configs[level]
	if !ok {
		return ErrInvalidLevel
	}
	scan, active := e.scans[level]
	if !active {
		return ErrScanNotActive
	}
	if scan.Finalized {
		return ErrScanAlreadyFinalized
	}
	nowMs := e.now()
	if nowMs < scan.SubmissionDeadlineMs {
		return ErrSubmissionWindowNotClosed
	}

	if err := e.distributeCascadeLocked(ctx, level, scan.TotalDead, scan.ScanID, "scan"); err != nil {
		return err
	}

	state := e.states[level]
	for _, user := range e.arenas[level].members() {
		e.positions[user].GhostStreak++
	}

	scan.Finalized = true
	scan.FinalizedAtMs = nowMs
	state.NextScanTimeMs = nowMs + cfg.ScanIntervalMs
	delete(e.scans, level)

	if e.journal != nil {
		if e.journal.Scans != nil {
			e.journalErr("scan", e.journal.Scans.Insert(ctx, &domain.ScanRecord{
				RecordID:      idhash.ComputeScanRecordID(level, scan.ScanID),
				Level:         level,
				ScanID:        scan.ScanID,
				Seed:          scan.Seed,
				ExecutedAtMs:  scan.ExecutedAtMs,
				FinalizedAtMs: nowMs,
				TotalDead:     scan.TotalDead,
				DeathCount:    scan.DeathCount,
				Survivors:     state.AliveCount,
			}))
		}
		if e.journal.Snapshots != nil {
			e.journalErr("snapshot", e.journal.Snapshots.InsertBulk(ctx, []*domain.LevelSnapshot{{
				Level:              level,
				ScanID:             scan.ScanID,
				TimestampMs:        nowMs,
				TotalStaked:        state.TotalStaked,
				AliveCount:         state.AliveCount,
				AccRewardsPerShare: state.AccRewardsPerShare,
				TotalDead:          scan.TotalDead,
				DeathCount:         scan.DeathCount,
			}}))
		}
	}

	e.emit(domain.Event{Kind: domain.EventScanFinalized, Level: level, Amount: scan.TotalDead, ScanID: scan.ScanID, TimestampMs: nowMs})
	return nil
}
