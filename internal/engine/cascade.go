package engine

import (
	"context"
	"fmt"

	"ghostpool/internal/domain"
	"ghostpool/internal/idhash"
)

// distributeCascadeLocked splits a dead-value pool from sourceLevel into the
// same-level reward top-up, the upstream (safer levels) top-up, burn and
// treasury. No share is ever orphaned: a same-level share with no survivors
// folds upstream, and an upstream share with no safer stake is burned.
// Callers hold the engine lock.
func (e *Engine) distributeCascadeLocked(ctx context.Context, sourceLevel int, pool int64, scanID int64, origin string) error {
	if pool <= 0 {
		return nil
	}

	same := pool * domain.CascadeSameLevelPct / 100
	upstream := pool * domain.CascadeUpstreamPct / 100
	burn := pool * domain.CascadeBurnPct / 100
	treasury := pool - same - upstream - burn // remainder conserves the pool exactly

	state := e.states[sourceLevel]
	if state.TotalStaked == 0 {
		upstream += same
		same = 0
	} else {
		state.AccRewardsPerShare += mulDiv(same, domain.PrecisionFactor, state.TotalStaked)
	}

	if upstream > 0 {
		var aggregate int64
		for level := 1; level < sourceLevel; level++ {
			if s, ok := e.states[level]; ok {
				aggregate += s.TotalStaked
			}
		}
		if aggregate == 0 {
			burn += upstream
			upstream = 0
		} else {
			var distributed int64
			for level := 1; level < sourceLevel; level++ {
				s, ok := e.states[level]
				if !ok || s.TotalStaked == 0 {
					continue
				}
				part := mulDiv(upstream, s.TotalStaked, aggregate)
				s.AccRewardsPerShare += mulDiv(part, domain.PrecisionFactor, s.TotalStaked)
				distributed += part
			}
			// Integer-division dust is burned, not lost.
			burn += upstream - distributed
			upstream = distributed
		}
	}

	if burn > 0 {
		if err := e.custody.Burn(ctx, burn); err != nil {
			return fmt.Errorf("burn cascade share: %w", err)
		}
	}
	if treasury > 0 {
		if err := e.custody.TransferOut(ctx, e.treasury, treasury); err != nil {
			return fmt.Errorf("pay treasury share: %w", err)
		}
	}

	nowMs := e.now()
	if e.journal != nil && e.journal.Cascades != nil {
		e.journalErr("cascade", e.journal.Cascades.Insert(ctx, &domain.CascadeRecord{
			RecordID:    idhash.ComputeCascadeRecordID(sourceLevel, scanID, origin),
			SourceLevel: sourceLevel,
			ScanID:      scanID,
			TotalDead:   pool,
			SameLevel:   same,
			Upstream:    upstream,
			Burned:      burn,
			Treasury:    treasury,
			RecordedAt:  nowMs,
		}))
	}

	e.emit(domain.Event{Kind: domain.EventCascade, Level: sourceLevel, Amount: pool, ScanID: scanID, TimestampMs: nowMs})
	return nil
}
