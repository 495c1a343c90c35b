package engine

import (
	"context"
	"fmt"

	"ghostpool/internal/domain"
	"ghostpool/internal/idhash"
)

// resetExtensionMs returns the deadline extension for a deposit size, or -1
// for the tier-4 ceiling jump.
func resetExtensionMs(amount int64) int64 {
	switch {
	case amount >= domain.ResetTier4:
		return -1
	case amount >= domain.ResetTier3:
		return domain.ResetExtend4Ms
	case amount >= domain.ResetTier2:
		return domain.ResetExtend3Ms
	case amount >= domain.ResetTier1:
		return domain.ResetExtend2Ms
	default:
		return domain.ResetExtend1Ms
	}
}

// extendResetLocked pushes the reset deadline out for a deposit. Extensions
// never decrease the deadline and are capped at MaxResetDeadlineMs from now;
// a tier-4 deposit jumps straight to the cap. Last-writer-wins on
// LastDepositor is intended. Callers hold the engine lock.
func (e *Engine) extendResetLocked(depositor string, amount int64, nowMs int64) {
	maxDeadline := nowMs + domain.MaxResetDeadlineMs

	ext := resetExtensionMs(amount)
	var deadline int64
	if ext < 0 {
		deadline = maxDeadline
	} else {
		deadline = e.reset.DeadlineMs + ext
		if deadline > maxDeadline {
			deadline = maxDeadline
		}
	}
	if deadline > e.reset.DeadlineMs {
		e.reset.DeadlineMs = deadline
	}

	e.reset.LastDepositor = depositor
	e.reset.LastDepositTimeMs = nowMs
}

// TriggerSystemReset fires the dead-man's-switch once the deadline has
// passed. Callable by anyone. A penalty pool is carved from TVL and split
// into a jackpot for the most recent depositor, a burn share and a treasury
// share; the per-position penalty is recorded for lazy settlement and the
// deadline re-arms at the default distance.
func (e *Engine) TriggerSystemReset(ctx context.Context, caller string) (*domain.ResetEvent, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return nil, ErrPaused
	}
	nowMs := e.now()
	if nowMs < e.reset.DeadlineMs {
		return nil, ErrSystemResetNotReady
	}

	// Carve the pool level by level and reduce each aggregate immediately.
	// Positions catch up lazily (settleEpochPenaltyLocked); carving from a
	// stale aggregate at the next reset would overdraw the vault.
	var tvl, pool int64
	for _, state := range e.states {
		tvl += state.TotalStaked
		cut := mulDiv(state.TotalStaked, domain.ResetPenaltyPoolBps, domain.BpsDenominator)
		state.TotalStaked -= cut
		pool += cut
	}
	jackpot := pool * domain.ResetJackpotPct / 100
	burn := pool * domain.ResetBurnPct / 100
	treasury := pool - jackpot - burn

	jackpotTo := e.reset.LastDepositor
	if jackpotTo == "" {
		// Nobody to pay: the jackpot is burned rather than orphaned.
		burn += jackpot
		jackpot = 0
	}

	if jackpot > 0 {
		if err := e.custody.TransferOut(ctx, jackpotTo, jackpot); err != nil {
			return nil, fmt.Errorf("pay jackpot: %w", err)
		}
	}
	if burn > 0 {
		if err := e.custody.Burn(ctx, burn); err != nil {
			return nil, fmt.Errorf("burn reset share: %w", err)
		}
	}
	if treasury > 0 {
		if err := e.custody.TransferOut(ctx, e.treasury, treasury); err != nil {
			return nil, fmt.Errorf("pay treasury share: %w", err)
		}
	}

	e.reset.Epoch++
	e.penaltyByEpoch[e.reset.Epoch] = domain.ResetPenaltyPoolBps
	e.reset.DeadlineMs = nowMs + domain.DefaultResetDeadlineMs
	e.reset.LastDepositor = ""
	e.reset.LastDepositTimeMs = 0

	event := &domain.ResetEvent{
		EventID:     idhash.ComputeResetEventID(e.reset.Epoch),
		Epoch:       e.reset.Epoch,
		FiredAtMs:   nowMs,
		TriggeredBy: caller,
		TVL:         tvl,
		PenaltyBps:  domain.ResetPenaltyPoolBps,
		Jackpot:     jackpot,
		JackpotTo:   jackpotTo,
		Burned:      burn,
		Treasury:    treasury,
		CreatedAt:   nowMs,
	}
	if e.journal != nil && e.journal.Resets != nil {
		e.journalErr("reset", e.journal.Resets.Insert(ctx, event))
	}

	e.emit(domain.Event{Kind: domain.EventSystemReset, User: jackpotTo, Amount: jackpot, Epoch: e.reset.Epoch, TimestampMs: nowMs})
	return event, nil
}
