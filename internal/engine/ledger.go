package engine

import (
	"context"
	"fmt"

	"ghostpool/internal/domain"
)

// Open registers a new position for user at level. If the level is at
// capacity an existing holder is evicted first. Opening extends the reset
// timer proportionally to the deposit.
func (e *Engine) Open(ctx context.Context, user string, amount int64, level int) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return ErrPaused
	}
	cfg, ok := e.configs[level]
	if level == domain.LevelNone || !ok {
		return ErrInvalidLevel
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount < cfg.MinStake {
		return ErrBelowMinimumStake
	}

	if prev, exists := e.positions[user]; exists {
		if prev.Alive {
			return ErrPositionAlreadyExists
		}
		// Dead remnant: pay out any residual rewards, then clear it so the
		// user re-opens fresh. Positions are never resurrected in place.
		if prev.DeadRewards > 0 {
			if err := e.custody.TransferOut(ctx, user, prev.DeadRewards); err != nil {
				return fmt.Errorf("pay dead rewards: %w", err)
			}
		}
		delete(e.positions, user)
	}

	state := e.states[level]
	full := cfg.MaxAlive > 0 && state.AliveCount >= cfg.MaxAlive
	if full && e.arenas[level].len() == 0 {
		// Contradiction state: capacity reached with nothing to evict.
		return ErrLevelAtCapacity
	}

	if err := e.custody.TransferIn(ctx, user, amount); err != nil {
		return fmt.Errorf("transfer in: %w", err)
	}

	if full {
		if err := e.cullLocked(ctx, level, user); err != nil {
			// Undo the deposit so a failed eviction cannot strand it.
			if rerr := e.custody.TransferOut(ctx, user, amount); rerr != nil && e.logger != nil {
				e.logger.Printf("refund deposit for %s failed: %v", user, rerr)
			}
			return err
		}
	}

	nowMs := e.now()
	pos := &domain.Position{
		User:             user,
		Level:            level,
		Amount:           amount,
		EntryTimeMs:      nowMs,
		LastAddTimeMs:    nowMs,
		Alive:            true,
		LastSettledEpoch: e.reset.Epoch,
	}
	pos.RewardDebt = mulDiv(amount, state.AccRewardsPerShare, domain.PrecisionFactor)
	e.positions[user] = pos
	e.arenas[level].add(user)
	state.TotalStaked += amount
	state.AliveCount++

	e.extendResetLocked(user, amount, nowMs)

	e.emit(domain.Event{Kind: domain.EventPositionOpened, Level: level, User: user, Amount: amount, TimestampMs: nowMs})
	return nil
}

// AddStake increases an alive position's principal. Pending rewards are
// settled into the accrued carry first, so the debt re-snapshot loses
// nothing. Extends the reset timer.
func (e *Engine) AddStake(ctx context.Context, user string, amount int64) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return ErrPaused
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	pos, exists := e.positions[user]
	if !exists {
		return ErrNoPositionExists
	}
	if !pos.Alive {
		return ErrPositionDead
	}

	e.settleEpochPenaltyLocked(pos)

	if err := e.custody.TransferIn(ctx, user, amount); err != nil {
		return fmt.Errorf("transfer in: %w", err)
	}

	state := e.states[pos.Level]
	e.settlePendingLocked(pos, state)
	pos.Amount += amount
	pos.LastAddTimeMs = e.now()
	pos.RewardDebt = mulDiv(pos.Amount, state.AccRewardsPerShare, domain.PrecisionFactor)
	state.TotalStaked += amount

	e.extendResetLocked(user, amount, pos.LastAddTimeMs)

	e.emit(domain.Event{Kind: domain.EventStakeAdded, Level: pos.Level, User: user, Amount: amount, TimestampMs: pos.LastAddTimeMs})
	return nil
}

// Extract closes an alive position, paying principal plus rewards. Blocked
// inside the lock window preceding the level's next scan so an imminent
// death roll cannot be dodged. The only path that fully removes a position.
func (e *Engine) Extract(ctx context.Context, user string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return ErrPaused
	}
	pos, exists := e.positions[user]
	if !exists {
		return ErrNoPositionExists
	}
	if !pos.Alive {
		return ErrPositionDead
	}

	cfg := e.configs[pos.Level]
	state := e.states[pos.Level]
	nowMs := e.now()
	if cfg.ExtractLockWindowMs > 0 && nowMs >= state.NextScanTimeMs-cfg.ExtractLockWindowMs {
		return ErrPositionLocked
	}

	e.settleEpochPenaltyLocked(pos)
	e.settlePendingLocked(pos, state)

	principal := pos.Amount
	rewards := e.yieldAdjustedLocked(user, pos.AccruedRewards, nowMs)

	// Pay before touching the ledger; a custody failure must leave the
	// position intact.
	if err := e.custody.TransferOut(ctx, user, principal+rewards); err != nil {
		return fmt.Errorf("transfer out: %w", err)
	}

	state.TotalStaked -= principal
	state.AliveCount--
	e.arenas[pos.Level].remove(user)
	delete(e.positions, user)

	e.emit(domain.Event{Kind: domain.EventPositionClosed, Level: cfg.Level, User: user, Amount: principal + rewards, TimestampMs: nowMs})
	return nil
}

// ClaimRewards pays out only the pending reward delta, leaving principal and
// the position open.
func (e *Engine) ClaimRewards(ctx context.Context, user string) (int64, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return 0, ErrPaused
	}
	pos, exists := e.positions[user]
	if !exists {
		return 0, ErrNoPositionExists
	}
	if !pos.Alive {
		return 0, ErrPositionDead
	}

	e.settleEpochPenaltyLocked(pos)

	state := e.states[pos.Level]
	e.settlePendingLocked(pos, state)

	nowMs := e.now()
	rewards := e.yieldAdjustedLocked(user, pos.AccruedRewards, nowMs)
	if rewards == 0 {
		return 0, nil
	}

	// The carry is cleared only once the payout has landed.
	if err := e.custody.TransferOut(ctx, user, rewards); err != nil {
		return 0, fmt.Errorf("transfer out: %w", err)
	}
	pos.AccruedRewards = 0

	e.emit(domain.Event{Kind: domain.EventRewardsClaimed, Level: pos.Level, User: user, Amount: rewards, TimestampMs: nowMs})
	return rewards, nil
}

// CollectDead pays any residual rewards of a dead position and clears the
// record. Principal was forfeited at death.
func (e *Engine) CollectDead(ctx context.Context, user string) (int64, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return 0, ErrPaused
	}
	pos, exists := e.positions[user]
	if !exists {
		return 0, ErrNoPositionExists
	}
	if pos.Alive {
		return 0, ErrPositionAlreadyExists
	}

	rewards := pos.DeadRewards
	if rewards > 0 {
		if err := e.custody.TransferOut(ctx, user, rewards); err != nil {
			return 0, fmt.Errorf("transfer out: %w", err)
		}
	}
	delete(e.positions, user)
	return rewards, nil
}

// EmergencyWithdraw returns principal only, forfeiting accrued rewards. The
// one value-moving path that stays open while the system is paused. A dead
// record has no principal left, so its uncollected residue is paid out
// instead of being destroyed.
func (e *Engine) EmergencyWithdraw(ctx context.Context, user string) (int64, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	pos, exists := e.positions[user]
	if !exists {
		return 0, ErrNoPositionExists
	}

	nowMs := e.now()
	var payout int64
	if pos.Alive {
		e.settleEpochPenaltyLocked(pos)
		payout = pos.Amount
	} else {
		payout = pos.DeadRewards
	}

	if payout > 0 {
		if err := e.custody.TransferOut(ctx, user, payout); err != nil {
			return 0, fmt.Errorf("transfer out: %w", err)
		}
	}

	if pos.Alive {
		state := e.states[pos.Level]
		state.TotalStaked -= pos.Amount
		state.AliveCount--
		e.arenas[pos.Level].remove(user)
	}
	delete(e.positions, user)

	e.emit(domain.Event{Kind: domain.EventEmergencyExit, Level: pos.Level, User: user, Amount: payout, TimestampMs: nowMs})
	return payout, nil
}
