package engine

import (
	"context"

	"ghostpool/internal/domain"
	"ghostpool/internal/idhash"
)

// ApplyBoost verifies a signed grant and appends the boost to the user's
// list. Nonces are single-use; boosts expire by filtering at read time and
// are never proactively pruned.
func (e *Engine) ApplyBoost(ctx context.Context, grant *domain.BoostGrant) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return ErrPaused
	}
	if e.gate == nil {
		return ErrNoBoostSigner
	}

	nowMs := e.now()
	if err := e.gate.Verify(grant, nowMs); err != nil {
		return err
	}

	nonceKey := grant.User + "|" + grant.Nonce
	if _, spent := e.spentNonces[nonceKey]; spent {
		return ErrNonceAlreadyUsed
	}
	e.spentNonces[nonceKey] = struct{}{}

	e.boosts[grant.User] = append(e.boosts[grant.User], domain.Boost{
		Kind:     grant.Kind,
		ValueBps: grant.ValueBps,
		ExpiryMs: grant.ExpiryMs,
	})

	if e.journal != nil && e.journal.Boosts != nil {
		e.journalErr("boost", e.journal.Boosts.Insert(ctx, &domain.BoostGrantRecord{
			RecordID:   idhash.ComputeBoostGrantID(grant.User, grant.Nonce),
			User:       grant.User,
			Kind:       grant.Kind,
			ValueBps:   grant.ValueBps,
			ExpiryMs:   grant.ExpiryMs,
			Nonce:      grant.Nonce,
			RecordedAt: nowMs,
		}))
	}

	e.emit(domain.Event{Kind: domain.EventBoostApplied, User: grant.User, Amount: grant.ValueBps, TimestampMs: nowMs})
	return nil
}

// activeBoostSumLocked sums a user's unexpired boosts of one kind.
// Callers hold the engine lock.
func (e *Engine) activeBoostSumLocked(user string, kind domain.BoostKind, nowMs int64) int64 {
	var sum int64
	for _, b := range e.boosts[user] {
		if b.Kind == kind && b.ExpiryMs > nowMs {
			sum += b.ValueBps
		}
	}
	return sum
}

// effectiveDeathRateLocked is the level base rate lowered by the user's
// active death-rate boosts, clamped to [0, BpsDenominator].
func (e *Engine) effectiveDeathRateLocked(user string, baseBps int64, nowMs int64) int64 {
	rate := baseBps - e.activeBoostSumLocked(user, domain.BoostDeathRate, nowMs)
	if rate < 0 {
		return 0
	}
	if rate > domain.BpsDenominator {
		return domain.BpsDenominator
	}
	return rate
}

// yieldAdjustedLocked scales a reward payout by the user's active yield
// boosts.
func (e *Engine) yieldAdjustedLocked(user string, rewards int64, nowMs int64) int64 {
	if rewards == 0 {
		return 0
	}
	bonus := e.activeBoostSumLocked(user, domain.BoostYield, nowMs)
	if bonus == 0 {
		return rewards
	}
	return mulDiv(rewards, domain.BpsDenominator+bonus, domain.BpsDenominator)
}

// ActiveBoosts returns the user's unexpired boosts.
func (e *Engine) ActiveBoosts(user string) []domain.Boost {
	e.mu.Lock()
	defer e.mu.Unlock()

	nowMs := e.now()
	var out []domain.Boost
	for _, b := range e.boosts[user] {
		if b.ExpiryMs > nowMs {
			out = append(out, b)
		}
	}
	return out
}

// EffectiveDeathRate returns the user's current effective death rate at
// their level, or the level base rate when the user is not specified.
func (e *Engine) EffectiveDeathRate(user string, level int) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, ok := e.configs[level]
	if !ok {
		return 0, ErrInvalidLevel
	}
	return e.effectiveDeathRateLocked(user, cfg.BaseDeathRateBps, e.now()), nil
}
