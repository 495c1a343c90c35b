package engine

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"

	"ghostpool/internal/domain"
	"ghostpool/internal/entropy"
	"ghostpool/internal/idhash"
)

// VictimCandidate is one evictable holder offered to a VictimStrategy.
type VictimCandidate struct {
	User        string
	Amount      int64
	EntryTimeMs int64
}

// VictimStrategy selects which holder a full level evicts to admit a new
// entrant. The reference behavior and the documented policy disagree, so
// selection is pluggable; candidates is never empty and seed is unique per
// cull.
type VictimStrategy interface {
	SelectVictim(candidates []VictimCandidate, cfg domain.LevelConfig, seed string) string
}

// BottomPercentileStrategy picks a stake-weighted random victim from the
// bottom percentile of holders by stake. The documented policy; default.
type BottomPercentileStrategy struct{}

// SelectVictim implements VictimStrategy.
func (BottomPercentileStrategy) SelectVictim(candidates []VictimCandidate, cfg domain.LevelConfig, seed string) string {
	sorted := make([]VictimCandidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Amount != sorted[j].Amount {
			return sorted[i].Amount < sorted[j].Amount
		}
		return sorted[i].User < sorted[j].User
	})

	n := len(sorted) * cfg.CullBottomPct / 100
	if n < 1 {
		n = 1
	}
	pool := sorted[:n]

	var total int64
	for _, c := range pool {
		total += c.Amount
	}
	if total == 0 {
		return pool[0].User
	}

	hash := sha256.Sum256([]byte(seed + "|victim"))
	pick := int64(binary.BigEndian.Uint64(hash[:8]) % uint64(total))
	for _, c := range pool {
		pick -= c.Amount
		if pick < 0 {
			return c.User
		}
	}
	return pool[len(pool)-1].User
}

// OldestEntryStrategy evicts the longest-standing holder. The reference
// behavior, kept selectable until the intended policy is confirmed.
type OldestEntryStrategy struct{}

// SelectVictim implements VictimStrategy.
func (OldestEntryStrategy) SelectVictim(candidates []VictimCandidate, _ domain.LevelConfig, _ string) string {
	victim := candidates[0]
	for _, c := range candidates[1:] {
		if c.EntryTimeMs < victim.EntryTimeMs ||
			(c.EntryTimeMs == victim.EntryTimeMs && c.User < victim.User) {
			victim = c
		}
	}
	return victim.User
}

// cullLocked evicts one holder from a full level so entrant can be admitted.
// The victim takes the configured penalty, receives the remainder, and is
// marked dead. The penalty runs through a synthetic burn/same-level cascade
// attributed to the entrant. Callers hold the engine lock.
func (e *Engine) cullLocked(ctx context.Context, level int, entrant string) error {
	cfg := e.configs[level]
	state := e.states[level]
	members := e.arenas[level].members()
	if len(members) == 0 {
		return ErrLevelAtCapacity
	}

	candidates := make([]VictimCandidate, 0, len(members))
	for _, user := range members {
		pos := e.positions[user]
		candidates = append(candidates, VictimCandidate{
			User:        user,
			Amount:      pos.Amount,
			EntryTimeMs: pos.EntryTimeMs,
		})
	}

	nowMs := e.now()
	sample, err := e.entropy.Sample(ctx)
	if err != nil {
		return fmt.Errorf("sample entropy: %w", err)
	}
	state.ScanNonce++
	seed := entropy.DeriveSeed(sample, nowMs, level, state.ScanNonce)

	victim := e.victims.SelectVictim(candidates, cfg, seed)
	pos := e.positions[victim]

	e.settleEpochPenaltyLocked(pos)
	e.settlePendingLocked(pos, state)

	stake := pos.Amount
	penalty := mulDiv(stake, cfg.CullPenaltyBps, domain.BpsDenominator)
	returned := stake - penalty

	// Synthetic cascade: the penalty splits between burn and a same-level
	// reward top-up for the holders that were not evicted.
	remaining := state.TotalStaked - stake
	burn := penalty * domain.CullBurnPct / 100
	same := penalty - burn
	if remaining == 0 {
		burn += same
		same = 0
	}

	// Custody moves first; a failure leaves the ledger untouched so the
	// caller can refuse admission cleanly.
	if returned > 0 {
		if err := e.custody.TransferOut(ctx, victim, returned); err != nil {
			return fmt.Errorf("return victim remainder: %w", err)
		}
	}
	if burn > 0 {
		if err := e.custody.Burn(ctx, burn); err != nil {
			return fmt.Errorf("burn cull penalty: %w", err)
		}
	}

	state.TotalStaked = remaining
	state.AliveCount--
	e.arenas[level].remove(victim)

	pos.Alive = false
	pos.Amount = 0
	pos.GhostStreak = 0
	pos.DeadRewards += pos.AccruedRewards
	pos.AccruedRewards = 0
	pos.RewardDebt = 0

	if same > 0 {
		state.AccRewardsPerShare += mulDiv(same, domain.PrecisionFactor, remaining)
	}

	if e.journal != nil {
		if e.journal.Culls != nil {
			e.journalErr("cull", e.journal.Culls.Insert(ctx, &domain.CullRecord{
				RecordID:   idhash.ComputeCullRecordID(level, victim, entrant, nowMs),
				Level:      level,
				Victim:     victim,
				Entrant:    entrant,
				Stake:      stake,
				Penalty:    penalty,
				Returned:   returned,
				RecordedAt: nowMs,
			}))
		}
		if e.journal.Cascades != nil {
			e.journalErr("cull cascade", e.journal.Cascades.Insert(ctx, &domain.CascadeRecord{
				RecordID:    idhash.ComputeCascadeRecordID(level, 0, fmt.Sprintf("%s|%d", entrant, nowMs)),
				SourceLevel: level,
				TotalDead:   penalty,
				SameLevel:   same,
				Burned:      burn,
				RecordedAt:  nowMs,
			}))
		}
	}

	e.emit(domain.Event{Kind: domain.EventPositionCulled, Level: level, User: victim, Amount: returned, TimestampMs: nowMs})
	return nil
}
