package domain

// Fixed-point and percentage denominators shared by every value computation.
const (
	// BpsDenominator is the basis-point denominator (100% = 10000).
	BpsDenominator = 10_000

	// PrecisionFactor scales AccRewardsPerShare. Pending rewards are
	// amount * acc / PrecisionFactor - rewardDebt.
	PrecisionFactor = 1_000_000_000_000
)

// Cascade split of a dead-value pool, in percent. Must sum to 100.
const (
	CascadeSameLevelPct = 30
	CascadeUpstreamPct  = 30
	CascadeBurnPct      = 30
	CascadeTreasuryPct  = 10
)

// Capacity-cull penalty split, in percent. Applied to the penalty carved
// from the evicted victim's stake. Must sum to 100.
const (
	CullBurnPct      = 50
	CullSameLevelPct = 50
)

// Reset timer tiers. A deposit of size s extends the deadline by the
// extension of its tier; at or above ResetTier4 the deadline jumps to
// now + MaxResetDeadlineMs unconditionally.
const (
	ResetTier1 = 1_000
	ResetTier2 = 10_000
	ResetTier3 = 100_000
	ResetTier4 = 1_000_000

	ResetExtend1Ms = 5 * 60 * 1000
	ResetExtend2Ms = 15 * 60 * 1000
	ResetExtend3Ms = 60 * 60 * 1000
	ResetExtend4Ms = 6 * 60 * 60 * 1000

	// DefaultResetDeadlineMs is the re-arm distance after a reset fires.
	DefaultResetDeadlineMs = 24 * 60 * 60 * 1000

	// MaxResetDeadlineMs caps the deadline distance from now.
	MaxResetDeadlineMs = 72 * 60 * 60 * 1000
)

// Reset penalty: ResetPenaltyPoolBps of TVL is carved when the timer fires,
// then split between the jackpot (last depositor), burn and treasury.
const (
	ResetPenaltyPoolBps = 500 // 5% of TVL

	ResetJackpotPct  = 50
	ResetBurnPct     = 30
	ResetTreasuryPct = 20
)
