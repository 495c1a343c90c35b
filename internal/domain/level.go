package domain

// LevelConfig is the admin-set configuration of one risk tier.
// Rarely mutated after genesis.
type LevelConfig struct {
	Level               int   // 1-based risk index; 1 is safest
	BaseDeathRateBps    int64 // fraction of positions expected to die per scan
	ScanIntervalMs      int64 // cadence between scans
	MinStake            int64 // minimum opening stake
	MaxAlive            int   // maximum concurrent alive positions, 0 = unlimited
	CullBottomPct       int   // bottom percentile (by stake) eligible for eviction
	CullPenaltyBps      int64 // penalty taken from an evicted victim's stake
	SubmissionWindowMs  int64 // death-submission window after a scan executes
	ExtractLockWindowMs int64 // extraction is blocked this close to the next scan
	MaxDeathBatch       int   // per-call cap on submitted death candidates
}

// LevelState is the continuously-mutated aggregate state of one tier.
type LevelState struct {
	Level             int
	TotalStaked       int64 // sum of Amount over alive positions; conservation invariant
	AliveCount        int
	AccRewardsPerShare int64 // fixed-point accumulator, monotonically non-decreasing
	NextScanTimeMs    int64
	ScanNonce         int64 // strictly incrementing, feeds seed derivation
}

// DefaultLevelConfigs returns the genesis tier set: five tiers with rising
// death rates and penalties, tightening cadence and capacity as risk grows.
func DefaultLevelConfigs() []LevelConfig {
	return []LevelConfig{
		{Level: 1, BaseDeathRateBps: 500, ScanIntervalMs: 24 * 3600 * 1000, MinStake: 100, MaxAlive: 0, CullBottomPct: 25, CullPenaltyBps: 5000, SubmissionWindowMs: 3600 * 1000, ExtractLockWindowMs: 600 * 1000, MaxDeathBatch: 200},
		{Level: 2, BaseDeathRateBps: 1000, ScanIntervalMs: 12 * 3600 * 1000, MinStake: 250, MaxAlive: 0, CullBottomPct: 25, CullPenaltyBps: 6000, SubmissionWindowMs: 3600 * 1000, ExtractLockWindowMs: 600 * 1000, MaxDeathBatch: 200},
		{Level: 3, BaseDeathRateBps: 2500, ScanIntervalMs: 6 * 3600 * 1000, MinStake: 500, MaxAlive: 1000, CullBottomPct: 25, CullPenaltyBps: 7000, SubmissionWindowMs: 1800 * 1000, ExtractLockWindowMs: 300 * 1000, MaxDeathBatch: 200},
		{Level: 4, BaseDeathRateBps: 5000, ScanIntervalMs: 3 * 3600 * 1000, MinStake: 1000, MaxAlive: 500, CullBottomPct: 20, CullPenaltyBps: 8000, SubmissionWindowMs: 1800 * 1000, ExtractLockWindowMs: 300 * 1000, MaxDeathBatch: 100},
		{Level: 5, BaseDeathRateBps: 7500, ScanIntervalMs: 3600 * 1000, MinStake: 2500, MaxAlive: 100, CullBottomPct: 20, CullPenaltyBps: 9000, SubmissionWindowMs: 900 * 1000, ExtractLockWindowMs: 120 * 1000, MaxDeathBatch: 50},
	}
}
