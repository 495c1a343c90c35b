package domain

// LevelNone marks a user with no open position.
const LevelNone = 0

// Position is one user's stake at one risk level. One per user, keyed by
// the user's identity (base58 public key).
type Position struct {
	User             string // base58 public key
	Level            int    // risk tier, LevelNone when no position
	Amount           int64  // staked principal, exact integer
	EntryTimeMs      int64  // open timestamp (ms)
	LastAddTimeMs    int64  // last add-stake timestamp (ms)
	RewardDebt       int64  // amount * acc / PrecisionFactor snapshot at last settlement
	Alive            bool   // flipped false on death, never resurrected in place
	GhostStreak      int    // consecutive survived scans, reset on death
	AccruedRewards   int64  // settled-but-unpaid rewards carried across re-basings
	LastSettledEpoch int64  // last reset epoch applied to this position
	DeadRewards      int64  // residual rewards settled at death, claimable until collected
}
