package domain

// SystemReset is the global dead-man's-switch record. Singleton.
type SystemReset struct {
	DeadlineMs        int64  // absolute expiry time
	LastDepositor     string // jackpot recipient when the timer fires
	LastDepositTimeMs int64
	Epoch             int64 // strictly increasing, bumped each time the reset fires
}

// ResetEvent is the journal record of one fired system reset.
type ResetEvent struct {
	EventID     string // deterministic hash
	Epoch       int64
	FiredAtMs   int64
	TriggeredBy string
	TVL         int64 // total value locked at firing time
	PenaltyBps  int64 // per-position penalty recorded for lazy settlement
	Jackpot     int64
	JackpotTo   string
	Burned      int64
	Treasury    int64
	CreatedAt   int64 // record creation timestamp (ms)
}
