package domain

// EventKind identifies a settlement event pushed to subscribers.
type EventKind string

const (
	EventPositionOpened  EventKind = "POSITION_OPENED"
	EventStakeAdded      EventKind = "STAKE_ADDED"
	EventPositionClosed  EventKind = "POSITION_CLOSED"
	EventRewardsClaimed  EventKind = "REWARDS_CLAIMED"
	EventPositionCulled  EventKind = "POSITION_CULLED"
	EventScanExecuted    EventKind = "SCAN_EXECUTED"
	EventDeathsRecorded  EventKind = "DEATHS_RECORDED"
	EventScanFinalized   EventKind = "SCAN_FINALIZED"
	EventCascade         EventKind = "CASCADE"
	EventSystemReset     EventKind = "SYSTEM_RESET"
	EventBoostApplied    EventKind = "BOOST_APPLIED"
	EventEmergencyExit   EventKind = "EMERGENCY_WITHDRAW"
)

// Event is one settlement event. Amount semantics depend on the kind
// (stake for position events, dead value for scan events, jackpot for resets).
type Event struct {
	Kind        EventKind `json:"kind"`
	Level       int       `json:"level,omitempty"`
	User        string    `json:"user,omitempty"`
	Amount      int64     `json:"amount,omitempty"`
	ScanID      int64     `json:"scan_id,omitempty"`
	Epoch       int64     `json:"epoch,omitempty"`
	TimestampMs int64     `json:"timestamp_ms"`
}

// LevelSnapshot is an analytics timeseries point captured when a scan
// finalizes. Stored in ClickHouse.
type LevelSnapshot struct {
	Level              int
	ScanID             int64
	TimestampMs        int64
	TotalStaked        int64
	AliveCount         int
	AccRewardsPerShare int64
	TotalDead          int64
	DeathCount         int
}
