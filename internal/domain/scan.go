package domain

// Scan is one randomized culling round for a single level. At most one
// non-finalized Scan exists per level at any time.
type Scan struct {
	Level                int
	ScanID               int64  // monotonic per level
	Seed                 string // hex SHA256, fixed at execute time
	ExecutedAtMs         int64
	SubmissionDeadlineMs int64 // ExecutedAtMs + level submission window
	FinalizedAtMs        int64 // zero until finalized
	TotalDead            int64 // aggregated dead value, cascaded at finalize
	DeathCount           int
	Finalized            bool
}

// ScanRecord is the journal row written when a scan finalizes.
type ScanRecord struct {
	RecordID      string // deterministic hash
	Level         int
	ScanID        int64
	Seed          string
	ExecutedAtMs  int64
	FinalizedAtMs int64
	TotalDead     int64
	DeathCount    int
	Survivors     int
	CreatedAt     int64 // record creation timestamp (ms)
}

// DeathRecord is the journal row for one verified death.
type DeathRecord struct {
	RecordID    string // deterministic hash
	Level       int
	ScanID      int64
	User        string
	Amount      int64 // principal pushed into the dead pool
	RollBps     int64 // recomputed roll that proved the death
	RateBps     int64 // effective death rate at submission time
	SubmittedBy string
	RecordedAt  int64
	CreatedAt   int64
}

// CascadeRecord is the journal row for one dead-pool distribution.
type CascadeRecord struct {
	RecordID    string // deterministic hash
	SourceLevel int
	ScanID      int64 // zero for synthetic cascades (culls)
	TotalDead   int64
	SameLevel   int64
	Upstream    int64
	Burned      int64
	Treasury    int64
	RecordedAt  int64
	CreatedAt   int64
}

// CullRecord is the journal row for one capacity eviction, attributed to the
// entrant whose admission forced it.
type CullRecord struct {
	RecordID   string // deterministic hash
	Level      int
	Victim     string
	Entrant    string
	Stake      int64 // victim stake before the penalty
	Penalty    int64
	Returned   int64
	RecordedAt int64
	CreatedAt  int64
}
