package domain

// BoostKind selects which modifier a boost applies.
type BoostKind string

const (
	// BoostDeathRate lowers the user's effective death rate.
	BoostDeathRate BoostKind = "DEATH_RATE"
	// BoostYield raises the user's reward payout.
	BoostYield BoostKind = "YIELD"
)

// Boost is a time-boxed, signer-authorized modifier. Stored per user,
// filtered by expiry at read time, never proactively pruned.
type Boost struct {
	Kind     BoostKind
	ValueBps int64
	ExpiryMs int64
}

// BoostGrant is an externally-signed authorization to apply a Boost.
// The signature covers the canonical message of all other fields.
type BoostGrant struct {
	User      string // base58 public key
	Kind      BoostKind
	ValueBps  int64
	ExpiryMs  int64
	Nonce     string // single-use
	Signature []byte // detached ed25519 signature
}

// BoostGrantRecord is the journal row for one accepted grant.
type BoostGrantRecord struct {
	RecordID   string // deterministic hash
	User       string
	Kind       BoostKind
	ValueBps   int64
	ExpiryMs   int64
	Nonce      string
	RecordedAt int64
	CreatedAt  int64
}
