// Package entropy derives scan seeds and death rolls.
// Seeds mix externally-sampled chain entropy with wall-clock time, block
// height, the level and a strictly incrementing nonce; rolls are recomputed
// deterministically from (seed, user) so any submission can be verified.
package entropy

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"ghostpool/internal/domain"
)

// Sample is one observation of unpredictable-at-call-time entropy.
type Sample struct {
	Entropy     [32]byte // chain entropy (e.g. recent block hash)
	BlockHeight int64
}

// Source supplies entropy samples at scan-execution time.
type Source interface {
	Sample(ctx context.Context) (Sample, error)
}

// DeriveSeed computes the scan seed as a hex SHA256 over the sample, time,
// level and nonce. The nonce guarantees two scans never reuse a seed even if
// every other input repeats.
// Formula: SHA256(entropy|block_height|now_ms|level|nonce)
func DeriveSeed(s Sample, nowMs int64, level int, nonce int64) string {
	data := fmt.Sprintf("%s|%d|%d|%d|%d",
		hex.EncodeToString(s.Entropy[:]),
		s.BlockHeight,
		nowMs,
		level,
		nonce,
	)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// DeathRoll recomputes a user's roll for a seed, in [0, BpsDenominator).
// Formula: SHA256(seed|user) mod BpsDenominator over the first 8 bytes.
func DeathRoll(seed, user string) int64 {
	hash := sha256.Sum256([]byte(seed + "|" + user))
	v := binary.BigEndian.Uint64(hash[:8])
	return int64(v % uint64(domain.BpsDenominator))
}

// CryptoSource draws entropy from crypto/rand with a caller-supplied block
// height reader. Used when no chain observer is wired.
type CryptoSource struct {
	// Height returns the current block height; may be nil when the host
	// environment has no notion of one.
	Height func() int64
}

// Sample reads 32 bytes from crypto/rand.
func (s *CryptoSource) Sample(_ context.Context) (Sample, error) {
	var out Sample
	if _, err := rand.Read(out.Entropy[:]); err != nil {
		return Sample{}, fmt.Errorf("read entropy: %w", err)
	}
	if s.Height != nil {
		out.BlockHeight = s.Height()
	}
	return out, nil
}

// FixedSource always returns the same sample. Test and replay use only.
type FixedSource struct {
	Value Sample
}

// Sample returns the fixed sample.
func (s *FixedSource) Sample(_ context.Context) (Sample, error) {
	return s.Value, nil
}

// Verify interface compliance at compile time.
var (
	_ Source = (*CryptoSource)(nil)
	_ Source = (*FixedSource)(nil)
)
