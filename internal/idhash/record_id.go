// Package idhash computes deterministic journal record identifiers.
// Every journal row is keyed by a SHA256 over its identifying fields so
// retried writes after an external failure collide instead of duplicating.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeScanRecordID computes a deterministic scan record id.
// Formula: SHA256(scan|level|scan_id)
// Returns hex-encoded hash (64 characters).
func ComputeScanRecordID(level int, scanID int64) string {
	return hashFields(fmt.Sprintf("scan|%d|%d", level, scanID))
}

// ComputeDeathRecordID computes a deterministic death record id.
// Formula: SHA256(death|level|scan_id|user)
func ComputeDeathRecordID(level int, scanID int64, user string) string {
	return hashFields(fmt.Sprintf("death|%d|%d|%s", level, scanID, user))
}

// ComputeCascadeRecordID computes a deterministic cascade record id.
// Synthetic cascades (culls) pass scanID 0 and the entrant as the origin.
// Formula: SHA256(cascade|source_level|scan_id|origin)
func ComputeCascadeRecordID(sourceLevel int, scanID int64, origin string) string {
	return hashFields(fmt.Sprintf("cascade|%d|%d|%s", sourceLevel, scanID, origin))
}

// ComputeCullRecordID computes a deterministic cull record id.
// Formula: SHA256(cull|level|victim|entrant|recorded_at)
func ComputeCullRecordID(level int, victim, entrant string, recordedAtMs int64) string {
	return hashFields(fmt.Sprintf("cull|%d|%s|%s|%d", level, victim, entrant, recordedAtMs))
}

// ComputeResetEventID computes a deterministic reset event id.
// Formula: SHA256(reset|epoch)
func ComputeResetEventID(epoch int64) string {
	return hashFields(fmt.Sprintf("reset|%d", epoch))
}

// ComputeBoostGrantID computes a deterministic boost grant id.
// The nonce is single-use, so it identifies the grant.
// Formula: SHA256(boost|user|nonce)
func ComputeBoostGrantID(user, nonce string) string {
	return hashFields(fmt.Sprintf("boost|%s|%s", user, nonce))
}

func hashFields(data string) string {
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
