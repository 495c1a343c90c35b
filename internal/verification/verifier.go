// Package verification audits the settlement journal. A finalized scan is
// fully re-checkable offline: death rolls recompute from the journaled seed,
// record ids recompute from identifying fields, and every cascade must split
// exactly into its destinations. The auditor needs only journal read access,
// so a third party can run it against a database dump.
package verification

import (
	"context"
)

// FieldDivergence represents a mismatch between a journaled value and the
// value recomputed from first principles.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // recomputed value
	Actual   interface{} // journaled value
}

// ScanAuditResult contains the result of auditing a single finalized scan.
type ScanAuditResult struct {
	Level       int
	ScanID      int64
	Match       bool // true if all checks pass
	Divergences []FieldDivergence
}

// AuditReport contains results for batch audits.
type AuditReport struct {
	TotalScans     int
	MatchedScans   int
	DivergentScans int
	Results        []ScanAuditResult
}

// Auditor verifies journal consistency.
type Auditor interface {
	// AuditScan audits one finalized scan: death rolls against the seed,
	// record ids, death aggregates and the cascade split.
	AuditScan(ctx context.Context, level int, scanID int64) (*ScanAuditResult, error)

	// AuditLevel audits every journaled scan of a level, plus the
	// cross-scan ordering invariants.
	AuditLevel(ctx context.Context, level int) (*AuditReport, error)

	// AuditResets audits the reset history: sequential epochs, event ids
	// and split arithmetic.
	AuditResets(ctx context.Context) ([]FieldDivergence, error)
}
