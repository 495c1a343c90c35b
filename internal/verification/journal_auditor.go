package verification

import (
	"context"
	"errors"
	"fmt"

	"ghostpool/internal/domain"
	"ghostpool/internal/entropy"
	"ghostpool/internal/idhash"
	"ghostpool/internal/storage"
)

// ErrScanRecordNotFound is returned when the (level, scan_id) record
// doesn't exist.
var ErrScanRecordNotFound = errors.New("scan record not found")

// JournalAuditor implements Auditor over the journal stores.
type JournalAuditor struct {
	scans    storage.ScanRecordStore
	deaths   storage.DeathRecordStore
	cascades storage.CascadeRecordStore
	resets   storage.ResetEventStore
}

// NewJournalAuditor creates an auditor over a journal. The journal may come
// straight from a read-only database connection.
func NewJournalAuditor(journal *storage.Journal) *JournalAuditor {
	return &JournalAuditor{
		scans:    journal.Scans,
		deaths:   journal.Deaths,
		cascades: journal.Cascades,
		resets:   journal.Resets,
	}
}

// AuditScan audits a single finalized scan.
func (a *JournalAuditor) AuditScan(ctx context.Context, level int, scanID int64) (*ScanAuditResult, error) {
	record, err := a.scans.GetByID(ctx, idhash.ComputeScanRecordID(level, scanID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrScanRecordNotFound
		}
		return nil, err
	}

	deaths, err := a.deaths.GetByScan(ctx, level, scanID)
	if err != nil {
		return nil, err
	}

	divergences := a.auditDeaths(record, deaths)

	cascadeDivs, err := a.auditCascade(ctx, record)
	if err != nil {
		return nil, err
	}
	divergences = append(divergences, cascadeDivs...)

	return &ScanAuditResult{
		Level:       level,
		ScanID:      scanID,
		Match:       len(divergences) == 0,
		Divergences: divergences,
	}, nil
}

// auditDeaths checks the death records of one scan against the scan record.
func (a *JournalAuditor) auditDeaths(record *domain.ScanRecord, deaths []*domain.DeathRecord) []FieldDivergence {
	var divergences []FieldDivergence

	if record.DeathCount != len(deaths) {
		divergences = append(divergences, FieldDivergence{
			Field:    "DeathCount",
			Expected: len(deaths),
			Actual:   record.DeathCount,
		})
	}

	var totalDead int64
	for _, d := range deaths {
		totalDead += d.Amount

		// The roll is a pure function of (seed, user); a journaled roll
		// that doesn't recompute means the submission was tampered with.
		roll := entropy.DeathRoll(record.Seed, d.User)
		if d.RollBps != roll {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("Death[%s].RollBps", d.User),
				Expected: roll,
				Actual:   d.RollBps,
			})
		}

		// A verified death requires roll < effective rate.
		if d.RollBps >= d.RateBps {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("Death[%s].RateBps", d.User),
				Expected: fmt.Sprintf("roll %d < rate", d.RollBps),
				Actual:   d.RateBps,
			})
		}

		wantID := idhash.ComputeDeathRecordID(d.Level, d.ScanID, d.User)
		if d.RecordID != wantID {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("Death[%s].RecordID", d.User),
				Expected: wantID,
				Actual:   d.RecordID,
			})
		}
	}

	if record.TotalDead != totalDead {
		divergences = append(divergences, FieldDivergence{
			Field:    "TotalDead",
			Expected: totalDead,
			Actual:   record.TotalDead,
		})
	}

	return divergences
}

// auditCascade checks that a scan with dead value has exactly one cascade
// record whose destinations sum back to the pool, and a scan without dead
// value has none.
func (a *JournalAuditor) auditCascade(ctx context.Context, record *domain.ScanRecord) ([]FieldDivergence, error) {
	all, err := a.cascades.GetBySourceLevel(ctx, record.Level)
	if err != nil {
		return nil, err
	}

	var cascade *domain.CascadeRecord
	for _, c := range all {
		if c.ScanID != record.ScanID {
			continue
		}
		if cascade != nil {
			return []FieldDivergence{{
				Field:    "Cascade",
				Expected: "one cascade per scan",
				Actual:   "multiple",
			}}, nil
		}
		cascade = c
	}

	if record.TotalDead == 0 {
		if cascade != nil {
			return []FieldDivergence{{
				Field:    "Cascade",
				Expected: nil,
				Actual:   cascade.RecordID,
			}}, nil
		}
		return nil, nil
	}

	if cascade == nil {
		return []FieldDivergence{{
			Field:    "Cascade",
			Expected: record.TotalDead,
			Actual:   nil,
		}}, nil
	}

	var divergences []FieldDivergence
	if cascade.TotalDead != record.TotalDead {
		divergences = append(divergences, FieldDivergence{
			Field:    "Cascade.TotalDead",
			Expected: record.TotalDead,
			Actual:   cascade.TotalDead,
		})
	}

	// The split is exhaustive: every unit of the pool lands somewhere.
	sum := cascade.SameLevel + cascade.Upstream + cascade.Burned + cascade.Treasury
	if sum != cascade.TotalDead {
		divergences = append(divergences, FieldDivergence{
			Field:    "Cascade.Split",
			Expected: cascade.TotalDead,
			Actual:   sum,
		})
	}

	return divergences, nil
}

// AuditLevel audits every journaled scan of one level.
func (a *JournalAuditor) AuditLevel(ctx context.Context, level int) (*AuditReport, error) {
	records, err := a.scans.GetByLevel(ctx, level)
	if err != nil {
		return nil, err
	}

	report := &AuditReport{
		TotalScans: len(records),
		Results:    make([]ScanAuditResult, 0, len(records)),
	}

	var prevScanID int64
	for _, record := range records {
		result, err := a.AuditScan(ctx, level, record.ScanID)
		if err != nil {
			return nil, err
		}

		// Scan ids are strictly increasing per level.
		if record.ScanID <= prevScanID {
			result.Divergences = append(result.Divergences, FieldDivergence{
				Field:    "ScanID",
				Expected: fmt.Sprintf("> %d", prevScanID),
				Actual:   record.ScanID,
			})
			result.Match = false
		}
		prevScanID = record.ScanID

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedScans++
		} else {
			report.DivergentScans++
		}
	}

	return report, nil
}

// AuditResets audits the journaled reset history.
func (a *JournalAuditor) AuditResets(ctx context.Context) ([]FieldDivergence, error) {
	events, err := a.resets.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	var divergences []FieldDivergence
	for i, e := range events {
		want := int64(i + 1)
		if e.Epoch != want {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("Reset[%d].Epoch", i),
				Expected: want,
				Actual:   e.Epoch,
			})
		}

		wantID := idhash.ComputeResetEventID(e.Epoch)
		if e.EventID != wantID {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("Reset[%d].EventID", i),
				Expected: wantID,
				Actual:   e.EventID,
			})
		}

		// The carved pool never exceeds PenaltyBps of TVL; per-level
		// flooring may make it smaller, never larger.
		paid := e.Jackpot + e.Burned + e.Treasury
		ceiling := e.TVL * e.PenaltyBps / domain.BpsDenominator
		if paid > ceiling {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("Reset[%d].Split", i),
				Expected: fmt.Sprintf("<= %d", ceiling),
				Actual:   paid,
			})
		}

		// No recipient means the jackpot folded to burn.
		if e.JackpotTo == "" && e.Jackpot != 0 {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("Reset[%d].Jackpot", i),
				Expected: int64(0),
				Actual:   e.Jackpot,
			})
		}
	}

	return divergences, nil
}

// Verify interface compliance at compile time.
var _ Auditor = (*JournalAuditor)(nil)
