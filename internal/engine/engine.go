// Package engine implements the settlement core of the staking-survival
// game: the position ledger, level registry, cascade distributor, capacity
// culler, reset timer and the three-phase trustless scan protocol.
//
// The engine owns all live settlement state behind a single mutex, so every
// operation is atomic end to end relative to every other operation. There is
// no internal scheduler: every time-dependent transition is a guard condition
// checked when an external caller invokes the entry point.
package engine

import (
	"context"
	"log"
	"math/bits"
	"sync"
	"time"

	"ghostpool/internal/authgate"
	"ghostpool/internal/custody"
	"ghostpool/internal/domain"
	"ghostpool/internal/entropy"
	"ghostpool/internal/storage"
)

// deadKey identifies one recorded death. Entries are never removed: scan ids
// are unique forever, so stale keys are simply never looked up again.
type deadKey struct {
	level  int
	scanID int64
	user   string
}

// Options configures a new Engine.
type Options struct {
	// Required collaborators
	Custody custody.Custody
	Entropy entropy.Source
	Journal *storage.Journal

	// Level configuration; defaults to domain.DefaultLevelConfigs().
	Levels []domain.LevelConfig

	// TreasuryAccount receives treasury shares via custody.
	TreasuryAccount string

	// BoostSigner is the base58 ed25519 key boosts must be signed by.
	// Optional; ApplyBoost fails until one is set.
	BoostSigner string

	// VictimStrategy selects capacity-cull victims. Defaults to
	// BottomPercentileStrategy.
	VictimStrategy VictimStrategy

	// Now returns the current unix time in milliseconds. Defaults to
	// wall clock. Injected by tests and the simulator.
	Now func() int64

	// EventSink receives every settlement event, called synchronously under
	// the engine lock. Optional.
	EventSink func(domain.Event)

	// Logger for journal write failures. Optional.
	Logger *log.Logger
}

// Engine is the settlement core. All exported methods are safe for
// concurrent use; each runs as one atomic step.
type Engine struct {
	mu sync.Mutex

	custody  custody.Custody
	entropy  entropy.Source
	journal  *storage.Journal
	gate     *authgate.Gate
	victims  VictimStrategy
	now      func() int64
	sink     func(domain.Event)
	logger   *log.Logger
	treasury string

	configs map[int]domain.LevelConfig
	states  map[int]*domain.LevelState
	arenas  map[int]*arena
	maxLevel int

	positions map[string]*domain.Position

	scans      map[int]*domain.Scan // active (non-finalized) scan per level
	lastScanID map[int]int64
	deadInScan map[deadKey]struct{} // idempotency set, never cleaned

	reset          domain.SystemReset
	penaltyByEpoch map[int64]int64 // epoch -> penalty bps, consumed lazily

	boosts      map[string][]domain.Boost
	spentNonces map[string]struct{} // keyed user|nonce

	paused bool
}

// New creates an Engine. The reset timer arms at the default distance from
// now; every level's first scan is one interval out.
func New(opts Options) (*Engine, error) {
	levels := opts.Levels
	if levels == nil {
		levels = domain.DefaultLevelConfigs()
	}

	e := &Engine{
		custody:        opts.Custody,
		entropy:        opts.Entropy,
		journal:        opts.Journal,
		victims:        opts.VictimStrategy,
		now:            opts.Now,
		sink:           opts.EventSink,
		logger:         opts.Logger,
		treasury:       opts.TreasuryAccount,
		configs:        make(map[int]domain.LevelConfig),
		states:         make(map[int]*domain.LevelState),
		arenas:         make(map[int]*arena),
		positions:      make(map[string]*domain.Position),
		scans:          make(map[int]*domain.Scan),
		lastScanID:     make(map[int]int64),
		deadInScan:     make(map[deadKey]struct{}),
		penaltyByEpoch: make(map[int64]int64),
		boosts:         make(map[string][]domain.Boost),
		spentNonces:    make(map[string]struct{}),
	}
	if e.now == nil {
		e.now = func() int64 { return time.Now().UnixMilli() }
	}
	if e.victims == nil {
		e.victims = &BottomPercentileStrategy{}
	}

	if opts.BoostSigner != "" {
		gate, err := authgate.New(opts.BoostSigner)
		if err != nil {
			return nil, err
		}
		e.gate = gate
	}

	nowMs := e.now()
	for _, cfg := range levels {
		e.configs[cfg.Level] = cfg
		e.states[cfg.Level] = &domain.LevelState{
			Level:          cfg.Level,
			NextScanTimeMs: nowMs + cfg.ScanIntervalMs,
		}
		e.arenas[cfg.Level] = newArena()
		if cfg.Level > e.maxLevel {
			e.maxLevel = cfg.Level
		}
	}

	e.reset = domain.SystemReset{DeadlineMs: nowMs + domain.DefaultResetDeadlineMs}

	return e, nil
}

// mulDiv computes a*b/den exactly through a 128-bit intermediate.
// Inputs must be non-negative and the quotient must fit in int64.
func mulDiv(a, b, den int64) int64 {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	q, _ := bits.Div64(hi, lo, uint64(den))
	return int64(q)
}

// mulDivCeil is mulDiv rounding up. Used for per-position penalty cuts so
// rounding never leaves the vault short.
func mulDivCeil(a, b, den int64) int64 {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	q, r := bits.Div64(hi, lo, uint64(den))
	if r > 0 {
		q++
	}
	return int64(q)
}

// emit pushes an event to the sink, if any.
func (e *Engine) emit(ev domain.Event) {
	if e.sink != nil {
		e.sink(ev)
	}
}

// journalErr logs a journal write failure. The journal is an audit trail;
// settlement state is authoritative and has already been applied.
func (e *Engine) journalErr(op string, err error) {
	if err == nil {
		return
	}
	if e.logger != nil {
		e.logger.Printf("journal write failed (%s): %v", op, err)
	}
}

// pendingLocked computes the reward delta since the last debt snapshot,
// clamped at zero. Callers hold the engine lock.
func pendingLocked(pos *domain.Position, state *domain.LevelState) int64 {
	earned := mulDiv(pos.Amount, state.AccRewardsPerShare, domain.PrecisionFactor)
	if earned <= pos.RewardDebt {
		return 0
	}
	return earned - pos.RewardDebt
}

// settlePendingLocked folds the pending delta into the position's accrued
// carry and re-snapshots the debt baseline.
func (e *Engine) settlePendingLocked(pos *domain.Position, state *domain.LevelState) {
	pos.AccruedRewards += pendingLocked(pos, state)
	pos.RewardDebt = mulDiv(pos.Amount, state.AccRewardsPerShare, domain.PrecisionFactor)
}

// settleEpochPenaltyLocked applies exactly one penalty application per epoch
// the position missed since it was last settled. The carved value was paid
// out of the vault and deducted from the level aggregate when each reset
// fired, so only the position itself moves here; the per-position cut rounds
// up to keep the sum of position amounts within the already-reduced
// aggregate. No-op for dead or absent positions.
func (e *Engine) settleEpochPenaltyLocked(pos *domain.Position) {
	if pos == nil || pos.Level == domain.LevelNone {
		return
	}
	if pos.LastSettledEpoch >= e.reset.Epoch {
		return
	}
	state := e.states[pos.Level]
	if pos.Alive {
		// Settle rewards against the pre-penalty amount first.
		e.settlePendingLocked(pos, state)
		for epoch := pos.LastSettledEpoch + 1; epoch <= e.reset.Epoch; epoch++ {
			bps, ok := e.penaltyByEpoch[epoch]
			if !ok {
				continue
			}
			pos.Amount -= mulDivCeil(pos.Amount, bps, domain.BpsDenominator)
		}
		pos.RewardDebt = mulDiv(pos.Amount, state.AccRewardsPerShare, domain.PrecisionFactor)
	}
	pos.LastSettledEpoch = e.reset.Epoch
}

// ctxErr propagates context cancellation before a state-mutating step.
func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
