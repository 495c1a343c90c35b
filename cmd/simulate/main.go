// Package main runs a deterministic population simulation against the
// settlement engine: a seeded cohort of stakers plays scan rounds under a
// controlled clock, a keeper submits every provable death, and value
// conservation is checked after every round. The same seed always produces
// the same run, so a diff between two builds is a behavior change.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"

	custmem "ghostpool/internal/custody/memory"
	"ghostpool/internal/domain"
	"ghostpool/internal/engine"
	"ghostpool/internal/entropy"
	"ghostpool/internal/storage/memory"
)

const genesisMs = int64(1_700_000_000_000)

// simLevels are compressed tiers: the default production intervals would
// make a multi-round run advance the clock by days per round for nothing.
func simLevels() []domain.LevelConfig {
	return []domain.LevelConfig{
		{Level: 1, BaseDeathRateBps: 500, ScanIntervalMs: 600_000, MinStake: 100, CullBottomPct: 25, CullPenaltyBps: 5000, SubmissionWindowMs: 60_000, MaxDeathBatch: 50},
		{Level: 2, BaseDeathRateBps: 2_500, ScanIntervalMs: 600_000, MinStake: 250, MaxAlive: 40, CullBottomPct: 25, CullPenaltyBps: 7000, SubmissionWindowMs: 60_000, MaxDeathBatch: 50},
		{Level: 3, BaseDeathRateBps: 5_000, ScanIntervalMs: 600_000, MinStake: 500, MaxAlive: 20, CullBottomPct: 20, CullPenaltyBps: 8000, SubmissionWindowMs: 60_000, MaxDeathBatch: 50},
	}
}

type simClock struct{ ms int64 }

func (c *simClock) now() int64      { return c.ms }
func (c *simClock) advance(d int64) { c.ms += d }

// summary is the machine-readable result of one run.
type summary struct {
	Seed           int64          `json:"seed"`
	Users          int            `json:"users"`
	Rounds         int            `json:"rounds"`
	ScansExecuted  int            `json:"scans_executed"`
	DeathsRecorded int            `json:"deaths_recorded"`
	ValueCascaded  int64          `json:"value_cascaded"`
	ResetsFired    int            `json:"resets_fired"`
	Culls          int            `json:"culls"`
	Claims         int64          `json:"rewards_claimed"`
	Burned         int64          `json:"burned"`
	Treasury       int64          `json:"treasury"`
	FinalTVL       int64          `json:"final_tvl"`
	AliveByLevel   map[string]int `json:"alive_by_level"`
	LongestStreak  int            `json:"longest_streak"`
}

func main() {
	users := flag.Int("users", 60, "Number of simulated stakers")
	rounds := flag.Int("rounds", 20, "Number of scan rounds to play")
	seed := flag.Int64("seed", 1, "Deterministic seed for entropy and user behavior")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)

	if *users <= 0 || *rounds <= 0 {
		logger.Fatal("--users and --rounds must be positive")
	}

	result, err := run(*users, *rounds, *seed, logger)
	if err != nil {
		logger.Fatalf("simulation failed: %v", err)
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	} else {
		printSummary(result)
	}
}

func run(users, rounds int, seed int64, logger *log.Logger) (*summary, error) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(seed))
	clock := &simClock{ms: genesisMs}
	bank := custmem.New()

	// Chain entropy derived from the seed; fixed for the whole run so the
	// only per-scan variation comes from the clock and the nonce.
	var sample entropy.Sample
	sample.Entropy = sha256.Sum256([]byte(fmt.Sprintf("simulate|%d", seed)))
	sample.BlockHeight = seed

	result := &summary{Seed: seed, Users: users, Rounds: rounds, AliveByLevel: map[string]int{}}

	eng, err := engine.New(engine.Options{
		Custody:         bank,
		Entropy:         &entropy.FixedSource{Value: sample},
		Journal:         memory.NewJournal(),
		Levels:          simLevels(),
		TreasuryAccount: "treasury",
		Now:             clock.now,
		Logger:          logger,
		EventSink: func(ev domain.Event) {
			switch ev.Kind {
			case domain.EventScanExecuted:
				result.ScansExecuted++
			case domain.EventCascade:
				result.ValueCascaded += ev.Amount
			case domain.EventSystemReset:
				result.ResetsFired++
			case domain.EventPositionCulled:
				result.Culls++
			case domain.EventRewardsClaimed:
				result.Claims += ev.Amount
			}
		},
	})
	if err != nil {
		return nil, err
	}

	// Seed the population. Everyone gets a funded wallet; level and stake
	// are drawn from the rng.
	var minted int64
	names := make([]string, users)
	levels := simLevels()
	for i := range names {
		names[i] = fmt.Sprintf("user%03d", i)
		funding := int64(1_000 + rng.Intn(9_000))
		bank.Credit(names[i], funding)
		minted += funding

		cfg := levels[rng.Intn(len(levels))]
		stake := cfg.MinStake + int64(rng.Intn(int(cfg.MinStake)))
		if stake > funding {
			stake = cfg.MinStake
		}
		if err := eng.Open(ctx, names[i], stake, cfg.Level); err != nil {
			return nil, fmt.Errorf("open %s: %w", names[i], err)
		}
	}

	for round := 1; round <= rounds; round++ {
		// Make every level scan-ready.
		clock.advance(600_000)

		deaths, err := playScanRound(ctx, eng, clock, round, logger)
		if err != nil {
			return nil, err
		}
		result.DeathsRecorded += deaths

		// A slice of survivors acts each round: claim, add or re-open.
		if err := playUserActions(ctx, eng, bank, names, rng); err != nil {
			return nil, err
		}

		// Fire the dead-man's-switch whenever it has lapsed.
		if clock.now() >= eng.ResetView().DeadlineMs {
			if _, err := eng.TriggerSystemReset(ctx, "simulate"); err != nil {
				return nil, fmt.Errorf("trigger reset: %w", err)
			}
		}

		if err := checkConservation(bank, names, minted); err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}
	}

	result.Burned = bank.Burned()
	result.Treasury = bank.Balance("treasury")
	result.FinalTVL = eng.TotalValueLocked()
	for _, level := range eng.Levels() {
		state, err := eng.LevelStateView(level)
		if err != nil {
			return nil, err
		}
		result.AliveByLevel[fmt.Sprintf("level_%d", level)] = state.AliveCount
	}
	for _, name := range names {
		if pos, err := eng.GetPosition(name); err == nil && pos.GhostStreak > result.LongestStreak {
			result.LongestStreak = pos.GhostStreak
		}
	}

	return result, nil
}

// playScanRound executes, submits and finalizes one scan on every level,
// returning the total deaths recorded. The keeper is honest and complete:
// it submits exactly the users whose recomputed roll proves death at their
// effective rate.
func playScanRound(ctx context.Context, eng *engine.Engine, clock *simClock, round int, logger *log.Logger) (int, error) {
	type pending struct {
		level int
		seed  string
	}
	var open []pending

	for _, level := range eng.Levels() {
		scan, err := eng.ExecuteScan(ctx, level)
		if err != nil {
			return 0, fmt.Errorf("execute scan level %d: %w", level, err)
		}
		open = append(open, pending{level: level, seed: scan.Seed})
	}

	total := 0
	for _, p := range open {
		alive, err := eng.AlivePositions(p.level)
		if err != nil {
			return 0, err
		}
		sort.Strings(alive)

		var deaths []string
		for _, user := range alive {
			rate, err := eng.EffectiveDeathRate(user, p.level)
			if err != nil {
				return 0, err
			}
			if entropy.DeathRoll(p.seed, user) < rate {
				deaths = append(deaths, user)
			}
		}

		cfg, err := eng.LevelConfigView(p.level)
		if err != nil {
			return 0, err
		}
		for start := 0; start < len(deaths); start += cfg.MaxDeathBatch {
			end := start + cfg.MaxDeathBatch
			if end > len(deaths) {
				end = len(deaths)
			}
			if _, err := eng.SubmitDeaths(ctx, p.level, deaths[start:end], "simulate"); err != nil {
				return 0, fmt.Errorf("submit deaths level %d: %w", p.level, err)
			}
		}
		total += len(deaths)
		logger.Printf("round %d level %d: %d alive, %d deaths", round, p.level, len(alive), len(deaths))
	}

	// Close every submission window, then cascade the pools.
	clock.advance(60_000)
	for _, p := range open {
		if err := eng.FinalizeScan(ctx, p.level); err != nil {
			return 0, fmt.Errorf("finalize scan level %d: %w", p.level, err)
		}
	}

	return total, nil
}

// playUserActions has a random slice of users claim, add stake or re-open.
func playUserActions(ctx context.Context, eng *engine.Engine, bank *custmem.Custody, names []string, rng *rand.Rand) error {
	levels := simLevels()
	for _, name := range names {
		if rng.Intn(4) != 0 {
			continue
		}

		pos, err := eng.GetPosition(name)
		if err != nil {
			// No position: re-enter at a random level if funded.
			cfg := levels[rng.Intn(len(levels))]
			if bank.Balance(name) < cfg.MinStake {
				continue
			}
			_ = eng.Open(ctx, name, cfg.MinStake, cfg.Level)
			continue
		}

		if !pos.Alive {
			// Collect the forfeit residue, then re-enter next time around.
			if _, err := eng.CollectDead(ctx, name); err != nil {
				return err
			}
			continue
		}

		switch rng.Intn(3) {
		case 0:
			if _, err := eng.ClaimRewards(ctx, name); err != nil {
				return err
			}
		case 1:
			if bank.Balance(name) >= 100 {
				_ = eng.AddStake(ctx, name, 100)
			}
		case 2:
			// Extraction can be refused inside a lock window; that is a
			// legitimate outcome, not a simulation failure.
			_ = eng.Extract(ctx, name)
		}
	}
	return nil
}

// checkConservation proves no value was created or destroyed: everything
// minted is still in a wallet, the vault, the treasury or the burn sink.
func checkConservation(bank *custmem.Custody, names []string, minted int64) error {
	total := bank.Vault() + bank.Burned() + bank.Balance("treasury")
	for _, name := range names {
		total += bank.Balance(name)
	}
	if total != minted {
		return fmt.Errorf("conservation broken: minted %d, accounted %d", minted, total)
	}
	return nil
}

func printSummary(s *summary) {
	fmt.Println()
	fmt.Println("=== Simulation Result ===")
	fmt.Printf("Seed:             %d\n", s.Seed)
	fmt.Printf("Users:            %d\n", s.Users)
	fmt.Printf("Rounds:           %d\n", s.Rounds)
	fmt.Println()

	fmt.Println("Activity:")
	fmt.Printf("  Scans Executed:   %d\n", s.ScansExecuted)
	fmt.Printf("  Deaths Recorded:  %d\n", s.DeathsRecorded)
	fmt.Printf("  Value Cascaded:   %d\n", s.ValueCascaded)
	fmt.Printf("  Resets Fired:     %d\n", s.ResetsFired)
	fmt.Printf("  Capacity Culls:   %d\n", s.Culls)
	fmt.Printf("  Rewards Claimed:  %d\n", s.Claims)
	fmt.Println()

	fmt.Println("Final State:")
	fmt.Printf("  TVL:              %d\n", s.FinalTVL)
	fmt.Printf("  Burned:           %d\n", s.Burned)
	fmt.Printf("  Treasury:         %d\n", s.Treasury)
	fmt.Printf("  Longest Streak:   %d\n", s.LongestStreak)

	levels := make([]string, 0, len(s.AliveByLevel))
	for level := range s.AliveByLevel {
		levels = append(levels, level)
	}
	sort.Strings(levels)
	for _, level := range levels {
		fmt.Printf("  Alive %s:    %d\n", level, s.AliveByLevel[level])
	}
}
