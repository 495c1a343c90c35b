package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"ghostpool/internal/custody"
	"ghostpool/internal/domain"
	"ghostpool/internal/entropy"
)

var errCustodyDown = errors.New("custody unavailable")

// failingCustody wraps the fixture bank and fails selected operations, for
// asserting that a custody error leaves the ledger untouched.
type failingCustody struct {
	custody.Custody
	failTransferIn  bool
	failTransferOut bool
	failBurn        bool
}

func (c *failingCustody) TransferIn(ctx context.Context, from string, amount int64) error {
	if c.failTransferIn {
		return errCustodyDown
	}
	return c.Custody.TransferIn(ctx, from, amount)
}

func (c *failingCustody) TransferOut(ctx context.Context, to string, amount int64) error {
	if c.failTransferOut {
		return errCustodyDown
	}
	return c.Custody.TransferOut(ctx, to, amount)
}

func (c *failingCustody) Burn(ctx context.Context, amount int64) error {
	if c.failBurn {
		return errCustodyDown
	}
	return c.Custody.Burn(ctx, amount)
}

// flakyFixture is newFixture with the custody boundary wrapped so tests can
// inject failures per call.
func flakyFixture(t *testing.T, levels []domain.LevelConfig) (*fixture, *failingCustody) {
	t.Helper()
	flaky := &failingCustody{}
	f := newFixture(t, levels, func(o *Options) {
		flaky.Custody = o.Custody
		o.Custody = flaky
	})
	return f, flaky
}

// killWithResidue plays two scan rounds on level 2 and returns a user who is
// now dead holding 150 of uncollected rewards. "alice" holds 1000 at level 1
// throughout and ends with 600 pending from the upstream cascade shares.
func killWithResidue(t *testing.T, f *fixture) string {
	t.Helper()
	ctx := context.Background()

	exec1 := testGenesisMs + 50_000
	seed1 := seedFor(exec1, 2, 1)
	exec2 := testGenesisMs + 110_000
	seed2 := seedFor(exec2, 2, 2)

	const rate = int64(2_500)
	dieFirst := pickUser("first", func(u string) bool {
		return entropy.DeathRoll(seed1, u) < rate
	})
	dieSecond := pickUser("second", func(u string) bool {
		return entropy.DeathRoll(seed1, u) >= rate && entropy.DeathRoll(seed2, u) < rate
	})
	survivor := pickUser("steady", func(u string) bool {
		return entropy.DeathRoll(seed1, u) >= rate && entropy.DeathRoll(seed2, u) >= rate
	})

	f.open("alice", 1_000, 1)
	f.open(dieFirst, 1_000, 2)
	f.open(dieSecond, 1_000, 2)
	f.open(survivor, 1_000, 2)

	f.clock.ms = exec1
	_, err := f.eng.ExecuteScan(ctx, 2)
	require.NoError(t, err)
	_, err = f.eng.SubmitDeaths(ctx, 2, []string{dieFirst}, "keeper")
	require.NoError(t, err)
	f.clock.advance(10_000)
	require.NoError(t, f.eng.FinalizeScan(ctx, 2))

	f.clock.ms = exec2
	_, err = f.eng.ExecuteScan(ctx, 2)
	require.NoError(t, err)
	_, err = f.eng.SubmitDeaths(ctx, 2, []string{dieSecond}, "keeper")
	require.NoError(t, err)
	f.clock.advance(10_000)
	require.NoError(t, f.eng.FinalizeScan(ctx, 2))

	return dieSecond
}

func TestClaimRewardsCustodyFailureKeepsPending(t *testing.T) {
	f, flaky := flakyFixture(t, testLevels())
	ctx := context.Background()

	killWithResidue(t, f)

	pending, err := f.eng.PendingRewards("alice")
	require.NoError(t, err)
	require.Equal(t, int64(600), pending)

	flaky.failTransferOut = true
	_, err = f.eng.ClaimRewards(ctx, "alice")
	require.ErrorIs(t, err, errCustodyDown)

	pending, err = f.eng.PendingRewards("alice")
	require.NoError(t, err)
	require.Equal(t, int64(600), pending, "failed claim must not consume the pending rewards")

	flaky.failTransferOut = false
	claimed, err := f.eng.ClaimRewards(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(600), claimed)
	f.assertConserved()
}

func TestExtractCustodyFailureKeepsPosition(t *testing.T) {
	f, flaky := flakyFixture(t, testLevels())
	ctx := context.Background()

	f.open("alice", 1_000, 1)

	flaky.failTransferOut = true
	require.ErrorIs(t, f.eng.Extract(ctx, "alice"), errCustodyDown)

	pos, err := f.eng.GetPosition("alice")
	require.NoError(t, err)
	require.True(t, pos.Alive)
	require.Equal(t, int64(1_000), pos.Amount)
	require.Equal(t, int64(1_000), f.eng.TotalValueLocked())

	flaky.failTransferOut = false
	require.NoError(t, f.eng.Extract(ctx, "alice"))
	require.Equal(t, int64(1_000), f.bank.Balance("alice"))
	f.assertConserved()
}

func TestAddStakeCustodyFailureKeepsPosition(t *testing.T) {
	f, flaky := flakyFixture(t, testLevels())
	ctx := context.Background()

	f.open("alice", 1_000, 1)
	f.fund("alice", 500)

	flaky.failTransferIn = true
	require.ErrorIs(t, f.eng.AddStake(ctx, "alice", 500), errCustodyDown)

	pos, err := f.eng.GetPosition("alice")
	require.NoError(t, err)
	require.Equal(t, int64(1_000), pos.Amount)
	require.Equal(t, int64(500), f.bank.Balance("alice"))

	flaky.failTransferIn = false
	require.NoError(t, f.eng.AddStake(ctx, "alice", 500))
	require.Equal(t, int64(1_500), f.eng.TotalValueLocked())
	f.assertConserved()
}

func TestCollectDeadCustodyFailureKeepsResidue(t *testing.T) {
	f, flaky := flakyFixture(t, testLevels())
	ctx := context.Background()

	dead := killWithResidue(t, f)

	flaky.failTransferOut = true
	_, err := f.eng.CollectDead(ctx, dead)
	require.ErrorIs(t, err, errCustodyDown)

	residue, err := f.eng.PendingRewards(dead)
	require.NoError(t, err)
	require.Equal(t, int64(150), residue, "failed collection must keep the record")

	flaky.failTransferOut = false
	got, err := f.eng.CollectDead(ctx, dead)
	require.NoError(t, err)
	require.Equal(t, int64(150), got)
	f.assertConserved()
}

func TestOpenRefundsDepositWhenCullFails(t *testing.T) {
	// Full penalty: the victim gets nothing back, so the burn is the only
	// custody move inside the eviction.
	levels := []domain.LevelConfig{{
		Level:              1,
		BaseDeathRateBps:   500,
		ScanIntervalMs:     1_000_000,
		MinStake:           100,
		MaxAlive:           1,
		CullBottomPct:      25,
		CullPenaltyBps:     10_000,
		SubmissionWindowMs: 10_000,
		MaxDeathBatch:      10,
	}}
	f, flaky := flakyFixture(t, levels)
	ctx := context.Background()

	f.open("alice", 1_000, 1)

	flaky.failBurn = true
	f.fund("bob", 1_000)
	require.ErrorIs(t, f.eng.Open(ctx, "bob", 1_000, 1), errCustodyDown)

	// Deposit refunded, nobody evicted.
	require.Equal(t, int64(1_000), f.bank.Balance("bob"))
	_, err := f.eng.GetPosition("bob")
	require.ErrorIs(t, err, ErrNoPositionExists)
	alice, err := f.eng.GetPosition("alice")
	require.NoError(t, err)
	require.True(t, alice.Alive)
	require.Equal(t, int64(1_000), f.eng.TotalValueLocked())
	f.assertConserved()

	flaky.failBurn = false
	require.NoError(t, f.eng.Open(ctx, "bob", 1_000, 1))
	evicted, err := f.eng.GetPosition("alice")
	require.NoError(t, err)
	require.False(t, evicted.Alive)
	f.assertConserved()
}

func TestEmergencyWithdrawPaysDeadResidue(t *testing.T) {
	f := newFixture(t, testLevels())
	ctx := context.Background()

	dead := killWithResidue(t, f)

	residue, err := f.eng.PendingRewards(dead)
	require.NoError(t, err)
	require.Equal(t, int64(150), residue)

	// Even paused, the residue stays reachable and is never destroyed.
	f.eng.Pause()
	got, err := f.eng.EmergencyWithdraw(ctx, dead)
	require.NoError(t, err)
	require.Equal(t, int64(150), got)
	require.Equal(t, int64(150), f.bank.Balance(dead))

	_, err = f.eng.GetPosition(dead)
	require.ErrorIs(t, err, ErrNoPositionExists)
	f.assertConserved()
}
