package engine

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"

	"ghostpool/internal/authgate"
	"ghostpool/internal/domain"
)

func newBoostSigner(t *testing.T) (string, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return base58.Encode(pub), priv
}

func signedGrant(priv ed25519.PrivateKey, user string, kind domain.BoostKind, valueBps, expiryMs int64, nonce string) *domain.BoostGrant {
	g := &domain.BoostGrant{
		User:     user,
		Kind:     kind,
		ValueBps: valueBps,
		ExpiryMs: expiryMs,
		Nonce:    nonce,
	}
	g.Signature = ed25519.Sign(priv, authgate.CanonicalMessage(g))
	return g
}

func TestApplyBoostRequiresSigner(t *testing.T) {
	f := newFixture(t, testLevels())

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	grant := signedGrant(priv, "alice", domain.BoostDeathRate, 500, testGenesisMs+60_000, "n-1")

	require.ErrorIs(t, f.eng.ApplyBoost(context.Background(), grant), ErrNoBoostSigner)
}

func TestApplyBoostVerificationAndReplay(t *testing.T) {
	signerB58, priv := newBoostSigner(t)
	f := newFixture(t, testLevels(), func(o *Options) { o.BoostSigner = signerB58 })
	ctx := context.Background()

	expiry := testGenesisMs + 60_000
	grant := signedGrant(priv, "alice", domain.BoostDeathRate, 500, expiry, "n-1")
	require.NoError(t, f.eng.ApplyBoost(ctx, grant))

	boosts := f.eng.ActiveBoosts("alice")
	require.Len(t, boosts, 1)
	require.Equal(t, domain.BoostDeathRate, boosts[0].Kind)
	require.Equal(t, int64(500), boosts[0].ValueBps)

	// Same nonce cannot be applied twice, even with a fresh signature.
	replay := signedGrant(priv, "alice", domain.BoostDeathRate, 500, expiry, "n-1")
	require.ErrorIs(t, f.eng.ApplyBoost(ctx, replay), ErrNonceAlreadyUsed)

	// Tampering with a signed field breaks the signature.
	tampered := signedGrant(priv, "alice", domain.BoostDeathRate, 500, expiry, "n-2")
	tampered.ValueBps = 9_999
	require.ErrorIs(t, f.eng.ApplyBoost(ctx, tampered), authgate.ErrInvalidSignature)

	// A grant signed by anyone but the configured signer is rejected.
	_, otherPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	forged := signedGrant(otherPriv, "alice", domain.BoostDeathRate, 500, expiry, "n-3")
	require.ErrorIs(t, f.eng.ApplyBoost(ctx, forged), authgate.ErrInvalidSignature)

	expired := signedGrant(priv, "alice", domain.BoostDeathRate, 500, testGenesisMs, "n-4")
	require.ErrorIs(t, f.eng.ApplyBoost(ctx, expired), authgate.ErrSignatureExpired)

	grants, err := f.journal.Boosts.GetByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.Equal(t, "n-1", grants[0].Nonce)
}

func TestDeathRateBoostLowersEffectiveRate(t *testing.T) {
	signerB58, priv := newBoostSigner(t)
	f := newFixture(t, testLevels(), func(o *Options) { o.BoostSigner = signerB58 })
	ctx := context.Background()

	rate, err := f.eng.EffectiveDeathRate("alice", 2)
	require.NoError(t, err)
	require.Equal(t, int64(2_500), rate)

	expiry := testGenesisMs + 60_000
	require.NoError(t, f.eng.ApplyBoost(ctx, signedGrant(priv, "alice", domain.BoostDeathRate, 1_000, expiry, "n-1")))

	rate, err = f.eng.EffectiveDeathRate("alice", 2)
	require.NoError(t, err)
	require.Equal(t, int64(1_500), rate)

	// Stacked boosts clamp at zero rather than going negative.
	require.NoError(t, f.eng.ApplyBoost(ctx, signedGrant(priv, "alice", domain.BoostDeathRate, 5_000, expiry, "n-2")))
	rate, err = f.eng.EffectiveDeathRate("alice", 2)
	require.NoError(t, err)
	require.Equal(t, int64(0), rate)

	// Other users keep the base rate.
	rate, err = f.eng.EffectiveDeathRate("bob", 2)
	require.NoError(t, err)
	require.Equal(t, int64(2_500), rate)

	_, err = f.eng.EffectiveDeathRate("alice", 99)
	require.ErrorIs(t, err, ErrInvalidLevel)
}

func TestYieldBoostScalesPayout(t *testing.T) {
	signerB58, priv := newBoostSigner(t)
	f := newFixture(t, testLevels(), func(o *Options) { o.BoostSigner = signerB58 })
	ctx := context.Background()

	f.open("alice", 1_000, 1)

	// Accrue 300 of rewards directly through the per-share accumulator.
	f.eng.mu.Lock()
	state := f.eng.states[1]
	state.AccRewardsPerShare += mulDiv(300, domain.PrecisionFactor, state.TotalStaked)
	f.eng.mu.Unlock()

	require.NoError(t, f.eng.ApplyBoost(ctx, signedGrant(priv, "alice", domain.BoostYield, 2_000, testGenesisMs+60_000, "n-1")))

	// Pending reports the unboosted accrual; the payout is scaled by 20%.
	pending, err := f.eng.PendingRewards("alice")
	require.NoError(t, err)
	require.Equal(t, int64(300), pending)

	got, err := f.eng.ClaimRewards(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(360), got)
}

func TestBoostsExpireByFiltering(t *testing.T) {
	signerB58, priv := newBoostSigner(t)
	f := newFixture(t, testLevels(), func(o *Options) { o.BoostSigner = signerB58 })
	ctx := context.Background()

	expiry := testGenesisMs + 10_000
	require.NoError(t, f.eng.ApplyBoost(ctx, signedGrant(priv, "alice", domain.BoostDeathRate, 1_000, expiry, "n-1")))

	// Boost exceeds the level 1 base rate of 500, so it clamps to zero.
	rate, err := f.eng.EffectiveDeathRate("alice", 1)
	require.NoError(t, err)
	require.Equal(t, int64(0), rate)

	f.clock.advance(10_000)

	require.Empty(t, f.eng.ActiveBoosts("alice"))
	rate, err = f.eng.EffectiveDeathRate("alice", 1)
	require.NoError(t, err)
	require.Equal(t, int64(500), rate)
}

func TestSetBoostSignerRotation(t *testing.T) {
	f := newFixture(t, testLevels())
	ctx := context.Background()

	require.Error(t, f.eng.SetBoostSigner("not-a-key"))

	signerB58, priv := newBoostSigner(t)
	require.NoError(t, f.eng.SetBoostSigner(signerB58))

	grant := signedGrant(priv, "alice", domain.BoostYield, 500, testGenesisMs+60_000, "n-1")
	require.NoError(t, f.eng.ApplyBoost(ctx, grant))
}
