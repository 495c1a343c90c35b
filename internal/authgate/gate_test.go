package authgate

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghostpool/internal/domain"
)

func newSigner(t *testing.T) (ed25519.PrivateKey, *Gate) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	gate, err := New(base58.Encode(pub))
	require.NoError(t, err)
	return priv, gate
}

func signedGrant(priv ed25519.PrivateKey) *domain.BoostGrant {
	g := &domain.BoostGrant{
		User:     "UserKey111",
		Kind:     domain.BoostDeathRate,
		ValueBps: 500,
		ExpiryMs: 10_000,
		Nonce:    "nonce-1",
	}
	g.Signature = ed25519.Sign(priv, CanonicalMessage(g))
	return g
}

func TestVerify_ValidGrant(t *testing.T) {
	priv, gate := newSigner(t)
	g := signedGrant(priv)

	assert.NoError(t, gate.Verify(g, 5_000))
}

func TestVerify_Expired(t *testing.T) {
	priv, gate := newSigner(t)
	g := signedGrant(priv)

	assert.ErrorIs(t, gate.Verify(g, 10_000), ErrSignatureExpired)
	assert.ErrorIs(t, gate.Verify(g, 99_999), ErrSignatureExpired)
}

func TestVerify_TamperedFields(t *testing.T) {
	priv, gate := newSigner(t)

	tests := []struct {
		name   string
		mutate func(*domain.BoostGrant)
	}{
		{"user swapped", func(g *domain.BoostGrant) { g.User = "Mallory" }},
		{"kind swapped", func(g *domain.BoostGrant) { g.Kind = domain.BoostYield }},
		{"value raised", func(g *domain.BoostGrant) { g.ValueBps = 9_999 }},
		{"expiry pushed", func(g *domain.BoostGrant) { g.ExpiryMs = 1 << 40 }},
		{"nonce swapped", func(g *domain.BoostGrant) { g.Nonce = "nonce-2" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := signedGrant(priv)
			tt.mutate(g)
			assert.ErrorIs(t, gate.Verify(g, 5_000), ErrInvalidSignature)
		})
	}
}

func TestVerify_WrongSigner(t *testing.T) {
	_, gate := newSigner(t)

	_, otherPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	g := signedGrant(otherPriv)
	assert.ErrorIs(t, gate.Verify(g, 5_000), ErrInvalidSignature)
}

func TestVerify_MalformedSignature(t *testing.T) {
	priv, gate := newSigner(t)
	g := signedGrant(priv)
	g.Signature = g.Signature[:10]

	assert.ErrorIs(t, gate.Verify(g, 5_000), ErrInvalidSignature)
}

func TestDecodeSigner_Rejects(t *testing.T) {
	_, err := DecodeSigner("not-base58-0OIl")
	assert.ErrorIs(t, err, ErrInvalidSigner)

	// Wrong length: 16 bytes
	_, err = DecodeSigner(base58.Encode(make([]byte, 16)))
	assert.ErrorIs(t, err, ErrInvalidSigner)
}
