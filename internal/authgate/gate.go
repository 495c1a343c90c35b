// Package authgate verifies externally-signed boost authorizations.
// A grant is a detached ed25519 signature by the configured boost signer over
// the canonical message of (user, kind, value, expiry, nonce). Nonce replay
// protection is owned by the settlement engine, which checks grants under its
// own lock; the gate itself is stateless.
package authgate

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"ghostpool/internal/domain"
)

// Gate errors.
var (
	// ErrSignatureExpired is returned when the grant expiry has passed.
	ErrSignatureExpired = errors.New("signature expired")

	// ErrInvalidSignature is returned when the signature does not verify
	// against the configured signer.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInvalidSigner is returned when a signer key is not a canonical
	// ed25519 public key.
	ErrInvalidSigner = errors.New("invalid signer key")
)

// messagePrefix versions the canonical message format. Changing the format
// requires a new prefix so old signatures cannot be replayed against it.
const messagePrefix = "ghostpool/boost/v1"

// Gate verifies boost grants against a single signer identity.
type Gate struct {
	signer ed25519.PublicKey
}

// New creates a Gate for a base58-encoded ed25519 signer public key.
func New(signerB58 string) (*Gate, error) {
	signer, err := DecodeSigner(signerB58)
	if err != nil {
		return nil, err
	}
	return &Gate{signer: signer}, nil
}

// DecodeSigner decodes and validates a base58 ed25519 public key.
// The key must be 32 bytes and a canonical point on the curve.
func DecodeSigner(signerB58 string) (ed25519.PublicKey, error) {
	raw, err := base58.Decode(signerB58)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSigner, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSigner, len(raw), ed25519.PublicKeySize)
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return nil, fmt.Errorf("%w: not on curve", ErrInvalidSigner)
	}
	return ed25519.PublicKey(raw), nil
}

// CanonicalMessage builds the byte string the signer commits to.
// Format: ghostpool/boost/v1|user|kind|value_bps|expiry_ms|nonce
func CanonicalMessage(g *domain.BoostGrant) []byte {
	return []byte(fmt.Sprintf("%s|%s|%s|%d|%d|%s",
		messagePrefix, g.User, g.Kind, g.ValueBps, g.ExpiryMs, g.Nonce))
}

// Verify checks the grant's expiry and signature. It does not check nonce
// replay; the caller owns the spent-nonce set.
func (gt *Gate) Verify(g *domain.BoostGrant, nowMs int64) error {
	if nowMs >= g.ExpiryMs {
		return ErrSignatureExpired
	}
	if len(g.Signature) != ed25519.SignatureSize {
		return ErrInvalidSignature
	}
	if !ed25519.Verify(gt.signer, CanonicalMessage(g), g.Signature) {
		return ErrInvalidSignature
	}
	return nil
}
