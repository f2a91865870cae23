package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/hengadev/medlock/internal/types"
)

// Derivation selects how a signature becomes a key.
type Derivation string

const (
	// DerivationSHA256 hashes the signature once. Keys match other clients of the same ledger.
	DerivationSHA256 Derivation = "sha256"
	// DerivationHKDF expands the signature with HKDF-SHA256, salted by the public key.
	DerivationHKDF Derivation = "hkdf-sha256"
)

// Valid reports whether d is a known derivation.
func (d Derivation) Valid() bool {
	return d == DerivationSHA256 || d == DerivationHKDF
}

// KeyFromSignature turns a signature over message into a 32-byte key.
func KeyFromSignature(d Derivation, signature []byte, publicKey types.PublicKey, message []byte) ([KeySize]byte, error) {
	var key [KeySize]byte
	if len(signature) == 0 {
		return key, fmt.Errorf("%w: empty signature", types.ErrSigningUnavailable)
	}
	switch d {
	case DerivationSHA256, "":
		key = sha256.Sum256(signature)
	case DerivationHKDF:
		r := hkdf.New(sha256.New, signature, publicKey[:], message)
		if _, err := io.ReadFull(r, key[:]); err != nil {
			return key, fmt.Errorf("hkdf expand: %w", err)
		}
	default:
		return key, fmt.Errorf("%w: unknown key derivation %q", types.ErrInvalidConfiguration, d)
	}
	return key, nil
}
