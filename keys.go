package medlock

import (
	"context"
	"errors"
	"fmt"

	"github.com/hengadev/medlock/internal/crypto"
	"github.com/hengadev/medlock/internal/security"
	"github.com/hengadev/medlock/internal/types"
)

// KeyDerivation selects how a signature becomes a record key.
type KeyDerivation = crypto.Derivation

const (
	// DerivationSHA256 is sha256(signature). Other clients of the same ledger use it.
	DerivationSHA256 = crypto.DerivationSHA256
	// DerivationHKDF is HKDF-SHA256 with the public key as salt and the message as info.
	DerivationHKDF = crypto.DerivationHKDF
)

// Key is a 256-bit record key. It has no exported fields and never prints.
type Key struct {
	b [crypto.KeySize]byte
}

func (Key) String() string   { return "Key(redacted)" }
func (Key) GoString() string { return "medlock.Key(redacted)" }

// MarshalText refuses to serialize the key.
func (Key) MarshalText() ([]byte, error) {
	return nil, fmt.Errorf("%w: keys are never serialized", ErrInvalidFormat)
}

// Equal compares two keys in constant time.
func (k Key) Equal(other Key) bool { return security.Equal(k.b[:], other.b[:]) }

// Wipe zeroes the key. A wiped key still encrypts, under the all-zero key, so
// callers wipe only when done with it.
func (k *Key) Wipe() { security.ZeroBytes(k.b[:]) }

// DeriveKey asks signer to sign message and hashes the signature into a key.
// The same identity and message always give the same key.
func DeriveKey(ctx context.Context, signer Signer, message []byte) (Key, error) {
	return deriveKey(ctx, signer, message, DerivationSHA256)
}

func deriveKey(ctx context.Context, signer Signer, message []byte, derivation KeyDerivation) (Key, error) {
	if signer == nil || !signer.Connected() {
		return Key{}, fmt.Errorf("%w: no connected signer", ErrSigningUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return Key{}, fmt.Errorf("%w: %w", ErrSigningUnavailable, err)
	}

	sig, err := signer.SignMessage(ctx, message)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Key{}, fmt.Errorf("%w: %w", ErrSigningUnavailable, ctxErr)
		}
		if errors.Is(err, ErrUserDeclined) || errors.Is(err, ErrSigningUnavailable) {
			return Key{}, err
		}
		return Key{}, fmt.Errorf("%w: %w", ErrSigningUnavailable, err)
	}

	sigBuf := security.NewBuffer(sig)
	defer sigBuf.Close()

	raw, err := crypto.KeyFromSignature(derivation, sigBuf.Bytes(), signer.PublicKey(), message)
	if err != nil {
		return Key{}, err
	}
	return Key{b: raw}, nil
}

// signInstruction signs the canonical bytes of ix with signer, which must be its authority.
func signInstruction(ctx context.Context, signer Signer, ix types.Instruction) (SignedInstruction, error) {
	if signer == nil || !signer.Connected() {
		return SignedInstruction{}, fmt.Errorf("%w: no connected signer", ErrSigningUnavailable)
	}
	msg, err := ix.SigningBytes()
	if err != nil {
		return SignedInstruction{}, err
	}
	sig, err := signer.SignMessage(ctx, msg)
	if err != nil {
		if errors.Is(err, ErrUserDeclined) || errors.Is(err, ErrSigningUnavailable) {
			return SignedInstruction{}, err
		}
		return SignedInstruction{}, fmt.Errorf("%w: sign %s: %w", ErrSigningUnavailable, ix.Kind(), err)
	}
	return SignedInstruction{Instruction: ix, Signature: sig}, nil
}
