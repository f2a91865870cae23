package types

import (
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// KeySize is the length of an ed25519 public key and of a ledger address.
const KeySize = 32

// PublicKey is an ed25519 public key, rendered in base58 like the ledger does.
type PublicKey [KeySize]byte

// Address identifies a ledger account. It is derived from seeds and never lies on the curve.
type Address [KeySize]byte

// ContentID is the string form of a content identifier in the content store.
type ContentID string

func (c ContentID) String() string { return string(c) }

// IsZero reports whether the identifier is unset.
func (c ContentID) IsZero() bool { return c == "" }

func (p PublicKey) String() string { return base58.Encode(p[:]) }

// Bytes returns a copy of the key bytes.
func (p PublicKey) Bytes() []byte {
	b := make([]byte, KeySize)
	copy(b, p[:])
	return b
}

// IsZero reports whether the key is all zeros.
func (p PublicKey) IsZero() bool { return p == PublicKey{} }

func (p PublicKey) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePublicKey decodes a base58 public key.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	b, err := decodeBase58(s)
	if err != nil {
		return pk, err
	}
	copy(pk[:], b)
	return pk, nil
}

// PublicKeyFromBytes copies a raw 32-byte key.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != KeySize {
		return pk, fmt.Errorf("%w: public key must be %d bytes, got %d", ErrInvalidFormat, KeySize, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

func (a Address) String() string { return base58.Encode(a[:]) }

// Bytes returns a copy of the address bytes.
func (a Address) Bytes() []byte {
	b := make([]byte, KeySize)
	copy(b, a[:])
	return b
}

func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress decodes a base58 account address.
func ParseAddress(s string) (Address, error) {
	var a Address
	b, err := decodeBase58(s)
	if err != nil {
		return a, err
	}
	copy(a[:], b)
	return a, nil
}

func decodeBase58(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty base58 string", ErrInvalidFormat)
	}
	// base58.Decode returns an empty slice on invalid characters.
	b := base58.Decode(s)
	if len(b) != KeySize {
		return nil, fmt.Errorf("%w: %q does not decode to %d bytes", ErrInvalidFormat, s, KeySize)
	}
	return b, nil
}
