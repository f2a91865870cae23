package medlock

import (
	"fmt"
	"strings"

	"github.com/multiformats/go-multibase"

	"github.com/hengadev/medlock/internal/types"
)

const didKeyPrefix = "did:key:"

// ed25519-pub multicodec, varint encoded.
var ed25519Multicodec = []byte{0xed, 0x01}

// DIDKey renders pk as a did:key identifier.
func DIDKey(pk PublicKey) string {
	raw := append(append([]byte(nil), ed25519Multicodec...), pk[:]...)
	encoded, err := multibase.Encode(multibase.Base58BTC, raw)
	if err != nil {
		// base58btc is always a registered encoding
		panic(err)
	}
	return didKeyPrefix + encoded
}

// ParseDIDKey extracts the ed25519 public key from a did:key identifier.
func ParseDIDKey(did string) (PublicKey, error) {
	if !strings.HasPrefix(did, didKeyPrefix) {
		return PublicKey{}, fmt.Errorf("%w: not a did:key: %q", ErrInvalidFormat, did)
	}
	enc, raw, err := multibase.Decode(strings.TrimPrefix(did, didKeyPrefix))
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: did:key: %w", ErrInvalidFormat, err)
	}
	if enc != multibase.Base58BTC {
		return PublicKey{}, fmt.Errorf("%w: did:key must use base58btc", ErrInvalidFormat)
	}
	if len(raw) != len(ed25519Multicodec)+types.KeySize ||
		raw[0] != ed25519Multicodec[0] || raw[1] != ed25519Multicodec[1] {
		return PublicKey{}, fmt.Errorf("%w: did:key is not an ed25519 key", ErrInvalidFormat)
	}
	return types.PublicKeyFromBytes(raw[len(ed25519Multicodec):])
}
