package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hengadev/medlock/internal/types"
)

const (
	// KeySize is the AES-256 key length.
	KeySize = 32
	// IVSize is the GCM nonce length.
	IVSize = 12
	// tagSize is the GCM authentication tag length.
	tagSize = 16
)

// Envelope is one AES-256-GCM encrypted payload. The ciphertext carries the tag.
type Envelope struct {
	IV         []byte
	Ciphertext []byte
}

// randReader is swapped in tests.
var randReader io.Reader = rand.Reader

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}

// Seal encrypts plaintext under key with a fresh random IV.
// The IV is never taken from the caller.
func Seal(key, plaintext []byte) (Envelope, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", types.ErrEncryptionFailed, err)
	}
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(randReader, iv); err != nil {
		return Envelope{}, fmt.Errorf("%w: failed to generate iv: %w", types.ErrEncryptionFailed, err)
	}
	return Envelope{
		IV:         iv,
		Ciphertext: aesGCM.Seal(nil, iv, plaintext, nil),
	}, nil
}

// Open authenticates and decrypts env. Every failure is ErrDecryptionFailed.
func Open(key []byte, env Envelope) ([]byte, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrDecryptionFailed, err)
	}
	if len(env.IV) != IVSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes, got %d", types.ErrDecryptionFailed, IVSize, len(env.IV))
	}
	if len(env.Ciphertext) < tagSize {
		return nil, fmt.Errorf("%w: ciphertext shorter than authentication tag", types.ErrDecryptionFailed)
	}
	// Opened into a non-nil slice so an empty record reads back as []byte{}.
	plaintext, err := aesGCM.Open(make([]byte, 0, len(env.Ciphertext)-tagSize), env.IV, env.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", types.ErrDecryptionFailed)
	}
	return plaintext, nil
}

type envelopeJSON struct {
	IV         string `json:"iv"`
	Ciphertext string `json:"ciphertext,omitempty"`
	// Data is the legacy name of the ciphertext field.
	Data string `json:"data,omitempty"`
}

// MarshalEnvelope renders env as {"iv":"<hex>","ciphertext":"<hex>"}.
func MarshalEnvelope(env Envelope) ([]byte, error) {
	if len(env.IV) == 0 || len(env.Ciphertext) == 0 {
		return nil, fmt.Errorf("%w: envelope is missing iv or ciphertext", types.ErrInvalidFormat)
	}
	return json.Marshal(envelopeJSON{
		IV:         hex.EncodeToString(env.IV),
		Ciphertext: hex.EncodeToString(env.Ciphertext),
	})
}

// UnmarshalEnvelope parses the hex JSON wire form. It accepts "data" in place of
// "ciphertext". Malformed input is ErrDecryptionFailed.
func UnmarshalEnvelope(data []byte) (Envelope, error) {
	var raw envelopeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Envelope{}, fmt.Errorf("%w: malformed envelope: %w", types.ErrDecryptionFailed, err)
	}
	ct := raw.Ciphertext
	if ct == "" {
		ct = raw.Data
	}
	if raw.IV == "" || ct == "" {
		return Envelope{}, fmt.Errorf("%w: envelope is missing iv or ciphertext", types.ErrDecryptionFailed)
	}
	iv, err := hex.DecodeString(raw.IV)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: iv is not hex", types.ErrDecryptionFailed)
	}
	ciphertext, err := hex.DecodeString(ct)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: ciphertext is not hex", types.ErrDecryptionFailed)
	}
	return Envelope{IV: iv, Ciphertext: ciphertext}, nil
}
