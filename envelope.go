package medlock

import "github.com/hengadev/medlock/internal/crypto"

// Encrypt seals plaintext under key with a fresh random IV.
func Encrypt(key Key, plaintext []byte) (Envelope, error) {
	return crypto.Seal(key.b[:], plaintext)
}

// Decrypt opens env. A wrong key, a modified IV or ciphertext, and a malformed
// envelope all fail with ErrDecryptionFailed.
func Decrypt(key Key, env Envelope) ([]byte, error) {
	return crypto.Open(key.b[:], env)
}

// MarshalEnvelope encodes env as {"iv":"<hex>","ciphertext":"<hex>"}.
func MarshalEnvelope(env Envelope) ([]byte, error) {
	return crypto.MarshalEnvelope(env)
}

// UnmarshalEnvelope decodes the JSON form, accepting the legacy "data" field.
func UnmarshalEnvelope(data []byte) (Envelope, error) {
	return crypto.UnmarshalEnvelope(data)
}
