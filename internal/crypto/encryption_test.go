package crypto

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/medlock/internal/types"
)

func newKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := newKey(t)

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{name: "fhir document", plaintext: []byte(`{"resourceType":"Patient","name":"A"}`)},
		{name: "empty payload", plaintext: []byte{}},
		{name: "large payload", plaintext: bytes.Repeat([]byte{0xab}, 64*1024)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Seal(key, tt.plaintext)
			require.NoError(t, err)
			assert.Len(t, env.IV, IVSize)
			assert.Len(t, env.Ciphertext, len(tt.plaintext)+tagSize)

			got, err := Open(key, env)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, got)
		})
	}
}

func TestSeal_FreshIV(t *testing.T) {
	key := newKey(t)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		env, err := Seal(key, []byte("same"))
		require.NoError(t, err)
		assert.False(t, seen[string(env.IV)], "iv reused")
		seen[string(env.IV)] = true
	}
}

func TestSeal_RandomFailure(t *testing.T) {
	orig := randReader
	randReader = bytes.NewReader(nil)
	defer func() { randReader = orig }()

	_, err := Seal(newKey(t), []byte("x"))
	assert.ErrorIs(t, err, types.ErrEncryptionFailed)
}

func TestSeal_InvalidKey(t *testing.T) {
	_, err := Seal([]byte("short"), []byte("x"))
	require.ErrorIs(t, err, types.ErrEncryptionFailed)
	assert.Contains(t, err.Error(), "invalid key size")
}

func TestOpen_TamperDetection(t *testing.T) {
	key := newKey(t)
	env, err := Seal(key, []byte(`{"resourceType":"Observation"}`))
	require.NoError(t, err)

	for i := 0; i < len(env.IV)*8; i++ {
		tampered := Envelope{IV: bytes.Clone(env.IV), Ciphertext: env.Ciphertext}
		tampered.IV[i/8] ^= 1 << (i % 8)
		_, err := Open(key, tampered)
		require.ErrorIs(t, err, types.ErrDecryptionFailed, "iv bit %d", i)
	}
	for i := 0; i < len(env.Ciphertext)*8; i++ {
		tampered := Envelope{IV: env.IV, Ciphertext: bytes.Clone(env.Ciphertext)}
		tampered.Ciphertext[i/8] ^= 1 << (i % 8)
		_, err := Open(key, tampered)
		require.ErrorIs(t, err, types.ErrDecryptionFailed, "ciphertext bit %d", i)
	}
}

func TestOpen_Failures(t *testing.T) {
	key := newKey(t)
	env, err := Seal(key, []byte("payload"))
	require.NoError(t, err)

	tests := []struct {
		name string
		key  []byte
		env  Envelope
	}{
		{name: "wrong key", key: newKey(t), env: env},
		{name: "missing iv", key: key, env: Envelope{Ciphertext: env.Ciphertext}},
		{name: "short iv", key: key, env: Envelope{IV: env.IV[:8], Ciphertext: env.Ciphertext}},
		{name: "truncated ciphertext", key: key, env: Envelope{IV: env.IV, Ciphertext: env.Ciphertext[:tagSize-1]}},
		{name: "dropped tag byte", key: key, env: Envelope{IV: env.IV, Ciphertext: env.Ciphertext[:len(env.Ciphertext)-1]}},
		{name: "bad key size", key: []byte{1}, env: env},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Open(tt.key, tt.env)
			assert.ErrorIs(t, err, types.ErrDecryptionFailed)
			assert.Nil(t, got)
		})
	}
}

func TestEnvelope_WireForm(t *testing.T) {
	key := newKey(t)
	env, err := Seal(key, []byte("hello"))
	require.NoError(t, err)

	data, err := MarshalEnvelope(env)
	require.NoError(t, err)

	var fields map[string]string
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Len(t, fields, 2)
	assert.Len(t, fields["iv"], IVSize*2)
	assert.NotEmpty(t, fields["ciphertext"])

	parsed, err := UnmarshalEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, env, parsed)

	plaintext, err := Open(key, parsed)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(plaintext))
}

func TestUnmarshalEnvelope_LegacyDataField(t *testing.T) {
	key := newKey(t)
	env, err := Seal(key, []byte("legacy"))
	require.NoError(t, err)

	legacy, err := json.Marshal(map[string]string{
		"iv":   hex.EncodeToString(env.IV),
		"data": hex.EncodeToString(env.Ciphertext),
	})
	require.NoError(t, err)

	parsed, err := UnmarshalEnvelope(legacy)
	require.NoError(t, err)
	plaintext, err := Open(key, parsed)
	require.NoError(t, err)
	assert.Equal(t, "legacy", string(plaintext))
}

func TestUnmarshalEnvelope_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not json", input: "nope"},
		{name: "missing iv", input: `{"ciphertext":"abcd"}`},
		{name: "missing ciphertext", input: `{"iv":"abcd"}`},
		{name: "non hex iv", input: `{"iv":"zz","ciphertext":"abcd"}`},
		{name: "non hex ciphertext", input: `{"iv":"abcd","ciphertext":"xyz"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalEnvelope([]byte(tt.input))
			assert.ErrorIs(t, err, types.ErrDecryptionFailed)
		})
	}
}

func TestMarshalEnvelope_Empty(t *testing.T) {
	_, err := MarshalEnvelope(Envelope{})
	assert.ErrorIs(t, err, types.ErrInvalidFormat)
}
