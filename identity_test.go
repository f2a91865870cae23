package medlock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDIDKey(t *testing.T) {
	pk := newSigner(t, 1).PublicKey()

	did := DIDKey(pk)
	assert.Regexp(t, "^did:key:z6Mk", did)
	assert.LessOrEqual(t, len(did), MaxDIDLength)

	got, err := ParseDIDKey(did)
	require.NoError(t, err)
	assert.Equal(t, pk, got)
}

func TestParseDIDKey_Rejects(t *testing.T) {
	for _, did := range []string{
		"did:web:example.org",
		"did:key:",
		"did:key:zzz0",
		// multibase base64 of a valid-length payload
		"did:key:m7QEAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		// secp256k1 multicodec
		"did:key:zQ3shokFTS3brHcDQrn82RUDfCZESWL1ZdCEJwekUDPQiYBme",
	} {
		_, err := ParseDIDKey(did)
		assert.ErrorIs(t, err, ErrInvalidFormat, did)
	}
}

func TestAddressHelpers(t *testing.T) {
	program := MustParsePublicKey(DefaultProgramID)
	patient := newSigner(t, 1).PublicKey()
	doctor := newSigner(t, 2).PublicKey()

	assert.Equal(t, UserAddress(program, patient), UserAddress(program, patient))
	assert.NotEqual(t, UserAddress(program, patient), UserAddress(program, doctor))
	assert.NotEqual(t, RecordAddress(program, patient, 0), RecordAddress(program, patient, 1))
	assert.NotEqual(t,
		AccessRequestAddress(program, doctor, patient),
		AccessRequestAddress(program, patient, doctor))

	cid := ContentID("bafkreifzjut3te2nhyekklss27nh3k72ysco7y32koao5eei66wof36n5e")
	assert.NotEqual(t, LogAddress(program, cid, doctor, 0), LogAddress(program, cid, doctor, 1))

	parsed, err := ParseAddress(RecordAddress(program, patient, 3).String())
	require.NoError(t, err)
	assert.Equal(t, RecordAddress(program, patient, 3), parsed)
}
