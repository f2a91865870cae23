package types

import (
	"crypto/sha256"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) PublicKey {
	var k PublicKey
	for i := range k {
		k[i] = b
	}
	return k
}

func TestDiscriminator(t *testing.T) {
	sum := sha256.Sum256([]byte("account:User"))
	d := Discriminator(AccountUser)
	assert.Equal(t, sum[:8], d[:])
	assert.NotEqual(t, Discriminator(AccountUser), Discriminator(AccountRecord))
}

func TestUserAccount_Layout(t *testing.T) {
	u := UserAccount{DID: "did:x", PublicKey: testKey(7), Role: RoleDoctor, CreatedAt: 1700000000}

	data, err := u.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, 8+4+5+32+1+8)

	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(data[8:12]))
	assert.Equal(t, "did:x", string(data[12:17]))
	assert.Equal(t, byte(7), data[17])
	assert.Equal(t, byte(RoleDoctor), data[49])
	assert.Equal(t, int64(1700000000), int64(binary.LittleEndian.Uint64(data[50:])))

	var got UserAccount
	require.NoError(t, got.UnmarshalBinary(data))
	assert.Equal(t, u, got)
}

func TestUserAccount_RejectsUnknownRole(t *testing.T) {
	data, err := UserAccount{DID: "d", PublicKey: testKey(1), Role: RolePatient}.MarshalBinary()
	require.NoError(t, err)
	data[8+4+1+32] = 5

	var got UserAccount
	assert.ErrorIs(t, got.UnmarshalBinary(data), ErrInvalidFormat)
}

func TestAccessRequestAccount_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		acct AccessRequestAccount
	}{
		{
			name: "pending",
			acct: AccessRequestAccount{
				Requester:   testKey(1),
				Subject:     testKey(2),
				Scope:       "read:all",
				RequestedAt: 100,
				ExpiresAt:   200,
				Status:      StatusPending,
			},
		},
		{
			name: "approved with capability",
			acct: AccessRequestAccount{
				Requester:     testKey(1),
				Subject:       testKey(2),
				Scope:         "read:meta:lab",
				RequestedAt:   100,
				ExpiresAt:     200,
				Status:        StatusApproved,
				RespondedAt:   150,
				Responded:     true,
				CapabilityCID: "bafkreiabc",
			},
		},
		{
			name: "denied",
			acct: AccessRequestAccount{
				Requester:   testKey(3),
				Subject:     testKey(4),
				Scope:       "*",
				Status:      StatusDenied,
				RespondedAt: 10,
				Responded:   true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.acct.MarshalBinary()
			require.NoError(t, err)

			var got AccessRequestAccount
			require.NoError(t, got.UnmarshalBinary(data))
			assert.Equal(t, tt.acct, got)
		})
	}
}

func TestAccounts_FieldLimits(t *testing.T) {
	_, err := RecordAccount{Owner: testKey(1), CID: "c", Metadata: strings.Repeat("m", MaxMetadataLength+1)}.MarshalBinary()
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = UserAccount{DID: strings.Repeat("d", MaxDIDLength+1)}.MarshalBinary()
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = AccessLogAccount{CID: "c", Action: strings.Repeat("a", MaxActionLength+1)}.MarshalBinary()
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = RecordAccount{Owner: testKey(1), CID: "c", Metadata: strings.Repeat("m", MaxMetadataLength)}.MarshalBinary()
	assert.NoError(t, err)
}

func TestAccounts_DecodeErrors(t *testing.T) {
	rec, err := RecordAccount{Owner: testKey(1), Counter: 3, CID: "bafk", Metadata: "lab", CreatedAt: 5}.MarshalBinary()
	require.NoError(t, err)

	t.Run("wrong discriminator", func(t *testing.T) {
		var u UserAccount
		assert.ErrorIs(t, u.UnmarshalBinary(rec), ErrInvalidFormat)
	})

	t.Run("truncated", func(t *testing.T) {
		var r RecordAccount
		assert.ErrorIs(t, r.UnmarshalBinary(rec[:len(rec)-1]), ErrInvalidFormat)
	})

	t.Run("trailing bytes", func(t *testing.T) {
		var r RecordAccount
		assert.ErrorIs(t, r.UnmarshalBinary(append(append([]byte{}, rec...), 0)), ErrInvalidFormat)
	})

	t.Run("empty", func(t *testing.T) {
		var r RecordAccount
		assert.ErrorIs(t, r.UnmarshalBinary(nil), ErrInvalidFormat)
	})

	t.Run("valid", func(t *testing.T) {
		var r RecordAccount
		require.NoError(t, r.UnmarshalBinary(rec))
		assert.Equal(t, uint8(3), r.Counter)
		assert.Equal(t, ContentID("bafk"), r.CID)
	})
}

func TestInstructions_SigningBytes(t *testing.T) {
	register := RegisterInstruction{Signer: testKey(1), Role: RolePatient, DID: "did:key:z1"}
	a, err := register.SigningBytes()
	require.NoError(t, err)
	b, err := register.SigningBytes()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, HasInstructionPrefix(a))
	assert.Equal(t, byte(KindRegister), a[len(InstructionPrefix)])

	other := register
	other.Role = RoleDoctor
	c, err := other.SigningBytes()
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	approve := RespondAccessInstruction{Responder: testKey(2), Requester: testKey(1), Subject: testKey(2), Approved: true, CapabilityCID: "bafk"}
	deny := approve
	deny.Approved = false
	deny.CapabilityCID = ""
	x, err := approve.SigningBytes()
	require.NoError(t, err)
	y, err := deny.SigningBytes()
	require.NoError(t, err)
	assert.NotEqual(t, x, y)

	assert.Equal(t, testKey(2), approve.Authority())
	assert.Equal(t, KindRespondAccess, approve.Kind())
	assert.Equal(t, "respond_access", approve.Kind().String())

	_, err = LogAccessInstruction{Action: strings.Repeat("x", MaxActionLength+1)}.SigningBytes()
	assert.ErrorIs(t, err, ErrInvalidFormat)

	assert.False(t, HasInstructionPrefix([]byte("EMR Encryption Key")))
}

func TestPublicKey_Text(t *testing.T) {
	pk := testKey(9)
	text, err := pk.MarshalText()
	require.NoError(t, err)

	var parsed PublicKey
	require.NoError(t, parsed.UnmarshalText(text))
	assert.Equal(t, pk, parsed)

	_, err = ParsePublicKey("0OIl")
	assert.ErrorIs(t, err, ErrInvalidFormat)
	_, err = ParsePublicKey("")
	assert.ErrorIs(t, err, ErrInvalidFormat)
	_, err = PublicKeyFromBytes([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidFormat)
}
