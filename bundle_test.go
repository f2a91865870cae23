package medlock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilityBundle(t *testing.T) {
	now := newTestClock().Now()
	b := CapabilityBundle{
		Version:   BundleVersion,
		Requester: newSigner(t, 2).PublicKey(),
		Subject:   newSigner(t, 1).PublicKey(),
		Scope:     ScopeAll,
		IssuedAt:  now,
		ExpiresAt: now.Add(24 * time.Hour),
		Records: []BundleRecord{{
			Counter:   0,
			CID:       "bafkreifzjut3te2nhyekklss27nh3k72ysco7y32koao5eei66wof36n5e",
			Metadata:  "fhir:Patient",
			CreatedAt: now,
			Payload:   []byte(patientPayload),
		}},
	}

	data, err := MarshalBundle(b)
	require.NoError(t, err)
	got, err := UnmarshalBundle(data)
	require.NoError(t, err)
	assert.Equal(t, b.Requester, got.Requester)
	assert.Equal(t, b.Subject, got.Subject)
	assert.True(t, b.ExpiresAt.Equal(got.ExpiresAt))
	require.Len(t, got.Records, 1)
	assert.Equal(t, patientPayload, string(got.Records[0].Payload))
}

func TestCapabilityBundle_EmptyRecords(t *testing.T) {
	data, err := MarshalBundle(CapabilityBundle{Version: BundleVersion, Scope: ScopeAll})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"records":[]`)
}

func TestUnmarshalBundle_Rejects(t *testing.T) {
	for _, bad := range []string{`nope`, `{"version":2}`, `{"version":1,"requester":"not-base58-0OIl"}`} {
		_, err := UnmarshalBundle([]byte(bad))
		assert.ErrorIs(t, err, ErrInvalidFormat, bad)
	}
}
