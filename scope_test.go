package medlock

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScope(t *testing.T) {
	tests := []struct {
		scope   string
		wantErr bool
	}{
		{scope: "read:all"},
		{scope: "*"},
		{scope: "read:counter:0"},
		{scope: "read:counter:1,4,255"},
		{scope: "read:meta:fhir:Observation"},
		{scope: "", wantErr: true},
		{scope: "write:all", wantErr: true},
		{scope: "read:counter:", wantErr: true},
		{scope: "read:counter:256", wantErr: true},
		{scope: "read:counter:1,x", wantErr: true},
		{scope: "read:meta:", wantErr: true},
		{scope: "read:meta:" + strings.Repeat("a", MaxScopeLength), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.scope, func(t *testing.T) {
			s, err := ParseScope(tt.scope)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.scope, s.String())
		})
	}
}

func TestScopeAllows(t *testing.T) {
	records := []Record{
		{Counter: 0, Metadata: "fhir:Observation heart"},
		{Counter: 1, Metadata: "fhir:Condition"},
		{Counter: 7, Metadata: ""},
	}
	allowed := func(scope string) []uint8 {
		s, err := ParseScope(scope)
		require.NoError(t, err)
		var out []uint8
		for _, r := range records {
			if s.Allows(r) {
				out = append(out, r.Counter)
			}
		}
		return out
	}

	assert.Equal(t, []uint8{0, 1, 7}, allowed(ScopeAll))
	assert.Equal(t, []uint8{0, 1, 7}, allowed("*"))
	assert.Equal(t, []uint8{1, 7}, allowed(ScopeCounters(7, 1)))
	assert.Equal(t, []uint8{0}, allowed(ScopeMetadata("heart")))
	assert.Empty(t, allowed(ScopeMetadata("lab")))
}

func TestScopeBuilders(t *testing.T) {
	assert.Equal(t, "read:counter:1,2,9", ScopeCounters(9, 1, 2))
	assert.Equal(t, "read:meta:lab", ScopeMetadata("lab"))
}
