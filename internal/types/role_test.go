package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_String(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		expected string
	}{
		{name: "patient", role: RolePatient, expected: "patient"},
		{name: "doctor", role: RoleDoctor, expected: "doctor"},
		{name: "out of range", role: Role(7), expected: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.role.String())
		})
	}
}

func TestRole_EnumValues(t *testing.T) {
	// On-ledger discriminants.
	assert.Equal(t, Role(0), RolePatient)
	assert.Equal(t, Role(1), RoleDoctor)
	assert.True(t, RolePatient.Valid())
	assert.True(t, RoleDoctor.Valid())
	assert.False(t, Role(2).Valid())
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{input: "patient", want: RolePatient},
		{input: " Doctor ", want: RoleDoctor},
		{input: "DOCTOR", want: RoleDoctor},
		{input: "nurse", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusDenied.Terminal())

	assert.Equal(t, "pending", StatusPending.String())
	assert.Equal(t, "approved", StatusApproved.String())
	assert.Equal(t, "denied", StatusDenied.String())
	assert.Equal(t, "unknown", Status(9).String())
}

func TestRoleStatus_MarshalText(t *testing.T) {
	b, err := RoleDoctor.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "doctor", string(b))

	b, err = StatusApproved.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "approved", string(b))
	assert.True(t, StatusDenied.Terminal())
	assert.False(t, StatusPending.Terminal())
}
