package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hengadev/medlock"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "store unavailable", err: fmt.Errorf("%w: http 503", medlock.ErrStoreUnavailable), want: 75},
		{name: "ledger unavailable", err: medlock.ErrLedgerUnavailable, want: 75},
		{name: "invalid configuration", err: fmt.Errorf("configuration validation failed: %w", medlock.ErrInvalidConfiguration), want: 78},
		{name: "unauthorized", err: fmt.Errorf("%w: not the subject", medlock.ErrUnauthorized), want: 77},
		{name: "role violation", err: medlock.ErrRoleViolation, want: 77},
		{name: "access denied", err: medlock.ErrAccessDenied, want: 77},
		{name: "decryption failed", err: medlock.ErrDecryptionFailed, want: 1},
		{name: "plain error", err: errors.New("boom"), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
