package medlock

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"Signing Unavailable", ErrSigningUnavailable, ErrSigningUnavailable},
		{"User Declined", ErrUserDeclined, ErrUserDeclined},
		{"Decryption Failed", ErrDecryptionFailed, ErrDecryptionFailed},
		{"Store Unavailable", ErrStoreUnavailable, ErrStoreUnavailable},
		{"No Free Slot", ErrNoFreeSlot, ErrNoFreeSlot},
		{"Already Responded", ErrAlreadyResponded, ErrAlreadyResponded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("context: %w", tt.err)
			if !errors.Is(wrapped, tt.expected) {
				t.Errorf("Expected errors.Is(wrapped, %v) to be true", tt.expected)
			}
		})
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		isRetryable  bool
		isSigning    bool
		isAuth       bool
		isConfig     bool
		isValidation bool
	}{
		{name: "Store Unavailable", err: fmt.Errorf("put: %w", ErrStoreUnavailable), isRetryable: true},
		{name: "Ledger Unavailable", err: fmt.Errorf("read: %w", ErrLedgerUnavailable), isRetryable: true},
		{name: "User Declined", err: fmt.Errorf("sign: %w", ErrUserDeclined), isSigning: true},
		{name: "Signing Unavailable", err: ErrSigningUnavailable, isSigning: true},
		{name: "Role Violation", err: fmt.Errorf("submit: %w", ErrRoleViolation), isAuth: true},
		{name: "Unauthorized", err: ErrUnauthorized, isAuth: true},
		{name: "Access Denied", err: ErrAccessDenied, isAuth: true},
		{name: "Access Expired", err: ErrAccessExpired, isAuth: true},
		{name: "Invalid Configuration", err: ErrInvalidConfiguration, isConfig: true},
		{name: "Invalid Format", err: fmt.Errorf("scope: %w", ErrInvalidFormat), isValidation: true},
		{name: "Decryption Failed", err: ErrDecryptionFailed},
		{name: "Foreign", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isRetryable, IsRetryableError(tt.err), "IsRetryableError")
			assert.Equal(t, tt.isSigning, IsSigningError(tt.err), "IsSigningError")
			assert.Equal(t, tt.isAuth, IsAuthorizationError(tt.err), "IsAuthorizationError")
			assert.Equal(t, tt.isConfig, IsConfigurationError(tt.err), "IsConfigurationError")
			assert.Equal(t, tt.isValidation, IsValidationError(tt.err), "IsValidationError")
		})
	}
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "", ErrorKind(nil))
	assert.Equal(t, "unknown", ErrorKind(errors.New("boom")))
	assert.Equal(t, "already_responded", ErrorKind(fmt.Errorf("respond: %w", ErrAlreadyResponded)))
	assert.Equal(t, "user_declined", ErrorKind(fmt.Errorf("%w: %w", ErrSigningUnavailable, ErrUserDeclined)))
	assert.Equal(t, "access_expired", ErrorKind(ErrAccessExpired))
}
