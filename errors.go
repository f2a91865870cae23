package medlock

import (
	"errors"

	"github.com/hengadev/medlock/internal/types"
)

var (
	// Signing errors
	ErrSigningUnavailable = types.ErrSigningUnavailable
	ErrUserDeclined       = types.ErrUserDeclined

	// Crypto errors
	ErrDecryptionFailed = types.ErrDecryptionFailed
	ErrEncryptionFailed = types.ErrEncryptionFailed

	// Storage errors
	ErrStoreUnavailable  = types.ErrStoreUnavailable
	ErrLedgerUnavailable = types.ErrLedgerUnavailable
	ErrNotFound          = types.ErrNotFound

	// Ledger policy errors
	ErrNoFreeSlot       = types.ErrNoFreeSlot
	ErrRoleViolation    = types.ErrRoleViolation
	ErrUnauthorized     = types.ErrUnauthorized
	ErrAlreadyExists    = types.ErrAlreadyExists
	ErrAlreadyResponded = types.ErrAlreadyResponded
	ErrAccessDenied     = types.ErrAccessDenied
	ErrAccessExpired    = types.ErrAccessExpired

	// Input errors
	ErrInvalidFormat        = types.ErrInvalidFormat
	ErrInvalidConfiguration = types.ErrInvalidConfiguration
)

// IsRetryableError returns true if the error represents a transient failure that might succeed on retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrLedgerUnavailable)
}

// IsSigningError returns true if the signer could not or would not sign.
// The caller may ask the user again.
func IsSigningError(err error) bool {
	return errors.Is(err, ErrSigningUnavailable) ||
		errors.Is(err, ErrUserDeclined)
}

// IsAuthorizationError returns true if a ledger rule or an access grant refused the operation.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrRoleViolation) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrAccessDenied) ||
		errors.Is(err, ErrAccessExpired)
}

// IsConfigurationError returns true if the error represents a configuration problem.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// IsValidationError returns true if the error represents a data validation problem.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidFormat)
}

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrUserDeclined, "user_declined"},
	{ErrSigningUnavailable, "signing_unavailable"},
	{ErrDecryptionFailed, "decryption_failed"},
	{ErrEncryptionFailed, "encryption_failed"},
	{ErrNoFreeSlot, "no_free_slot"},
	{ErrAlreadyResponded, "already_responded"},
	{ErrAlreadyExists, "already_exists"},
	{ErrAccessExpired, "access_expired"},
	{ErrAccessDenied, "access_denied"},
	{ErrRoleViolation, "role_violation"},
	{ErrUnauthorized, "unauthorized"},
	{ErrInvalidConfiguration, "invalid_configuration"},
	{ErrInvalidFormat, "invalid_format"},
	{ErrNotFound, "not_found"},
	{ErrStoreUnavailable, "store_unavailable"},
	{ErrLedgerUnavailable, "ledger_unavailable"},
}

// ErrorKind names the sentinel behind err for logs and metric tags.
// It returns "" for nil and "unknown" for errors outside the taxonomy.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "unknown"
}
