package types

import "errors"

var (
	// Signing errors
	ErrSigningUnavailable = errors.New("signing unavailable")
	ErrUserDeclined       = errors.New("user declined to sign")

	// Crypto errors
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrEncryptionFailed = errors.New("encryption failed")

	// Storage errors
	ErrStoreUnavailable  = errors.New("content store unavailable")
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	ErrNotFound          = errors.New("not found")

	// Ledger policy errors
	ErrNoFreeSlot       = errors.New("no free record slot")
	ErrRoleViolation    = errors.New("role violation")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrAlreadyExists    = errors.New("already exists")
	ErrAlreadyResponded = errors.New("access request already responded")
	ErrAccessDenied     = errors.New("access denied")
	ErrAccessExpired    = errors.New("access expired")

	// Input errors
	ErrInvalidFormat        = errors.New("invalid format")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
