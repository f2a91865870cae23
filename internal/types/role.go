package types

import (
	"fmt"
	"strings"
)

// Role is the ledger role tag of a registered identity.
// The numeric values match the on-ledger enum discriminants.
type Role uint8

const (
	RolePatient Role = iota
	RoleDoctor
)

func (r Role) String() string {
	switch r {
	case RolePatient:
		return "patient"
	case RoleDoctor:
		return "doctor"
	default:
		return "unknown"
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RolePatient || r == RoleDoctor }

// ParseRole accepts "patient" or "doctor" in any case.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "patient":
		return RolePatient, nil
	case "doctor":
		return RoleDoctor, nil
	}
	return 0, fmt.Errorf("%w: unknown role %q", ErrInvalidFormat, s)
}

// Status is the lifecycle state of an access request.
type Status uint8

const (
	StatusPending Status = iota
	StatusApproved
	StatusDenied
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Terminal reports whether the request already left Pending.
func (s Status) Terminal() bool { return s == StatusApproved || s == StatusDenied }

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
