package medlock

import (
	"time"

	"github.com/hengadev/medlock/internal/crypto"
	"github.com/hengadev/medlock/internal/types"
)

type (
	PublicKey = types.PublicKey
	Address   = types.Address
	ContentID = types.ContentID
	Role      = types.Role
	Status    = types.Status
	Envelope  = crypto.Envelope

	// Ledger wire types
	Instruction              = types.Instruction
	SignedInstruction        = types.SignedInstruction
	Receipt                  = types.Receipt
	RegisterInstruction      = types.RegisterInstruction
	AddRecordInstruction     = types.AddRecordInstruction
	RequestAccessInstruction = types.RequestAccessInstruction
	RespondAccessInstruction = types.RespondAccessInstruction
	LogAccessInstruction     = types.LogAccessInstruction
)

const (
	RolePatient = types.RolePatient
	RoleDoctor  = types.RoleDoctor

	StatusPending  = types.StatusPending
	StatusApproved = types.StatusApproved
	StatusDenied   = types.StatusDenied
)

// ParsePublicKey decodes a base58 public key.
func ParsePublicKey(s string) (PublicKey, error) { return types.ParsePublicKey(s) }

// MustParsePublicKey is ParsePublicKey for constants. It panics on bad input.
func MustParsePublicKey(s string) PublicKey {
	pk, err := types.ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// ParseAddress decodes a base58 ledger address.
func ParseAddress(s string) (Address, error) { return types.ParseAddress(s) }

// ParseRole accepts "patient" or "doctor".
func ParseRole(s string) (Role, error) { return types.ParseRole(s) }

// Identity is a registered ledger user.
type Identity struct {
	Address   Address   `json:"address"`
	PublicKey PublicKey `json:"publicKey"`
	Role      Role      `json:"role"`
	DID       string    `json:"did"`
	CreatedAt time.Time `json:"createdAt"`
}

// Record is an anchored, encrypted record.
type Record struct {
	Address   Address   `json:"address"`
	Owner     PublicKey `json:"owner"`
	Counter   uint8     `json:"counter"`
	CID       ContentID `json:"cid"`
	Metadata  string    `json:"metadata"`
	CreatedAt time.Time `json:"createdAt"`
}

func recordFromAccount(addr Address, acc types.RecordAccount) Record {
	return Record{
		Address:   addr,
		Owner:     acc.Owner,
		Counter:   acc.Counter,
		CID:       acc.CID,
		Metadata:  acc.Metadata,
		CreatedAt: time.Unix(acc.CreatedAt, 0).UTC(),
	}
}

// AccessRequest is the ledger state of one doctor's request to one patient.
type AccessRequest struct {
	Address       Address    `json:"address"`
	Requester     PublicKey  `json:"requester"`
	Subject       PublicKey  `json:"subject"`
	Scope         string     `json:"scope"`
	RequestedAt   time.Time  `json:"requestedAt"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	Status        Status     `json:"status"`
	RespondedAt   *time.Time `json:"respondedAt,omitempty"`
	CapabilityCID ContentID  `json:"capabilityCid,omitempty"`
}

// Expired reports whether the grant window has closed at now.
func (r AccessRequest) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

func accessRequestFromAccount(addr Address, acc types.AccessRequestAccount) AccessRequest {
	req := AccessRequest{
		Address:       addr,
		Requester:     acc.Requester,
		Subject:       acc.Subject,
		Scope:         acc.Scope,
		RequestedAt:   time.Unix(acc.RequestedAt, 0).UTC(),
		ExpiresAt:     time.Unix(acc.ExpiresAt, 0).UTC(),
		Status:        acc.Status,
		CapabilityCID: acc.CapabilityCID,
	}
	if acc.Responded {
		at := time.Unix(acc.RespondedAt, 0).UTC()
		req.RespondedAt = &at
	}
	return req
}

// AccessLog is an audit entry written by LogAccess.
type AccessLog struct {
	Address Address   `json:"address"`
	Subject PublicKey `json:"subject"`
	Reader  PublicKey `json:"reader"`
	CID     ContentID `json:"cid"`
	Action  string    `json:"action"`
	At      time.Time `json:"at"`
}
