package types

import (
	"bytes"
	"time"
)

// InstructionPrefix starts the signed bytes of every instruction. A key-derivation
// message must never begin with it, so an instruction signature can never double
// as an encryption key.
const InstructionPrefix = "medlock/ix/v1\x00"

// InstructionKind tags the instruction variants accepted by the ledger program.
type InstructionKind uint8

const (
	KindRegister InstructionKind = iota + 1
	KindAddRecord
	KindRequestAccess
	KindRespondAccess
	KindLogAccess
)

func (k InstructionKind) String() string {
	switch k {
	case KindRegister:
		return "register"
	case KindAddRecord:
		return "add_record"
	case KindRequestAccess:
		return "request_access"
	case KindRespondAccess:
		return "respond_access"
	case KindLogAccess:
		return "log_access"
	default:
		return "unknown"
	}
}

// Instruction is one ledger program call, signed by its authority.
type Instruction interface {
	Kind() InstructionKind
	// Authority is the identity that must sign the instruction.
	Authority() PublicKey
	// SigningBytes is the canonical message the authority signs.
	SigningBytes() ([]byte, error)
}

// SignedInstruction pairs an instruction with the authority's signature over SigningBytes.
type SignedInstruction struct {
	Instruction Instruction
	Signature   []byte
}

// Receipt confirms that the ledger applied an instruction.
type Receipt struct {
	ID      string
	Kind    InstructionKind
	Address Address
	Slot    uint64
	At      time.Time
}

func newInstructionEncoder(kind InstructionKind) *encoder {
	e := &encoder{}
	e.buf.WriteString(InstructionPrefix)
	e.buf.WriteByte(byte(kind))
	return e
}

// HasInstructionPrefix reports whether msg could be mistaken for instruction bytes.
func HasInstructionPrefix(msg []byte) bool {
	return bytes.HasPrefix(msg, []byte(InstructionPrefix))
}

// RegisterInstruction creates the User account of its signer.
type RegisterInstruction struct {
	Signer PublicKey
	Role   Role
	DID    string
}

func (i RegisterInstruction) Kind() InstructionKind { return KindRegister }
func (i RegisterInstruction) Authority() PublicKey  { return i.Signer }

func (i RegisterInstruction) SigningBytes() ([]byte, error) {
	e := newInstructionEncoder(i.Kind())
	e.key(i.Signer)
	e.u8(uint8(i.Role))
	e.str("did", i.DID, MaxDIDLength)
	return e.bytes()
}

// AddRecordInstruction anchors a record CID at (owner, counter).
type AddRecordInstruction struct {
	Owner    PublicKey
	Counter  uint8
	CID      ContentID
	Metadata string
}

func (i AddRecordInstruction) Kind() InstructionKind { return KindAddRecord }
func (i AddRecordInstruction) Authority() PublicKey  { return i.Owner }

func (i AddRecordInstruction) SigningBytes() ([]byte, error) {
	e := newInstructionEncoder(i.Kind())
	e.key(i.Owner)
	e.u8(i.Counter)
	e.str("cid", string(i.CID), MaxCIDLength)
	e.str("metadata", i.Metadata, MaxMetadataLength)
	return e.bytes()
}

// RequestAccessInstruction opens an access request from a doctor to a patient.
type RequestAccessInstruction struct {
	Doctor    PublicKey
	Patient   PublicKey
	Scope     string
	ExpiresAt int64
}

func (i RequestAccessInstruction) Kind() InstructionKind { return KindRequestAccess }
func (i RequestAccessInstruction) Authority() PublicKey  { return i.Doctor }

func (i RequestAccessInstruction) SigningBytes() ([]byte, error) {
	e := newInstructionEncoder(i.Kind())
	e.key(i.Doctor)
	e.key(i.Patient)
	e.str("scope", i.Scope, MaxScopeLength)
	e.i64(i.ExpiresAt)
	return e.bytes()
}

// RespondAccessInstruction closes a pending request. Responder must be the subject.
type RespondAccessInstruction struct {
	Responder     PublicKey
	Requester     PublicKey
	Subject       PublicKey
	Approved      bool
	CapabilityCID ContentID
}

func (i RespondAccessInstruction) Kind() InstructionKind { return KindRespondAccess }
func (i RespondAccessInstruction) Authority() PublicKey  { return i.Responder }

func (i RespondAccessInstruction) SigningBytes() ([]byte, error) {
	e := newInstructionEncoder(i.Kind())
	e.key(i.Responder)
	e.key(i.Requester)
	e.key(i.Subject)
	if i.Approved {
		e.u8(1)
	} else {
		e.u8(0)
	}
	e.optStr("capability cid", string(i.CapabilityCID), MaxCIDLength)
	return e.bytes()
}

// LogAccessInstruction appends an access log entry for a read of cid.
type LogAccessInstruction struct {
	Reader  PublicKey
	Subject PublicKey
	CID     ContentID
	Action  string
	Nonce   uint8
}

func (i LogAccessInstruction) Kind() InstructionKind { return KindLogAccess }
func (i LogAccessInstruction) Authority() PublicKey  { return i.Reader }

func (i LogAccessInstruction) SigningBytes() ([]byte, error) {
	e := newInstructionEncoder(i.Kind())
	e.key(i.Reader)
	e.key(i.Subject)
	e.str("cid", string(i.CID), MaxCIDLength)
	e.str("action", i.Action, MaxActionLength)
	e.u8(i.Nonce)
	return e.bytes()
}
