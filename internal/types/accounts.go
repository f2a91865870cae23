package types

import "fmt"

// Account names, used for discriminators.
const (
	AccountUser          = "User"
	AccountRecord        = "MedicalRecord"
	AccountAccessRequest = "AccessRequest"
	AccountAccessLog     = "AccessLog"
)

// UserAccount is the ledger state created by a register instruction.
type UserAccount struct {
	DID       string
	PublicKey PublicKey
	Role      Role
	CreatedAt int64
}

func (u UserAccount) MarshalBinary() ([]byte, error) {
	e := newEncoder(AccountUser)
	e.str("did", u.DID, MaxDIDLength)
	e.key(u.PublicKey)
	e.u8(uint8(u.Role))
	e.i64(u.CreatedAt)
	return e.bytes()
}

func (u *UserAccount) UnmarshalBinary(data []byte) error {
	d := newDecoder(AccountUser, data)
	u.DID = d.str(MaxDIDLength)
	u.PublicKey = d.key()
	u.Role = Role(d.u8())
	u.CreatedAt = d.i64()
	if err := d.finish(); err != nil {
		return err
	}
	if !u.Role.Valid() {
		return fmt.Errorf("%w: unknown role %d", ErrInvalidFormat, u.Role)
	}
	return nil
}

// RecordAccount anchors one encrypted record blob for its owner.
type RecordAccount struct {
	Owner     PublicKey
	Counter   uint8
	CID       ContentID
	Metadata  string
	CreatedAt int64
}

func (r RecordAccount) MarshalBinary() ([]byte, error) {
	e := newEncoder(AccountRecord)
	e.key(r.Owner)
	e.u8(r.Counter)
	e.str("cid", string(r.CID), MaxCIDLength)
	e.str("metadata", r.Metadata, MaxMetadataLength)
	e.i64(r.CreatedAt)
	return e.bytes()
}

func (r *RecordAccount) UnmarshalBinary(data []byte) error {
	d := newDecoder(AccountRecord, data)
	r.Owner = d.key()
	r.Counter = d.u8()
	r.CID = ContentID(d.str(MaxCIDLength))
	r.Metadata = d.str(MaxMetadataLength)
	r.CreatedAt = d.i64()
	return d.finish()
}

// AccessRequestAccount is the ledger state of a doctor's request to read a patient's records.
// RespondedAt and CapabilityCID are absent until the subject responds.
type AccessRequestAccount struct {
	Requester     PublicKey
	Subject       PublicKey
	Scope         string
	RequestedAt   int64
	ExpiresAt     int64
	Status        Status
	RespondedAt   int64
	Responded     bool
	CapabilityCID ContentID
}

func (a AccessRequestAccount) MarshalBinary() ([]byte, error) {
	e := newEncoder(AccountAccessRequest)
	e.key(a.Requester)
	e.key(a.Subject)
	e.str("scope", a.Scope, MaxScopeLength)
	e.i64(a.RequestedAt)
	e.i64(a.ExpiresAt)
	e.u8(uint8(a.Status))
	e.optI64(a.RespondedAt, a.Responded)
	e.optStr("capability cid", string(a.CapabilityCID), MaxCIDLength)
	return e.bytes()
}

func (a *AccessRequestAccount) UnmarshalBinary(data []byte) error {
	d := newDecoder(AccountAccessRequest, data)
	a.Requester = d.key()
	a.Subject = d.key()
	a.Scope = d.str(MaxScopeLength)
	a.RequestedAt = d.i64()
	a.ExpiresAt = d.i64()
	a.Status = Status(d.u8())
	a.RespondedAt, a.Responded = d.optI64()
	a.CapabilityCID = ContentID(d.optStr(MaxCIDLength))
	if err := d.finish(); err != nil {
		return err
	}
	if a.Status > StatusDenied {
		return fmt.Errorf("%w: unknown status %d", ErrInvalidFormat, a.Status)
	}
	return nil
}

// AccessLogAccount records one read of a record or capability.
type AccessLogAccount struct {
	Subject PublicKey
	Reader  PublicKey
	CID     ContentID
	Action  string
	At      int64
}

func (l AccessLogAccount) MarshalBinary() ([]byte, error) {
	e := newEncoder(AccountAccessLog)
	e.key(l.Subject)
	e.key(l.Reader)
	e.str("cid", string(l.CID), MaxCIDLength)
	e.str("action", l.Action, MaxActionLength)
	e.i64(l.At)
	return e.bytes()
}

func (l *AccessLogAccount) UnmarshalBinary(data []byte) error {
	d := newDecoder(AccountAccessLog, data)
	l.Subject = d.key()
	l.Reader = d.key()
	l.CID = ContentID(d.str(MaxCIDLength))
	l.Action = d.str(MaxActionLength)
	l.At = d.i64()
	return d.finish()
}
