package medlock

import (
	"encoding/json"
	"fmt"
	"time"
)

// UploadUnit is the blob stored for every record.
type UploadUnit struct {
	Version   int       `json:"version"`
	Owner     PublicKey `json:"owner"`
	CreatedAt time.Time `json:"createdAt"`
	Envelope  Envelope  `json:"-"`
}

type uploadUnitJSON struct {
	Version   int             `json:"version"`
	Owner     PublicKey       `json:"owner"`
	CreatedAt string          `json:"createdAt"`
	Envelope  json.RawMessage `json:"envelope"`
}

// MarshalUploadUnit encodes u with the hex envelope wire form.
func MarshalUploadUnit(u UploadUnit) ([]byte, error) {
	env, err := MarshalEnvelope(u.Envelope)
	if err != nil {
		return nil, err
	}
	return json.Marshal(uploadUnitJSON{
		Version:   u.Version,
		Owner:     u.Owner,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
		Envelope:  env,
	})
}

// UnmarshalUploadUnit decodes a stored blob. A blob that is not an upload unit
// cannot be decrypted, so every failure is ErrDecryptionFailed.
func UnmarshalUploadUnit(data []byte) (UploadUnit, error) {
	var raw uploadUnitJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return UploadUnit{}, fmt.Errorf("%w: upload unit: %w", ErrDecryptionFailed, err)
	}
	if raw.Version != UploadUnitVersion {
		return UploadUnit{}, fmt.Errorf("%w: upload unit version %d", ErrDecryptionFailed, raw.Version)
	}
	env, err := UnmarshalEnvelope(raw.Envelope)
	if err != nil {
		return UploadUnit{}, err
	}
	created, err := time.Parse(time.RFC3339, raw.CreatedAt)
	if err != nil {
		return UploadUnit{}, fmt.Errorf("%w: upload unit createdAt: %w", ErrDecryptionFailed, err)
	}
	return UploadUnit{Version: raw.Version, Owner: raw.Owner, CreatedAt: created, Envelope: env}, nil
}

// CapabilityBundle is what an approved doctor downloads: the plaintext of every
// record in scope at approval time.
//
// Bundles are published unencrypted, so anyone who learns the capability CID
// can read them. They never carry key material.
type CapabilityBundle struct {
	Version   int            `json:"version"`
	Requester PublicKey      `json:"requester"`
	Subject   PublicKey      `json:"subject"`
	Scope     string         `json:"scope"`
	IssuedAt  time.Time      `json:"issuedAt"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Records   []BundleRecord `json:"records"`
}

// BundleRecord is one decrypted record inside a bundle.
type BundleRecord struct {
	Counter   uint8     `json:"counter"`
	CID       ContentID `json:"cid"`
	Metadata  string    `json:"metadata"`
	CreatedAt time.Time `json:"createdAt"`
	Payload   []byte    `json:"payload"`
}

// MarshalBundle encodes b as JSON. Payloads are base64.
func MarshalBundle(b CapabilityBundle) ([]byte, error) {
	if b.Records == nil {
		b.Records = []BundleRecord{}
	}
	return json.Marshal(b)
}

// UnmarshalBundle decodes a bundle blob.
func UnmarshalBundle(data []byte) (CapabilityBundle, error) {
	var b CapabilityBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return CapabilityBundle{}, fmt.Errorf("%w: capability bundle: %w", ErrInvalidFormat, err)
	}
	if b.Version != BundleVersion {
		return CapabilityBundle{}, fmt.Errorf("%w: capability bundle version %d", ErrInvalidFormat, b.Version)
	}
	return b, nil
}
