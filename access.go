package medlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hengadev/medlock/internal/types"
)

// RequestAccess opens a Pending request from doctor to subject for scope,
// valid until expiresAt.
func (c *Client) RequestAccess(ctx context.Context, doctor Signer, subject PublicKey, scope string, expiresAt time.Time) (AccessRequest, error) {
	var req AccessRequest
	err := c.observe(ctx, "request_access", map[string]any{"subject": subject.String(), "scope": scope}, func() error {
		if doctor == nil {
			return fmt.Errorf("%w: no signer", ErrSigningUnavailable)
		}
		parsed, err := ParseScope(scope)
		if err != nil {
			return err
		}
		if !expiresAt.After(c.now()) {
			return fmt.Errorf("%w: expiry %s is not in the future", ErrInvalidFormat, expiresAt.UTC().Format(time.RFC3339))
		}

		_, err = c.submit(ctx, doctor, types.RequestAccessInstruction{
			Doctor:    doctor.PublicKey(),
			Patient:   subject,
			Scope:     parsed.String(),
			ExpiresAt: expiresAt.Unix(),
		})
		if err != nil {
			return err
		}
		req, err = c.GetAccessRequest(ctx, doctor.PublicKey(), subject)
		return err
	})
	return req, err
}

// GetAccessRequest returns the request of doctor to patient, or ErrNotFound.
func (c *Client) GetAccessRequest(ctx context.Context, doctor, patient PublicKey) (AccessRequest, error) {
	addr := c.derive.AccessRequest(doctor, patient)
	data, err := c.readAccount(ctx, addr)
	if err != nil {
		return AccessRequest{}, err
	}
	var acc types.AccessRequestAccount
	if err := acc.UnmarshalBinary(data); err != nil {
		return AccessRequest{}, err
	}
	return accessRequestFromAccount(addr, acc), nil
}

// RespondAccess approves or denies the pending request of doctor to the
// patient. Approval publishes a capability bundle with the plaintext of every
// record in scope before the decision is anchored, so a failed approval leaves
// the request Pending.
func (c *Client) RespondAccess(ctx context.Context, patient Signer, doctor PublicKey, approved bool) (AccessRequest, error) {
	var req AccessRequest
	err := c.observe(ctx, "respond_access", map[string]any{"requester": doctor.String(), "approved": approved}, func() error {
		if patient == nil {
			return fmt.Errorf("%w: no signer", ErrSigningUnavailable)
		}
		pk := patient.PublicKey()

		id, err := c.GetIdentity(ctx, pk)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: responder is not registered: %w", ErrUnauthorized, err)
		}
		if err != nil {
			return err
		}
		if id.Role != RolePatient {
			return fmt.Errorf("%w: only patients respond to access requests, responder is %s", ErrRoleViolation, id.Role)
		}

		// The slot derives from the responder, so a missing one means the
		// responder is not the subject of any request from doctor.
		current, err := c.GetAccessRequest(ctx, doctor, pk)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: no request from %s to the responder: %w", ErrUnauthorized, doctor, err)
		}
		if err != nil {
			return err
		}
		if current.Subject != pk {
			return fmt.Errorf("%w: only the subject may respond", ErrUnauthorized)
		}
		if current.Status.Terminal() {
			return fmt.Errorf("%w: request is %s", ErrAlreadyResponded, current.Status)
		}

		ix := types.RespondAccessInstruction{
			Responder: pk,
			Requester: doctor,
			Subject:   pk,
			Approved:  approved,
		}
		if approved {
			id, err := c.publishBundle(ctx, patient, current)
			if err != nil {
				return err
			}
			ix.CapabilityCID = id
		}

		if _, err := c.submit(ctx, patient, ix); err != nil {
			return err
		}
		req, err = c.GetAccessRequest(ctx, doctor, pk)
		return err
	})
	return req, err
}

// publishBundle decrypts the patient's records in scope and stores them as a
// capability bundle.
func (c *Client) publishBundle(ctx context.Context, patient Signer, req AccessRequest) (ContentID, error) {
	scope, err := ParseScope(req.Scope)
	if err != nil {
		return "", err
	}
	key, err := c.deriveKey(ctx, patient)
	if err != nil {
		return "", err
	}
	defer key.Wipe()
	records, err := c.ListRecords(ctx, req.Subject)
	if err != nil {
		return "", err
	}

	bundle := CapabilityBundle{
		Version:   BundleVersion,
		Requester: req.Requester,
		Subject:   req.Subject,
		Scope:     scope.String(),
		IssuedAt:  c.now().UTC(),
		ExpiresAt: req.ExpiresAt,
		Records:   []BundleRecord{},
	}
	for _, rec := range records {
		if rec.Owner != req.Subject || !scope.Allows(rec) {
			continue
		}
		blob, err := c.store.Get(ctx, rec.CID)
		if err != nil {
			return "", fmt.Errorf("record %d: %w", rec.Counter, err)
		}
		unit, err := UnmarshalUploadUnit(blob)
		if err != nil {
			return "", fmt.Errorf("record %d: %w", rec.Counter, err)
		}
		payload, err := Decrypt(key, unit.Envelope)
		if err != nil {
			return "", fmt.Errorf("record %d: %w", rec.Counter, err)
		}
		bundle.Records = append(bundle.Records, BundleRecord{
			Counter:   rec.Counter,
			CID:       rec.CID,
			Metadata:  rec.Metadata,
			CreatedAt: rec.CreatedAt,
			Payload:   payload,
		})
	}

	data, err := MarshalBundle(bundle)
	if err != nil {
		return "", err
	}
	id, err := c.store.Put(ctx, data)
	if err != nil {
		return "", err
	}
	c.logger.InfoContext(ctx, "capability bundle published",
		"cid", id.String(),
		"records", len(bundle.Records),
		"scope", bundle.Scope)
	return id, nil
}

// FetchCapability downloads the bundle granted to doctor by subject. It needs
// no key material: the request must be Approved and unexpired.
func (c *Client) FetchCapability(ctx context.Context, doctor Signer, subject PublicKey) (CapabilityBundle, error) {
	var bundle CapabilityBundle
	err := c.observe(ctx, "fetch_capability", map[string]any{"subject": subject.String()}, func() error {
		if doctor == nil {
			return fmt.Errorf("%w: no signer", ErrSigningUnavailable)
		}
		requester := doctor.PublicKey()

		req, err := c.GetAccessRequest(ctx, requester, subject)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: no access request to %s", ErrAccessDenied, subject)
		}
		if err != nil {
			return err
		}
		if req.Status != StatusApproved {
			return fmt.Errorf("%w: request is %s", ErrAccessDenied, req.Status)
		}
		if req.Expired(c.now()) {
			return fmt.Errorf("%w: expired at %s", ErrAccessExpired, req.ExpiresAt.Format(time.RFC3339))
		}

		data, err := c.store.Get(ctx, req.CapabilityCID)
		if err != nil {
			return err
		}
		b, err := UnmarshalBundle(data)
		if err != nil {
			return err
		}
		if b.Requester != requester || b.Subject != subject {
			return fmt.Errorf("%w: bundle %s was issued to another pair", ErrAccessDenied, req.CapabilityCID)
		}

		if c.cfg.AuditReads {
			if _, err := c.LogAccess(ctx, doctor, subject, req.CapabilityCID, "fetch"); err != nil {
				return fmt.Errorf("audit fetch: %w", err)
			}
		}
		bundle = b
		return nil
	})
	return bundle, err
}
