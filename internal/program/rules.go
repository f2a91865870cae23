package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/hengadev/medlock/internal/types"
)

func (p *Program) register(ctx context.Context, ix types.RegisterInstruction) (types.Address, uint64, error) {
	addr := p.derive.User(ix.Signer)
	if !ix.Role.Valid() {
		return addr, 0, fmt.Errorf("%w: unknown role %d", types.ErrInvalidFormat, ix.Role)
	}
	data, err := types.UserAccount{
		DID:       ix.DID,
		PublicKey: ix.Signer,
		Role:      ix.Role,
		CreatedAt: p.now().Unix(),
	}.MarshalBinary()
	if err != nil {
		return addr, 0, err
	}
	slot, err := p.createOnce(ctx, addr, data)
	return addr, slot, err
}

func (p *Program) addRecord(ctx context.Context, ix types.AddRecordInstruction) (types.Address, uint64, error) {
	addr := p.derive.Record(ix.Owner, ix.Counter)
	if ix.CID.IsZero() {
		return addr, 0, fmt.Errorf("%w: record cid is empty", types.ErrInvalidFormat)
	}
	if _, err := p.requireRole(ctx, ix.Owner, types.RolePatient); err != nil {
		return addr, 0, err
	}
	data, err := types.RecordAccount{
		Owner:     ix.Owner,
		Counter:   ix.Counter,
		CID:       ix.CID,
		Metadata:  ix.Metadata,
		CreatedAt: p.now().Unix(),
	}.MarshalBinary()
	if err != nil {
		return addr, 0, err
	}
	slot, err := p.createOnce(ctx, addr, data)
	return addr, slot, err
}

func (p *Program) requestAccess(ctx context.Context, ix types.RequestAccessInstruction) (types.Address, uint64, error) {
	addr := p.derive.AccessRequest(ix.Doctor, ix.Patient)
	if _, err := p.requireRole(ctx, ix.Doctor, types.RoleDoctor); err != nil {
		return addr, 0, err
	}
	if _, err := p.requireRole(ctx, ix.Patient, types.RolePatient); err != nil {
		return addr, 0, err
	}
	if ix.Scope == "" {
		return addr, 0, fmt.Errorf("%w: scope is empty", types.ErrInvalidFormat)
	}
	now := p.now().Unix()
	if ix.ExpiresAt <= now {
		return addr, 0, fmt.Errorf("%w: expiry %d is not in the future", types.ErrInvalidFormat, ix.ExpiresAt)
	}
	data, err := types.AccessRequestAccount{
		Requester:   ix.Doctor,
		Subject:     ix.Patient,
		Scope:       ix.Scope,
		RequestedAt: now,
		ExpiresAt:   ix.ExpiresAt,
		Status:      types.StatusPending,
	}.MarshalBinary()
	if err != nil {
		return addr, 0, err
	}

	slot, err := p.store.Mutate(ctx, addr, func(cur []byte, exists bool) ([]byte, error) {
		if !exists {
			return data, nil
		}
		if p.policy != RerequestAfterClose {
			return nil, fmt.Errorf("%w: access request %s", types.ErrAlreadyExists, addr)
		}
		var prev types.AccessRequestAccount
		if err := prev.UnmarshalBinary(cur); err != nil {
			return nil, err
		}
		if prev.Status == types.StatusDenied || prev.ExpiresAt <= now {
			return data, nil
		}
		return nil, fmt.Errorf("%w: access request %s is %s and unexpired", types.ErrAlreadyExists, addr, prev.Status)
	})
	return addr, slot, err
}

func (p *Program) respondAccess(ctx context.Context, ix types.RespondAccessInstruction) (types.Address, uint64, error) {
	addr := p.derive.AccessRequest(ix.Requester, ix.Subject)
	if ix.Responder != ix.Subject {
		return addr, 0, fmt.Errorf("%w: only the subject may respond to an access request", types.ErrUnauthorized)
	}
	if _, err := p.requireRole(ctx, ix.Responder, types.RolePatient); err != nil {
		return addr, 0, err
	}
	if ix.Approved && ix.CapabilityCID.IsZero() {
		return addr, 0, fmt.Errorf("%w: approval requires a capability cid", types.ErrInvalidFormat)
	}
	if !ix.Approved && !ix.CapabilityCID.IsZero() {
		return addr, 0, fmt.Errorf("%w: denial carries no capability cid", types.ErrInvalidFormat)
	}

	now := p.now().Unix()
	slot, err := p.store.Mutate(ctx, addr, func(cur []byte, exists bool) ([]byte, error) {
		if !exists {
			return nil, fmt.Errorf("%w: access request %s", types.ErrNotFound, addr)
		}
		var req types.AccessRequestAccount
		if err := req.UnmarshalBinary(cur); err != nil {
			return nil, err
		}
		if req.Status.Terminal() {
			return nil, fmt.Errorf("%w: access request %s is %s", types.ErrAlreadyResponded, addr, req.Status)
		}
		req.Status = types.StatusDenied
		if ix.Approved {
			req.Status = types.StatusApproved
		}
		req.RespondedAt, req.Responded = now, true
		req.CapabilityCID = ix.CapabilityCID
		return req.MarshalBinary()
	})
	return addr, slot, err
}

func (p *Program) logAccess(ctx context.Context, ix types.LogAccessInstruction) (types.Address, uint64, error) {
	addr := p.derive.Log(ix.CID, ix.Reader, ix.Nonce)
	if ix.CID.IsZero() {
		return addr, 0, fmt.Errorf("%w: log cid is empty", types.ErrInvalidFormat)
	}
	reader, err := p.user(ctx, ix.Reader)
	if errors.Is(err, types.ErrNotFound) {
		return addr, 0, fmt.Errorf("%w: reader %s is not registered", types.ErrRoleViolation, ix.Reader)
	}
	if err != nil {
		return addr, 0, err
	}
	if _, err := p.requireRole(ctx, ix.Subject, types.RolePatient); err != nil {
		return addr, 0, err
	}

	now := p.now().Unix()
	switch reader.Role {
	case types.RolePatient:
		if ix.Reader != ix.Subject {
			return addr, 0, fmt.Errorf("%w: a patient may only log reads of their own records", types.ErrUnauthorized)
		}
	case types.RoleDoctor:
		data, err := p.store.Get(ctx, p.derive.AccessRequest(ix.Reader, ix.Subject))
		if errors.Is(err, types.ErrNotFound) {
			return addr, 0, fmt.Errorf("%w: no access request from %s", types.ErrAccessDenied, ix.Reader)
		}
		if err != nil {
			return addr, 0, err
		}
		var req types.AccessRequestAccount
		if err := req.UnmarshalBinary(data); err != nil {
			return addr, 0, err
		}
		if req.Status != types.StatusApproved {
			return addr, 0, fmt.Errorf("%w: access request is %s", types.ErrAccessDenied, req.Status)
		}
		if req.ExpiresAt <= now {
			return addr, 0, fmt.Errorf("%w: access expired at %d", types.ErrAccessExpired, req.ExpiresAt)
		}
	}

	data, err := types.AccessLogAccount{
		Subject: ix.Subject,
		Reader:  ix.Reader,
		CID:     ix.CID,
		Action:  ix.Action,
		At:      now,
	}.MarshalBinary()
	if err != nil {
		return addr, 0, err
	}
	slot, err := p.createOnce(ctx, addr, data)
	return addr, slot, err
}
