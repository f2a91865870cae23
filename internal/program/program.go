// Package program applies ledger instructions to account state. It holds the
// rules the on-ledger program enforces: role checks, create-once slots, and the
// access request lifecycle.
package program

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hengadev/medlock/internal/address"
	"github.com/hengadev/medlock/internal/types"
)

// RerequestPolicy decides whether a closed access request slot may be reopened.
type RerequestPolicy string

const (
	// RerequestNever keeps one lifetime decision per (doctor, patient) pair.
	RerequestNever RerequestPolicy = "never"
	// RerequestAfterClose reopens a denied or expired request as a new pending one.
	RerequestAfterClose RerequestPolicy = "after-close"
)

// Valid reports whether p is a known policy.
func (p RerequestPolicy) Valid() bool {
	return p == RerequestNever || p == RerequestAfterClose
}

// Program executes signed instructions against an AccountStore.
type Program struct {
	derive address.Deriver
	store  AccountStore
	now    func() time.Time
	policy RerequestPolicy
	logger *slog.Logger
}

// Option configures a Program.
type Option func(*Program)

// WithClock sets the time source used for timestamps and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(p *Program) { p.now = now }
}

// WithRerequestPolicy sets how an occupied access request slot is handled.
func WithRerequestPolicy(policy RerequestPolicy) Option {
	return func(p *Program) { p.policy = policy }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Program) { p.logger = logger }
}

// New returns a Program identified by programID.
func New(programID types.PublicKey, store AccountStore, opts ...Option) *Program {
	p := &Program{
		derive: address.NewDeriver(programID),
		store:  store,
		now:    time.Now,
		policy: RerequestNever,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Deriver returns the address scheme of the program.
func (p *Program) Deriver() address.Deriver { return p.derive }

// ReadAccount returns the raw data stored at addr, or ErrNotFound.
func (p *Program) ReadAccount(ctx context.Context, addr types.Address) ([]byte, error) {
	return p.store.Get(ctx, addr)
}

// Execute verifies the authority's signature and applies the instruction.
func (p *Program) Execute(ctx context.Context, signed types.SignedInstruction) (types.Receipt, error) {
	ix := signed.Instruction
	if ix == nil {
		return types.Receipt{}, fmt.Errorf("%w: nil instruction", types.ErrInvalidFormat)
	}
	msg, err := ix.SigningBytes()
	if err != nil {
		return types.Receipt{}, err
	}
	authority := ix.Authority()
	if !ed25519.Verify(authority[:], msg, signed.Signature) {
		return types.Receipt{}, fmt.Errorf("%w: bad signature for %s by %s", types.ErrUnauthorized, ix.Kind(), authority)
	}

	var (
		addr types.Address
		slot uint64
	)
	switch ix := ix.(type) {
	case types.RegisterInstruction:
		addr, slot, err = p.register(ctx, ix)
	case types.AddRecordInstruction:
		addr, slot, err = p.addRecord(ctx, ix)
	case types.RequestAccessInstruction:
		addr, slot, err = p.requestAccess(ctx, ix)
	case types.RespondAccessInstruction:
		addr, slot, err = p.respondAccess(ctx, ix)
	case types.LogAccessInstruction:
		addr, slot, err = p.logAccess(ctx, ix)
	default:
		err = fmt.Errorf("%w: unsupported instruction %T", types.ErrInvalidFormat, ix)
	}
	if err != nil {
		p.logger.DebugContext(ctx, "instruction rejected",
			slog.String("kind", ix.Kind().String()),
			slog.String("authority", authority.String()),
			slog.String("error", err.Error()))
		return types.Receipt{}, err
	}

	receipt := types.Receipt{
		ID:      uuid.NewString(),
		Kind:    ix.Kind(),
		Address: addr,
		Slot:    slot,
		At:      p.now().UTC(),
	}
	p.logger.DebugContext(ctx, "instruction applied",
		slog.String("kind", receipt.Kind.String()),
		slog.String("address", addr.String()),
		slog.Uint64("slot", slot),
		slog.String("receipt", receipt.ID))
	return receipt, nil
}

// user loads the registered User account of pk.
func (p *Program) user(ctx context.Context, pk types.PublicKey) (types.UserAccount, error) {
	var u types.UserAccount
	data, err := p.store.Get(ctx, p.derive.User(pk))
	if err != nil {
		return u, err
	}
	if err := u.UnmarshalBinary(data); err != nil {
		return u, err
	}
	return u, nil
}

// requireRole loads pk's User account and checks its role.
func (p *Program) requireRole(ctx context.Context, pk types.PublicKey, role types.Role) (types.UserAccount, error) {
	u, err := p.user(ctx, pk)
	if errors.Is(err, types.ErrNotFound) {
		return u, fmt.Errorf("%w: %s is not registered as %s", types.ErrRoleViolation, pk, role)
	}
	if err != nil {
		return u, err
	}
	if u.Role != role {
		return u, fmt.Errorf("%w: %s is a %s, not a %s", types.ErrRoleViolation, pk, u.Role, role)
	}
	return u, nil
}

// createOnce writes data to addr only if the account does not exist yet.
func (p *Program) createOnce(ctx context.Context, addr types.Address, data []byte) (uint64, error) {
	return p.store.Mutate(ctx, addr, func(_ []byte, exists bool) ([]byte, error) {
		if exists {
			return nil, fmt.Errorf("%w: account %s", types.ErrAlreadyExists, addr)
		}
		return data, nil
	})
}
