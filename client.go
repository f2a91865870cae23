package medlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hengadev/medlock/internal/address"
	"github.com/hengadev/medlock/internal/monitoring"
	"github.com/hengadev/medlock/internal/types"
)

// Client runs the record and access flows against a ledger and a content store.
// It holds no per-user state and is safe for concurrent use.
type Client struct {
	cfg        Config
	ledger     Ledger
	store      ContentStore
	derive     address.Deriver
	logger     *slog.Logger
	metrics    MetricsCollector
	extraHooks []ObservabilityHook
	hook       ObservabilityHook
	now        func() time.Time
}

// New validates cfg and builds a client over ledger and store.
//
// The client does not own its collaborators: closing the ledger or store is the
// caller's job.
func New(cfg Config, ledger Ledger, store ContentStore, opts ...Option) (*Client, error) {
	if ledger == nil {
		return nil, fmt.Errorf("%w: ledger is required", ErrInvalidConfiguration)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: content store is required", ErrInvalidConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:     cfg,
		ledger:  ledger,
		store:   store,
		derive:  address.NewDeriver(cfg.programKey()),
		logger:  monitoring.NopLogger(),
		metrics: NoOpMetricsCollector{},
		now:     time.Now,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	hooks := append([]ObservabilityHook{
		monitoring.NewLoggingObservabilityHook(c.logger, ErrorKind),
		monitoring.NewMetricsObservabilityHook(c.metrics, ErrorKind),
	}, c.extraHooks...)
	c.hook = monitoring.NewCompositeObservabilityHook(hooks...)
	return c, nil
}

// Config returns the validated configuration.
func (c *Client) Config() Config { return c.cfg }

// ProgramID returns the program the client derives addresses under.
func (c *Client) ProgramID() PublicKey { return c.derive.Program() }

// observe reports one operation to the hooks.
func (c *Client) observe(ctx context.Context, op string, attrs map[string]any, fn func() error) error {
	c.hook.OnOperationStart(ctx, op, attrs)
	start := time.Now()
	err := fn()
	c.hook.OnOperationComplete(ctx, op, time.Since(start), err, attrs)
	return err
}

func (c *Client) deriveKey(ctx context.Context, signer Signer) (Key, error) {
	return deriveKey(ctx, signer, []byte(c.cfg.KeyMessage), c.cfg.KeyDerivation)
}

// submit signs ix with signer and sends it to the ledger.
func (c *Client) submit(ctx context.Context, signer Signer, ix types.Instruction) (Receipt, error) {
	signed, err := signInstruction(ctx, signer, ix)
	if err != nil {
		return Receipt{}, err
	}
	receipt, err := c.ledger.Submit(ctx, signed)
	if err != nil {
		return Receipt{}, err
	}
	c.logger.DebugContext(ctx, "instruction submitted",
		slog.String("kind", receipt.Kind.String()),
		slog.String("address", receipt.Address.String()),
		slog.String("receipt", receipt.ID))
	return receipt, nil
}

// readAccount reads addr, keeping ErrNotFound and tagging other failures as ledger errors.
func (c *Client) readAccount(ctx context.Context, addr Address) ([]byte, error) {
	data, err := c.ledger.ReadAccount(ctx, addr)
	if err == nil {
		return data, nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrLedgerUnavailable) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: read %s: %w", ErrLedgerUnavailable, addr, err)
}

// Register creates the ledger identity of signer. An empty did defaults to the
// signer's did:key. Registering twice fails with ErrAlreadyExists.
func (c *Client) Register(ctx context.Context, signer Signer, role Role, did string) (Identity, error) {
	var id Identity
	err := c.observe(ctx, "register", map[string]any{"role": role.String()}, func() error {
		if signer == nil {
			return fmt.Errorf("%w: no signer", ErrSigningUnavailable)
		}
		if !role.Valid() {
			return fmt.Errorf("%w: unknown role %d", ErrInvalidFormat, role)
		}
		pk := signer.PublicKey()
		if did == "" {
			did = DIDKey(pk)
		}
		if len(did) > MaxDIDLength {
			return fmt.Errorf("%w: did exceeds %d bytes", ErrInvalidFormat, MaxDIDLength)
		}

		receipt, err := c.submit(ctx, signer, types.RegisterInstruction{Signer: pk, Role: role, DID: did})
		if err != nil {
			return err
		}
		id = Identity{Address: receipt.Address, PublicKey: pk, Role: role, DID: did, CreatedAt: receipt.At}
		return nil
	})
	return id, err
}

// GetIdentity returns the registered identity of pk, or ErrNotFound.
func (c *Client) GetIdentity(ctx context.Context, pk PublicKey) (Identity, error) {
	addr := c.derive.User(pk)
	data, err := c.readAccount(ctx, addr)
	if err != nil {
		return Identity{}, err
	}
	var acc types.UserAccount
	if err := acc.UnmarshalBinary(data); err != nil {
		return Identity{}, err
	}
	return Identity{
		Address:   addr,
		PublicKey: acc.PublicKey,
		Role:      acc.Role,
		DID:       acc.DID,
		CreatedAt: time.Unix(acc.CreatedAt, 0).UTC(),
	}, nil
}
