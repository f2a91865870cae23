// Package keyfile is a local ed25519 signer backed by a keypair file in the
// Solana CLI format: a JSON array of the 64 secret key bytes (seed then public key).
package keyfile

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/hengadev/medlock/internal/types"
)

// ApprovalFunc decides whether a message may be signed. Returning false maps
// to ErrUserDeclined, the way a wallet prompt would.
type ApprovalFunc func(msg []byte) bool

type Signer struct {
	priv      ed25519.PrivateKey
	pub       types.PublicKey
	approve   ApprovalFunc
	connected atomic.Bool
}

// Option configures a Signer.
type Option func(*Signer)

// WithApproval asks fn before every signature.
func WithApproval(fn ApprovalFunc) Option {
	return func(s *Signer) { s.approve = fn }
}

func newSigner(priv ed25519.PrivateKey, opts ...Option) *Signer {
	s := &Signer{priv: priv}
	copy(s.pub[:], priv.Public().(ed25519.PublicKey))
	for _, opt := range opts {
		opt(s)
	}
	s.connected.Store(true)
	return s
}

// Generate creates a signer with a fresh random key.
func Generate(opts ...Option) (*Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: generate key: %w", types.ErrSigningUnavailable, err)
	}
	return newSigner(priv, opts...), nil
}

// FromSeed derives the signer from a 32-byte ed25519 seed.
func FromSeed(seed []byte, opts ...Option) (*Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes, got %d", types.ErrInvalidFormat, ed25519.SeedSize, len(seed))
	}
	return newSigner(ed25519.NewKeyFromSeed(seed), opts...), nil
}

// Load reads a keypair file. The public half must match the seed.
func Load(path string, opts ...Option) (*Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read keypair %s: %w", types.ErrSigningUnavailable, path, err)
	}
	var ints []int
	if err := json.Unmarshal(raw, &ints); err != nil {
		return nil, fmt.Errorf("%w: keypair %s: %w", types.ErrInvalidFormat, path, err)
	}
	if len(ints) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: keypair %s has %d bytes, want %d", types.ErrInvalidFormat, path, len(ints), ed25519.PrivateKeySize)
	}
	secret := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("%w: keypair %s byte %d out of range", types.ErrInvalidFormat, path, i)
		}
		secret[i] = byte(v)
	}

	s, err := FromSeed(secret[:ed25519.SeedSize], opts...)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(s.pub[:], secret[ed25519.SeedSize:]) {
		return nil, fmt.Errorf("%w: keypair %s public key does not match its seed", types.ErrInvalidFormat, path)
	}
	return s, nil
}

// Save writes the keypair to path with owner-only permissions.
func (s *Signer) Save(path string) error {
	ints := make([]int, len(s.priv))
	for i, b := range s.priv {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create keypair directory: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func (s *Signer) PublicKey() types.PublicKey { return s.pub }

func (s *Signer) Connected() bool { return s.connected.Load() }

// Disconnect simulates a wallet going away.
func (s *Signer) Disconnect() { s.connected.Store(false) }

func (s *Signer) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSigningUnavailable, err)
	}
	if !s.Connected() {
		return nil, fmt.Errorf("%w: signer disconnected", types.ErrSigningUnavailable)
	}
	if s.approve != nil && !s.approve(msg) {
		return nil, types.ErrUserDeclined
	}
	return ed25519.Sign(s.priv, msg), nil
}
