// Package vaulttransit signs with an ed25519 key held by HashiCorp Vault's
// Transit engine. The private key never leaves Vault.
//
// The Transit engine must be enabled and the key created with type ed25519:
//
//	vault secrets enable transit
//	vault write transit/keys/medlock-patient type=ed25519
package vaulttransit

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/hashicorp/vault/api"

	"github.com/hengadev/medlock/internal/types"
)

const signaturePrefix = "vault:v"

// Signer implements the client Signer contract over a Transit key.
type Signer struct {
	client    *api.Client
	keyName   string
	publicKey types.PublicKey
	connected atomic.Bool
}

// New loads the public half of keyName and returns a connected signer.
func New(ctx context.Context, client *api.Client, keyName string) (*Signer, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: vault client is required", types.ErrInvalidConfiguration)
	}
	if keyName == "" {
		return nil, fmt.Errorf("%w: transit key name cannot be empty", types.ErrInvalidConfiguration)
	}

	pub, err := readPublicKey(ctx, client, keyName)
	if err != nil {
		return nil, err
	}
	s := &Signer{client: client, keyName: keyName, publicKey: pub}
	s.connected.Store(true)
	return s, nil
}

// readPublicKey returns the latest version of an ed25519 Transit key.
func readPublicKey(ctx context.Context, client *api.Client, keyName string) (types.PublicKey, error) {
	resp, err := client.Logical().ReadWithContext(ctx, "transit/keys/"+keyName)
	if err != nil {
		return types.PublicKey{}, mapVaultError("read transit key", keyName, err)
	}
	if resp == nil || resp.Data == nil {
		return types.PublicKey{}, fmt.Errorf("%w: transit key '%s' not found", types.ErrSigningUnavailable, keyName)
	}
	if kt, _ := resp.Data["type"].(string); kt != "" && kt != "ed25519" {
		return types.PublicKey{}, fmt.Errorf("%w: transit key '%s' has type %s, want ed25519",
			types.ErrInvalidConfiguration, keyName, kt)
	}

	version := "1"
	switch v := resp.Data["latest_version"].(type) {
	case json.Number:
		version = v.String()
	case float64:
		version = strconv.Itoa(int(v))
	}
	keys, _ := resp.Data["keys"].(map[string]interface{})
	entry, _ := keys[version].(map[string]interface{})
	encoded, _ := entry["public_key"].(string)
	if encoded == "" {
		return types.PublicKey{}, fmt.Errorf("%w: transit key '%s' has no public key for version %s",
			types.ErrSigningUnavailable, keyName, version)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return types.PublicKey{}, fmt.Errorf("%w: decode public key of '%s': %w", types.ErrSigningUnavailable, keyName, err)
	}
	pub, err := types.PublicKeyFromBytes(raw)
	if err != nil {
		return types.PublicKey{}, fmt.Errorf("%w: %w", types.ErrSigningUnavailable, err)
	}
	return pub, nil
}

func (s *Signer) PublicKey() types.PublicKey { return s.publicKey }

func (s *Signer) Connected() bool { return s.connected.Load() }

// Disconnect makes every later SignMessage fail with ErrSigningUnavailable.
func (s *Signer) Disconnect() { s.connected.Store(false) }

// SignMessage signs msg with the Transit key. A 403 from Vault means the policy
// refused the operation and maps to ErrUserDeclined.
func (s *Signer) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	if !s.Connected() {
		return nil, fmt.Errorf("%w: vault signer disconnected", types.ErrSigningUnavailable)
	}
	resp, err := s.client.Logical().WriteWithContext(ctx, "transit/sign/"+s.keyName, map[string]interface{}{
		"input": base64.StdEncoding.EncodeToString(msg),
	})
	if err != nil {
		return nil, mapVaultError("sign", s.keyName, err)
	}
	if resp == nil || resp.Data == nil {
		return nil, fmt.Errorf("%w: no response from Vault Transit sign", types.ErrSigningUnavailable)
	}
	signature, ok := resp.Data["signature"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: signature not found in response", types.ErrSigningUnavailable)
	}
	return decodeSignature(signature)
}

// decodeSignature strips the "vault:vN:" prefix and decodes the base64 body.
func decodeSignature(s string) ([]byte, error) {
	if !strings.HasPrefix(s, signaturePrefix) {
		return nil, fmt.Errorf("%w: unexpected signature format", types.ErrSigningUnavailable)
	}
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: unexpected signature format", types.ErrSigningUnavailable)
	}
	sig, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: decode signature: %w", types.ErrSigningUnavailable, err)
	}
	if len(sig) != 64 {
		return nil, fmt.Errorf("%w: signature has %d bytes", types.ErrSigningUnavailable, len(sig))
	}
	return sig, nil
}

func mapVaultError(op, keyName string, err error) error {
	var respErr *api.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: vault refused %s with key '%s': %w", types.ErrUserDeclined, op, keyName, err)
	}
	return fmt.Errorf("%w: failed to %s with key '%s': %w", types.ErrSigningUnavailable, op, keyName, err)
}
