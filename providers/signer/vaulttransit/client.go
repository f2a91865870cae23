package vaulttransit

import (
	"fmt"
	"net/http"
	"os"

	"github.com/hashicorp/vault/api"

	"github.com/hengadev/medlock/internal/types"
)

// NewClientFromEnvironment creates a Vault client configured from the environment.
//
// Environment Variables:
//   - VAULT_ADDR: Vault server address (required)
//   - VAULT_NAMESPACE: Vault namespace (optional)
//   - VAULT_TOKEN: Direct Vault token (optional, alternative to AppRole)
//   - VAULT_ROLE_ID and VAULT_SECRET_ID: AppRole credentials (optional)
//
// A token takes priority over AppRole. With neither, the call fails.
func NewClientFromEnvironment() (*api.Client, error) {
	config := api.DefaultConfig()
	if addr := os.Getenv("VAULT_ADDR"); addr != "" {
		config.Address = addr
	}
	if config.Address == "" {
		return nil, fmt.Errorf("%w: VAULT_ADDR environment variable is required", types.ErrInvalidConfiguration)
	}
	config.HttpClient.Transport = &http.Transport{Proxy: http.ProxyFromEnvironment}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Vault client: %w", types.ErrSigningUnavailable, err)
	}
	if namespace := os.Getenv("VAULT_NAMESPACE"); namespace != "" {
		client.SetNamespace(namespace)
	}

	if token := os.Getenv("VAULT_TOKEN"); token != "" {
		client.SetToken(token)
		return client, nil
	}

	roleID, secretID := os.Getenv("VAULT_ROLE_ID"), os.Getenv("VAULT_SECRET_ID")
	if roleID == "" || secretID == "" {
		return nil, fmt.Errorf("%w: no Vault authentication method configured (set VAULT_TOKEN or VAULT_ROLE_ID+VAULT_SECRET_ID)",
			types.ErrInvalidConfiguration)
	}
	resp, err := client.Logical().Write("auth/approle/login", map[string]interface{}{
		"role_id":   roleID,
		"secret_id": secretID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to login with AppRole: %w", types.ErrSigningUnavailable, err)
	}
	if resp == nil || resp.Auth == nil {
		return nil, fmt.Errorf("%w: no auth info returned from AppRole login", types.ErrSigningUnavailable)
	}
	client.SetToken(resp.Auth.ClientToken)
	return client, nil
}
