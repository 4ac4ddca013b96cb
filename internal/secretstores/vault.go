package secretstores

import (
	"context"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"

	"github.com/systmms/secretsplit/pkg/secretstore"
)

// VaultLogical is the subset of the Vault logical API the store uses.
// *vault.Logical satisfies it.
type VaultLogical interface {
	ReadWithContext(ctx context.Context, path string) (*vault.Secret, error)
	WriteWithContext(ctx context.Context, path string, data map[string]interface{}) (*vault.Secret, error)
}

// VaultConfig holds vault settings.
type VaultConfig struct {
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	Namespace string `mapstructure:"namespace"`
	Mount     string `mapstructure:"mount"`
	Prefix    string `mapstructure:"prefix"`
	KVVersion int    `mapstructure:"kv_version"`
}

// vaultValueKey is the field a payload is stored under.
const vaultValueKey = "value"

// VaultStore stores each coordinate at <mount>/<prefix><coordinate> in a KV
// secrets engine, payload under the "value" field.
type VaultStore struct {
	name      string
	logical   VaultLogical
	mount     string
	prefix    string
	kvVersion int
}

// VaultOption configures a VaultStore.
type VaultOption func(*VaultStore)

// WithVaultLogical sets a custom logical client (for testing)
func WithVaultLogical(logical VaultLogical) VaultOption {
	return func(s *VaultStore) {
		s.logical = logical
	}
}

func newVaultFactory(_ context.Context, name string, settings map[string]interface{}) (secretstore.Persistence, error) {
	var cfg VaultConfig
	if err := decodeSettings(name, settings, &cfg); err != nil {
		return nil, err
	}
	return NewVaultStore(name, cfg)
}

// NewVaultStore creates the store. The token falls back to VAULT_TOKEN.
func NewVaultStore(name string, cfg VaultConfig, opts ...VaultOption) (*VaultStore, error) {
	mount := strings.Trim(strings.TrimSpace(cfg.Mount), "/")
	if mount == "" {
		mount = "secret"
	}
	kvVersion := cfg.KVVersion
	if kvVersion == 0 {
		kvVersion = 2
	}
	if kvVersion != 1 && kvVersion != 2 {
		return nil, fmt.Errorf("vault kv_version must be 1 or 2")
	}

	s := &VaultStore{
		name:      name,
		mount:     mount,
		prefix:    strings.TrimLeft(cfg.Prefix, "/"),
		kvVersion: kvVersion,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logical == nil {
		address := strings.TrimSpace(cfg.Address)
		if err := requireSetting(name, "address", address); err != nil {
			return nil, err
		}

		apiCfg := vault.DefaultConfig()
		apiCfg.Address = address
		client, err := vault.NewClient(apiCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create vault client: %w", err)
		}
		if ns := strings.TrimSpace(cfg.Namespace); ns != "" {
			client.SetNamespace(ns)
		}
		if cfg.Token != "" {
			client.SetToken(cfg.Token)
		}
		s.logical = client.Logical()
	}

	return s, nil
}

// Name returns the store name.
func (s *VaultStore) Name() string {
	return s.name
}

func (s *VaultStore) path(coord secretstore.Coordinate) string {
	if s.kvVersion == 2 {
		return fmt.Sprintf("%s/data/%s%s", s.mount, s.prefix, coord.Full())
	}
	return fmt.Sprintf("%s/%s%s", s.mount, s.prefix, coord.Full())
}

// Read implements secretstore.Reader.
func (s *VaultStore) Read(ctx context.Context, coord secretstore.Coordinate) (string, bool, error) {
	secret, err := s.logical.ReadWithContext(ctx, s.path(coord))
	if err != nil {
		return "", false, secretstore.NewStoreError(s.name, "read", coord, err)
	}
	if secret == nil || secret.Data == nil {
		return "", false, nil
	}

	data := secret.Data
	if s.kvVersion == 2 {
		// Deleted or destroyed versions come back with nil data.
		nested, ok := data["data"].(map[string]interface{})
		if !ok || nested == nil {
			return "", false, nil
		}
		data = nested
	}

	raw, ok := data[vaultValueKey]
	if !ok {
		return "", false, secretstore.NewStoreError(s.name, "read", coord,
			fmt.Errorf("vault secret has no %q field", vaultValueKey))
	}
	payload, ok := raw.(string)
	if !ok {
		return "", false, secretstore.NewStoreError(s.name, "read", coord,
			fmt.Errorf("vault secret field %q is %T, not a string", vaultValueKey, raw))
	}
	return payload, true, nil
}

// Write implements secretstore.Writer.
func (s *VaultStore) Write(ctx context.Context, coord secretstore.Coordinate, payload string) error {
	data := map[string]interface{}{vaultValueKey: payload}
	if s.kvVersion == 2 {
		data = map[string]interface{}{"data": data}
	}

	if _, err := s.logical.WriteWithContext(ctx, s.path(coord), data); err != nil {
		return secretstore.NewStoreError(s.name, "write", coord, err)
	}
	return nil
}

// Validate looks up the client's own token.
func (s *VaultStore) Validate(ctx context.Context) error {
	if _, err := s.logical.ReadWithContext(ctx, "auth/token/lookup-self"); err != nil {
		return fmt.Errorf("vault token lookup failed: %w", err)
	}
	return nil
}

// Close is a no-op.
func (s *VaultStore) Close() error {
	return nil
}
