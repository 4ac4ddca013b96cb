package secretstores

import (
	"context"
	"errors"

	"github.com/zalando/go-keyring"

	"github.com/systmms/secretsplit/pkg/secretstore"
)

// DefaultKeyringService is the keychain service name used when none is set.
const DefaultKeyringService = "secretsplit"

// KeyringConfig holds keyring settings.
type KeyringConfig struct {
	Service string `mapstructure:"service"`
}

// KeyringStore keeps payloads in the OS keychain (macOS Keychain, Linux
// Secret Service, Windows Credential Manager). The coordinate is the
// account name under one service.
type KeyringStore struct {
	name    string
	service string
}

func newKeyringFactory(_ context.Context, name string, settings map[string]interface{}) (secretstore.Persistence, error) {
	var cfg KeyringConfig
	if err := decodeSettings(name, settings, &cfg); err != nil {
		return nil, err
	}
	return NewKeyringStore(name, cfg), nil
}

// NewKeyringStore creates the store.
func NewKeyringStore(name string, cfg KeyringConfig) *KeyringStore {
	service := cfg.Service
	if service == "" {
		service = DefaultKeyringService
	}
	return &KeyringStore{name: name, service: service}
}

// Name returns the store name.
func (k *KeyringStore) Name() string {
	return k.name
}

// Read implements secretstore.Reader.
func (k *KeyringStore) Read(_ context.Context, coord secretstore.Coordinate) (string, bool, error) {
	payload, err := keyring.Get(k.service, coord.Full())
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, secretstore.NewStoreError(k.name, "read", coord, err)
	}
	return payload, true, nil
}

// Write implements secretstore.Writer.
func (k *KeyringStore) Write(_ context.Context, coord secretstore.Coordinate, payload string) error {
	if err := keyring.Set(k.service, coord.Full(), payload); err != nil {
		return secretstore.NewStoreError(k.name, "write", coord, err)
	}
	return nil
}

// Close is a no-op.
func (k *KeyringStore) Close() error {
	return nil
}
