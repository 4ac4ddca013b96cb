package secretstores

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/systmms/secretsplit/internal/config"
	dserrors "github.com/systmms/secretsplit/internal/errors"
	"github.com/systmms/secretsplit/pkg/secretstore"
)

// Factory builds a store from its decoded-on-demand settings. name is the
// configured store name; settings holds every key except type and timeout_ms.
type Factory func(ctx context.Context, name string, settings map[string]interface{}) (secretstore.Persistence, error)

// Registry manages secret store creation and registration
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a new secret store registry with built-in secret stores
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}

	r.RegisterFactory(TypeMemory, newMemoryFactory)
	r.RegisterFactory(TypeNoop, newNoopFactory)
	r.RegisterFactory(TypeSQL, newSQLFactory)
	r.RegisterFactory(TypeGCPSecretManager, newGCPSecretManagerFactory)
	r.RegisterFactory(TypeAWSSecretsManager, newAWSSecretsManagerFactory)
	r.RegisterFactory(TypeAWSSSM, newAWSSSMFactory)
	r.RegisterFactory(TypeVault, newVaultFactory)
	r.RegisterFactory(TypeAzureKeyVault, newAzureKeyVaultFactory)
	r.RegisterFactory(TypeKeyring, newKeyringFactory)
	r.RegisterFactory(TypeAkeyless, newAkeylessFactory)

	return r
}

// Store type names as they appear in secretsplit.yaml.
const (
	TypeMemory            = "memory"
	TypeNoop              = "noop"
	TypeSQL               = "sql"
	TypeGCPSecretManager  = "gcp.secretmanager"
	TypeAWSSecretsManager = "aws.secretsmanager"
	TypeAWSSSM            = "aws.ssm"
	TypeVault             = "vault"
	TypeAzureKeyVault     = "azure.keyvault"
	TypeKeyring           = "keyring"
	TypeAkeyless          = "akeyless"
)

// RegisterFactory adds or replaces the factory for storeType.
func (r *Registry) RegisterFactory(storeType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[storeType] = factory
}

// Create builds the named store and wraps it with metrics and the store's
// per-operation timeout.
func (r *Registry) Create(ctx context.Context, name string, cfg config.SecretStoreConfig) (*InstrumentedStore, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, dserrors.ConfigError{
			Field:      "secretStores." + name + ".type",
			Value:      cfg.Type,
			Message:    "unknown secret store type",
			Suggestion: "Run 'secretsplit stores types' to list supported types",
		}
	}

	settings := cfg.Config
	if settings == nil {
		settings = map[string]interface{}{}
	}

	store, err := factory(ctx, name, settings)
	if err != nil {
		return nil, fmt.Errorf("create secret store %s (%s): %w", name, cfg.Type, err)
	}

	return Instrument(store, cfg.Type, cfg.Timeout()), nil
}

// SupportedTypes returns the registered store types in sorted order.
func (r *Registry) SupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for storeType := range r.factories {
		types = append(types, storeType)
	}
	sort.Strings(types)
	return types
}

// IsSupported checks if a secret store type is supported
func (r *Registry) IsSupported(storeType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[storeType]
	return ok
}

// decodeSettings decodes a store's YAML settings into out. Unknown keys are
// rejected so typos surface at startup.
func decodeSettings(name string, settings map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(settings); err != nil {
		return dserrors.ConfigError{
			Field:      "secretStores." + name,
			Message:    err.Error(),
			Suggestion: "Check the store's settings against the documented keys for its type",
		}
	}
	return nil
}

func requireSetting(name, key, value string) error {
	if value != "" {
		return nil
	}
	return dserrors.ConfigError{
		Field:      "secretStores." + name + "." + key,
		Message:    key + " is required",
		Suggestion: "Add '" + key + ":' to the store definition",
	}
}
