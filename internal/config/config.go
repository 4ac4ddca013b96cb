package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	dserrors "github.com/systmms/secretsplit/internal/errors"
	"github.com/systmms/secretsplit/internal/logging"
)

const (
	// DefaultPath is the configuration file looked up when --config is not given.
	DefaultPath = "secretsplit.yaml"

	// CurrentVersion is the only supported definition version.
	CurrentVersion = 1

	// DefaultConfigDir holds partial configurations, relative to the config file.
	DefaultConfigDir = "connections"

	// DefaultTimeout applies to store operations when timeout_ms is unset.
	DefaultTimeout = 30 * time.Second

	// EnvStoreName is the name given to a store defined by SECRET_PERSISTENCE.
	EnvStoreName = "env"

	// DefaultEphemeralStoreName is used when no ephemeral store is configured.
	DefaultEphemeralStoreName = "ephemeral"
)

// Config holds the runtime configuration
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition
	Env        Env
}

// Definition represents the secretsplit.yaml structure
type Definition struct {
	Version        int                          `yaml:"version"`
	WorkspaceID    string                       `yaml:"workspaceId,omitempty"`
	ConfigDir      string                       `yaml:"configDir,omitempty"`
	LongLivedStore string                       `yaml:"longLivedStore,omitempty"`
	EphemeralStore string                       `yaml:"ephemeralStore,omitempty"`
	SecretStores   map[string]SecretStoreConfig `yaml:"secretStores,omitempty"`
}

// SecretStoreConfig holds secret store-specific configuration. Keys other
// than type and timeout_ms are decoded by the backend.
type SecretStoreConfig struct {
	Type      string                 `yaml:"type"`
	TimeoutMs int                    `yaml:"timeout_ms,omitempty"`
	Config    map[string]interface{} `yaml:",inline"`
}

// Timeout returns the per-operation timeout for the store.
func (s SecretStoreConfig) Timeout() time.Duration {
	if s.TimeoutMs <= 0 {
		return DefaultTimeout
	}
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// Load reads and parses the configuration file
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return dserrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create " + DefaultPath + " or pass --config. Setting SECRET_PERSISTENCE also works without a file",
			}
		}
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	if err := def.Validate(); err != nil {
		return err
	}

	c.Definition = &def
	return nil
}

// Validate checks the definition for structural errors.
func (d *Definition) Validate() error {
	if d.Version != CurrentVersion {
		return dserrors.ConfigError{
			Field:      "version",
			Value:      d.Version,
			Message:    "unsupported configuration version",
			Suggestion: fmt.Sprintf("Set 'version: %d' at the top of %s", CurrentVersion, DefaultPath),
		}
	}

	if d.WorkspaceID != "" {
		if _, err := uuid.Parse(d.WorkspaceID); err != nil {
			return dserrors.ConfigError{
				Field:      "workspaceId",
				Value:      d.WorkspaceID,
				Message:    "workspace id is not a UUID",
				Suggestion: "Generate one with 'uuidgen'",
			}
		}
	}

	for _, name := range d.storeNames() {
		if d.SecretStores[name].Type == "" {
			return dserrors.ConfigError{
				Field:      "secretStores." + name + ".type",
				Message:    "secret store type is required",
				Suggestion: "Run 'secretsplit stores types' to list supported types",
			}
		}
	}

	refs := []struct{ field, name string }{
		{"longLivedStore", d.LongLivedStore},
		{"ephemeralStore", d.EphemeralStore},
	}
	for _, ref := range refs {
		if ref.name == "" {
			continue
		}
		if _, ok := d.SecretStores[ref.name]; !ok {
			return dserrors.ConfigError{
				Field:      ref.field,
				Value:      ref.name,
				Message:    "secret store not defined",
				Suggestion: availableStores(d.storeNames()),
			}
		}
	}

	return nil
}

func (d *Definition) storeNames() []string {
	names := make([]string, 0, len(d.SecretStores))
	for name := range d.SecretStores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SecretStoreNames returns the configured store names in sorted order.
func (c *Config) SecretStoreNames() []string {
	if c.Definition == nil {
		return nil
	}
	return c.Definition.storeNames()
}

// GetSecretStore returns the configuration for a specific secret store
func (c *Config) GetSecretStore(name string) (SecretStoreConfig, error) {
	if c.Definition == nil {
		return SecretStoreConfig{}, errNotLoaded
	}

	if store, ok := c.Definition.SecretStores[name]; ok {
		return store, nil
	}

	return SecretStoreConfig{}, dserrors.ConfigError{
		Field:      "secretStores",
		Value:      name,
		Message:    "secret store not found in configuration",
		Suggestion: availableStores(c.Definition.storeNames()),
	}
}

// LongLivedStore returns the store holding connection secrets.
func (c *Config) LongLivedStore() (string, SecretStoreConfig, error) {
	if c.Definition == nil {
		return "", SecretStoreConfig{}, errNotLoaded
	}

	name := c.Definition.LongLivedStore
	if name == "" {
		names := c.Definition.storeNames()
		if len(names) != 1 {
			return "", SecretStoreConfig{}, dserrors.ConfigError{
				Field:      "longLivedStore",
				Message:    "no long-lived secret store selected",
				Suggestion: "Set 'longLivedStore' to one of the configured stores or set SECRET_PERSISTENCE",
			}
		}
		name = names[0]
	}

	store, err := c.GetSecretStore(name)
	return name, store, err
}

// EphemeralStore returns the store used for one-off splits. An in-memory
// store is used when none is configured.
func (c *Config) EphemeralStore() (string, SecretStoreConfig, error) {
	if c.Definition == nil {
		return "", SecretStoreConfig{}, errNotLoaded
	}

	if c.Definition.EphemeralStore == "" {
		return DefaultEphemeralStoreName, SecretStoreConfig{Type: "memory"}, nil
	}

	store, err := c.GetSecretStore(c.Definition.EphemeralStore)
	return c.Definition.EphemeralStore, store, err
}

// PersistenceDisabled reports whether secrets are kept inline in
// configurations (SECRET_PERSISTENCE=NONE or a noop long-lived store).
func (c *Config) PersistenceDisabled() bool {
	_, store, err := c.LongLivedStore()
	return err == nil && store.Type == "noop"
}

// WorkspaceID returns the workspace secrets are scoped to.
func (c *Config) WorkspaceID() (uuid.UUID, error) {
	raw := c.Env.WorkspaceID
	if raw == "" && c.Definition != nil {
		raw = c.Definition.WorkspaceID
	}
	if raw == "" {
		return uuid.Nil, dserrors.ConfigError{
			Field:      "workspaceId",
			Message:    "workspace id is not configured",
			Suggestion: "Set 'workspaceId' in " + DefaultPath + " or SECRETSPLIT_WORKSPACE_ID",
		}
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dserrors.ConfigError{
			Field:      "workspaceId",
			Value:      raw,
			Message:    "workspace id is not a UUID",
			Suggestion: "Generate one with 'uuidgen'",
		}
	}
	return id, nil
}

// ConfigDir returns the directory holding partial configurations. Relative
// paths are resolved against the configuration file's directory.
func (c *Config) ConfigDir() string {
	dir := DefaultConfigDir
	if c.Definition != nil && c.Definition.ConfigDir != "" {
		dir = c.Definition.ConfigDir
	}
	if filepath.IsAbs(dir) || c.Path == "" {
		return dir
	}
	return filepath.Join(filepath.Dir(c.Path), dir)
}

var errNotLoaded = dserrors.UserError{
	Message:    "Configuration not loaded",
	Suggestion: "This is an internal error. Please report it",
}

func availableStores(names []string) string {
	suggestion := "Add the store to the 'secretStores:' section of " + DefaultPath
	if len(names) > 0 {
		suggestion = fmt.Sprintf("Available stores: %s. %s", strings.Join(names, ", "), suggestion)
	}
	return suggestion
}
