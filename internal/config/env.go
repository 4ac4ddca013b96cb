package config

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	dserrors "github.com/systmms/secretsplit/internal/errors"
	"github.com/systmms/secretsplit/internal/logging"
)

// Values accepted by SECRET_PERSISTENCE.
const (
	PersistenceConfigDBTable    = "TESTING_CONFIG_DB_TABLE"
	PersistenceGoogleSecretMgr  = "GOOGLE_SECRET_MANAGER"
	PersistenceVault            = "VAULT"
	PersistenceAWSSecretManager = "AWS_SECRET_MANAGER"
	PersistenceNone             = "NONE"
)

// Env holds the environment overrides. Credentials read here only ever end
// up in a SecretStoreConfig and are logged as logging.Secret.
type Env struct {
	SecretPersistence string `env:"SECRET_PERSISTENCE"`

	VaultAddress   string `env:"VAULT_ADDRESS"`
	VaultPrefix    string `env:"VAULT_PREFIX"`
	VaultAuthToken string `env:"VAULT_AUTH_TOKEN"`

	GCPProjectID   string `env:"SECRET_STORE_GCP_PROJECT_ID"`
	GCPCredentials string `env:"SECRET_STORE_GCP_CREDENTIALS"`

	AWSAccessKey       string `env:"AWS_ACCESS_KEY"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion          string `env:"AWS_REGION,default=us-east-1"`

	DatabaseURL string `env:"DATABASE_URL"`
	WorkspaceID string `env:"SECRETSPLIT_WORKSPACE_ID"`
}

// LoadEnv resolves environment overrides through lookuper (the process
// environment when nil) and applies them to the definition. A missing
// definition is replaced by an empty one, so SECRET_PERSISTENCE alone is
// enough to run.
func (c *Config) LoadEnv(ctx context.Context, lookuper envconfig.Lookuper) error {
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	var env Env
	if err := envconfig.ProcessWith(ctx, &env, lookuper); err != nil {
		return dserrors.UserError{
			Message: "Failed to read environment configuration",
			Details: err.Error(),
			Err:     err,
		}
	}
	c.Env = env

	if c.Definition == nil {
		c.Definition = &Definition{Version: CurrentVersion}
	}
	return c.applyEnv()
}

func (c *Config) applyEnv() error {
	if c.Env.SecretPersistence == "" {
		return nil
	}

	store, err := c.Env.persistenceStore()
	if err != nil {
		return err
	}

	if c.Definition.SecretStores == nil {
		c.Definition.SecretStores = map[string]SecretStoreConfig{}
	}
	c.Definition.SecretStores[EnvStoreName] = store
	c.Definition.LongLivedStore = EnvStoreName

	if c.Logger != nil {
		if len(store.Config) == 0 {
			c.Logger.Debug("SECRET_PERSISTENCE=%s selects a %s long-lived store", c.Env.SecretPersistence, store.Type)
		} else {
			c.Logger.Debug("SECRET_PERSISTENCE=%s selects a %s long-lived store (%s)",
				c.Env.SecretPersistence, store.Type, describeSettings(store.Config))
		}
	}
	return nil
}

// credentialSettings are the store settings filled from credential variables.
var credentialSettings = map[string]bool{
	"dsn":               true,
	"token":             true,
	"credentials_json":  true,
	"access_key_id":     true,
	"secret_access_key": true,
}

// describeSettings renders settings as sorted key=value pairs with
// credentials redacted.
func describeSettings(settings map[string]interface{}) string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		var v interface{} = settings[k]
		if credentialSettings[k] {
			v = logging.Secret(fmt.Sprint(v))
		}
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, " ")
}

func (e Env) persistenceStore() (SecretStoreConfig, error) {
	switch strings.ToUpper(e.SecretPersistence) {
	case PersistenceConfigDBTable:
		if e.DatabaseURL == "" {
			return SecretStoreConfig{}, missingEnv("DATABASE_URL", PersistenceConfigDBTable)
		}
		return SecretStoreConfig{Type: "sql", Config: map[string]interface{}{
			"dialect": DialectFromDSN(e.DatabaseURL),
			"dsn":     e.DatabaseURL,
			"migrate": true,
		}}, nil

	case PersistenceGoogleSecretMgr:
		if e.GCPProjectID == "" {
			return SecretStoreConfig{}, missingEnv("SECRET_STORE_GCP_PROJECT_ID", PersistenceGoogleSecretMgr)
		}
		cfg := map[string]interface{}{"project_id": e.GCPProjectID}
		if e.GCPCredentials != "" {
			cfg["credentials_json"] = e.GCPCredentials
		}
		return SecretStoreConfig{Type: "gcp.secretmanager", Config: cfg}, nil

	case PersistenceVault:
		if e.VaultAddress == "" {
			return SecretStoreConfig{}, missingEnv("VAULT_ADDRESS", PersistenceVault)
		}
		return SecretStoreConfig{Type: "vault", Config: map[string]interface{}{
			"address": e.VaultAddress,
			"prefix":  e.VaultPrefix,
			"token":   e.VaultAuthToken,
		}}, nil

	case PersistenceAWSSecretManager:
		cfg := map[string]interface{}{"region": e.AWSRegion}
		if e.AWSAccessKey != "" {
			cfg["access_key_id"] = e.AWSAccessKey
			cfg["secret_access_key"] = e.AWSSecretAccessKey
		}
		return SecretStoreConfig{Type: "aws.secretsmanager", Config: cfg}, nil

	case PersistenceNone:
		return SecretStoreConfig{Type: "noop"}, nil
	}

	return SecretStoreConfig{}, dserrors.ConfigError{
		Field:   "SECRET_PERSISTENCE",
		Value:   e.SecretPersistence,
		Message: "unknown secret persistence",
		Suggestion: strings.Join([]string{
			PersistenceConfigDBTable, PersistenceGoogleSecretMgr, PersistenceVault,
			PersistenceAWSSecretManager, PersistenceNone,
		}, ", "),
	}
}

// DialectFromDSN guesses the SQL dialect of a connection string.
func DialectFromDSN(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"),
		strings.Contains(dsn, "host=") && strings.Contains(dsn, "dbname="):
		return "postgres"
	case strings.Contains(dsn, "@tcp("), strings.Contains(dsn, "@unix("):
		return "mysql"
	default:
		return "sqlite"
	}
}

func missingEnv(name, persistence string) error {
	return dserrors.ConfigError{
		Field:      name,
		Message:    "required when SECRET_PERSISTENCE=" + persistence,
		Suggestion: "Export " + name + " or select another SECRET_PERSISTENCE",
	}
}
