// Package testutil provides test utilities and helpers for secretsplit tests.
//
// This package contains shared test infrastructure including configuration
// builders, logger helpers, fixture loaders and the persistence contract
// suite run against every secret store backend.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/systmms/secretsplit/internal/config"
)

// TestWorkspaceID is the workspace used by builder-generated configurations.
const TestWorkspaceID = "5a7b0c1e-0000-4000-8000-000000000001"

// TestConfigBuilder provides a fluent API for building test configurations.
//
// Example usage:
//
//	path := NewTestConfig(t).
//	    WithSecretStore("main", "sql", map[string]any{
//	        "dialect": "sqlite",
//	        "dsn":     filepath.Join(t.TempDir(), "secrets.db"),
//	        "migrate": true,
//	    }).
//	    WithLongLivedStore("main").
//	    Write()
type TestConfigBuilder struct {
	config  *config.Definition
	tempDir string
	t       *testing.T
}

// NewTestConfig creates a new TestConfigBuilder.
//
// The builder starts with a minimal valid configuration: version 1, the
// test workspace and a config directory inside the temp dir.
func NewTestConfig(t *testing.T) *TestConfigBuilder {
	t.Helper()

	return &TestConfigBuilder{
		config: &config.Definition{
			Version:      config.CurrentVersion,
			WorkspaceID:  TestWorkspaceID,
			SecretStores: make(map[string]config.SecretStoreConfig),
		},
		tempDir: t.TempDir(),
		t:       t,
	}
}

// WithSecretStore adds a secret store configuration.
func (b *TestConfigBuilder) WithSecretStore(name, storeType string, cfg map[string]any) *TestConfigBuilder {
	b.t.Helper()

	b.config.SecretStores[name] = config.SecretStoreConfig{
		Type:   storeType,
		Config: cfg,
	}
	return b
}

// WithLongLivedStore selects the store connection secrets are written to.
func (b *TestConfigBuilder) WithLongLivedStore(name string) *TestConfigBuilder {
	b.config.LongLivedStore = name
	return b
}

// WithEphemeralStore selects the store one-off splits are written to.
func (b *TestConfigBuilder) WithEphemeralStore(name string) *TestConfigBuilder {
	b.config.EphemeralStore = name
	return b
}

// WithWorkspace overrides the workspace id.
func (b *TestConfigBuilder) WithWorkspace(id string) *TestConfigBuilder {
	b.config.WorkspaceID = id
	return b
}

// Dir returns the directory Write places secretsplit.yaml in.
func (b *TestConfigBuilder) Dir() string {
	return b.tempDir
}

// Build returns the built configuration Definition.
func (b *TestConfigBuilder) Build() *config.Definition {
	b.t.Helper()

	return b.config
}

// Write writes secretsplit.yaml to the builder's temporary directory and
// returns its path.
func (b *TestConfigBuilder) Write() string {
	b.t.Helper()

	path := filepath.Join(b.tempDir, config.DefaultPath)
	data, err := yaml.Marshal(b.config)
	if err != nil {
		b.t.Fatalf("Failed to marshal test config: %v", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		b.t.Fatalf("Failed to write test config: %v", err)
	}

	return path
}

// WriteTestConfig writes a hand-written YAML configuration to a temporary
// secretsplit.yaml and returns its path.
//
// Example:
//
//	path := WriteTestConfig(t, `
//	version: 1
//	secretStores:
//	  main:
//	    type: memory
//	`)
func WriteTestConfig(t *testing.T, yamlContent string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), config.DefaultPath)
	if err := os.WriteFile(path, []byte(yamlContent), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	return path
}
