package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretsplit/internal/config"
	"github.com/systmms/secretsplit/tests/testutil"
)

var postgresSchema = map[string]any{
	"type":     "object",
	"required": []any{"host"},
	"properties": map[string]any{
		"host":     map[string]any{"type": "string"},
		"port":     map[string]any{"type": "integer"},
		"password": map[string]any{"type": "string", "airbyte_secret": true},
	},
}

// sqliteConfig returns a builder whose long-lived store is a migrated
// SQLite file, so secrets outlive a single command execution.
func sqliteConfig(t *testing.T) *testutil.TestConfigBuilder {
	t.Helper()

	b := testutil.NewTestConfig(t)
	return b.
		WithSecretStore("main", "sql", map[string]any{
			"dialect": "sqlite",
			"dsn":     filepath.Join(b.Dir(), "secrets.db"),
			"migrate": true,
		}).
		WithLongLivedStore("main")
}

// newTestCfg returns a config pointing at path with a capturing logger.
func newTestCfg(t *testing.T, path string) (*config.Config, *testutil.TestLogger) {
	t.Helper()
	testutil.ClearConfigEnv(t)

	logger := testutil.NewTestLogger(t)
	return &config.Config{Path: path, Logger: logger.Logger()}, logger
}

// writeJSONFile writes v to a file in a temp dir and returns its path.
func writeJSONFile(t *testing.T, name string, v any) string {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

// execute runs cmd with args and stdin and returns its stdout.
func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	return out.String(), err
}

// decodeOutput parses a command's JSON output.
func decodeOutput(t *testing.T, out string) map[string]any {
	t.Helper()

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc), "output: %s", out)
	return doc
}
