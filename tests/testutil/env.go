package testutil

import (
	"os"
	"testing"
)

// ConfigEnvVars lists every environment variable internal/config reads.
var ConfigEnvVars = []string{
	"SECRET_PERSISTENCE",
	"VAULT_ADDRESS",
	"VAULT_PREFIX",
	"VAULT_AUTH_TOKEN",
	"SECRET_STORE_GCP_PROJECT_ID",
	"SECRET_STORE_GCP_CREDENTIALS",
	"AWS_ACCESS_KEY",
	"AWS_SECRET_ACCESS_KEY",
	"AWS_REGION",
	"DATABASE_URL",
	"SECRETSPLIT_WORKSPACE_ID",
}

// ClearConfigEnv unsets every variable in ConfigEnvVars for the duration of
// the test, so a developer's shell cannot change which store a test uses.
// Like t.Setenv it cannot be used in parallel tests.
func ClearConfigEnv(t *testing.T) {
	t.Helper()

	for _, key := range ConfigEnvVars {
		// t.Setenv records the original value and restores it on cleanup.
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("Failed to unset environment variable %s: %v", key, err)
		}
	}
}

// SetupTestEnv sets environment variables for the duration of a test.
//
// Example usage:
//
//	SetupTestEnv(t, map[string]string{
//	    "SECRET_PERSISTENCE": "VAULT",
//	    "VAULT_ADDRESS":      "http://localhost:8200",
//	})
func SetupTestEnv(t *testing.T, vars map[string]string) {
	t.Helper()

	for key, value := range vars {
		t.Setenv(key, value)
	}
}
