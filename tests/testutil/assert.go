package testutil

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertSecretRedacted verifies that a secret value does not appear in a
// string and that the [REDACTED] marker does.
//
// Example usage:
//
//	logger.Info("token %s", logging.Secret(token))
//	AssertSecretRedacted(t, buf.String(), token)
func AssertSecretRedacted(t *testing.T, output, secretValue string) {
	t.Helper()

	assert.NotContains(t, output, secretValue,
		"Secret value should be redacted, but appears in output")
	assert.Contains(t, output, "[REDACTED]",
		"Expected [REDACTED] marker when secret is used")
}

// AssertNoSecretLeak verifies that none of the secret payloads appear in
// output (command output, log lines, error messages, a persisted partial
// configuration).
//
// Example usage:
//
//	secrets := []string{"hunter2", "AKIA..."}
//	AssertNoSecretLeak(t, stderr.String(), secrets)
func AssertNoSecretLeak(t *testing.T, output string, secrets []string) {
	t.Helper()

	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		assert.NotContains(t, output, secret,
			"Secret payload of length %d appears in output", len(secret))
	}
}

// AssertJSONFile verifies that a file exists and holds JSON equal to
// expected once both are decoded.
func AssertJSONFile(t *testing.T, path string, expected any) {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err, "Failed to read file %s", path)

	var actual any
	require.NoError(t, json.Unmarshal(data, &actual), "File %s is not valid JSON", path)

	want, err := json.Marshal(expected)
	require.NoError(t, err)
	var wantDecoded any
	require.NoError(t, json.Unmarshal(want, &wantDecoded))

	assert.Equal(t, wantDecoded, actual, "JSON contents mismatch for %s", path)
}

// AssertErrorContains verifies that an error occurred and contains a substring.
func AssertErrorContains(t *testing.T, err error, substr string) {
	t.Helper()

	assert.Error(t, err, "Expected an error to occur")
	if err != nil {
		assert.Contains(t, err.Error(), substr,
			"Error message should contain %q", substr)
	}
}

// AssertLinesContain verifies that each expected string appears on some
// line of a multi-line output.
//
// Example usage:
//
//	AssertLinesContain(t, out, []string{"$.password", "$.tunnel_method.ssh_key"})
func AssertLinesContain(t *testing.T, output string, expectedLines []string) {
	t.Helper()

	lines := strings.Split(output, "\n")

	for _, expected := range expectedLines {
		found := false
		for _, line := range lines {
			if strings.Contains(line, expected) {
				found = true
				break
			}
		}

		assert.True(t, found,
			"Expected to find line containing %q in output", expected)
	}
}
