package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/systmms/secretsplit/pkg/secretstore"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// StoreError enhances secret store errors with context. storeType is the
// registry type name (vault, aws.secretsmanager, ...).
func StoreError(storeType string, operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("%s secret store error during %s", storeType, operation),
		Details:    err.Error(),
		Suggestion: getStoreSuggestion(storeType, err),
		Err:        err,
	}
}

// getStoreSuggestion returns helpful suggestions based on store type and error
func getStoreSuggestion(storeType string, err error) string {
	errStr := err.Error()

	switch storeType {
	case "vault":
		if strings.Contains(errStr, "permission denied") || strings.Contains(errStr, "403") {
			return "Check VAULT_AUTH_TOKEN and that its policy allows create, read and update on the secret mount"
		}
		if strings.Contains(errStr, "no handler for route") {
			return "The KV mount does not exist. Enable it with 'vault secrets enable -path=secret kv-v2' or set 'mount'"
		}

	case "gcp.secretmanager":
		if strings.Contains(errStr, "PermissionDenied") || strings.Contains(errStr, "permission") {
			return "Grant roles/secretmanager.admin (or secretAccessor plus secretVersionAdder) to the service account"
		}
		if strings.Contains(errStr, "could not find default credentials") {
			return "Set SECRET_STORE_GCP_CREDENTIALS or run 'gcloud auth application-default login'"
		}
		if strings.Contains(errStr, "SERVICE_DISABLED") {
			return "Enable the Secret Manager API: 'gcloud services enable secretmanager.googleapis.com'"
		}

	case "aws.secretsmanager", "aws.ssm":
		if strings.Contains(errStr, "credentials") || strings.Contains(errStr, "authorization") {
			return "Configure AWS credentials: set AWS_ACCESS_KEY/AWS_SECRET_ACCESS_KEY or AWS_PROFILE"
		}
		if strings.Contains(errStr, "AccessDenied") {
			return "Check IAM permissions for the store's read and write actions"
		}
		if strings.Contains(errStr, "ThrottlingException") {
			return "AWS rate limit exceeded. Wait a moment and try again"
		}

	case "azure.keyvault":
		if strings.Contains(errStr, "Forbidden") || strings.Contains(errStr, "403") {
			return "Grant the identity 'Key Vault Secrets Officer' on the vault"
		}
		if strings.Contains(errStr, "DefaultAzureCredential") {
			return "Run 'az login' or set AZURE_CLIENT_ID, AZURE_TENANT_ID and AZURE_CLIENT_SECRET"
		}

	case "akeyless":
		if strings.Contains(errStr, "authentication failed") || strings.Contains(errStr, "401") {
			return "Check the store's access_id and access_key, or its access_type for cloud identity auth"
		}
		if strings.Contains(errStr, "403") {
			return "The access role needs create, read and update rules on the store's prefix"
		}

	case "sql":
		if strings.Contains(errStr, "no such table") || strings.Contains(errStr, "does not exist") {
			return "Run 'secretsplit stores migrate' to create the secrets table"
		}
		if strings.Contains(errStr, "password authentication failed") {
			return "Check the credentials in DATABASE_URL or the store's dsn"
		}

	case "keyring":
		if strings.Contains(errStr, "org.freedesktop.secrets") {
			return "No Secret Service is running. Start gnome-keyring or use another store type"
		}
	}

	// Generic suggestions
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return "The operation timed out. Check your network connection or raise timeout_ms"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check your network and secret store configuration"
	}

	return ""
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout",
		"deadline exceeded",
		"temporary failure",
		"connection reset",
		"broken pipe",
		"rate limit",
		"throttling",
		"too many requests",
		"unavailable",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Already a user-friendly error
	var userErr UserError
	if errors.As(err, &userErr) {
		return userErr
	}
	var configErr ConfigError
	if errors.As(err, &configErr) {
		return configErr
	}

	var storeErr *secretstore.StoreError
	if errors.As(err, &storeErr) {
		storeType := storeErr.Type
		if storeType == "" {
			storeType = storeErr.Store
		}
		return StoreError(storeType, storeErr.Op, err)
	}

	var coordErr *secretstore.CoordinateError
	if errors.As(err, &coordErr) {
		return UserError{
			Message:    "Stored configuration contains an invalid secret coordinate",
			Details:    coordErr.Error(),
			Suggestion: "The partial configuration was edited or corrupted. Re-write the connection with its full configuration",
			Err:        err,
		}
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	// Simplify common technical errors
	errStr := rootErr.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "json:") || strings.Contains(errStr, "invalid character") {
		return UserError{
			Message:    "Invalid JSON document",
			Suggestion: "Validate the configuration and schema files with 'jq .'",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	// Return original error if we can't simplify it
	return err
}
