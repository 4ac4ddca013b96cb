package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/systmms/secretsplit/internal/secretstores"
)

// FakeAkeylessClient is an in-memory implementation of
// secretstores.AkeylessClient. Errors carry their code in Body(), as the
// SDK's API errors do.
type FakeAkeylessClient struct {
	mu sync.Mutex

	// Token is the token returned by Authenticate
	Token string

	// TokenTTL is the TTL returned by Authenticate
	TokenTTL time.Duration

	// Secrets maps item paths to their current value
	Secrets map[string]string

	// Versions counts value changes per path
	Versions map[string]int

	// AuthErr is returned by Authenticate if set
	AuthErr error

	// GetErr is returned by GetSecretValue if set (overrides Secrets lookup)
	GetErr error

	// AuthCallCount tracks how many times Authenticate was called
	AuthCallCount int

	// CreateCallCount tracks how many times CreateSecret was called
	CreateCallCount int

	// UpdateCallCount tracks how many times UpdateSecretValue was called
	UpdateCallCount int
}

// NewFakeAkeylessClient creates a new fake Akeyless client with defaults
func NewFakeAkeylessClient() *FakeAkeylessClient {
	return &FakeAkeylessClient{
		Token:    "fake-akeyless-token",
		TokenTTL: 30 * time.Minute,
		Secrets:  make(map[string]string),
		Versions: make(map[string]int),
	}
}

// Authenticate obtains an access token
func (f *FakeAkeylessClient) Authenticate(_ context.Context) (string, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.AuthCallCount++
	if f.AuthErr != nil {
		return "", 0, f.AuthErr
	}
	return f.Token, f.TokenTTL, nil
}

// GetSecretValue returns the value at path
func (f *FakeAkeylessClient) GetSecretValue(_ context.Context, token, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if token != f.Token {
		return "", ErrFakeAkeylessUnauthorized
	}
	if f.GetErr != nil {
		return "", f.GetErr
	}
	value, ok := f.Secrets[path]
	if !ok {
		return "", ErrFakeAkeylessSecretNotFound
	}
	return value, nil
}

// CreateSecret creates the item at path, failing if it exists
func (f *FakeAkeylessClient) CreateSecret(_ context.Context, token, path, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CreateCallCount++
	if token != f.Token {
		return ErrFakeAkeylessUnauthorized
	}
	if _, ok := f.Secrets[path]; ok {
		return ErrFakeAkeylessSecretExists
	}
	f.Secrets[path] = value
	f.Versions[path] = 1
	return nil
}

// UpdateSecretValue replaces the value of an existing item
func (f *FakeAkeylessClient) UpdateSecretValue(_ context.Context, token, path, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.UpdateCallCount++
	if token != f.Token {
		return ErrFakeAkeylessUnauthorized
	}
	if _, ok := f.Secrets[path]; !ok {
		return ErrFakeAkeylessSecretNotFound
	}
	f.Secrets[path] = value
	f.Versions[path]++
	return nil
}

// ErrFakeAkeylessSecretNotFound is returned when a secret doesn't exist
var ErrFakeAkeylessSecretNotFound = &fakeAkeylessError{status: "404 Not Found", code: "itemNotFound"}

// ErrFakeAkeylessSecretExists is returned when creating an existing secret
var ErrFakeAkeylessSecretExists = &fakeAkeylessError{status: "409 Conflict", code: "item already exists"}

// ErrFakeAkeylessUnauthorized is returned for auth failures
var ErrFakeAkeylessUnauthorized = &fakeAkeylessError{status: "401 Unauthorized", code: "unauthorized"}

type fakeAkeylessError struct {
	status string
	code   string
}

func (e *fakeAkeylessError) Error() string {
	return e.status
}

func (e *fakeAkeylessError) Body() []byte {
	return []byte(`{"error":"` + e.code + `"}`)
}

var _ secretstores.AkeylessClient = (*FakeAkeylessClient)(nil)
