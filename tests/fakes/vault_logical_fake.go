package fakes

import (
	"context"
	"strings"
	"sync"

	vault "github.com/hashicorp/vault/api"

	"github.com/systmms/secretsplit/internal/secretstores"
)

// FakeVaultLogical is an in-memory implementation of
// secretstores.VaultLogical. Paths containing "/data/" behave like a KV v2
// mount: writes must wrap fields in "data" and reads return them wrapped
// with version metadata. Other paths behave like KV v1.
type FakeVaultLogical struct {
	mu sync.Mutex

	// Data maps paths to their current fields
	Data map[string]map[string]interface{}
	// Versions counts writes per path
	Versions map[string]int
	// Errors maps paths to errors to return
	Errors map[string]error
	// TokenErr is returned when reading auth/token/lookup-self
	TokenErr error
}

// NewFakeVaultLogical creates an empty fake
func NewFakeVaultLogical() *FakeVaultLogical {
	return &FakeVaultLogical{
		Data:     make(map[string]map[string]interface{}),
		Versions: make(map[string]int),
		Errors:   make(map[string]error),
	}
}

// ReadWithContext returns the secret at path, or nil when absent as the
// real client does for a 404
func (f *FakeVaultLogical) ReadWithContext(_ context.Context, path string) (*vault.Secret, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if path == "auth/token/lookup-self" {
		if f.TokenErr != nil {
			return nil, f.TokenErr
		}
		return &vault.Secret{Data: map[string]interface{}{"policies": []interface{}{"default"}}}, nil
	}

	if err, exists := f.Errors[path]; exists {
		return nil, err
	}

	fields, exists := f.Data[path]
	if !exists {
		return nil, nil
	}

	if isKVv2(path) {
		return &vault.Secret{
			Data: map[string]interface{}{
				"data":     copyFields(fields),
				"metadata": map[string]interface{}{"version": f.Versions[path]},
			},
		}, nil
	}
	return &vault.Secret{Data: copyFields(fields)}, nil
}

// WriteWithContext stores data at path
func (f *FakeVaultLogical) WriteWithContext(_ context.Context, path string, data map[string]interface{}) (*vault.Secret, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors[path]; exists {
		return nil, err
	}

	fields := data
	if isKVv2(path) {
		nested, ok := data["data"].(map[string]interface{})
		if !ok {
			return nil, &vault.ResponseError{
				StatusCode: 400,
				Errors:     []string{"no data provided"},
			}
		}
		fields = nested
	}

	f.Data[path] = copyFields(fields)
	f.Versions[path]++
	return &vault.Secret{Data: map[string]interface{}{"version": f.Versions[path]}}, nil
}

// DeleteLatest simulates a KV v2 soft delete: the path still exists but
// its data is nil
func (f *FakeVaultLogical) DeleteLatest(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Data[path] = nil
}

func isKVv2(path string) bool {
	return strings.Contains(path, "/data/")
}

func copyFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

var _ secretstores.VaultLogical = (*FakeVaultLogical)(nil)
