package secretstores

import (
	"context"

	"github.com/systmms/secretsplit/pkg/secretstore"
)

// NoopStore drops writes and reports every coordinate absent. It is
// selected with SECRET_PERSISTENCE=NONE, where secrets stay inline in the
// stored configuration.
type NoopStore struct {
	name string
}

// NewNoopStore creates a no-op store.
func NewNoopStore(name string) *NoopStore {
	return &NoopStore{name: name}
}

func newNoopFactory(_ context.Context, name string, settings map[string]interface{}) (secretstore.Persistence, error) {
	if err := decodeSettings(name, settings, &struct{}{}); err != nil {
		return nil, err
	}
	return NewNoopStore(name), nil
}

// Name returns the store name.
func (n *NoopStore) Name() string { return n.name }

// Read always reports absent.
func (n *NoopStore) Read(context.Context, secretstore.Coordinate) (string, bool, error) {
	return "", false, nil
}

// Write discards the payload.
func (n *NoopStore) Write(context.Context, secretstore.Coordinate, string) error {
	return nil
}

// Close is a no-op.
func (n *NoopStore) Close() error { return nil }
