package secretstores

import (
	"context"
	"sync"

	"github.com/systmms/secretsplit/internal/secure"
	"github.com/systmms/secretsplit/pkg/secretstore"
)

// MemoryStore keeps payloads in process memory, each sealed in a memguard
// enclave. Contents are lost when the process exits; it backs the
// ephemeral store and tests.
type MemoryStore struct {
	name     string
	mu       sync.RWMutex
	payloads map[secretstore.Coordinate]*secure.Sealed
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{
		name:     name,
		payloads: make(map[secretstore.Coordinate]*secure.Sealed),
	}
}

func newMemoryFactory(_ context.Context, name string, settings map[string]interface{}) (secretstore.Persistence, error) {
	if err := decodeSettings(name, settings, &struct{}{}); err != nil {
		return nil, err
	}
	return NewMemoryStore(name), nil
}

// Name returns the store name.
func (m *MemoryStore) Name() string {
	return m.name
}

// Read implements secretstore.Reader.
func (m *MemoryStore) Read(_ context.Context, coord secretstore.Coordinate) (string, bool, error) {
	m.mu.RLock()
	sealed, ok := m.payloads[coord]
	m.mu.RUnlock()
	if !ok {
		return "", false, nil
	}

	payload, err := sealed.Reveal()
	if err != nil {
		return "", false, secretstore.NewStoreError(m.name, "read", coord, err)
	}
	return payload, true, nil
}

// Write implements secretstore.Writer.
func (m *MemoryStore) Write(_ context.Context, coord secretstore.Coordinate, payload string) error {
	sealed := secure.Seal(payload)

	m.mu.Lock()
	previous := m.payloads[coord]
	m.payloads[coord] = sealed
	m.mu.Unlock()

	if previous != nil {
		previous.Destroy()
	}
	return nil
}

// Len returns the number of stored coordinates.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payloads)
}

// Close destroys every sealed payload.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for coord, sealed := range m.payloads {
		sealed.Destroy()
		delete(m.payloads, coord)
	}
	return nil
}
