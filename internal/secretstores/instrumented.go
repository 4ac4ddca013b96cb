package secretstores

import (
	"context"
	"errors"
	"time"

	"github.com/systmms/secretsplit/pkg/secretstore"
)

// Migrator is implemented by stores that own a schema (the sql backend).
type Migrator interface {
	Migrate(ctx context.Context) error
}

// InstrumentedStore decorates a backend with a per-operation timeout,
// Prometheus metrics and uniform *secretstore.StoreError wrapping.
type InstrumentedStore struct {
	store     secretstore.Persistence
	storeType string
	timeout   time.Duration
}

// Instrument wraps store. A non-positive timeout disables the deadline.
func Instrument(store secretstore.Persistence, storeType string, timeout time.Duration) *InstrumentedStore {
	return &InstrumentedStore{store: store, storeType: storeType, timeout: timeout}
}

// Name returns the configured store name.
func (s *InstrumentedStore) Name() string {
	return s.store.Name()
}

// Type returns the backend type.
func (s *InstrumentedStore) Type() string {
	return s.storeType
}

// Unwrap returns the backend.
func (s *InstrumentedStore) Unwrap() secretstore.Persistence {
	return s.store
}

// Read implements secretstore.Reader.
func (s *InstrumentedStore) Read(ctx context.Context, coord secretstore.Coordinate) (string, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	payload, found, err := s.store.Read(ctx, coord)

	result := resultAbsent
	switch {
	case err != nil:
		result = resultError
	case found:
		result = resultFound
	}
	recordOperation(s.Name(), s.storeType, "read", result, time.Since(start))

	if err != nil {
		return "", false, s.wrap("read", coord, err)
	}
	return payload, found, nil
}

// Write implements secretstore.Writer.
func (s *InstrumentedStore) Write(ctx context.Context, coord secretstore.Coordinate, payload string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := s.store.Write(ctx, coord, payload)

	result := resultOK
	if err != nil {
		result = resultError
	}
	recordOperation(s.Name(), s.storeType, "write", result, time.Since(start))

	if err != nil {
		return s.wrap("write", coord, err)
	}
	return nil
}

// Validate checks connectivity when the backend supports it.
func (s *InstrumentedStore) Validate(ctx context.Context) error {
	v, ok := s.store.(secretstore.Validator)
	if !ok {
		return nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := v.Validate(ctx)

	result := resultOK
	if err != nil {
		result = resultError
	}
	recordOperation(s.Name(), s.storeType, "validate", result, time.Since(start))

	if err != nil {
		return s.wrap("validate", secretstore.Coordinate{}, err)
	}
	return nil
}

// Migrate creates the backend's schema. Stores without a schema report
// supported=false.
func (s *InstrumentedStore) Migrate(ctx context.Context) (supported bool, err error) {
	m, ok := s.store.(Migrator)
	if !ok {
		return false, nil
	}
	if err := m.Migrate(ctx); err != nil {
		return true, s.wrap("migrate", secretstore.Coordinate{}, err)
	}
	return true, nil
}

// Close releases the backend.
func (s *InstrumentedStore) Close() error {
	return s.store.Close()
}

func (s *InstrumentedStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *InstrumentedStore) wrap(op string, coord secretstore.Coordinate, err error) error {
	var storeErr *secretstore.StoreError
	if errors.As(err, &storeErr) {
		if storeErr.Type == "" {
			storeErr.Type = s.storeType
		}
		return err
	}
	wrapped := secretstore.NewStoreError(s.Name(), op, coord, err)
	wrapped.Type = s.storeType
	return wrapped
}

var (
	_ secretstore.Persistence = (*InstrumentedStore)(nil)
	_ secretstore.Validator   = (*InstrumentedStore)(nil)
)
