package secretstore

import (
	"context"
	"fmt"
)

// Reader resolves coordinates to payloads.
//
// Read distinguishes three outcomes:
//   - found: the payload and true, nil error
//   - absent: "", false, nil error
//   - failure: a non-nil error, typically *StoreError
//
// An implementation must never report a backend failure (timeout, denied
// permission, network error) as absent. Absent means the store was asked and
// answered that nothing is stored under the coordinate.
//
// Example:
//
//	payload, found, err := store.Read(ctx, coord)
//	if err != nil {
//	    return fmt.Errorf("read %s: %w", coord, err)
//	}
//	if !found {
//	    return &secrets.MissingSecretError{Coordinate: coord}
//	}
type Reader interface {
	Read(ctx context.Context, coord Coordinate) (payload string, found bool, err error)
}

// Writer persists a payload under a coordinate.
//
// Writes must be safe to retry: writing the same payload under the same
// coordinate twice leaves the store in the same state as writing it once.
// Stores do not version payloads themselves; the coordinate's version is the
// source of truth, and backends with their own versioning always target the
// most recent slot for a coordinate.
type Writer interface {
	Write(ctx context.Context, coord Coordinate, payload string) error
}

// Persistence is a configured secret store backend.
//
// All implementations must be safe for concurrent use. Close releases
// clients and connections; the caller owns the store's lifecycle.
type Persistence interface {
	// Name returns the configured store name, used in errors and metrics.
	Name() string

	Reader
	Writer

	Close() error
}

// Validator is implemented by stores that can check connectivity and
// credentials without touching any secret.
type Validator interface {
	Validate(ctx context.Context) error
}

// ReadFunc adapts a function to the Reader interface.
type ReadFunc func(ctx context.Context, coord Coordinate) (string, bool, error)

// Read calls f(ctx, coord).
func (f ReadFunc) Read(ctx context.Context, coord Coordinate) (string, bool, error) {
	return f(ctx, coord)
}

// MapReader is a Reader backed by a plain map. Useful when a secret map
// returned by a split needs to be read back before it is written anywhere.
type MapReader map[Coordinate]string

// Read implements Reader.
func (m MapReader) Read(_ context.Context, coord Coordinate) (string, bool, error) {
	payload, ok := m[coord]
	return payload, ok, nil
}

// StoreError wraps a backend failure. A StoreError never means "absent".
type StoreError struct {
	// Store is the configured store name.
	Store string

	// Type is the backend type (vault, sql, ...), when known.
	Type string

	// Op is the failed operation ("read", "write", "validate").
	Op string

	// Coordinate is the coordinate involved, if any.
	Coordinate string

	// Err is the underlying backend error.
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Coordinate == "" {
		return fmt.Sprintf("secret store %s: %s failed: %v", e.Store, e.Op, e.Err)
	}
	return fmt.Sprintf("secret store %s: %s %s failed: %v", e.Store, e.Op, e.Coordinate, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError builds a *StoreError for op on coord.
func NewStoreError(store, op string, coord Coordinate, err error) *StoreError {
	se := &StoreError{Store: store, Op: op, Err: err}
	if !coord.IsZero() {
		se.Coordinate = coord.Full()
	}
	return se
}

// CoordinateError indicates a malformed coordinate.
type CoordinateError struct {
	Coordinate string
	Reason     string
}

// Error implements the error interface.
func (e *CoordinateError) Error() string {
	return "invalid secret coordinate " + e.Coordinate + ": " + e.Reason
}

// AuthError indicates that authentication to the secret store failed.
//
// This error should be returned when:
//   - Credentials are invalid or expired
//   - Permission is denied for the requested operation
type AuthError struct {
	// Store is the name of the secret store that failed authentication.
	Store string

	// Message provides details about the authentication failure.
	Message string
}

// Error implements the error interface.
func (e AuthError) Error() string {
	return "authentication failed for store " + e.Store + ": " + e.Message
}

// ValidationError indicates that a store configuration is invalid.
type ValidationError struct {
	// Store is the name of the secret store where validation failed.
	// May be empty for general validation errors.
	Store string

	// Message provides details about what validation failed.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Store == "" {
		return "validation failed: " + e.Message
	}
	return "validation failed for store " + e.Store + ": " + e.Message
}
