// Package repository persists connection configurations with their secrets
// split out into the configured secret stores.
//
// A Writer validates a full configuration, splits it against the
// connector's schema, writes the secret payloads to the long-lived store and
// only then persists the partial configuration, so a persisted partial
// configuration never references a coordinate that was not written. A
// Reader loads partial configurations and hydrates them again.
package repository

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind distinguishes source and destination connections.
type Kind string

// Connection kinds.
const (
	KindSource      Kind = "source"
	KindDestination Kind = "destination"
)

// ParseKind parses a connection kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSource, KindDestination:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown connection kind %q (expected source or destination)", s)
	}
}

// ErrConnectionNotFound is returned when no connection has the requested id.
var ErrConnectionNotFound = errors.New("connection not found")

// ErrServiceAccountNotFound is returned when a workspace has no service
// account.
var ErrServiceAccountNotFound = errors.New("service account not found")

// Connection is a configured source or destination. Configuration holds the
// full configuration on the way in and the partial configuration, with
// secret references, once persisted.
type Connection struct {
	ID            uuid.UUID `json:"id"`
	WorkspaceID   uuid.UUID `json:"workspaceId"`
	Kind          Kind      `json:"kind"`
	Name          string    `json:"name"`
	Tombstone     bool      `json:"tombstone,omitempty"`
	Configuration any       `json:"configuration"`
}

// ServiceAccount is a workspace's cloud service account. The JSON
// credential and HMAC key are secrets; Email is not.
type ServiceAccount struct {
	WorkspaceID    uuid.UUID `json:"workspaceId"`
	Email          string    `json:"email"`
	JSONCredential any       `json:"jsonCredential,omitempty"`
	HMACKey        any       `json:"hmacKey,omitempty"`
}
