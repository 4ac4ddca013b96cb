// Package secretstore defines the coordinate model and the storage contract
// used by secretsplit to keep connector credentials out of configuration.
//
// # Coordinates
//
// Every secret value lives under a Coordinate: a stable base naming the
// logical slot plus a version counting the values the slot has held.
//
//	workspace_<workspace-id>_secret_<secret-id>_v3
//	└──────────────── base ────────────────┘ └version┘
//
// Coordinates are immutable. Changing a secret never rewrites the payload of
// an existing coordinate; it mints the same base at the next version. Bases
// are restricted to [A-Za-z0-9_-] and full coordinates to 255 characters so
// that the same coordinate is a legal key in every supported backend.
//
// In partial configurations a coordinate appears as a reference object:
//
//	{"_secret": "workspace_..._secret_..._v1"}
//
// # Stores
//
// A store implements Reader and Writer, and is wrapped as a Persistence by
// the registry in internal/secretstores:
//
//	┌───────────────────────┐
//	│   pkg/secrets         │  split / splitUpdate / combine
//	└──────────┬────────────┘
//	           │ Reader / Writer
//	┌──────────▼────────────┐
//	│   pkg/secretstore     │  Coordinate, Persistence, errors
//	└──────────┬────────────┘
//	           │
//	┌──────────▼────────────────────────────────────────────────┐
//	│   internal/secretstores                                    │
//	│   memory · noop · sql · gcp · aws · vault · azure · keyring│
//	└───────────────────────────────────────────────────────────┘
//
// Reads distinguish "absent" (found == false, nil error) from failure
// (*StoreError). A store that cannot reach its backend must return an error,
// never absent.
//
// # Security Considerations
//
// Store implementations must:
//   - Never log payloads (use logging.Secret when a value must be formatted)
//   - Support context cancellation for timeouts
//   - Handle concurrent access safely
package secretstore
