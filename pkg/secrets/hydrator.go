package secrets

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/systmms/secretsplit/pkg/secretstore"
)

// Hydrator restores secrets into partial configurations at connector launch.
type Hydrator interface {
	// Hydrate returns the full configuration for a partial one.
	Hydrate(ctx context.Context, partialConfig any) (any, error)

	// HydrateSecretCoordinate resolves a single reference object, or a bare
	// full coordinate string, to its secret. Payloads holding a JSON object
	// or array are decoded; anything else is returned as a string.
	HydrateSecretCoordinate(ctx context.Context, coordinate any) (any, error)
}

// RealHydrator resolves references against one store.
type RealHydrator struct {
	reader secretstore.Reader
}

// NewRealHydrator returns a Hydrator bound to reader.
func NewRealHydrator(reader secretstore.Reader) *RealHydrator {
	return &RealHydrator{reader: reader}
}

// Hydrate implements Hydrator.
func (h *RealHydrator) Hydrate(ctx context.Context, partialConfig any) (any, error) {
	return Combine(ctx, partialConfig, h.reader)
}

// HydrateSecretCoordinate implements Hydrator.
func (h *RealHydrator) HydrateSecretCoordinate(ctx context.Context, coordinate any) (any, error) {
	coord, err := coordinateOf(coordinate)
	if err != nil {
		return nil, err
	}

	payload, err := resolve(ctx, coord, h.reader)
	if err != nil {
		return nil, err
	}
	return decodePayload(payload), nil
}

// NoOpHydrator returns configurations unchanged. Used when no secret
// persistence is configured and configurations are stored whole.
type NoOpHydrator struct{}

// Hydrate implements Hydrator.
func (NoOpHydrator) Hydrate(_ context.Context, partialConfig any) (any, error) {
	return partialConfig, nil
}

// HydrateSecretCoordinate implements Hydrator.
func (NoOpHydrator) HydrateSecretCoordinate(_ context.Context, coordinate any) (any, error) {
	return coordinate, nil
}

func coordinateOf(node any) (secretstore.Coordinate, error) {
	if full, ok := node.(string); ok {
		return secretstore.ParseCoordinate(full)
	}
	coord, ok, err := IsReference(node)
	if err != nil {
		return secretstore.Coordinate{}, err
	}
	if !ok {
		return secretstore.Coordinate{}, fmt.Errorf("value is not a secret reference: expected {%q: \"<coordinate>\"}", ReferenceKey)
	}
	return coord, nil
}

func decodePayload(payload string) any {
	if len(payload) == 0 || (payload[0] != '{' && payload[0] != '[') {
		return payload
	}
	var decoded any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return payload
	}
	return decoded
}
