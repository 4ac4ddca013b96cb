package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/systmms/secretsplit/pkg/secretstore"
)

// MissingSecretError is returned when a reference resolves to nothing. A
// connector cannot run without its credentials, so hydration fails; callers
// that only need the configuration's shape can catch it with errors.As.
type MissingSecretError struct {
	Coordinate secretstore.Coordinate
}

func (e *MissingSecretError) Error() string {
	return "secret not found for coordinate " + e.Coordinate.Full()
}

// IsMissingSecret reports whether err is or wraps a *MissingSecretError.
func IsMissingSecret(err error) bool {
	var missing *MissingSecretError
	return errors.As(err, &missing)
}

// Combine rebuilds a full configuration by replacing every reference object
// in partialConfig with the payload reader returns for it. References are
// recognized by shape, so no schema is needed. partialConfig is not modified.
//
// Payloads are substituted as strings. A secret that held an object, array,
// number or boolean when it was split comes back as its JSON text; use
// Hydrator.HydrateSecretCoordinate to decode such payloads.
//
// An absent payload yields *MissingSecretError; a reader failure is returned
// wrapped, never treated as absent.
func Combine(ctx context.Context, partialConfig any, reader secretstore.Reader) (any, error) {
	return combineNode(ctx, partialConfig, reader)
}

func combineNode(ctx context.Context, value any, reader secretstore.Reader) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		coord, ok, err := IsReference(v)
		if err != nil {
			return nil, err
		}
		if ok {
			return resolve(ctx, coord, reader)
		}
		out := make(map[string]any, len(v))
		for k, child := range v {
			combined, err := combineNode(ctx, child, reader)
			if err != nil {
				return nil, err
			}
			out[k] = combined
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			combined, err := combineNode(ctx, child, reader)
			if err != nil {
				return nil, err
			}
			out[i] = combined
		}
		return out, nil
	default:
		return value, nil
	}
}

func resolve(ctx context.Context, coord secretstore.Coordinate, reader secretstore.Reader) (string, error) {
	payload, found, err := reader.Read(ctx, coord)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", coord, err)
	}
	if !found {
		return "", &MissingSecretError{Coordinate: coord}
	}
	return payload, nil
}

// WriteSecrets writes every entry of secrets to w in coordinate order and
// stops at the first failure.
func WriteSecrets(ctx context.Context, w secretstore.Writer, secrets SecretMap) error {
	for _, coord := range secrets.Coordinates() {
		if err := w.Write(ctx, coord, secrets[coord]); err != nil {
			return fmt.Errorf("write %s: %w", coord, err)
		}
	}
	return nil
}
