package secrets

import (
	"encoding/json"

	"github.com/systmms/secretsplit/pkg/secretstore"
)

// ReferenceKey is the single field of a coordinate reference object:
//
//	{"_secret": "workspace_<ws>_secret_<id>_v1"}
const ReferenceKey = "_secret"

// Reference builds the reference object for a coordinate.
func Reference(coord secretstore.Coordinate) map[string]any {
	return map[string]any{ReferenceKey: coord.Full()}
}

// IsReference reports whether value has the shape of a reference object: a
// JSON object with exactly one field, "_secret", holding a string. When the
// shape matches but the coordinate does not parse, ok is true and err is a
// *secretstore.CoordinateError.
func IsReference(value any) (coord secretstore.Coordinate, ok bool, err error) {
	obj, isObj := value.(map[string]any)
	if !isObj || len(obj) != 1 {
		return secretstore.Coordinate{}, false, nil
	}
	full, isString := obj[ReferenceKey].(string)
	if !isString {
		return secretstore.Coordinate{}, false, nil
	}
	coord, err = secretstore.ParseCoordinate(full)
	return coord, true, err
}

// encodePayload turns a secret field value into the string stored under its
// coordinate. Strings are stored verbatim; anything else is stored as JSON.
func encodePayload(value any) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
