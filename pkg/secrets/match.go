package secrets

import (
	"github.com/xeipuuv/gojsonschema"
)

// matchingAlternatives returns the alternatives value validates against, in
// declaration order. Alternatives that fail to compile are skipped.
func matchingAlternatives(alternatives []map[string]any, value any) []map[string]any {
	var matched []map[string]any
	for _, alt := range alternatives {
		if validates(alt, value) {
			matched = append(matched, alt)
		}
	}
	return matched
}

// validates runs a plain JSON-Schema validation of value against schema.
// Connector-specific keywords such as airbyte_secret are ignored by the
// validator.
func validates(schema map[string]any, value any) bool {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(value))
	if err != nil {
		return false
	}
	return result.Valid()
}

// ValidationError lists the JSON-Schema violations of a configuration.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "configuration does not match schema: " + e.Errors[0]
	}
	msg := "configuration does not match schema:"
	for _, desc := range e.Errors {
		msg += "\n  - " + desc
	}
	return msg
}

// Validate checks a full configuration against its connector schema.
// It returns *ValidationError when the configuration is invalid.
func Validate(config, schema any) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(config))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{}
	for _, desc := range result.Errors() {
		verr.Errors = append(verr.Errors, desc.String())
	}
	return verr
}
