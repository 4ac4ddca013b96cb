package secrets

import "sort"

// SecretAnnotation is the schema keyword that marks a field as secret.
// Only the boolean true counts; the string "true" does not.
const SecretAnnotation = "airbyte_secret"

// Kind classifies a schema node for traversal.
type Kind int

const (
	// KindLeaf is a scalar node, or any node the walker cannot descend into.
	KindLeaf Kind = iota
	// KindObject carries a "properties" map.
	KindObject
	// KindArray carries an "items" schema.
	KindArray
	// KindOneOf carries "oneOf" alternatives.
	KindOneOf
	// KindAnyOf carries "anyOf" alternatives.
	KindAnyOf
	// KindAllOf carries "allOf" alternatives.
	KindAllOf
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindOneOf:
		return "oneOf"
	case KindAnyOf:
		return "anyOf"
	case KindAllOf:
		return "allOf"
	default:
		return "leaf"
	}
}

// combinator is one alternative group attached to a schema node.
type combinator struct {
	kind         Kind
	alternatives []map[string]any
}

// schemaNode is the parsed view of one schema node the walkers traverse.
// A node may be an object and carry combinators at the same time.
type schemaNode struct {
	raw         map[string]any
	secret      bool
	properties  map[string]map[string]any
	items       map[string]any
	combinators []combinator
}

var combinatorKeywords = []struct {
	keyword string
	kind    Kind
}{
	{"oneOf", KindOneOf},
	{"anyOf", KindAnyOf},
	{"allOf", KindAllOf},
}

// parseSchema reads the keywords the walkers care about. Every other keyword
// is ignored. A schema that is not a JSON object yields a nil node.
func parseSchema(schema any) *schemaNode {
	raw, ok := schema.(map[string]any)
	if !ok {
		return nil
	}

	n := &schemaNode{raw: raw, secret: IsSecret(raw)}

	if props, ok := raw["properties"].(map[string]any); ok {
		n.properties = make(map[string]map[string]any, len(props))
		for name, sub := range props {
			if subSchema, ok := sub.(map[string]any); ok {
				n.properties[name] = subSchema
			}
		}
	}

	if items, ok := raw["items"].(map[string]any); ok {
		n.items = items
	}

	for _, kw := range combinatorKeywords {
		list, ok := raw[kw.keyword].([]any)
		if !ok {
			continue
		}
		c := combinator{kind: kw.kind}
		for _, alt := range list {
			if altSchema, ok := alt.(map[string]any); ok {
				c.alternatives = append(c.alternatives, altSchema)
			}
		}
		if len(c.alternatives) > 0 {
			n.combinators = append(n.combinators, c)
		}
	}

	return n
}

// kind returns the primary classification of the node.
func (n *schemaNode) kind() Kind {
	switch {
	case n == nil:
		return KindLeaf
	case n.properties != nil:
		return KindObject
	case n.items != nil:
		return KindArray
	case len(n.combinators) > 0:
		return n.combinators[0].kind
	default:
		return KindLeaf
	}
}

// propertyNames returns the declared property names in sorted order so that
// traversals which draw ids are deterministic.
func (n *schemaNode) propertyNames() []string {
	names := make([]string, 0, len(n.properties))
	for name := range n.properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Classify returns the Kind of a schema node. A node with both properties and
// a combinator classifies as KindObject; the walkers still honor both.
func Classify(schema any) Kind {
	return parseSchema(schema).kind()
}

// IsSecret reports whether the schema node carries airbyte_secret: true.
func IsSecret(schema any) bool {
	raw, ok := schema.(map[string]any)
	if !ok {
		return false
	}
	v, ok := raw[SecretAnnotation].(bool)
	return ok && v
}

// isProcessable reports whether a root schema can be walked at all: it must
// be an object schema with properties or a combinator. Anything else is
// treated as "nothing to process".
func isProcessable(schema any) bool {
	n := parseSchema(schema)
	if n == nil {
		return false
	}
	return n.properties != nil || len(n.combinators) > 0
}
