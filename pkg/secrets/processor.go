package secrets

// SecretsMask replaces secret values in output shown to users. CopySecrets
// treats a destination field holding exactly this string as "unchanged".
const SecretsMask = "**********"

// MaskSecrets returns a copy of value with every schema-declared secret field
// replaced by SecretsMask.
//
// Secrets are found through properties, array items and every oneOf, anyOf
// and allOf alternative (the union of all alternatives is masked). Absent
// fields stay absent and null values stay null. If schema is not an object
// schema with properties or combinators, value is returned unchanged.
//
// value is never modified; untouched subtrees are shared with the result.
func MaskSecrets(value, schema any) any {
	if !isProcessable(schema) {
		return value
	}
	return maskNode(value, parseSchema(schema))
}

func maskNode(value any, n *schemaNode) any {
	if n == nil {
		return value
	}
	if n.secret {
		if value == nil {
			return nil
		}
		return SecretsMask
	}

	switch v := value.(type) {
	case map[string]any:
		if n.properties != nil {
			out := cloneObject(v)
			for name, sub := range n.properties {
				if cur, ok := v[name]; ok {
					out[name] = maskNode(cur, parseSchema(sub))
				}
			}
			value = out
		}
	case []any:
		if n.items != nil {
			item := parseSchema(n.items)
			out := make([]any, len(v))
			for i, elem := range v {
				out[i] = maskNode(elem, item)
			}
			value = out
		}
	}

	for _, c := range n.combinators {
		for _, alt := range c.alternatives {
			value = maskNode(value, parseSchema(alt))
		}
	}
	return value
}

// CopySecrets returns dst with masked secrets restored from src.
//
// For every declared property present in both src and dst: a secret field
// whose dst value equals SecretsMask takes src's value; a non-secret object,
// array or combinator field is descended into with the same rule. For oneOf
// and anyOf, dst's value is validated against each alternative and only the
// alternatives it satisfies are descended into, in declaration order, so a
// sibling alternative declaring the same property with another type is never
// applied. When none matches the value is left as-is. allOf applies every
// alternative. Fields only present in src are never copied.
//
// Neither src nor dst is modified.
func CopySecrets(src, dst, schema any) any {
	if !isProcessable(schema) {
		return dst
	}
	return copyNode(src, dst, parseSchema(schema))
}

func copyNode(src, dst any, n *schemaNode) any {
	if n == nil {
		return dst
	}
	if n.secret {
		if s, ok := dst.(string); ok && s == SecretsMask {
			return src
		}
		return dst
	}

	result := dst

	switch d := dst.(type) {
	case map[string]any:
		s, ok := src.(map[string]any)
		if ok && n.properties != nil {
			out := cloneObject(d)
			for name, sub := range n.properties {
				dv, inDst := d[name]
				sv, inSrc := s[name]
				if !inDst || !inSrc {
					continue
				}
				out[name] = copyNode(sv, dv, parseSchema(sub))
			}
			result = out
		}
	case []any:
		s, ok := src.([]any)
		if ok && n.items != nil {
			item := parseSchema(n.items)
			out := make([]any, len(d))
			for i, elem := range d {
				if i < len(s) {
					out[i] = copyNode(s[i], elem, item)
				} else {
					out[i] = elem
				}
			}
			result = out
		}
	}

	for _, c := range n.combinators {
		alternatives := c.alternatives
		if c.kind != KindAllOf {
			alternatives = matchingAlternatives(c.alternatives, result)
		}
		for _, alt := range alternatives {
			result = copyNode(src, result, parseSchema(alt))
		}
	}
	return result
}

// Processor prepares connector configurations for display and merges
// user-edited configurations back with their stored secrets.
type Processor struct {
	copySecrets bool
}

// NewProcessor returns a Processor. With copySecrets false, CopySecrets
// returns src unchanged, for deployments where submitted configurations are
// always complete.
func NewProcessor(copySecrets bool) *Processor {
	return &Processor{copySecrets: copySecrets}
}

// PrepareSecretsForOutput masks every secret in value.
func (p *Processor) PrepareSecretsForOutput(value, schema any) any {
	return MaskSecrets(value, schema)
}

// CopySecrets restores masked secrets in dst from src.
func (p *Processor) CopySecrets(src, dst, schema any) any {
	if !p.copySecrets {
		return src
	}
	return CopySecrets(src, dst, schema)
}

func cloneObject(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
