package secrets

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/systmms/secretsplit/pkg/secretstore"
)

// IDGenerator supplies fresh secret ids. Production code passes uuid.New;
// tests pass a fixed sequence so coordinates are predictable.
type IDGenerator func() uuid.UUID

// SecretMap maps coordinates to the payloads that must be written before the
// matching partial configuration is persisted.
type SecretMap map[secretstore.Coordinate]string

// Coordinates returns the map's coordinates sorted by full coordinate.
func (m SecretMap) Coordinates() []secretstore.Coordinate {
	coords := make([]secretstore.Coordinate, 0, len(m))
	for c := range m {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool {
		return coords[i].Full() < coords[j].Full()
	})
	return coords
}

// SplitSecretConfig is the result of a split: a configuration safe to
// persist and the writes required to make it resolvable.
type SplitSecretConfig struct {
	PartialConfig any
	Secrets       SecretMap
}

// Split replaces every schema-declared secret in fullConfig with a reference
// to a new coordinate at version 1 and returns the payloads keyed by those
// coordinates. Coordinate bases have the form
// workspace_<workspaceID>_secret_<id>, with id drawn from gen.
//
// Null secret values are left in place and values that are already
// reference objects are kept as they are. Nothing is written anywhere; the
// caller writes Secrets to a store before persisting PartialConfig.
func Split(gen IDGenerator, workspaceID uuid.UUID, fullConfig, schema any) (SplitSecretConfig, error) {
	return SplitWithPrefix(gen, secretstore.WorkspacePrefix, workspaceID, fullConfig, schema)
}

// SplitWithPrefix is Split with a custom coordinate base prefix.
func SplitWithPrefix(gen IDGenerator, prefix string, workspaceID uuid.UUID, fullConfig, schema any) (SplitSecretConfig, error) {
	s := &splitter{gen: gen, prefix: prefix, workspaceID: workspaceID, secrets: SecretMap{}}
	return s.run(context.Background(), fullConfig, nil, schema)
}

// SplitUpdate splits newFullConfig against the references in oldPartialConfig.
//
// For each secret field, the value the old reference resolves to through
// reader is compared with the new value:
//   - equal: the old coordinate is reused and nothing is added to Secrets
//   - different, or the old payload is absent: the same base at version+1
//   - no old reference: a new base from gen at version 1
//
// Reader errors abort the update and are returned as-is. The output partial
// configuration is valid input for the next SplitUpdate. Concurrent updates
// of the same coordinate base must be serialized by the caller.
func SplitUpdate(
	ctx context.Context,
	gen IDGenerator,
	workspaceID uuid.UUID,
	oldPartialConfig, newFullConfig, schema any,
	reader secretstore.Reader,
) (SplitSecretConfig, error) {
	return SplitUpdateWithPrefix(ctx, gen, secretstore.WorkspacePrefix, workspaceID, oldPartialConfig, newFullConfig, schema, reader)
}

// SplitUpdateWithPrefix is SplitUpdate with a custom coordinate base prefix
// for newly minted bases.
func SplitUpdateWithPrefix(
	ctx context.Context,
	gen IDGenerator,
	prefix string,
	workspaceID uuid.UUID,
	oldPartialConfig, newFullConfig, schema any,
	reader secretstore.Reader,
) (SplitSecretConfig, error) {
	if reader == nil {
		return SplitSecretConfig{}, errors.New("split update requires a secret reader")
	}
	s := &splitter{gen: gen, prefix: prefix, workspaceID: workspaceID, reader: reader, secrets: SecretMap{}}
	return s.run(ctx, newFullConfig, oldPartialConfig, schema)
}

type splitter struct {
	gen         IDGenerator
	prefix      string
	workspaceID uuid.UUID
	reader      secretstore.Reader
	secrets     SecretMap
}

func (s *splitter) run(ctx context.Context, full, old, schema any) (SplitSecretConfig, error) {
	if s.gen == nil {
		s.gen = uuid.New
	}
	partial := full
	if isProcessable(schema) {
		var err error
		partial, err = s.walk(ctx, full, old, parseSchema(schema))
		if err != nil {
			return SplitSecretConfig{}, err
		}
	}
	return SplitSecretConfig{PartialConfig: partial, Secrets: s.secrets}, nil
}

// walk mirrors maskNode but swaps secrets for references. old is the value at
// the same position in the previous partial configuration, or nil.
func (s *splitter) walk(ctx context.Context, value, old any, n *schemaNode) (any, error) {
	if n == nil {
		return value, nil
	}
	if n.secret {
		return s.extract(ctx, value, old)
	}

	orig := value
	switch v := value.(type) {
	case map[string]any:
		if n.properties != nil {
			oldObj, _ := old.(map[string]any)
			out := cloneObject(v)
			for _, name := range n.propertyNames() {
				cur, ok := v[name]
				if !ok {
					continue
				}
				replaced, err := s.walk(ctx, cur, oldObj[name], parseSchema(n.properties[name]))
				if err != nil {
					return nil, err
				}
				out[name] = replaced
			}
			value = out
		}
	case []any:
		if n.items != nil {
			oldArr, _ := old.([]any)
			item := parseSchema(n.items)
			out := make([]any, len(v))
			for i, elem := range v {
				var prev any
				if i < len(oldArr) {
					prev = oldArr[i]
				}
				replaced, err := s.walk(ctx, elem, prev, item)
				if err != nil {
					return nil, err
				}
				out[i] = replaced
			}
			value = out
		}
	}

	for _, c := range n.combinators {
		for _, alt := range s.alternatives(c, orig) {
			var err error
			value, err = s.walk(ctx, value, old, parseSchema(alt))
			if err != nil {
				return nil, err
			}
		}
	}
	return value, nil
}

// alternatives returns the branches of c to descend into. oneOf and anyOf
// only contribute the branches value validates against; when none does, all
// of them are used so no secret is left in the partial configuration.
func (s *splitter) alternatives(c combinator, value any) []map[string]any {
	if c.kind == KindAllOf {
		return c.alternatives
	}
	if matched := matchingAlternatives(c.alternatives, value); len(matched) > 0 {
		return matched
	}
	return c.alternatives
}

func (s *splitter) extract(ctx context.Context, value, old any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if _, ok, err := IsReference(value); ok {
		if err != nil {
			return nil, err
		}
		return value, nil
	}

	payload, err := encodePayload(value)
	if err != nil {
		return nil, fmt.Errorf("encode secret value: %w", err)
	}

	if s.reader != nil {
		prevCoord, ok, err := IsReference(old)
		if err != nil {
			return nil, err
		}
		if ok {
			prevPayload, found, err := s.reader.Read(ctx, prevCoord)
			if err != nil {
				return nil, err
			}
			if found && prevPayload == payload {
				return Reference(prevCoord), nil
			}
			next := prevCoord.Next()
			if err := next.Validate(); err != nil {
				return nil, err
			}
			s.secrets[next] = payload
			return Reference(next), nil
		}
	}

	coord, err := secretstore.NewCoordinate(secretstore.NewBase(s.prefix, s.workspaceID, s.gen()), 1)
	if err != nil {
		return nil, err
	}
	s.secrets[coord] = payload
	return Reference(coord), nil
}
