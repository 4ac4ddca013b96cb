package secrets

import "sort"

// SecretPaths lists the JSON paths of every secret field a schema declares,
// sorted. Object properties are written as .name and array items as [*]:
//
//	$.password
//	$.tunnel_method.ssh_key
//	$.credentials[*].token
//
// Combinator alternatives contribute the union of their paths.
func SecretPaths(schema any) []string {
	seen := make(map[string]struct{})
	collectPaths("$", parseSchema(schema), seen, 0)

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// maxSchemaDepth bounds traversal of self-similar schemas.
const maxSchemaDepth = 64

func collectPaths(path string, n *schemaNode, seen map[string]struct{}, depth int) {
	if n == nil || depth > maxSchemaDepth {
		return
	}
	if n.secret {
		seen[path] = struct{}{}
		return
	}
	for name, sub := range n.properties {
		collectPaths(path+"."+name, parseSchema(sub), seen, depth+1)
	}
	if n.items != nil {
		collectPaths(path+"[*]", parseSchema(n.items), seen, depth+1)
	}
	for _, c := range n.combinators {
		for _, alt := range c.alternatives {
			collectPaths(path, parseSchema(alt), seen, depth+1)
		}
	}
}
