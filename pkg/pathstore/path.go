package pathstore

import (
	"strconv"
	"strings"
)

// Separator joins path keys in canonical string form.
const Separator = '.'

// WholeStore is the canonical path addressing the entire state tree.
const WholeStore = "."

// SplitPath converts a dotted path string into its key sequence.
// Leading separators and empty keys are dropped, so ".cart.price",
// "cart.price" and "cart..price" all yield ["cart" "price"], and both ""
// and WholeStore yield nil.
func SplitPath(path string) []string {
	if path == "" || path == WholeStore {
		return nil
	}
	parts := strings.Split(path, string(Separator))
	keys := parts[:0]
	for _, p := range parts {
		if p != "" {
			keys = append(keys, p)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return keys
}

// JoinPath converts a key sequence into canonical string form: a leading
// separator followed by the dot-joined keys. An empty sequence yields
// WholeStore.
func JoinPath(keys []string) string {
	if len(keys) == 0 {
		return WholeStore
	}
	return string(Separator) + strings.Join(keys, string(Separator))
}

// PathsOverlap reports whether two canonical paths are related by
// path-prefix in either direction. Matching is boundary-aware: a shorter
// path only matches a longer one when the next character in the longer
// path is the separator, so ".cart" overlaps ".cart.price" but not
// ".cartX". WholeStore overlaps everything.
func PathsOverlap(a, b string) bool {
	if a == WholeStore || b == WholeStore {
		return true
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	if !strings.HasPrefix(b, a) {
		return false
	}
	return len(a) == len(b) || b[len(a)] == Separator
}

// resolvePath walks keys down the tree. It returns the value and true when
// every key resolves, or nil and false as soon as any intermediate is
// missing. It never fails: absence is the only negative outcome.
func resolvePath(tree any, keys []string) (any, bool) {
	cur := tree
	for _, key := range keys {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[key]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// replacePath returns a new tree with the value at keys replaced.
// Every container along the path is shallow-copied (a map stays a map, a
// slice stays a slice) while untouched siblings keep their identity, so
// the result structurally shares everything off the written path.
// Missing or scalar intermediates are replaced by fresh maps; a numeric
// key one past the end of a slice appends.
func replacePath(tree any, keys []string, value any) any {
	if len(keys) == 0 {
		return value
	}
	key, rest := keys[0], keys[1:]

	switch node := tree.(type) {
	case map[string]any:
		next := make(map[string]any, len(node)+1)
		for k, v := range node {
			next[k] = v
		}
		next[key] = replacePath(node[key], rest, value)
		return next

	case []any:
		if i, err := strconv.Atoi(key); err == nil && i >= 0 && i <= len(node) {
			next := make([]any, len(node), len(node)+1)
			copy(next, node)
			if i == len(node) {
				next = append(next, replacePath(nil, rest, value))
			} else {
				next[i] = replacePath(node[i], rest, value)
			}
			return next
		}
	}

	// Intermediate is absent or not a container: grow a fresh map chain.
	return map[string]any{key: replacePath(nil, rest, value)}
}
