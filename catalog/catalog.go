// Package catalog holds the value operations on a locale catalog: a nested
// mapping whose leaves are strings, addressed by dot-separated paths.
//
//	{"nav": {"home": "Home"}, "app_title": "Shop"}
//	nav.home -> "Home"
//
// Functions never mutate their inputs unless the name says so (Set).
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Tree is a catalog. Nested nodes are map[string]any; leaves are strings.
type Tree map[string]any

// Separator joins path segments.
const Separator = "."

// forbiddenKeys are never copied from incoming data.
var forbiddenKeys = map[string]bool{
	"__proto__":   true,
	"constructor": true,
	"prototype":   true,
}

// IsForbiddenKey reports whether key is one of the names a merge refuses.
func IsForbiddenKey(key string) bool {
	return forbiddenKeys[key]
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case Tree:
		return m, true
	case map[string]any:
		return m, true
	}
	return nil, false
}

// Flatten returns every string leaf keyed by its dot path. Non-string leaves
// are ignored.
func Flatten(t Tree) map[string]string {
	out := make(map[string]string)
	flattenInto(out, "", t)
	return out
}

func flattenInto(out map[string]string, prefix string, m map[string]any) {
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + Separator + k
		}
		switch x := v.(type) {
		case string:
			out[path] = x
		default:
			if sub, ok := asMap(x); ok {
				flattenInto(out, path, sub)
			}
		}
	}
}

// SortedKeys returns the keys of m sorted.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len counts string leaves.
func Len(t Tree) int {
	return len(Flatten(t))
}

// Get returns the string leaf at path.
func Get(t Tree, path string) (string, bool) {
	var cur any = map[string]any(t)
	for _, seg := range strings.Split(path, Separator) {
		m, ok := asMap(cur)
		if !ok {
			return "", false
		}
		if cur, ok = m[seg]; !ok {
			return "", false
		}
	}
	s, ok := cur.(string)
	return s, ok
}

// Set writes value at path in place, creating intermediate mappings. A string
// leaf standing where a mapping is needed is replaced.
func Set(t Tree, path, value string) {
	segs := strings.Split(path, Separator)
	m := map[string]any(t)
	for _, seg := range segs[:len(segs)-1] {
		next, ok := asMap(m[seg])
		if !ok {
			next = make(map[string]any)
			m[seg] = next
		}
		m = next
	}
	m[segs[len(segs)-1]] = value
}

// FromFlat builds a tree from dot-path keys.
func FromFlat(flat map[string]string) Tree {
	t := make(Tree, len(flat))
	for _, k := range SortedKeys(flat) {
		Set(t, k, flat[k])
	}
	return t
}

// Clone deep-copies t.
func Clone(t Tree) Tree {
	if t == nil {
		return Tree{}
	}
	return Tree(cloneMap(t))
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := asMap(v); ok {
			out[k] = cloneMap(sub)
			continue
		}
		out[k] = v
	}
	return out
}

// Merge returns a new tree holding base with incoming merged in. Nested
// mappings merge key by key. With preserveExisting an existing leaf wins over
// an incoming one at the same path; otherwise incoming wins. Keys named
// __proto__, constructor or prototype are dropped at every depth.
func Merge(base, incoming Tree, preserveExisting bool) Tree {
	out := Clone(base)
	mergeInto(out, incoming, preserveExisting)
	return out
}

func mergeInto(dst, src map[string]any, preserve bool) {
	for k, v := range src {
		if IsForbiddenKey(k) {
			continue
		}
		if sub, ok := asMap(v); ok {
			existing, isMap := asMap(dst[k])
			if !isMap {
				if _, present := dst[k]; present && preserve {
					continue
				}
				existing = make(map[string]any)
				dst[k] = existing
			}
			mergeInto(existing, sub, preserve)
			continue
		}
		if _, present := dst[k]; present && preserve {
			continue
		}
		dst[k] = v
	}
}

// Hash returns the hex SHA-256 of t's canonical JSON form. encoding/json
// writes map keys sorted, so equal trees hash equally regardless of how they
// were built.
func Hash(t Tree) (string, error) {
	if t == nil {
		t = Tree{}
	}
	data, err := json.Marshal(map[string]any(t))
	if err != nil {
		return "", errors.Wrap(err, "encoding catalog")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// HashText returns the hex SHA-256 of a single source string.
func HashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Validate checks that every leaf of v is a string and every inner node a
// mapping. The error names the first offending path.
func Validate(v any) error {
	m, ok := asMap(v)
	if !ok {
		return errors.Newf("catalog root is %T, want object", v)
	}
	return validate("", m)
}

func validate(prefix string, m map[string]any) error {
	for _, k := range sortedAnyKeys(m) {
		path := k
		if prefix != "" {
			path = prefix + Separator + k
		}
		switch x := m[k].(type) {
		case string:
		default:
			sub, ok := asMap(x)
			if !ok {
				return errors.Newf("value at %q is %T, want string or object", path, x)
			}
			if err := validate(path, sub); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortedAnyKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
