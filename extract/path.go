package extract

import (
	"reflect"
	"strconv"
	"strings"
)

// JoinPath appends key to an object path. An empty prefix yields key
// on its own, without a leading dot.
func JoinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// Lookup resolves an object path against a tree of the shapes
// extraction produces: []any, map[string]any and *Object. The empty
// path resolves to tree itself. Keys containing dots cannot be
// addressed, since the path format has no escaping.
func Lookup(tree any, path string) (any, bool) {
	if path == "" {
		return tree, true
	}
	cur := tree
	for seg := range strings.SplitSeq(path, ".") {
		next, ok := lookupSegment(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func lookupSegment(v any, seg string) (any, bool) {
	switch n := v.(type) {
	case *Object:
		if n == nil {
			return nil, false
		}
		return n.Get(seg)
	case map[string]any:
		child, ok := n[seg]
		return child, ok
	case []any:
		i, ok := parseIndex(seg)
		if !ok || i >= len(n) {
			return nil, false
		}
		return n[i], true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		i, ok := parseIndex(seg)
		if !ok || i >= rv.Len() {
			return nil, false
		}
		return rv.Index(i).Interface(), true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		child := rv.MapIndex(reflect.ValueOf(seg).Convert(rv.Type().Key()))
		if !child.IsValid() {
			return nil, false
		}
		return child.Interface(), true
	}
	return nil, false
}

// parseIndex accepts only the canonical base-10 form JoinPath
// produces: no sign, no leading zeros.
func parseIndex(seg string) (int, bool) {
	if seg == "" || (len(seg) > 1 && seg[0] == '0') {
		return 0, false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	i, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return i, true
}
