// Package testtree provides shared document and value-tree fixture
// builders for extraction tests. Used by the tree, report and
// command test packages.
package testtree

import (
	"encoding/json"
	"strings"

	"github.com/wesm/extractfiles/extract"
)

// FileMarkerJSON returns a file marker object as a JSON string.
// A marker with only a uri uses the short string form.
func FileMarkerJSON(uri, name, typ string) string {
	if name == "" && typ == "" {
		return mustMarshal(map[string]any{"$file": uri})
	}
	m := map[string]any{"uri": uri}
	if name != "" {
		m["name"] = name
	}
	if typ != "" {
		m["type"] = typ
	}
	return mustMarshal(map[string]any{"$file": m})
}

// OperationJSON returns an upload-style operation document with the
// given raw variables JSON.
func OperationJSON(query, variables string) string {
	return mustMarshalOrdered(
		"query", query,
		"variables", json.RawMessage(variables),
	)
}

// ObjectJSON returns a JSON object whose keys appear in the given
// order. Values that are json.RawMessage are embedded as-is.
func ObjectJSON(kv ...any) string {
	return mustMarshalOrdered(kv...)
}

// ArrayJSON joins raw JSON values into an array.
func ArrayJSON(items ...string) string {
	return "[" + strings.Join(items, ",") + "]"
}

// Raw marks s as already-encoded JSON for ObjectJSON.
func Raw(s string) json.RawMessage {
	return json.RawMessage(s)
}

// YAML joins lines into a YAML document.
func YAML(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

// Object builds an ordered object from alternating keys and values.
func Object(kv ...any) *extract.Object {
	o := extract.NewObject(len(kv) / 2)
	for i := 0; i+1 < len(kv); i += 2 {
		o.Set(kv[i].(string), kv[i+1])
	}
	return o
}

func mustMarshalOrdered(kv ...any) string {
	data, err := json.Marshal(Object(kv...))
	if err != nil {
		panic(err)
	}
	return string(data)
}

func mustMarshal(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
