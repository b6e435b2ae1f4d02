package tree

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/wesm/extractfiles/extract"
)

// yamlDecoder turns a yaml.Node graph into a value tree. Anchored
// nodes decode once, so every alias of an anchor yields the same
// value and shared structure stays shared.
type yamlDecoder struct {
	marker string
	seen   map[*yaml.Node]any
}

func decodeYAML(data []byte, opts Options) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w: %w", ErrSyntax, err)
	}
	d := &yamlDecoder{
		marker: opts.marker(),
		seen:   make(map[*yaml.Node]any),
	}
	return d.value(&doc, "")
}

func (d *yamlDecoder) value(n *yaml.Node, path string) (any, error) {
	if v, ok := d.seen[n]; ok {
		return v, nil
	}

	switch n.Kind {
	case 0:
		// Empty document.
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return d.value(n.Content[0], path)
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, fmt.Errorf("%s: dangling alias %q: %w",
				describe(path), n.Value, ErrSyntax)
		}
		return d.value(n.Alias, path)
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("%s: line %d: %w: %w",
				describe(path), n.Line, ErrSyntax, err)
		}
		d.remember(n, v)
		return v, nil
	case yaml.SequenceNode:
		out := make([]any, len(n.Content))
		d.remember(n, out)
		for i, item := range n.Content {
			v, err := d.value(item, extract.JoinPath(path, strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case yaml.MappingNode:
		return d.mapping(n, path)
	}
	return nil, fmt.Errorf("%s: line %d: unsupported node kind %d: %w",
		describe(path), n.Line, n.Kind, ErrSyntax)
}

func (d *yamlDecoder) mapping(n *yaml.Node, path string) (any, error) {
	if len(n.Content) == 2 && n.Content[0].Value == d.marker {
		sub, err := d.fileMarker(
			n.Content[1], extract.JoinPath(path, d.marker),
		)
		if err != nil {
			return nil, err
		}
		d.remember(n, sub)
		return sub, nil
	}

	obj := extract.NewObject(len(n.Content) / 2)
	d.remember(n, obj)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		v, err := d.value(n.Content[i+1], extract.JoinPath(path, key))
		if err != nil {
			return nil, err
		}
		obj.Set(key, v)
	}
	return obj, nil
}

func (d *yamlDecoder) fileMarker(n *yaml.Node, path string) (any, error) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}

	var m markerFields
	switch n.Kind {
	case yaml.ScalarNode:
		m.uri = n.Value
	case yaml.MappingNode:
		var fields struct {
			URI  string `yaml:"uri"`
			Name string `yaml:"name"`
			Type string `yaml:"type"`
		}
		if err := n.Decode(&fields); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", path, ErrMarker, err)
		}
		m = markerFields{uri: fields.URI, name: fields.Name, typ: fields.Type}
	default:
		return nil, fmt.Errorf("%s: want a string or mapping: %w",
			path, ErrMarker)
	}
	return m.substitute(path)
}

// remember records the decoded value of an anchored node.
func (d *yamlDecoder) remember(n *yaml.Node, v any) {
	if n.Anchor != "" {
		d.seen[n] = v
	}
}
