package tree

import (
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/wesm/extractfiles/extract"
)

type jsonDecoder struct {
	marker string
}

func decodeJSON(data []byte, opts Options) (any, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parsing JSON: %w", ErrSyntax)
	}
	d := &jsonDecoder{marker: opts.marker()}
	return d.value(gjson.ParseBytes(data), "")
}

func (d *jsonDecoder) value(r gjson.Result, path string) (any, error) {
	switch r.Type {
	case gjson.Null:
		return nil, nil
	case gjson.False:
		return false, nil
	case gjson.True:
		return true, nil
	case gjson.Number:
		return r.Num, nil
	case gjson.String:
		return r.Str, nil
	}

	if r.IsArray() {
		return d.array(r, path)
	}
	if r.IsObject() {
		return d.object(r, path)
	}
	return nil, fmt.Errorf("%s: unexpected value %q: %w",
		describe(path), r.Raw, ErrSyntax)
}

func (d *jsonDecoder) array(r gjson.Result, path string) (any, error) {
	out := []any{}
	var err error
	r.ForEach(func(_, item gjson.Result) bool {
		var v any
		v, err = d.value(item, extract.JoinPath(path, strconv.Itoa(len(out))))
		if err != nil {
			return false
		}
		out = append(out, v)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (d *jsonDecoder) object(r gjson.Result, path string) (any, error) {
	type pair struct {
		key string
		val gjson.Result
	}
	var pairs []pair
	r.ForEach(func(key, val gjson.Result) bool {
		pairs = append(pairs, pair{key: key.Str, val: val})
		return true
	})

	if len(pairs) == 1 && pairs[0].key == d.marker {
		return d.fileMarker(pairs[0].val, extract.JoinPath(path, d.marker))
	}

	obj := extract.NewObject(len(pairs))
	for _, p := range pairs {
		v, err := d.value(p.val, extract.JoinPath(path, p.key))
		if err != nil {
			return nil, err
		}
		obj.Set(p.key, v)
	}
	return obj, nil
}

func (d *jsonDecoder) fileMarker(r gjson.Result, path string) (any, error) {
	var m markerFields
	switch {
	case r.Type == gjson.String:
		m.uri = r.Str
	case r.IsObject():
		var bad string
		r.ForEach(func(key, val gjson.Result) bool {
			if val.Type != gjson.String {
				bad = key.Str
				return false
			}
			switch key.Str {
			case "uri":
				m.uri = val.Str
			case "name":
				m.name = val.Str
			case "type":
				m.typ = val.Str
			}
			return true
		})
		if bad != "" {
			return nil, fmt.Errorf("%s: field %q is not a string: %w",
				path, bad, ErrMarker)
		}
	default:
		return nil, fmt.Errorf("%s: want a string or object: %w",
			path, ErrMarker)
	}
	return m.substitute(path)
}
