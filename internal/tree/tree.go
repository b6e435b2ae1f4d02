// Package tree decodes JSON and YAML documents into value trees that
// extraction can walk. Objects decode to *extract.Object so that key
// order survives, and tagged file markers decode to
// *file.Substitute handles.
package tree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/wesm/extractfiles/file"
)

// DefaultMarker is the key that tags an object as a file reference.
const DefaultMarker = "$file"

var (
	// ErrSyntax reports a malformed document.
	ErrSyntax = errors.New("syntax error")
	// ErrMarker reports a file marker without a usable uri.
	ErrMarker = errors.New("invalid file marker")
)

// Format names a document encoding.
type Format string

const (
	FormatAuto Format = "auto"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a user-supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Options control decoding.
type Options struct {
	// Marker is the key of a single-key object that denotes a file.
	// Empty means DefaultMarker.
	Marker string
}

func (o Options) marker() string {
	if o.Marker == "" {
		return DefaultMarker
	}
	return o.Marker
}

// Decode parses data as format. FormatAuto picks JSON when data is
// valid JSON and YAML otherwise.
func Decode(data []byte, format Format, opts Options) (any, error) {
	switch format {
	case FormatAuto:
		if gjson.ValidBytes(data) {
			return decodeJSON(data, opts)
		}
		return decodeYAML(data, opts)
	case FormatJSON:
		return decodeJSON(data, opts)
	case FormatYAML:
		return decodeYAML(data, opts)
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

// markerFields holds the parts of a marker value.
type markerFields struct {
	uri, name, typ string
}

func (m markerFields) substitute(path string) (*file.Substitute, error) {
	if m.uri == "" {
		return nil, fmt.Errorf("%s: missing uri: %w", describe(path), ErrMarker)
	}
	return file.NewSubstitute(m.uri, m.name, m.typ), nil
}

func describe(path string) string {
	if path == "" {
		return "document root"
	}
	return path
}
