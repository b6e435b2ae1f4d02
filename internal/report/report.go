// Package report turns an extraction result into a JSON document
// describing the clone and every extracted file.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/wesm/extractfiles/extract"
	"github.com/wesm/extractfiles/file"
	"github.com/wesm/extractfiles/internal/tree"
)

var (
	// ErrCyclic reports a clone that refers back to itself and so
	// cannot be encoded.
	ErrCyclic = errors.New("clone is cyclic")
	// ErrInconsistent reports a recorded path that does not hold
	// null in the encoded clone.
	ErrInconsistent = errors.New("path does not resolve to null")
)

// KindValue labels files that are not one of the handle types, as
// accepted by a custom classifier.
const KindValue file.Kind = "value"

// FileInfo describes one extracted file.
type FileInfo struct {
	Index    int        `json:"index"`
	Kind     file.Kind  `json:"kind"`
	URI      string     `json:"uri,omitempty"`
	Name     string     `json:"name,omitempty"`
	Type     string     `json:"type,omitempty"`
	Size     *int64     `json:"size,omitempty"`
	Modified *time.Time `json:"modified,omitempty"`
	Paths    []string   `json:"paths"`
}

// Report is the encoded clone plus its files in first-encounter
// order.
type Report struct {
	Clone json.RawMessage `json:"clone"`
	Files []FileInfo      `json:"files"`
}

// Build encodes res.Clone and describes res.Files. prefix must be the
// path prefix the extraction ran with; every recorded path is checked
// against the encoded clone after the prefix is removed.
func Build(res extract.Result, prefix string) (Report, error) {
	if err := checkAcyclic(res.Clone, map[any]bool{}); err != nil {
		return Report{}, err
	}
	clone, err := json.Marshal(res.Clone)
	if err != nil {
		return Report{}, fmt.Errorf("encoding clone: %w", err)
	}

	files := make([]FileInfo, 0, res.Files.Len())
	for v, paths := range res.Files.All() {
		for _, p := range paths {
			if err := checkPath(clone, prefix, p); err != nil {
				return Report{}, err
			}
		}
		info := describe(v)
		info.Index = len(files)
		info.Paths = append([]string(nil), paths...)
		files = append(files, info)
	}
	return Report{Clone: clone, Files: files}, nil
}

func checkPath(clone []byte, prefix, path string) error {
	rel, ok := relative(prefix, path)
	if !ok {
		return fmt.Errorf("%q outside prefix %q: %w", path, prefix, ErrInconsistent)
	}
	// Keys containing dots make some paths unaddressable, so only a
	// path that resolves to something other than null is a mismatch.
	got := tree.GetPath(clone, rel)
	if got.Exists() && got.Type != gjson.Null {
		return fmt.Errorf("%q holds %s: %w", path, got.Raw, ErrInconsistent)
	}
	return nil
}

func relative(prefix, path string) (string, bool) {
	if prefix == "" {
		return path, true
	}
	if path == prefix {
		return "", true
	}
	return strings.CutPrefix(path, prefix+".")
}

func describe(v any) FileInfo {
	kind, ok := file.KindOf(v)
	if !ok {
		return FileInfo{Kind: KindValue, Type: fmt.Sprintf("%T", v)}
	}
	info := FileInfo{Kind: kind}
	switch h := v.(type) {
	case *file.Substitute:
		info.URI, info.Name, info.Type = h.URI, h.Name, h.Type
	case *file.File:
		info.Name, info.Type, info.Size = h.Name, h.Type, &h.Size
		if !h.ModTime.IsZero() {
			info.Modified = &h.ModTime
		}
	case *file.Blob:
		info.Type, info.Size = h.Type, &h.Size
	}
	return info
}

// checkAcyclic walks the container shapes extraction produces and
// fails if one is reached again while still being walked.
func checkAcyclic(v any, onStack map[any]bool) error {
	var key any
	var children []any
	switch t := v.(type) {
	case *extract.Object:
		if t == nil {
			return nil
		}
		key = t
		for _, k := range t.Keys() {
			c, _ := t.Get(k)
			children = append(children, c)
		}
	case []any:
		if len(t) == 0 {
			return nil
		}
		key = sliceKey{ptr: reflect.ValueOf(t).Pointer(), len: len(t)}
		children = t
	case map[string]any:
		if len(t) == 0 {
			return nil
		}
		key = reflect.ValueOf(t).Pointer()
		for _, c := range t {
			children = append(children, c)
		}
	default:
		return nil
	}

	if onStack[key] {
		return ErrCyclic
	}
	onStack[key] = true
	defer delete(onStack, key)
	for _, c := range children {
		if err := checkAcyclic(c, onStack); err != nil {
			return err
		}
	}
	return nil
}

type sliceKey struct {
	ptr uintptr
	len int
}

// Encode writes r as JSON followed by a newline.
func Encode(w io.Writer, r Report, indent bool) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if indent {
		data = pretty.Pretty(data)
	} else {
		data = append(data, '\n')
	}
	_, err = w.Write(data)
	return err
}
