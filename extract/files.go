package extract

import (
	"iter"
	"reflect"
)

// Files maps each extracted file to the object paths where it
// occurred. Files are kept in the order they were first found and
// paths in the order they were visited.
type Files struct {
	index   map[any]int
	handles []any
	paths   [][]string
}

func newFiles() *Files {
	return &Files{index: make(map[any]int)}
}

// Entry is one extracted file and its paths.
type Entry struct {
	File  any
	Paths []string
}

func (f *Files) add(v any, path string) {
	key, ok := fileKey(v)
	if ok {
		if i, seen := f.index[key]; seen {
			f.paths[i] = append(f.paths[i], path)
			return
		}
		f.index[key] = len(f.handles)
	}
	f.handles = append(f.handles, v)
	f.paths = append(f.paths, []string{path})
}

// Len returns the number of distinct files.
func (f *Files) Len() int {
	if f == nil {
		return 0
	}
	return len(f.handles)
}

// Paths returns the paths recorded for v, or nil if v was not
// extracted.
func (f *Files) Paths(v any) []string {
	if f == nil {
		return nil
	}
	key, ok := fileKey(v)
	if !ok {
		return nil
	}
	i, seen := f.index[key]
	if !seen {
		return nil
	}
	return f.paths[i]
}

// Handles returns the distinct files in first-encounter order.
func (f *Files) Handles() []any {
	if f == nil {
		return nil
	}
	out := make([]any, len(f.handles))
	copy(out, f.handles)
	return out
}

// Entries returns every file with its paths, in first-encounter
// order.
func (f *Files) Entries() []Entry {
	out := make([]Entry, 0, f.Len())
	for h, paths := range f.All() {
		out = append(out, Entry{File: h, Paths: paths})
	}
	return out
}

// All iterates files and their paths in first-encounter order.
func (f *Files) All() iter.Seq2[any, []string] {
	return func(yield func(any, []string) bool) {
		for i := range f.Len() {
			if !yield(f.handles[i], f.paths[i]) {
				return
			}
		}
	}
}

// fileKey returns the map key identifying v. Comparable values are
// their own key, which for the handle types means pointer identity.
// Slices, maps and funcs are keyed by their pointer. Anything else,
// such as a struct holding a slice, is not deduplicated.
func fileKey(v any) (any, bool) {
	if v == nil {
		return nil, true
	}
	// Structs and arrays are comparable by type but can still hold a
	// slice or map in an interface field, so check the value.
	rv := reflect.ValueOf(v)
	if rv.Comparable() {
		return v, true
	}
	id, ok := identityOf(rv)
	if !ok {
		return nil, false
	}
	return id, true
}
