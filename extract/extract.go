// Package extract clones value trees, pulling file handles out of
// them.
//
// Extract walks nested slices, maps and *Object values, replaces
// every file with nil in a deep clone and records where each file
// was found as an object path such as "variables.files.0". The input
// is never modified.
//
// Structure shared between several positions of the input is shared
// the same way in the clone, and self-referencing input produces a
// self-referencing clone instead of recursing forever.
package extract

import (
	"cmp"
	"reflect"
	"slices"
	"strconv"
	"unsafe"

	"github.com/wesm/extractfiles/file"
)

// Result is the outcome of an extraction.
type Result struct {
	// Clone is the input with every file replaced by nil.
	Clone any
	// Files holds each extracted file and its object paths.
	Files *Files
}

// Extract clones value, replacing files matched by isFile with nil.
// A nil isFile uses file.IsExtractable. path prefixes every recorded
// object path; pass "" for none.
func Extract(value any, isFile file.Classifier, path string) Result {
	if isFile == nil {
		isFile = file.IsExtractable
	}
	w := &walker{
		isFile:   isFile,
		files:    newFiles(),
		clones:   make(map[identity]any),
		recursed: make(map[identity]bool),
	}
	clone := w.recurse(value, path)
	return Result{Clone: clone, Files: w.files}
}

// identity names a structural value independently of its contents.
type identity struct {
	typ reflect.Type
	ptr unsafe.Pointer
	len int
}

func identityOf(rv reflect.Value) (identity, bool) {
	switch rv.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Func, reflect.Chan:
		p := rv.UnsafePointer()
		return identity{typ: rv.Type(), ptr: p}, p != nil
	case reflect.Slice:
		p := rv.UnsafePointer()
		return identity{typ: rv.Type(), ptr: p, len: rv.Len()}, p != nil
	}
	return identity{}, false
}

type cloneKind int

const (
	cloneList cloneKind = iota
	cloneObject
	cloneMap
)

// node is a structural value seen through a uniform lens: its
// identity, the shape of its clone and its children in iteration
// order.
type node struct {
	id    identity
	hasID bool
	kind  cloneKind
	keys  []string
	n     int
	child func(i int) any
}

type walker struct {
	isFile   file.Classifier
	files    *Files
	clones   map[identity]any
	recursed map[identity]bool
}

func (w *walker) recurse(v any, path string) any {
	if w.isFile(v) {
		w.files.add(v, path)
		return nil
	}

	n, ok := structural(v)
	if !ok {
		return v
	}

	var clone any
	var seen bool
	if n.hasID {
		clone, seen = w.clones[n.id]
	}
	if !seen {
		clone = n.alloc()
		if n.hasID {
			w.clones[n.id] = clone
		}
	}

	if n.hasID {
		if w.recursed[n.id] {
			return clone
		}
		w.recursed[n.id] = true
		defer delete(w.recursed, n.id)
	}

	for i := range n.n {
		key := n.key(i)
		c := w.recurse(n.child(i), JoinPath(path, key))
		if !seen {
			n.assign(clone, i, key, c)
		}
	}
	return clone
}

func (n *node) key(i int) string {
	if n.kind == cloneList {
		return strconv.Itoa(i)
	}
	return n.keys[i]
}

func (n *node) alloc() any {
	switch n.kind {
	case cloneList:
		return make([]any, n.n)
	case cloneObject:
		return NewObject(n.n)
	default:
		return make(map[string]any, n.n)
	}
}

func (n *node) assign(clone any, i int, key string, v any) {
	switch c := clone.(type) {
	case []any:
		c[i] = v
	case *Object:
		c.Set(key, v)
	case map[string]any:
		c[key] = v
	}
}

// structural reports whether v is list-like or object-like and, if
// so, describes it. Everything else is opaque.
func structural(v any) (*node, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case *Object:
		if t == nil {
			return nil, false
		}
		keys := t.Keys()
		return &node{
			id:    identity{typ: reflect.TypeOf(t), ptr: unsafe.Pointer(t)},
			hasID: true,
			kind:  cloneObject,
			keys:  keys,
			n:     len(keys),
			child: func(i int) any {
				c, _ := t.Get(keys[i])
				return c
			},
		}, true
	case *file.List:
		if t == nil {
			return nil, false
		}
		return &node{
			id:    identity{typ: reflect.TypeOf(t), ptr: unsafe.Pointer(t)},
			hasID: true,
			kind:  cloneList,
			n:     t.Len(),
			child: func(i int) any { return handleValue(t.Item(i)) },
		}, true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		// Bytes are payload, not a list of numbers.
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
		id, hasID := identityOf(rv)
		return &node{
			id:    id,
			hasID: hasID,
			kind:  cloneList,
			n:     rv.Len(),
			child: func(i int) any { return rv.Index(i).Interface() },
		}, true
	case reflect.Map:
		return mapNode(rv)
	}
	return nil, false
}

// mapNode describes a Go map. String-keyed maps expose every key;
// maps keyed by an interface expose only keys holding strings. Keys
// are sorted since Go maps have no order of their own.
func mapNode(rv reflect.Value) (*node, bool) {
	keyKind := rv.Type().Key().Kind()
	if keyKind != reflect.String && keyKind != reflect.Interface {
		return nil, false
	}

	type entry struct {
		key string
		val reflect.Value
	}
	var entries []entry
	it := rv.MapRange()
	for it.Next() {
		k := it.Key()
		if keyKind == reflect.Interface {
			k = k.Elem()
			if !k.IsValid() || k.Kind() != reflect.String {
				continue
			}
		}
		entries = append(entries, entry{key: k.String(), val: it.Value()})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		return cmp.Compare(a.key, b.key)
	})

	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.key
	}
	id, hasID := identityOf(rv)
	return &node{
		id:    id,
		hasID: hasID,
		kind:  cloneMap,
		keys:  keys,
		n:     len(keys),
		child: func(i int) any { return entries[i].val.Interface() },
	}, true
}

// handleValue unwraps a nil Handle interface to a plain nil.
func handleValue(h file.Handle) any {
	if h == nil {
		return nil
	}
	return h
}
