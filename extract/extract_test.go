package extract

import (
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesm/extractfiles/file"
)

var objectCmp = cmp.AllowUnexported(Object{})

// samePtr reports whether two maps, slices or pointers share storage.
func samePtr(t *testing.T, want, got any) {
	t.Helper()
	wv, gv := reflect.ValueOf(want), reflect.ValueOf(got)
	require.Equal(t, wv.Kind(), gv.Kind(), "kind mismatch")
	assert.Equal(t, wv.UnsafePointer(), gv.UnsafePointer(),
		"values do not share identity")
}

func notSamePtr(t *testing.T, a, b any) {
	t.Helper()
	assert.NotEqual(t,
		reflect.ValueOf(a).UnsafePointer(),
		reflect.ValueOf(b).UnsafePointer(),
		"values share identity")
}

func objectOf(kv ...any) *Object {
	o := NewObject(len(kv) / 2)
	for i := 0; i+1 < len(kv); i += 2 {
		o.Set(kv[i].(string), kv[i+1])
	}
	return o
}

type point struct{ X, Y int }

func TestExtractPassthrough(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		value any
	}{
		{"nil", nil},
		{"false", false},
		{"true", true},
		{"empty string", ""},
		{"string", "a"},
		{"zero", 0},
		{"int", 1},
		{"float", 1.5},
		{"time", now},
		{"struct", point{1, 2}},
		{"struct pointer", &point{1, 2}},
		{"byte slice", []byte("abc")},
		{"int-keyed map", map[int]any{1: "a"}},
		{"file value, not pointer", file.Substitute{URI: "u"}},
		{"nil object", (*Object)(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name+" directly", func(t *testing.T) {
			res := Extract(tt.value, nil, "")
			assert.Equal(t, tt.value, res.Clone)
			assert.Equal(t, 0, res.Files.Len())
		})

		t.Run(tt.name+" in a map", func(t *testing.T) {
			in := map[string]any{"a": tt.value}
			res := Extract(in, nil, "")
			assert.Equal(t, in, res.Clone)
			notSamePtr(t, in, res.Clone)
			assert.Equal(t, 0, res.Files.Len())
		})

		t.Run(tt.name+" in an object", func(t *testing.T) {
			in := objectOf("a", tt.value)
			res := Extract(in, nil, "")
			if diff := cmp.Diff(in, res.Clone, objectCmp); diff != "" {
				t.Errorf("clone mismatch (-want +got):\n%s", diff)
			}
			assert.NotSame(t, in, res.Clone)
		})

		t.Run(tt.name+" in a slice", func(t *testing.T) {
			in := []any{tt.value}
			res := Extract(in, nil, "")
			assert.Equal(t, in, res.Clone)
			notSamePtr(t, in, res.Clone)
		})
	}
}

func TestExtractPassthroughUncomparable(t *testing.T) {
	fn := func() {}
	res := Extract(fn, nil, "")
	samePtr(t, fn, res.Clone)

	res = Extract(math.NaN(), nil, "")
	assert.True(t, math.IsNaN(res.Clone.(float64)))
	assert.Equal(t, 0, res.Files.Len())
}

func TestExtractPathFidelity(t *testing.T) {
	f1 := file.NewFile("1.txt", "text/plain", 1, time.Time{})
	f2 := file.NewFile("2.txt", "text/plain", 1, time.Time{})

	t.Run("map", func(t *testing.T) {
		in := map[string]any{"a": f1, "b": []any{f1, f2}}
		res := Extract(in, nil, "")

		assert.Equal(t,
			map[string]any{"a": nil, "b": []any{nil, nil}},
			res.Clone)
		assert.Equal(t, []Entry{
			{File: f1, Paths: []string{"a", "b.0"}},
			{File: f2, Paths: []string{"b.1"}},
		}, res.Files.Entries())
		// Input untouched.
		assert.Same(t, f1, in["a"])
	})

	t.Run("object keeps insertion order", func(t *testing.T) {
		in := objectOf("b", []any{f1, f2}, "a", f1)
		res := Extract(in, nil, "")

		want := objectOf("b", []any{nil, nil}, "a", nil)
		if diff := cmp.Diff(want, res.Clone, objectCmp); diff != "" {
			t.Errorf("clone mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, []string{"b.0", "a"}, res.Files.Paths(f1))
		assert.Equal(t, []string{"b.1"}, res.Files.Paths(f2))
		assert.Equal(t, []any{f1, f2}, res.Files.Handles())
	})

	t.Run("map keys sorted", func(t *testing.T) {
		in := map[string]any{"z": f1, "m": f1, "a": f1}
		res := Extract(in, nil, "")
		assert.Equal(t, []string{"a", "m", "z"}, res.Files.Paths(f1))
	})

	t.Run("large index", func(t *testing.T) {
		in := make([]any, 12)
		in[10] = f1
		res := Extract(in, nil, "")
		assert.Equal(t, []string{"10"}, res.Files.Paths(f1))
	})
}

func TestExtractPrefix(t *testing.T) {
	f := file.NewBlob(1, "")

	res := Extract(map[string]any{"a": f}, nil, "prefix")
	assert.Equal(t, []string{"prefix.a"}, res.Files.Paths(f))

	res = Extract(f, nil, "prefix")
	assert.Nil(t, res.Clone)
	assert.Equal(t, []string{"prefix"}, res.Files.Paths(f))
}

func TestExtractTopLevelFile(t *testing.T) {
	for _, f := range []any{
		file.NewBlob(1, "text/plain"),
		file.NewFile("a.txt", "text/plain", 1, time.Time{}),
		file.NewSubstitute("file:///a.jpg", "a.jpg", "image/jpeg"),
	} {
		res := Extract(f, nil, "")
		assert.Nil(t, res.Clone)
		assert.Equal(t, []Entry{{File: f, Paths: []string{""}}},
			res.Files.Entries())
	}
}

func TestExtractFileList(t *testing.T) {
	f0 := file.NewBlob(1, "")
	f1 := file.NewFile("b", "", 1, time.Time{})
	list := file.NewList(f0, f1)

	res := Extract(list, nil, "")
	assert.Equal(t, []any{nil, nil}, res.Clone)
	assert.Equal(t, []Entry{
		{File: f0, Paths: []string{"0"}},
		{File: f1, Paths: []string{"1"}},
	}, res.Files.Entries())

	res = Extract(map[string]any{"files": list}, nil, "variables")
	assert.Equal(t, map[string]any{"files": []any{nil, nil}}, res.Clone)
	assert.Equal(t, []string{"variables.files.0"}, res.Files.Paths(f0))
}

func TestExtractTypedContainers(t *testing.T) {
	f0 := file.NewBlob(1, "")
	f1 := file.NewBlob(2, "")

	t.Run("typed slice", func(t *testing.T) {
		res := Extract([]*file.Blob{f0, f1}, nil, "")
		assert.Equal(t, []any{nil, nil}, res.Clone)
		assert.Equal(t, 2, res.Files.Len())
	})

	t.Run("array", func(t *testing.T) {
		res := Extract([2]any{f0, "x"}, nil, "")
		assert.Equal(t, []any{nil, "x"}, res.Clone)
		assert.Equal(t, []string{"0"}, res.Files.Paths(f0))
	})

	t.Run("typed map", func(t *testing.T) {
		type name string
		in := map[name][]file.Handle{"b": {f1}, "a": {f0}}
		res := Extract(in, nil, "")
		assert.Equal(t,
			map[string]any{"a": []any{nil}, "b": []any{nil}},
			res.Clone)
		assert.Equal(t, []any{f0, f1}, res.Files.Handles())
	})

	t.Run("nil slice", func(t *testing.T) {
		res := Extract([]any(nil), nil, "")
		assert.Equal(t, []any{}, res.Clone)
	})
}

func TestExtractSharing(t *testing.T) {
	f := file.NewBlob(1, "")

	t.Run("map", func(t *testing.T) {
		shared := map[string]any{"x": f}
		res := Extract(map[string]any{"a": shared, "b": shared}, nil, "")

		clone := res.Clone.(map[string]any)
		samePtr(t, clone["a"], clone["b"])
		notSamePtr(t, shared, clone["a"])
		assert.Equal(t, map[string]any{"x": nil}, clone["a"])
		assert.Equal(t, []string{"a.x", "b.x"}, res.Files.Paths(f))
	})

	t.Run("object", func(t *testing.T) {
		shared := objectOf("x", f)
		res := Extract(objectOf("a", shared, "b", shared), nil, "")

		clone := res.Clone.(*Object)
		a, _ := clone.Get("a")
		b, _ := clone.Get("b")
		assert.Same(t, a, b)
		assert.Equal(t, []string{"a.x", "b.x"}, res.Files.Paths(f))
	})

	t.Run("slice", func(t *testing.T) {
		shared := []any{f, "y"}
		res := Extract([]any{shared, shared}, nil, "")

		clone := res.Clone.([]any)
		samePtr(t, clone[0], clone[1])
		assert.Equal(t, []any{nil, "y"}, clone[0])
		assert.Equal(t, []string{"0.0", "1.0"}, res.Files.Paths(f))
	})

	t.Run("nested shared", func(t *testing.T) {
		inner := map[string]any{"f": f}
		outer := map[string]any{"inner": inner}
		in := map[string]any{"a": outer, "b": outer, "c": inner}
		res := Extract(in, nil, "")

		clone := res.Clone.(map[string]any)
		cloneInner := clone["a"].(map[string]any)["inner"]
		samePtr(t, cloneInner, clone["c"])
		assert.Equal(t,
			[]string{"a.inner.f", "b.inner.f", "c.f"},
			res.Files.Paths(f))
	})
}

func TestExtractCycles(t *testing.T) {
	f := file.NewSubstitute("file:///a", "a", "")

	t.Run("map self reference", func(t *testing.T) {
		in := map[string]any{"a": f}
		in["self"] = in
		res := Extract(in, nil, "")

		clone := res.Clone.(map[string]any)
		samePtr(t, clone, clone["self"])
		assert.Nil(t, clone["a"])
		assert.Equal(t, []Entry{{File: f, Paths: []string{"a"}}},
			res.Files.Entries())
	})

	t.Run("object self reference", func(t *testing.T) {
		in := objectOf("a", f)
		in.Set("self", in)
		res := Extract(in, nil, "")

		clone := res.Clone.(*Object)
		self, _ := clone.Get("self")
		assert.Same(t, clone, self)
		assert.Equal(t, []string{"a"}, res.Files.Paths(f))
	})

	t.Run("slice self reference", func(t *testing.T) {
		in := make([]any, 2)
		in[0] = f
		in[1] = in
		res := Extract(in, nil, "")

		clone := res.Clone.([]any)
		samePtr(t, clone, clone[1])
		assert.Nil(t, clone[0])
		assert.Equal(t, []string{"0"}, res.Files.Paths(f))
	})

	t.Run("mutual reference", func(t *testing.T) {
		a := map[string]any{}
		b := map[string]any{"a": a, "f": f}
		a["b"] = b
		res := Extract(a, nil, "")

		clone := res.Clone.(map[string]any)
		cloneB := clone["b"].(map[string]any)
		samePtr(t, clone, cloneB["a"])
		assert.Equal(t, []string{"b.f"}, res.Files.Paths(f))
	})

	t.Run("shared value inside cycle", func(t *testing.T) {
		shared := map[string]any{"f": f}
		root := map[string]any{"x": shared, "y": shared}
		shared["root"] = root
		res := Extract(root, nil, "")

		clone := res.Clone.(map[string]any)
		samePtr(t, clone["x"], clone["y"])
		samePtr(t, clone, clone["x"].(map[string]any)["root"])
		assert.Equal(t, []string{"x.f", "y.f"}, res.Files.Paths(f))
	})
}

func TestExtractCustomClassifier(t *testing.T) {
	type upload struct{ path string }
	isUpload := func(v any) bool {
		_, ok := v.(*upload)
		return ok
	}
	u := &upload{path: "/tmp/a"}
	blob := file.NewBlob(1, "")

	res := Extract(map[string]any{"u": u, "b": blob, "n": 1}, isUpload, "")
	assert.Equal(t, map[string]any{"u": nil, "b": blob, "n": 1}, res.Clone)
	assert.Equal(t, []Entry{{File: u, Paths: []string{"u"}}},
		res.Files.Entries())

	both := file.Any(file.IsExtractable, isUpload)
	res = Extract([]any{u, blob}, both, "")
	assert.Equal(t, []any{nil, nil}, res.Clone)
	assert.Equal(t, []any{u, blob}, res.Files.Handles())
}

func TestExtractClassifierBeforeShape(t *testing.T) {
	list := file.NewList(file.NewBlob(1, ""))
	isList := func(v any) bool {
		_, ok := v.(*file.List)
		return ok
	}
	res := Extract(map[string]any{"l": list}, isList, "")
	assert.Equal(t, map[string]any{"l": nil}, res.Clone)
	assert.Equal(t, []string{"l"}, res.Files.Paths(list))
}

func TestExtractUncomparableFiles(t *testing.T) {
	type chunk []byte
	isChunk := func(v any) bool {
		_, ok := v.(chunk)
		return ok
	}
	c := chunk("abc")
	res := Extract([]any{c, c, chunk("x")}, isChunk, "")

	assert.Equal(t, []any{nil, nil, nil}, res.Clone)
	require.Equal(t, 2, res.Files.Len())
	assert.Equal(t, []string{"0", "1"}, res.Files.Paths(c))
}

func TestExtractFilesHoldingUncomparableValues(t *testing.T) {
	type upload struct{ Data any }
	isUpload := func(v any) bool {
		_, ok := v.(upload)
		return ok
	}

	t.Run("struct field holds a slice", func(t *testing.T) {
		in := []any{
			upload{Data: []int{1}},
			upload{Data: "a"},
			upload{Data: "a"},
		}
		res := Extract(in, isUpload, "")

		assert.Equal(t, []any{nil, nil, nil}, res.Clone)
		require.Equal(t, 2, res.Files.Len())
		assert.Nil(t, res.Files.Paths(in[0]))
		assert.Equal(t, []string{"1", "2"}, res.Files.Paths(upload{Data: "a"}))
	})

	t.Run("array element holds a map", func(t *testing.T) {
		arr := [2]any{map[string]int{}, 1}
		isArr := func(v any) bool {
			_, ok := v.([2]any)
			return ok
		}
		res := Extract(map[string]any{"a": arr, "b": arr}, isArr, "")

		assert.Equal(t, map[string]any{"a": nil, "b": nil}, res.Clone)
		assert.Equal(t, 2, res.Files.Len())
		assert.Nil(t, res.Files.Paths(arr))
	})
}

func TestExtractByteArraysAreOpaque(t *testing.T) {
	sum := [4]byte{1, 2, 3, 4}
	in := map[string]any{"sum": sum, "raw": []byte("ab")}
	res := Extract(in, nil, "")

	assert.Equal(t, map[string]any{"sum": sum, "raw": []byte("ab")}, res.Clone)
	assert.Equal(t, 0, res.Files.Len())
}

func TestExtractSkipsNonStringKeys(t *testing.T) {
	f := file.NewBlob(1, "")
	in := map[any]any{
		"a":         1,
		2:           f,
		point{1, 1}: f,
		nil:         f,
	}
	res := Extract(in, nil, "")
	assert.Equal(t, map[string]any{"a": 1}, res.Clone)
	assert.Equal(t, 0, res.Files.Len())
}

func TestExtractNullSubstitution(t *testing.T) {
	f1 := file.NewBlob(1, "")
	f2 := file.NewSubstitute("u", "", "")
	in := objectOf(
		"query", "mutation($f: Upload!) { upload(f: $f) }",
		"variables", objectOf(
			"f", f1,
			"many", []any{f2, map[string]any{"deep": []any{f1}}},
		),
	)
	res := Extract(in, nil, "")

	for h, paths := range res.Files.All() {
		for _, p := range paths {
			v, ok := Lookup(res.Clone, p)
			require.True(t, ok, "path %q missing from clone", p)
			assert.Nil(t, v, "path %q", p)

			orig, ok := Lookup(in, p)
			require.True(t, ok)
			assert.Equal(t, h, orig)
		}
	}
	assert.Equal(t, []string{"variables.f", "variables.many.1.deep.0"},
		res.Files.Paths(f1))
}

func TestExtractConcurrent(t *testing.T) {
	f := file.NewBlob(1, "")
	shared := map[string]any{"f": f}
	in := map[string]any{"a": shared, "b": []any{shared, f}}

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = Extract(in, nil, "")
		}()
	}
	wg.Wait()

	for _, res := range results {
		assert.Equal(t, []string{"a.f", "b.0.f", "b.1"}, res.Files.Paths(f))
	}
	notSamePtr(t, results[0].Clone, results[1].Clone)
}
