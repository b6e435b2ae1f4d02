package file

// Classifier reports whether v is a file to be extracted. It must be
// pure: the same value always classifies the same way.
type Classifier func(v any) bool

// Env describes which native handle kinds the host provides.
// Substitutes are always recognized since they need no native
// support.
type Env struct {
	Blob bool
	File bool
}

// NativeEnv provides every native handle kind.
var NativeEnv = Env{Blob: true, File: true}

// Classifier returns the default classifier for env. Kinds the
// environment lacks classify as false.
func (env Env) Classifier() Classifier {
	return func(v any) bool {
		return env.classify(v)
	}
}

func (env Env) classify(v any) bool {
	switch h := v.(type) {
	case *Blob:
		return h != nil && env.Blob
	case *File:
		// A named file is also a blob.
		return h != nil && (env.File || env.Blob)
	case *Substitute:
		return h != nil
	}
	return false
}

// IsExtractable is the default classifier: it matches *Blob, *File
// and *Substitute values.
func IsExtractable(v any) bool {
	return NativeEnv.classify(v)
}

// Any returns a classifier matching values that any of cs matches.
// Nil entries are ignored.
func Any(cs ...Classifier) Classifier {
	return func(v any) bool {
		for _, c := range cs {
			if c != nil && c(v) {
				return true
			}
		}
		return false
	}
}

// KindOf reports the handle kind of v, or false when v is not a
// non-nil handle.
func KindOf(v any) (Kind, bool) {
	h, ok := v.(Handle)
	if !ok || !IsExtractable(v) {
		return "", false
	}
	return h.Kind(), true
}
