// Package file defines the file handles that extraction treats as
// opaque leaves, and the classifiers that recognize them.
//
// A handle references binary content; it never holds or reads the
// content itself. Handles are compared by pointer identity, so two
// substitutes carrying the same URI are still two files.
package file

import "time"

// Kind identifies one of the recognized handle variants.
type Kind string

const (
	KindBlob       Kind = "blob"
	KindFile       Kind = "file"
	KindSubstitute Kind = "substitute"
)

// Handle is implemented by *Blob, *File and *Substitute only.
type Handle interface {
	Kind() Kind
	handle()
}

// Blob is a native binary payload handle.
type Blob struct {
	// Type is the MIME content type, empty when unknown.
	Type string
	// Size is the payload length in bytes.
	Size int64
}

// NewBlob returns a blob handle of the given size and content type.
func NewBlob(size int64, contentType string) *Blob {
	return &Blob{Type: contentType, Size: size}
}

func (*Blob) Kind() Kind { return KindBlob }
func (*Blob) handle()    {}

// File is a named blob.
type File struct {
	Blob
	Name    string
	ModTime time.Time
}

// NewFile returns a named file handle.
func NewFile(
	name, contentType string, size int64, modTime time.Time,
) *File {
	return &File{
		Blob:    Blob{Type: contentType, Size: size},
		Name:    name,
		ModTime: modTime,
	}
}

func (*File) Kind() Kind { return KindFile }
func (*File) handle()    {}

// Substitute stands in for a file where no native binary handle
// exists: the content lives at URI and is uploaded by whoever
// consumes the extraction result.
type Substitute struct {
	URI  string
	Name string
	Type string
}

// NewSubstitute returns a file substitute. name and typ may be empty.
func NewSubstitute(uri, name, typ string) *Substitute {
	return &Substitute{URI: uri, Name: name, Type: typ}
}

func (*Substitute) Kind() Kind { return KindSubstitute }
func (*Substitute) handle()    {}
