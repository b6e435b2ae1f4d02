package extract

import (
	"errors"
	"fmt"

	"github.com/wesm/extractfiles/file"
)

// ErrInvalidArgument is returned by New when an option is unusable.
var ErrInvalidArgument = errors.New("invalid argument")

// Extractor is a reusable extraction configuration. It is immutable
// and safe for concurrent use.
type Extractor struct {
	isFile file.Classifier
	prefix string
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithClassifier sets the predicate deciding what is a file.
func WithClassifier(c file.Classifier) Option {
	return func(e *Extractor) error {
		if c == nil {
			return fmt.Errorf("classifier is nil: %w", ErrInvalidArgument)
		}
		e.isFile = c
		return nil
	}
}

// WithEnv uses the default classifier restricted to the native
// handle kinds env provides.
func WithEnv(env file.Env) Option {
	return WithClassifier(env.Classifier())
}

// WithPrefix prefixes every recorded object path.
func WithPrefix(path string) Option {
	return func(e *Extractor) error {
		e.prefix = path
		return nil
	}
}

// New returns an Extractor. Without options it matches the default
// file kinds and records unprefixed paths.
func New(opts ...Option) (*Extractor, error) {
	e := &Extractor{isFile: file.IsExtractable}
	for i, opt := range opts {
		if opt == nil {
			return nil, fmt.Errorf(
				"option %d is nil: %w", i, ErrInvalidArgument,
			)
		}
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Extract clones v, replacing files with nil.
func (e *Extractor) Extract(v any) Result {
	return Extract(v, e.isFile, e.prefix)
}

// Prefix returns the configured path prefix.
func (e *Extractor) Prefix() string {
	return e.prefix
}
