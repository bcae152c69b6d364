// Package index describes secondary index specifications.
//
// A Spec is an ordered list of field/direction keys, the first being the
// most significant. Specs are values: WithName and AsUnique return copies.
package index

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/docq/internal/field"
	"github.com/roach88/docq/internal/query"
	"github.com/roach88/docq/internal/value"
)

// ErrInvalidDirection is returned for a key direction other than
// field.Ascending or field.Descending.
var ErrInvalidDirection = errors.New("invalid index direction")

// EmptyIndexError reports a compound index with no keys.
type EmptyIndexError struct{}

func (e *EmptyIndexError) Error() string {
	return "index must have at least one key"
}

// DuplicateIndexFieldError reports a field listed twice in one index.
type DuplicateIndexFieldError struct {
	Field field.Path
}

func (e *DuplicateIndexFieldError) Error() string {
	return fmt.Sprintf("field %q appears more than once in index", e.Field)
}

// Spec is an index specification.
type Spec struct {
	Keys   []field.SortKey
	name   string
	unique bool
}

// SingleField returns a one-key index on path.
func SingleField(path string, dir field.Direction) (Spec, error) {
	p, err := field.Parse(path)
	if err != nil {
		return Spec{}, err
	}
	return Compound(field.SortKey{Field: p, Direction: dir})
}

// Compound returns an index over keys in the given order.
func Compound(keys ...field.SortKey) (Spec, error) {
	if len(keys) == 0 {
		return Spec{}, &EmptyIndexError{}
	}
	out := make([]field.SortKey, 0, len(keys))
	seen := make(map[field.Path]bool, len(keys))
	for _, k := range keys {
		p, err := field.Parse(string(k.Field))
		if err != nil {
			return Spec{}, err
		}
		if !k.Direction.Valid() {
			return Spec{}, fmt.Errorf("%w: %d on %q", ErrInvalidDirection, k.Direction, p)
		}
		if seen[p] {
			return Spec{}, &DuplicateIndexFieldError{Field: p}
		}
		seen[p] = true
		out = append(out, field.SortKey{Field: p, Direction: k.Direction})
	}
	return Spec{Keys: out}, nil
}

// MustCompound is like Compound but panics on error.
func MustCompound(keys ...field.SortKey) Spec {
	s, err := Compound(keys...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the explicit name or the conventional one derived from the
// keys, e.g. "author_1_published_year_1".
func (s Spec) Name() string {
	if s.name != "" {
		return s.name
	}
	parts := make([]string, 0, 2*len(s.Keys))
	for _, k := range s.Keys {
		parts = append(parts, k.Field.String(), strconv.Itoa(int(k.Direction)))
	}
	return strings.Join(parts, "_")
}

// WithName returns a copy of s with an explicit name.
func (s Spec) WithName(name string) Spec {
	s.Keys = append([]field.SortKey(nil), s.Keys...)
	s.name = name
	return s
}

// AsUnique returns a copy of s that rejects duplicate key tuples.
func (s Spec) AsUnique() Spec {
	s.Keys = append([]field.SortKey(nil), s.Keys...)
	s.unique = true
	return s
}

// Unique reports whether the index rejects duplicate key tuples.
func (s Spec) Unique() bool {
	return s.unique
}

// Fields returns the indexed fields in key order.
func (s Spec) Fields() []field.Path {
	out := make([]field.Path, len(s.Keys))
	for i, k := range s.Keys {
		out[i] = k.Field
	}
	return out
}

// Canonical returns the specification as a value.Object.
func (s Spec) Canonical() value.Object {
	return value.Object{
		"keys":   query.SortCanonical(s.Keys),
		"name":   value.String(s.Name()),
		"unique": value.Bool(s.unique),
	}
}

// Fingerprint returns a stable SHA-256 identity for s.
func (s Spec) Fingerprint() (string, error) {
	return value.Fingerprint(value.DomainIndex, s.Canonical())
}
