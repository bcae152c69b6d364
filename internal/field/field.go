// Package field holds the field-name vocabulary shared by queries,
// aggregation pipelines and index declarations.
package field

import (
	"fmt"
	"strings"
)

// IDField is the identity field every stored document carries.
const IDField = "_id"

// Path is a validated dotted or simple field name, e.g. "title" or
// "author.name". The zero value is invalid; obtain paths through Parse.
type Path string

// InvalidFieldError reports a field path that cannot name a document field.
type InvalidFieldError struct {
	Path   string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Path, e.Reason)
}

// Parse validates s as a field path.
//
// Rules:
//   - non-empty
//   - no leading or trailing dot
//   - no empty segment ("a..b")
//   - no segment starting with '$' (reserved for operators)
func Parse(s string) (Path, error) {
	if s == "" {
		return "", &InvalidFieldError{Path: s, Reason: "empty path"}
	}
	if strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") {
		return "", &InvalidFieldError{Path: s, Reason: "leading or trailing dot"}
	}
	for _, seg := range strings.Split(s, ".") {
		if seg == "" {
			return "", &InvalidFieldError{Path: s, Reason: "empty segment"}
		}
		if strings.HasPrefix(seg, "$") {
			return "", &InvalidFieldError{Path: s, Reason: "segment starts with '$'"}
		}
	}
	return Path(s), nil
}

// MustParse is like Parse but panics on error.
// Use only in tests or with literals known to be valid.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the path text.
func (p Path) String() string {
	return string(p)
}

// Segments splits the path on dots.
func (p Path) Segments() []string {
	return strings.Split(string(p), ".")
}

// IsTopLevel reports whether the path has a single segment.
func (p Path) IsTopLevel() bool {
	return !strings.Contains(string(p), ".")
}
