package query

import (
	"github.com/roach88/docq/internal/field"
	"github.com/roach88/docq/internal/value"
)

// Assignment sets one field to a literal value.
type Assignment struct {
	Field field.Path
	Value value.Value
}

// Update is an immutable single-document update descriptor:
// the first document matching Filter receives every assignment in Set.
type Update struct {
	Filter Filter
	Set    []Assignment
}

// Canonical returns the update as a value.Object for fingerprinting.
func (u Update) Canonical() value.Object {
	set := make(value.Array, 0, len(u.Set))
	for _, a := range u.Set {
		set = append(set, value.Object{
			"field": value.String(a.Field.String()),
			"value": a.Value,
		})
	}
	return value.Object{
		"filter": u.Filter.Canonical(),
		"set":    set,
	}
}

// Fingerprint returns a stable SHA-256 identity for u.
func (u Update) Fingerprint() (string, error) {
	return value.Fingerprint(value.DomainUpdate, u.Canonical())
}

// UpdateBuilder accumulates an Update with the same sticky-error behaviour
// as Builder.
type UpdateBuilder struct {
	u    Update
	seen map[field.Path]bool
	err  error
}

// NewUpdate starts an update of the first document matching filter.
func NewUpdate(filter Filter) *UpdateBuilder {
	return &UpdateBuilder{
		u:    Update{Filter: filter.clone()},
		seen: make(map[field.Path]bool),
	}
}

// Err returns the first validation failure, if any.
func (u *UpdateBuilder) Err() error {
	return u.err
}

// Set assigns v to path. The identity field cannot be assigned and each
// path may be assigned once.
func (u *UpdateBuilder) Set(path string, v value.Value) *UpdateBuilder {
	if u.err != nil {
		return u
	}
	p, err := field.Parse(path)
	if err != nil {
		u.err = err
		return u
	}
	if p == field.IDField {
		u.err = &field.InvalidFieldError{Path: path, Reason: "identity field is immutable"}
		return u
	}
	if u.seen[p] {
		u.err = &DuplicateAssignmentError{Field: p}
		return u
	}
	if v == nil {
		v = value.Null{}
	}
	u.seen[p] = true
	u.u.Set = append(u.u.Set, Assignment{Field: p, Value: v})
	return u
}

// Build returns the update. Fails with *EmptyUpdateError when nothing is set.
func (u *UpdateBuilder) Build() (Update, error) {
	if u.err != nil {
		return Update{}, u.err
	}
	if len(u.u.Set) == 0 {
		return Update{}, &EmptyUpdateError{}
	}
	return Update{
		Filter: u.u.Filter.clone(),
		Set:    append([]Assignment(nil), u.u.Set...),
	}, nil
}
