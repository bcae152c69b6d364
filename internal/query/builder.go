package query

import (
	"github.com/roach88/docq/internal/field"
	"github.com/roach88/docq/internal/value"
)

// Builder accumulates a Query.
//
// Builder is not safe for concurrent use; build one per goroutine.
// After the first validation failure the builder is frozen: later calls are
// no-ops and Build returns that failure.
type Builder struct {
	q        Query
	byField  map[field.Path]int
	sortSeen map[field.Path]bool
	err      error
}

// NewBuilder returns an empty builder. An empty Query matches every document.
func NewBuilder() *Builder {
	return &Builder{
		byField:  make(map[field.Path]int),
		sortSeen: make(map[field.Path]bool),
	}
}

// Err returns the first validation failure, if any.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) fail(err error) *Builder {
	b.err = err
	return b
}

// WithFilter adds one comparison on path.
//
// Comparisons on the same field merge into one condition (e.g. gt and lt
// form a range). Equality excludes every other operator on that field and
// an operator is never applied twice; both cases fail with
// *ConflictingOperatorError. A nil v is treated as value.Null{}.
func (b *Builder) WithFilter(path string, op Operator, v value.Value) *Builder {
	if b.err != nil {
		return b
	}
	p, err := field.Parse(path)
	if err != nil {
		return b.fail(err)
	}
	if !op.Valid() {
		return b.fail(&InvalidOperatorError{Operator: op})
	}
	if v == nil {
		v = value.Null{}
	}

	idx, exists := b.byField[p]
	if !exists {
		b.byField[p] = len(b.q.Filter.Conditions)
		b.q.Filter.Conditions = append(b.q.Filter.Conditions, FieldCondition{
			Field:       p,
			Comparisons: []Comparison{{Op: op, Value: v}},
		})
		return b
	}

	cond := &b.q.Filter.Conditions[idx]
	for _, existing := range cond.Comparisons {
		if existing.Op == op || existing.Op == OpEq || op == OpEq {
			return b.fail(&ConflictingOperatorError{Field: p, Existing: existing.Op, Requested: op})
		}
	}
	cond.Comparisons = append(cond.Comparisons, Comparison{Op: op, Value: v})
	return b
}

// WithProjection adds fields in the given mode.
//
// Fails with *MixedProjectionError if the projection already uses the other
// mode. Excluding "_id" sets the identity-suppression flag instead of
// adding an entry, so {_id: 0} stays legal next to included fields.
// Repeated fields are kept once, in first-seen order.
func (b *Builder) WithProjection(fields []string, mode ProjectionMode) *Builder {
	if b.err != nil {
		return b
	}
	if mode != Include && mode != Exclude {
		return b.fail(ErrUnknownProjectionMode)
	}

	paths := make([]field.Path, 0, len(fields))
	for _, f := range fields {
		p, err := field.Parse(f)
		if err != nil {
			return b.fail(err)
		}
		if mode == Exclude && p == field.IDField {
			b.q.Projection.SuppressID = true
			continue
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		return b
	}

	if b.q.Projection.Mode != "" && b.q.Projection.Mode != mode {
		return b.fail(&MixedProjectionError{Current: b.q.Projection.Mode, Requested: mode})
	}
	b.q.Projection.Mode = mode

	for _, p := range paths {
		if !containsPath(b.q.Projection.Fields, p) {
			b.q.Projection.Fields = append(b.q.Projection.Fields, p)
		}
	}
	return b
}

// ExcludeID suppresses the identity field in results.
func (b *Builder) ExcludeID() *Builder {
	if b.err != nil {
		return b
	}
	b.q.Projection.SuppressID = true
	return b
}

// WithSort appends a sort key. The first key is the primary sort key.
// Fails with *DuplicateSortKeyError if path is already sorted.
func (b *Builder) WithSort(path string, dir field.Direction) *Builder {
	if b.err != nil {
		return b
	}
	p, err := field.Parse(path)
	if err != nil {
		return b.fail(err)
	}
	if !dir.Valid() {
		return b.fail(ErrInvalidDirection)
	}
	if b.sortSeen[p] {
		return b.fail(&DuplicateSortKeyError{Field: p})
	}
	b.sortSeen[p] = true
	b.q.Sort = append(b.q.Sort, field.SortKey{Field: p, Direction: dir})
	return b
}

// WithPage sets both skip and limit.
// Fails with *InvalidPageError if skip is negative or limit is not positive.
func (b *Builder) WithPage(skip, limit int64) *Builder {
	if b.err != nil {
		return b
	}
	if skip < 0 || limit <= 0 {
		return b.fail(&InvalidPageError{Skip: skip, Limit: limit})
	}
	b.q.Page = Page{Skip: skip, Limit: limit}
	return b
}

// WithSkip sets the skip and leaves the limit unchanged.
func (b *Builder) WithSkip(skip int64) *Builder {
	if b.err != nil {
		return b
	}
	if skip < 0 {
		return b.fail(&InvalidPageError{Skip: skip, Limit: b.q.Page.Limit})
	}
	b.q.Page.Skip = skip
	return b
}

// WithLimit sets the limit and leaves the skip unchanged.
func (b *Builder) WithLimit(limit int64) *Builder {
	if b.err != nil {
		return b
	}
	if limit <= 0 {
		return b.fail(&InvalidPageError{Skip: b.q.Page.Skip, Limit: limit})
	}
	b.q.Page.Limit = limit
	return b
}

// Build returns an immutable snapshot of the query.
// Build is pure: calling it twice yields equal values.
func (b *Builder) Build() (Query, error) {
	if b.err != nil {
		return Query{}, b.err
	}
	return b.q.clone(), nil
}

// MustBuild is like Build but panics on error.
// Use only in tests or with inputs known to be valid.
func (b *Builder) MustBuild() Query {
	q, err := b.Build()
	if err != nil {
		panic(err)
	}
	return q
}

func containsPath(paths []field.Path, p field.Path) bool {
	for _, existing := range paths {
		if existing == p {
			return true
		}
	}
	return false
}
