package query

import (
	"strings"

	"github.com/roach88/docq/internal/field"
	"github.com/roach88/docq/internal/value"
)

// Operator is a comparison applied to one field.
//
// OpEq is bare equality: on the wire it is the literal itself
// ({genre: "Fiction"}), never {genre: {$eq: "Fiction"}}.
type Operator string

const (
	OpEq  Operator = "eq"
	OpNe  Operator = "ne"
	OpGt  Operator = "gt"
	OpGte Operator = "gte"
	OpLt  Operator = "lt"
	OpLte Operator = "lte"
)

// Operators lists every supported operator in canonical order.
var Operators = []Operator{OpEq, OpNe, OpGt, OpGte, OpLt, OpLte}

// Valid reports whether o is a supported operator.
func (o Operator) Valid() bool {
	for _, known := range Operators {
		if o == known {
			return true
		}
	}
	return false
}

// IsRange reports whether o bounds a value (gt, gte, lt, lte).
func (o Operator) IsRange() bool {
	switch o {
	case OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

// ParseOperator accepts the operator name with or without the "$" prefix,
// plus the symbolic forms "=", "!=", ">", ">=", "<" and "<=".
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "=", "==":
		return OpEq, nil
	case "!=", "<>":
		return OpNe, nil
	case ">":
		return OpGt, nil
	case ">=":
		return OpGte, nil
	case "<":
		return OpLt, nil
	case "<=":
		return OpLte, nil
	}
	op := Operator(strings.TrimPrefix(strings.ToLower(s), "$"))
	if !op.Valid() {
		return "", &InvalidOperatorError{Operator: Operator(s)}
	}
	return op, nil
}

// Comparison is one operator/value pair.
type Comparison struct {
	Op    Operator
	Value value.Value
}

// FieldCondition holds every comparison recorded for one field.
// An equality condition always has exactly one comparison.
type FieldCondition struct {
	Field       field.Path
	Comparisons []Comparison
}

// IsEquality reports whether the condition is a bare equality.
func (c FieldCondition) IsEquality() bool {
	return len(c.Comparisons) == 1 && c.Comparisons[0].Op == OpEq
}

// Filter is an ordered conjunction of field conditions.
// Each field appears at most once; order follows the first WithFilter call
// for that field.
type Filter struct {
	Conditions []FieldCondition
}

// IsEmpty reports whether the filter matches every document.
func (f Filter) IsEmpty() bool {
	return len(f.Conditions) == 0
}

// Len returns the number of filtered fields.
func (f Filter) Len() int {
	return len(f.Conditions)
}

// Condition returns the condition recorded for p.
func (f Filter) Condition(p field.Path) (FieldCondition, bool) {
	for _, c := range f.Conditions {
		if c.Field == p {
			return c, true
		}
	}
	return FieldCondition{}, false
}

// ProjectionMode selects whether projection fields are kept or dropped.
type ProjectionMode string

const (
	Include ProjectionMode = "include"
	Exclude ProjectionMode = "exclude"
)

// Projection is the subset of fields returned for each matched document.
// The zero value returns whole documents.
type Projection struct {
	Mode       ProjectionMode
	Fields     []field.Path
	SuppressID bool
}

// IsEmpty reports whether the projection returns whole documents.
func (p Projection) IsEmpty() bool {
	return len(p.Fields) == 0 && !p.SuppressID
}

// Page restricts the window of results.
// Skip 0 means no skip and Limit 0 means unbounded.
type Page struct {
	Skip  int64
	Limit int64
}

// IsUnbounded reports whether the page restricts nothing.
func (p Page) IsUnbounded() bool {
	return p.Skip == 0 && p.Limit == 0
}

// Query is an immutable find descriptor.
type Query struct {
	Filter     Filter
	Projection Projection
	Sort       []field.SortKey
	Page       Page
}

// clone deep-copies q so that builder state never leaks into a built value.
func (q Query) clone() Query {
	out := Query{
		Filter: q.Filter.clone(),
		Projection: Projection{
			Mode:       q.Projection.Mode,
			Fields:     append([]field.Path(nil), q.Projection.Fields...),
			SuppressID: q.Projection.SuppressID,
		},
		Sort: append([]field.SortKey(nil), q.Sort...),
		Page: q.Page,
	}
	return out
}

func (f Filter) clone() Filter {
	if len(f.Conditions) == 0 {
		return Filter{}
	}
	out := Filter{Conditions: make([]FieldCondition, len(f.Conditions))}
	for i, c := range f.Conditions {
		out.Conditions[i] = FieldCondition{
			Field:       c.Field,
			Comparisons: append([]Comparison(nil), c.Comparisons...),
		}
	}
	return out
}
