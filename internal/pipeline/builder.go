package pipeline

import (
	"fmt"

	"github.com/roach88/docq/internal/field"
	"github.com/roach88/docq/internal/query"
	"github.com/roach88/docq/internal/value"
)

// Builder appends stages to a pipeline.
//
// Not safe for concurrent use. The first validation failure freezes the
// builder: later calls are no-ops, Err reports the failure and Build
// returns it.
type Builder struct {
	stages []Stage
	err    error
}

// NewBuilder returns an empty pipeline builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Err returns the first validation failure, if any.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) fail(err error) *Builder {
	b.err = err
	return b
}

// Group appends a Group stage.
//
// Accumulator names must be top-level fields other than "_id" and unique
// within the stage. Count accumulators ignore their source field.
func (b *Builder) Group(key KeyExpr, accumulators ...Accumulator) *Builder {
	if b.err != nil {
		return b
	}
	normalized, err := validateKey(key)
	if err != nil {
		return b.fail(err)
	}

	accs := make([]Accumulator, 0, len(accumulators))
	seen := make(map[string]bool, len(accumulators))
	for _, acc := range accumulators {
		checked, err := validateAccumulator(acc)
		if err != nil {
			return b.fail(err)
		}
		if seen[checked.Name] {
			return b.fail(&DuplicateAccumulatorError{Name: checked.Name})
		}
		seen[checked.Name] = true
		accs = append(accs, checked)
	}

	b.stages = append(b.stages, Group{Key: normalized, Accumulators: accs})
	return b
}

// SortBy appends a single-key Sort stage.
func (b *Builder) SortBy(path string, dir field.Direction) *Builder {
	if b.err != nil {
		return b
	}
	p, err := field.Parse(path)
	if err != nil {
		return b.fail(err)
	}
	if !dir.Valid() {
		return b.fail(&InvalidStageError{Stage: "sort", Reason: fmt.Sprintf("direction %d", dir)})
	}
	b.stages = append(b.stages, Sort{Keys: []field.SortKey{{Field: p, Direction: dir}}})
	return b
}

// Limit appends a Limit stage. Fails with *InvalidLimitError if n <= 0.
func (b *Builder) Limit(n int64) *Builder {
	if b.err != nil {
		return b
	}
	if n <= 0 {
		return b.fail(&InvalidLimitError{N: n})
	}
	b.stages = append(b.stages, Limit{N: n})
	return b
}

// Match appends a Match stage. Build filters with query.Builder; an
// empty filter passes every document through.
func (b *Builder) Match(filter query.Filter) *Builder {
	if b.err != nil {
		return b
	}
	b.stages = append(b.stages, Match{Filter: copyFilter(filter)})
	return b
}

// Build returns the stages exactly as appended.
func (b *Builder) Build() (Pipeline, error) {
	if b.err != nil {
		return Pipeline{}, b.err
	}
	return Pipeline{Stages: append([]Stage(nil), b.stages...)}, nil
}

// MustBuild is like Build but panics on error.
// Use only in tests or with inputs known to be valid.
func (b *Builder) MustBuild() Pipeline {
	p, err := b.Build()
	if err != nil {
		panic(err)
	}
	return p
}

func validateKey(key KeyExpr) (KeyExpr, error) {
	switch k := key.(type) {
	case nil:
		return nil, &InvalidStageError{Stage: "group", Reason: "missing key"}
	case NullKey:
		return k, nil
	case FieldKey:
		p, err := field.Parse(string(k.Field))
		if err != nil {
			return nil, err
		}
		return FieldKey{Field: p}, nil
	case Derived:
		if err := validateExpr(k.Expr); err != nil {
			return nil, err
		}
		if len(ExprFields(k.Expr)) == 0 {
			return nil, &InvalidStageError{Stage: "group", Reason: "derived key references no field"}
		}
		return k, nil
	default:
		return nil, &InvalidStageError{Stage: "group", Reason: fmt.Sprintf("unknown key type %T", key)}
	}
}

func validateExpr(e Expr) error {
	switch x := e.(type) {
	case nil:
		return &InvalidStageError{Stage: "group", Reason: "missing expression"}
	case FieldRef:
		_, err := field.Parse(string(x.Field))
		return err
	case Const:
		switch x.Value.(type) {
		case value.Int, value.Float:
			return nil
		default:
			return &InvalidStageError{Stage: "group", Reason: fmt.Sprintf("non-numeric constant %T", x.Value)}
		}
	case Binary:
		switch x.Op {
		case OpAdd, OpSubtract, OpMultiply, OpDivide:
		default:
			return &InvalidStageError{Stage: "group", Reason: fmt.Sprintf("unknown operator %q", x.Op)}
		}
		if err := validateExpr(x.Left); err != nil {
			return err
		}
		if err := validateExpr(x.Right); err != nil {
			return err
		}
		if x.Op == OpDivide && isZero(x.Right) {
			return &InvalidStageError{Stage: "group", Reason: "division by zero"}
		}
		return nil
	case FloorOf:
		return validateExpr(x.Arg)
	default:
		return &InvalidStageError{Stage: "group", Reason: fmt.Sprintf("unknown expression type %T", e)}
	}
}

func isZero(e Expr) bool {
	c, ok := e.(Const)
	if !ok {
		return false
	}
	switch v := c.Value.(type) {
	case value.Int:
		return v == 0
	case value.Float:
		return v == 0
	}
	return false
}

func validateAccumulator(acc Accumulator) (Accumulator, error) {
	name, err := field.Parse(acc.Name)
	if err != nil {
		return Accumulator{}, err
	}
	if !name.IsTopLevel() || name == field.IDField {
		return Accumulator{}, &field.InvalidFieldError{Path: acc.Name, Reason: "accumulator name must be a top-level field other than _id"}
	}
	if !acc.Op.Valid() {
		return Accumulator{}, &InvalidStageError{Stage: "group", Reason: fmt.Sprintf("unknown accumulator %q", acc.Op)}
	}
	if acc.Op == OpCount {
		return Accumulator{Name: acc.Name, Op: OpCount}, nil
	}
	src, err := field.Parse(string(acc.Source))
	if err != nil {
		return Accumulator{}, err
	}
	return Accumulator{Name: acc.Name, Op: acc.Op, Source: src}, nil
}

// ExprFields returns the fields referenced by e, in first-seen order.
func ExprFields(e Expr) []field.Path {
	var out []field.Path
	var walk func(Expr)
	walk = func(e Expr) {
		switch x := e.(type) {
		case FieldRef:
			for _, p := range out {
				if p == x.Field {
					return
				}
			}
			out = append(out, x.Field)
		case Binary:
			walk(x.Left)
			walk(x.Right)
		case FloorOf:
			walk(x.Arg)
		}
	}
	walk(e)
	return out
}

func copyFilter(f query.Filter) query.Filter {
	out := query.Filter{Conditions: make([]query.FieldCondition, len(f.Conditions))}
	for i, c := range f.Conditions {
		out.Conditions[i] = query.FieldCondition{
			Field:       c.Field,
			Comparisons: append([]query.Comparison(nil), c.Comparisons...),
		}
	}
	return out
}
