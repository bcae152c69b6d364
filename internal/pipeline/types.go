package pipeline

import (
	"github.com/roach88/docq/internal/field"
	"github.com/roach88/docq/internal/query"
	"github.com/roach88/docq/internal/value"
)

// Stage is one step of a pipeline.
//
// This is a sealed interface - only Group, Sort, Limit and Match implement it.
type Stage interface {
	stageNode() // Marker method - seals interface to this package
}

// Group buckets documents by Key and computes Accumulators per bucket.
// The bucket key is emitted as the identity field "_id".
type Group struct {
	Key          KeyExpr
	Accumulators []Accumulator
}

func (Group) stageNode() {}

// Sort orders documents. The first key is the primary key.
type Sort struct {
	Keys []field.SortKey
}

func (Sort) stageNode() {}

// Limit keeps the first N documents.
type Limit struct {
	N int64
}

func (Limit) stageNode() {}

// Match keeps documents satisfying Filter.
type Match struct {
	Filter query.Filter
}

func (Match) stageNode() {}

// Pipeline is an immutable, ordered sequence of stages.
type Pipeline struct {
	Stages []Stage
}

// Len returns the number of stages.
func (p Pipeline) Len() int {
	return len(p.Stages)
}

// AccumulatorOp is a per-group aggregate computation.
type AccumulatorOp string

const (
	OpSum   AccumulatorOp = "sum"
	OpAvg   AccumulatorOp = "avg"
	OpCount AccumulatorOp = "count"
)

// Valid reports whether op is sum, avg or count.
func (op AccumulatorOp) Valid() bool {
	return op == OpSum || op == OpAvg || op == OpCount
}

// Accumulator computes one output field of a Group stage.
// Count ignores Source.
type Accumulator struct {
	Name   string
	Op     AccumulatorOp
	Source field.Path
}

// Sum totals source per group.
func Sum(name, source string) Accumulator {
	return Accumulator{Name: name, Op: OpSum, Source: field.Path(source)}
}

// Avg averages source per group.
func Avg(name, source string) Accumulator {
	return Accumulator{Name: name, Op: OpAvg, Source: field.Path(source)}
}

// Count counts documents per group.
func Count(name string) Accumulator {
	return Accumulator{Name: name, Op: OpCount}
}

// KeyExpr is the grouping key of a Group stage.
//
// This is a sealed interface - only FieldKey, NullKey and Derived implement it.
type KeyExpr interface {
	keyExpr()
}

// FieldKey groups by the value of one field ({_id: "$genre"}).
type FieldKey struct {
	Field field.Path
}

func (FieldKey) keyExpr() {}

// NullKey puts every document in one group ({_id: null}).
type NullKey struct{}

func (NullKey) keyExpr() {}

// Derived groups by an arithmetic expression over fields.
type Derived struct {
	Expr Expr
}

func (Derived) keyExpr() {}

// ByField groups by path.
func ByField(path string) KeyExpr {
	return FieldKey{Field: field.Path(path)}
}

// All groups every document together.
func All() KeyExpr {
	return NullKey{}
}

// Derive wraps an arithmetic expression as a grouping key, e.g. the decade
// bucket Derive(Floor(Divide(Field("published_year"), Int(10)))).
func Derive(expr Expr) KeyExpr {
	return Derived{Expr: expr}
}

// Expr is an arithmetic expression over document fields.
//
// This is a sealed interface - only FieldRef, Const, Binary and FloorOf
// implement it.
type Expr interface {
	exprNode()
}

// FieldRef reads a numeric field.
type FieldRef struct {
	Field field.Path
}

func (FieldRef) exprNode() {}

// Const is a numeric literal (value.Int or value.Float).
type Const struct {
	Value value.Value
}

func (Const) exprNode() {}

// ArithOp is a binary arithmetic operator.
type ArithOp string

const (
	OpAdd      ArithOp = "add"
	OpSubtract ArithOp = "subtract"
	OpMultiply ArithOp = "multiply"
	OpDivide   ArithOp = "divide"
)

// Binary applies Op to Left and Right.
type Binary struct {
	Op    ArithOp
	Left  Expr
	Right Expr
}

func (Binary) exprNode() {}

// FloorOf rounds Arg down to the nearest integer.
type FloorOf struct {
	Arg Expr
}

func (FloorOf) exprNode() {}

// Field references a document field inside an expression.
func Field(path string) Expr {
	return FieldRef{Field: field.Path(path)}
}

// Int is an integer constant.
func Int(n int64) Expr {
	return Const{Value: value.Int(n)}
}

// Float is a floating point constant.
func Float(f float64) Expr {
	return Const{Value: value.Float(f)}
}

// Add returns left + right.
func Add(left, right Expr) Expr {
	return Binary{Op: OpAdd, Left: left, Right: right}
}

// Subtract returns left - right.
func Subtract(left, right Expr) Expr {
	return Binary{Op: OpSubtract, Left: left, Right: right}
}

// Multiply returns left * right.
func Multiply(left, right Expr) Expr {
	return Binary{Op: OpMultiply, Left: left, Right: right}
}

// Divide returns left / right.
func Divide(left, right Expr) Expr {
	return Binary{Op: OpDivide, Left: left, Right: right}
}

// Floor returns floor(arg).
func Floor(arg Expr) Expr {
	return FloorOf{Arg: arg}
}
