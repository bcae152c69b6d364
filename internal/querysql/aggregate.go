package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/docq/internal/pipeline"
	"github.com/roach88/docq/internal/value"
)

// CompileAggregate converts a pipeline to one SELECT returning a single
// JSON column doc.
// Returns (sql, params, error).
//
// Each stage wraps the previous one as a sub-select carrying (doc, ord):
// doc is the JSON document flowing through the pipeline and ord its
// position. Sort stages renumber ord with row_number(); group stages keep
// the smallest ord of their members, so groups come out in first-seen
// order. The outer query orders by ord.
func (c *SQLCompiler) CompileAggregate(collection string, p pipeline.Pipeline) (string, []any, error) {
	sql := fmt.Sprintf("SELECT body AS doc, seq AS ord FROM %s WHERE collection = ?", Table)
	params := []any{collection}

	for i, stage := range p.Stages {
		alias := "s" + strconv.Itoa(i)
		var err error
		var stageParams []any
		sql, stageParams, err = c.compileStage(sql, alias, stage)
		if err != nil {
			return "", nil, fmt.Errorf("stage %d: %w", i, err)
		}
		params = append(params, stageParams...)
	}

	return fmt.Sprintf("SELECT r.doc FROM (%s) AS r ORDER BY r.ord ASC", sql), params, nil
}

// compileStage wraps inner. Parameters of a stage always follow the inner
// statement in the SQL text.
func (c *SQLCompiler) compileStage(inner, alias string, s pipeline.Stage) (string, []any, error) {
	doc, ord := alias+".doc", alias+".ord"
	switch st := s.(type) {
	case pipeline.Match:
		where, params, err := c.CompileFilter(doc, st.Filter)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("SELECT %s AS doc, %s AS ord FROM (%s) AS %s WHERE %s",
			doc, ord, inner, alias, where), params, nil

	case pipeline.Sort:
		orderBy, err := c.orderBy(doc, st.Keys, ord)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("SELECT %s AS doc, row_number() OVER (ORDER BY %s) AS ord FROM (%s) AS %s",
			doc, orderBy, inner, alias), nil, nil

	case pipeline.Limit:
		return fmt.Sprintf("SELECT %s AS doc, %s AS ord FROM (%s) AS %s ORDER BY %s ASC LIMIT ?",
			doc, ord, inner, alias, ord),
			[]any{st.N}, nil

	case pipeline.Group:
		return c.compileGroup(inner, alias, doc, ord, st)

	default:
		return "", nil, fmt.Errorf("unsupported stage type: %T", s)
	}
}

func (c *SQLCompiler) compileGroup(inner, alias, doc, ord string, g pipeline.Group) (string, []any, error) {
	key, groupBy, err := keySQL(doc, g.Key)
	if err != nil {
		return "", nil, err
	}

	fields := []string{"'_id', " + key}
	for _, acc := range g.Accumulators {
		accSQL, err := accumulatorSQL(doc, acc)
		if err != nil {
			return "", nil, err
		}
		fields = append(fields, fmt.Sprintf("'%s', %s", strings.ReplaceAll(acc.Name, "'", "''"), accSQL))
	}

	grouping := " GROUP BY " + groupBy
	if _, isNull := g.Key.(pipeline.NullKey); isNull {
		grouping = " HAVING COUNT(*) > 0"
	}

	return fmt.Sprintf("SELECT json_object(%s) AS doc, MIN(%s) AS ord FROM (%s) AS %s%s",
		strings.Join(fields, ", "), ord, inner, alias, grouping), nil, nil
}

// keySQL returns the selected _id expression and the GROUP BY terms.
//
// A field key is selected as JSON so booleans stay booleans, and grouped
// by its value plus its JSON type so true and 1 land in different groups.
// Integers and reals share a type, as do null and a missing field.
func keySQL(doc string, k pipeline.KeyExpr) (string, string, error) {
	switch key := k.(type) {
	case pipeline.NullKey:
		return "NULL", "", nil
	case pipeline.FieldKey:
		ex, err := extract(doc, key.Field)
		if err != nil {
			return "", "", err
		}
		jt, err := jsonType(doc, key.Field)
		if err != nil {
			return "", "", err
		}
		selected := fmt.Sprintf("CASE %s WHEN 'true' THEN json('true') WHEN 'false' THEN json('false') ELSE %s END", jt, ex)
		typeClass := fmt.Sprintf("CASE %s WHEN 'integer' THEN 'real' WHEN 'null' THEN NULL ELSE %s END", jt, jt)
		return selected, ex + ", " + typeClass, nil
	case pipeline.Derived:
		expr, err := exprSQL(doc, key.Expr)
		if err != nil {
			return "", "", err
		}
		return expr, expr, nil
	default:
		return "", "", fmt.Errorf("unsupported group key type: %T", k)
	}
}

// exprSQL renders an arithmetic key expression. Constants are inlined so
// the GROUP BY expression is textually identical to the selected one.
//
// Division is always floating point. Floor is spelled with CAST because
// the math functions are not compiled into every SQLite build.
func exprSQL(doc string, e pipeline.Expr) (string, error) {
	switch x := e.(type) {
	case pipeline.FieldRef:
		return extract(doc, x.Field)
	case pipeline.Const:
		return numericLiteral(x.Value)
	case pipeline.Binary:
		left, err := exprSQL(doc, x.Left)
		if err != nil {
			return "", err
		}
		right, err := exprSQL(doc, x.Right)
		if err != nil {
			return "", err
		}
		switch x.Op {
		case pipeline.OpAdd:
			return fmt.Sprintf("(%s + %s)", left, right), nil
		case pipeline.OpSubtract:
			return fmt.Sprintf("(%s - %s)", left, right), nil
		case pipeline.OpMultiply:
			return fmt.Sprintf("(%s * %s)", left, right), nil
		case pipeline.OpDivide:
			return fmt.Sprintf("(CAST(%s AS REAL) / %s)", left, right), nil
		default:
			return "", fmt.Errorf("unsupported operator %q", x.Op)
		}
	case pipeline.FloorOf:
		arg, err := exprSQL(doc, x.Arg)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(CAST(%[1]s AS INTEGER) - (%[1]s < CAST(%[1]s AS INTEGER)))", arg), nil
	default:
		return "", fmt.Errorf("unsupported expression type: %T", e)
	}
}

func numericLiteral(v value.Value) (string, error) {
	switch n := v.(type) {
	case value.Int:
		return strconv.FormatInt(int64(n), 10), nil
	case value.Float:
		s := strconv.FormatFloat(float64(n), 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s, nil
	default:
		return "", fmt.Errorf("non-numeric constant %T", v)
	}
}

// accumulatorSQL renders one accumulator. Non-numeric source values are
// ignored; a sum over no numbers is 0 and an average over none is null.
func accumulatorSQL(doc string, acc pipeline.Accumulator) (string, error) {
	if acc.Op == pipeline.OpCount {
		return "COUNT(*)", nil
	}
	src, err := extract(doc, acc.Source)
	if err != nil {
		return "", err
	}
	typ, err := jsonType(doc, acc.Source)
	if err != nil {
		return "", err
	}
	numeric := fmt.Sprintf("CASE WHEN %s IN ('integer', 'real') THEN %s END", typ, src)
	switch acc.Op {
	case pipeline.OpSum:
		return fmt.Sprintf("COALESCE(SUM(%s), 0)", numeric), nil
	case pipeline.OpAvg:
		return fmt.Sprintf("AVG(%s)", numeric), nil
	default:
		return "", fmt.Errorf("unsupported accumulator %q", acc.Op)
	}
}
