package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/docq/internal/field"
	"github.com/roach88/docq/internal/query"
	"github.com/roach88/docq/internal/value"
)

// Table is the document table every statement targets.
//
//	documents(seq INTEGER PRIMARY KEY, collection TEXT, id BLOB, body TEXT)
//
// seq is the insertion order and the final tiebreaker of every ordering.
const Table = "documents"

// SQLCompiler compiles descriptors to parameterized SQL for SQLite.
//
// Every result-producing statement ends its ORDER BY with seq ASC, so equal
// sort keys always come back in insertion order. Every literal value is
// bound as a parameter; only JSON paths and numeric constants of group key
// expressions are inlined.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// CompileFind converts a find descriptor to a SELECT returning (id, body).
// Returns (sql, params, error).
//
// Projection is not compiled; callers apply query.Projection to each body.
func (c *SQLCompiler) CompileFind(collection string, q query.Query) (string, []any, error) {
	params := []any{collection}

	where := "collection = ?"
	if !q.Filter.IsEmpty() {
		filterSQL, filterParams, err := c.CompileFilter("body", q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		where += " AND " + filterSQL
		params = append(params, filterParams...)
	}

	orderBy, err := c.orderBy("body", q.Sort, "seq")
	if err != nil {
		return "", nil, fmt.Errorf("compile sort: %w", err)
	}

	sql := fmt.Sprintf("SELECT id, body FROM %s WHERE %s ORDER BY %s", Table, where, orderBy)

	switch {
	case q.Page.Limit > 0:
		sql += " LIMIT ? OFFSET ?"
		params = append(params, q.Page.Limit, q.Page.Skip)
	case q.Page.Skip > 0:
		sql += " LIMIT -1 OFFSET ?"
		params = append(params, q.Page.Skip)
	}

	return sql, params, nil
}

// CompileExplain wraps the find statement in EXPLAIN QUERY PLAN.
func (c *SQLCompiler) CompileExplain(collection string, q query.Query) (string, []any, error) {
	sql, params, err := c.CompileFind(collection, q)
	if err != nil {
		return "", nil, err
	}
	return "EXPLAIN QUERY PLAN " + sql, params, nil
}

// CompileFilter compiles a filter over the JSON column col to a WHERE
// fragment. Conditions and comparisons are joined with AND.
//
// Comparisons only match values of the same JSON type family, so
// {published_year: {$gt: 1950}} never matches a string year. $ne also
// matches documents where the field is missing or of another type.
func (c *SQLCompiler) CompileFilter(col string, f query.Filter) (string, []any, error) {
	if f.IsEmpty() {
		return "1 = 1", nil, nil
	}

	var parts []string
	var params []any
	for _, cond := range f.Conditions {
		for _, cmp := range cond.Comparisons {
			sql, cmpParams, err := c.compileComparison(col, cond.Field, cmp)
			if err != nil {
				return "", nil, fmt.Errorf("field %q: %w", cond.Field, err)
			}
			parts = append(parts, sql)
			params = append(params, cmpParams...)
		}
	}
	return strings.Join(parts, " AND "), params, nil
}

var sqlOperators = map[query.Operator]string{
	query.OpEq:  "=",
	query.OpNe:  "=",
	query.OpGt:  ">",
	query.OpGte: ">=",
	query.OpLt:  "<",
	query.OpLte: "<=",
}

func (c *SQLCompiler) compileComparison(col string, p field.Path, cmp query.Comparison) (string, []any, error) {
	expr, err := extract(col, p)
	if err != nil {
		return "", nil, err
	}

	if _, isNull := cmp.Value.(value.Null); isNull {
		switch cmp.Op {
		case query.OpEq, query.OpGte, query.OpLte:
			return expr + " IS NULL", nil, nil
		case query.OpNe:
			return expr + " IS NOT NULL", nil, nil
		default:
			return "1 = 0", nil, nil
		}
	}

	guard, err := typeGuard(col, p, cmp.Value)
	if err != nil {
		return "", nil, err
	}
	placeholder, param, err := valueParam(cmp.Value)
	if err != nil {
		return "", nil, err
	}
	op, ok := sqlOperators[cmp.Op]
	if !ok {
		return "", nil, fmt.Errorf("unsupported operator %q", cmp.Op)
	}

	match := fmt.Sprintf("%s AND %s %s %s", guard, expr, op, placeholder)
	if cmp.Op == query.OpNe {
		return fmt.Sprintf("NOT COALESCE(%s, 0)", match), []any{param}, nil
	}
	return "(" + match + ")", []any{param}, nil
}

// typeGuard restricts a comparison to values of v's JSON type family.
func typeGuard(col string, p field.Path, v value.Value) (string, error) {
	typ, err := jsonType(col, p)
	if err != nil {
		return "", err
	}
	switch v.(type) {
	case value.String:
		return typ + " = 'text'", nil
	case value.Int, value.Float:
		return typ + " IN ('integer', 'real')", nil
	case value.Bool:
		return typ + " IN ('true', 'false')", nil
	case value.Array:
		return typ + " = 'array'", nil
	case value.Object:
		return typ + " = 'object'", nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// valueParam converts a literal to a placeholder and its bound parameter.
// Arrays and objects are bound as JSON text and compared through json().
func valueParam(v value.Value) (string, any, error) {
	switch val := v.(type) {
	case value.Null:
		return "?", nil, nil
	case value.String:
		return "?", string(val), nil
	case value.Int:
		return "?", int64(val), nil
	case value.Float:
		return "?", float64(val), nil
	case value.Bool:
		return "?", bool(val), nil
	case value.Array, value.Object:
		data, err := value.Marshal(val)
		if err != nil {
			return "", nil, err
		}
		return "json(?)", string(data), nil
	default:
		return "", nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// orderBy renders sort keys over the JSON column col followed by the
// tiebreak column.
func (c *SQLCompiler) orderBy(col string, keys []field.SortKey, tiebreak string) (string, error) {
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		expr, err := extract(col, k.Field)
		if err != nil {
			return "", err
		}
		parts = append(parts, expr+" "+direction(k.Direction))
	}
	parts = append(parts, tiebreak+" ASC")
	return strings.Join(parts, ", "), nil
}

func direction(d field.Direction) string {
	if d == field.Descending {
		return "DESC"
	}
	return "ASC"
}
