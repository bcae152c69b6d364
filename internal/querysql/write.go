package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/docq/internal/index"
	"github.com/roach88/docq/internal/query"
	"github.com/roach88/docq/internal/value"
)

// IndexName returns the SQLite index name for s on collection. SQLite index
// names are global, so the collection is part of the name.
func IndexName(collection string, s index.Spec) string {
	return "docq_" + collection + "_" + s.Name()
}

// CompileCreateIndex converts an index spec to an expression index over
// (collection, json_extract(body, path)...). The key expressions are
// written exactly as CompileFind writes them so the planner can match them.
func (c *SQLCompiler) CompileCreateIndex(collection string, s index.Spec) (string, error) {
	if len(s.Keys) == 0 {
		return "", &index.EmptyIndexError{}
	}
	cols := []string{"collection"}
	for _, k := range s.Keys {
		expr, err := extract("body", k.Field)
		if err != nil {
			return "", err
		}
		cols = append(cols, expr+" "+direction(k.Direction))
	}

	create := "CREATE INDEX"
	if s.Unique() {
		create = "CREATE UNIQUE INDEX"
	}
	return fmt.Sprintf("%s IF NOT EXISTS %s ON %s (%s)",
		create, quoteIdent(IndexName(collection, s)), Table, strings.Join(cols, ", ")), nil
}

// CompileUpdateOne converts an update to a single-row UPDATE of the first
// matching document in insertion order.
// Returns (sql, params, error).
func (c *SQLCompiler) CompileUpdateOne(collection string, u query.Update) (string, []any, error) {
	if len(u.Set) == 0 {
		return "", nil, &query.EmptyUpdateError{}
	}

	setArgs := []string{"body"}
	var params []any
	for _, a := range u.Set {
		lit, err := PathLiteral(a.Field)
		if err != nil {
			return "", nil, err
		}
		placeholder, param, err := setParam(a.Value)
		if err != nil {
			return "", nil, fmt.Errorf("field %q: %w", a.Field, err)
		}
		setArgs = append(setArgs, lit, placeholder)
		params = append(params, param)
	}

	target, targetParams, err := c.firstMatch(collection, u.Filter)
	if err != nil {
		return "", nil, err
	}
	params = append(params, targetParams...)

	sql := fmt.Sprintf("UPDATE %s SET body = json_set(%s) WHERE seq = (%s)",
		Table, strings.Join(setArgs, ", "), target)
	return sql, params, nil
}

// CompileDeleteOne converts a filter to a DELETE of the first matching
// document in insertion order.
// Returns (sql, params, error).
func (c *SQLCompiler) CompileDeleteOne(collection string, f query.Filter) (string, []any, error) {
	target, params, err := c.firstMatch(collection, f)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("DELETE FROM %s WHERE seq = (%s)", Table, target), params, nil
}

// CompileInsert returns the INSERT for one document body. id is the
// identity as stored: a string, or an int64 for integer identities.
func (c *SQLCompiler) CompileInsert(collection string, id any, body []byte) (string, []any) {
	return fmt.Sprintf("INSERT INTO %s (collection, id, body) VALUES (?, ?, json(?))", Table),
		[]any{collection, id, string(body)}
}

func (c *SQLCompiler) firstMatch(collection string, f query.Filter) (string, []any, error) {
	where, params, err := c.CompileFilter("body", f)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	sql := fmt.Sprintf("SELECT seq FROM %s WHERE collection = ? AND %s ORDER BY seq ASC LIMIT 1", Table, where)
	return sql, append([]any{collection}, params...), nil
}

// setParam is valueParam for json_set: booleans, arrays and objects go
// through json() so they are stored as JSON rather than as 1/0 or text.
func setParam(v value.Value) (string, any, error) {
	switch v.(type) {
	case value.Bool, value.Array, value.Object:
		data, err := value.Marshal(v)
		if err != nil {
			return "", nil, err
		}
		return "json(?)", string(data), nil
	default:
		return valueParam(v)
	}
}
