package catalog

import (
	"fmt"
	"strings"

	"github.com/roach88/docq/internal/field"
	"github.com/roach88/docq/internal/index"
	"github.com/roach88/docq/internal/pipeline"
	"github.com/roach88/docq/internal/query"
	"github.com/roach88/docq/internal/value"
)

// The source types mirror the file schema. Both decoders fill them: CUE
// through json tags, YAML through yaml tags.

type conditionSource struct {
	Field string `json:"field" yaml:"field"`
	Op    string `json:"op,omitempty" yaml:"op,omitempty"`
	Value any    `json:"value" yaml:"value"`
}

type sortSource struct {
	Field string `json:"field" yaml:"field"`
	Dir   string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

type projectionSource struct {
	Include   []string `json:"include,omitempty" yaml:"include,omitempty"`
	Exclude   []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	ExcludeID bool     `json:"exclude_id,omitempty" yaml:"exclude_id,omitempty"`
}

type findSource struct {
	Collection string            `json:"collection,omitempty" yaml:"collection,omitempty"`
	Filter     []conditionSource `json:"filter,omitempty" yaml:"filter,omitempty"`
	Projection *projectionSource `json:"projection,omitempty" yaml:"projection,omitempty"`
	Sort       []sortSource      `json:"sort,omitempty" yaml:"sort,omitempty"`
	Skip       int64             `json:"skip,omitempty" yaml:"skip,omitempty"`
	Limit      int64             `json:"limit,omitempty" yaml:"limit,omitempty"`
	Explain    bool              `json:"explain,omitempty" yaml:"explain,omitempty"`
}

type accumulatorSource struct {
	Name  string `json:"name" yaml:"name"`
	Op    string `json:"op" yaml:"op"`
	Field string `json:"field,omitempty" yaml:"field,omitempty"`
}

// groupSource keys by field with By, by an expression with Expr, or puts
// every document in one group when both are absent.
type groupSource struct {
	By           string              `json:"by,omitempty" yaml:"by,omitempty"`
	Expr         any                 `json:"expr,omitempty" yaml:"expr,omitempty"`
	Accumulators []accumulatorSource `json:"accumulators" yaml:"accumulators"`
}

type stageSource struct {
	Group *groupSource      `json:"group,omitempty" yaml:"group,omitempty"`
	Sort  *sortSource       `json:"sort,omitempty" yaml:"sort,omitempty"`
	Limit *int64            `json:"limit,omitempty" yaml:"limit,omitempty"`
	Match []conditionSource `json:"match,omitempty" yaml:"match,omitempty"`
}

type aggregateSource struct {
	Collection string        `json:"collection,omitempty" yaml:"collection,omitempty"`
	Pipeline   []stageSource `json:"pipeline" yaml:"pipeline"`
}

type indexSource struct {
	Collection string       `json:"collection,omitempty" yaml:"collection,omitempty"`
	Keys       []sortSource `json:"keys" yaml:"keys"`
	Name       string       `json:"name,omitempty" yaml:"name,omitempty"`
	Unique     bool         `json:"unique,omitempty" yaml:"unique,omitempty"`
}

type assignmentSource struct {
	Field string `json:"field" yaml:"field"`
	Value any    `json:"value" yaml:"value"`
}

type updateSource struct {
	Collection string             `json:"collection,omitempty" yaml:"collection,omitempty"`
	Filter     []conditionSource  `json:"filter,omitempty" yaml:"filter,omitempty"`
	Set        []assignmentSource `json:"set" yaml:"set"`
}

type deleteSource struct {
	Collection string            `json:"collection,omitempty" yaml:"collection,omitempty"`
	Filter     []conditionSource `json:"filter,omitempty" yaml:"filter,omitempty"`
}

func applyConditions(b *query.Builder, conds []conditionSource) error {
	for _, c := range conds {
		op := query.OpEq
		if c.Op != "" {
			parsed, err := query.ParseOperator(c.Op)
			if err != nil {
				return fmt.Errorf("filter %s: %w", c.Field, err)
			}
			op = parsed
		}
		v, err := value.Of(c.Value)
		if err != nil {
			return fmt.Errorf("filter %s: %w", c.Field, err)
		}
		b.WithFilter(c.Field, op, v)
	}
	return nil
}

func compileFilter(conds []conditionSource) (query.Filter, error) {
	b := query.NewBuilder()
	if err := applyConditions(b, conds); err != nil {
		return query.Filter{}, err
	}
	q, err := b.Build()
	if err != nil {
		return query.Filter{}, err
	}
	return q.Filter, nil
}

func parseDirection(s string) (field.Direction, error) {
	return field.ParseDirection(strings.ToLower(s))
}

func compileFind(src findSource) (query.Query, error) {
	b := query.NewBuilder()
	if err := applyConditions(b, src.Filter); err != nil {
		return query.Query{}, err
	}
	if p := src.Projection; p != nil {
		if len(p.Include) > 0 {
			b.WithProjection(p.Include, query.Include)
		}
		if len(p.Exclude) > 0 {
			b.WithProjection(p.Exclude, query.Exclude)
		}
		if p.ExcludeID {
			b.ExcludeID()
		}
	}
	for _, s := range src.Sort {
		dir, err := parseDirection(s.Dir)
		if err != nil {
			return query.Query{}, fmt.Errorf("sort %s: %w", s.Field, err)
		}
		b.WithSort(s.Field, dir)
	}
	if src.Skip != 0 {
		b.WithSkip(src.Skip)
	}
	if src.Limit != 0 {
		b.WithLimit(src.Limit)
	}
	return b.Build()
}

func compileAggregate(src aggregateSource) (pipeline.Pipeline, error) {
	b := pipeline.NewBuilder()
	for i, st := range src.Pipeline {
		set := 0
		if st.Group != nil {
			set++
		}
		if st.Sort != nil {
			set++
		}
		if st.Limit != nil {
			set++
		}
		if st.Match != nil {
			set++
		}
		if set != 1 {
			return pipeline.Pipeline{}, fmt.Errorf("stage %d: want exactly one of group, sort, limit or match", i)
		}

		switch {
		case st.Group != nil:
			key, err := groupKey(st.Group)
			if err != nil {
				return pipeline.Pipeline{}, fmt.Errorf("stage %d: %w", i, err)
			}
			accs := make([]pipeline.Accumulator, 0, len(st.Group.Accumulators))
			for _, a := range st.Group.Accumulators {
				accs = append(accs, pipeline.Accumulator{
					Name:   a.Name,
					Op:     pipeline.AccumulatorOp(strings.TrimPrefix(strings.ToLower(a.Op), "$")),
					Source: field.Path(a.Field),
				})
			}
			b.Group(key, accs...)
		case st.Sort != nil:
			dir, err := parseDirection(st.Sort.Dir)
			if err != nil {
				return pipeline.Pipeline{}, fmt.Errorf("stage %d: %w", i, err)
			}
			b.SortBy(st.Sort.Field, dir)
		case st.Limit != nil:
			b.Limit(*st.Limit)
		case st.Match != nil:
			f, err := compileFilter(st.Match)
			if err != nil {
				return pipeline.Pipeline{}, fmt.Errorf("stage %d: %w", i, err)
			}
			b.Match(f)
		}
	}
	return b.Build()
}

func groupKey(g *groupSource) (pipeline.KeyExpr, error) {
	switch {
	case g.By != "" && g.Expr != nil:
		return nil, fmt.Errorf("group: by and expr are exclusive")
	case g.By != "":
		return pipeline.ByField(strings.TrimPrefix(g.By, "$")), nil
	case g.Expr != nil:
		e, err := parseExpr(g.Expr)
		if err != nil {
			return nil, fmt.Errorf("group expr: %w", err)
		}
		return pipeline.Derive(e), nil
	default:
		return pipeline.All(), nil
	}
}

// parseExpr reads the document-store expression syntax: "$field" is a
// field reference, numbers are constants and single-key objects apply an
// operator, e.g. {floor: {divide: ["$published_year", 10]}}. Operator
// names may carry a leading "$".
func parseExpr(raw any) (pipeline.Expr, error) {
	switch x := raw.(type) {
	case string:
		if !strings.HasPrefix(x, "$") {
			return nil, fmt.Errorf("field reference %q must start with $", x)
		}
		return pipeline.Field(x[1:]), nil
	case map[string]any:
		if len(x) != 1 {
			return nil, fmt.Errorf("operator object must have exactly one key, got %d", len(x))
		}
		for name, arg := range x {
			return parseOperator(strings.TrimPrefix(name, "$"), arg)
		}
	}

	v, err := value.Of(raw)
	if err != nil {
		return nil, err
	}
	switch n := v.(type) {
	case value.Int:
		return pipeline.Int(int64(n)), nil
	case value.Float:
		return pipeline.Float(float64(n)), nil
	default:
		return nil, fmt.Errorf("unsupported expression %v", raw)
	}
}

func parseOperator(name string, arg any) (pipeline.Expr, error) {
	if name == "floor" {
		inner, err := parseExpr(arg)
		if err != nil {
			return nil, fmt.Errorf("floor: %w", err)
		}
		return pipeline.Floor(inner), nil
	}

	var build func(l, r pipeline.Expr) pipeline.Expr
	switch name {
	case "divide":
		build = pipeline.Divide
	case "multiply":
		build = pipeline.Multiply
	case "add":
		build = pipeline.Add
	case "subtract":
		build = pipeline.Subtract
	default:
		return nil, fmt.Errorf("unknown operator %q", name)
	}
	args, ok := arg.([]any)
	if !ok || len(args) != 2 {
		return nil, fmt.Errorf("%s: want two arguments", name)
	}
	left, err := parseExpr(args[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	right, err := parseExpr(args[1])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return build(left, right), nil
}

func compileIndex(src indexSource) (index.Spec, error) {
	keys := make([]field.SortKey, 0, len(src.Keys))
	for _, k := range src.Keys {
		dir, err := parseDirection(k.Dir)
		if err != nil {
			return index.Spec{}, fmt.Errorf("key %s: %w", k.Field, err)
		}
		keys = append(keys, field.SortKey{Field: field.Path(k.Field), Direction: dir})
	}
	spec, err := index.Compound(keys...)
	if err != nil {
		return index.Spec{}, err
	}
	if src.Name != "" {
		spec = spec.WithName(src.Name)
	}
	if src.Unique {
		spec = spec.AsUnique()
	}
	return spec, nil
}

func compileUpdate(src updateSource) (query.Update, error) {
	f, err := compileFilter(src.Filter)
	if err != nil {
		return query.Update{}, err
	}
	u := query.NewUpdate(f)
	for _, a := range src.Set {
		v, err := value.Of(a.Value)
		if err != nil {
			return query.Update{}, fmt.Errorf("set %s: %w", a.Field, err)
		}
		u.Set(a.Field, v)
	}
	return u.Build()
}
