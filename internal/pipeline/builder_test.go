package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docq/internal/field"
	"github.com/roach88/docq/internal/query"
	"github.com/roach88/docq/internal/value"
)

func decadeKey() KeyExpr {
	return Derive(Floor(Divide(Field("published_year"), Int(10))))
}

func TestBuilder_BooksPerDecade(t *testing.T) {
	// [{ $group: { _id: { $floor: { $divide: ["$published_year", 10] } },
	//              count: { $sum: 1 } } },
	//  { $sort: { _id: 1 } }]
	p, err := NewBuilder().
		Group(decadeKey(), Count("count")).
		SortBy("_id", field.Ascending).
		Build()
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())

	group, ok := p.Stages[0].(Group)
	require.True(t, ok, "first stage is a group")
	derived, ok := group.Key.(Derived)
	require.True(t, ok)
	assert.Equal(t, []field.Path{"published_year"}, ExprFields(derived.Expr))
	assert.Equal(t, []Accumulator{{Name: "count", Op: OpCount}}, group.Accumulators)

	sort, ok := p.Stages[1].(Sort)
	require.True(t, ok, "second stage is a sort")
	assert.Equal(t, []field.SortKey{field.Asc("_id")}, sort.Keys)
}

func TestBuilder_AuthorWithMostBooks(t *testing.T) {
	p, err := NewBuilder().
		Group(ByField("author"), Count("book_count")).
		SortBy("book_count", field.Descending).
		Limit(1).
		Build()
	require.NoError(t, err)
	require.Equal(t, 3, p.Len())

	assert.Equal(t, FieldKey{Field: "author"}, p.Stages[0].(Group).Key)
	assert.Equal(t, field.Descending, p.Stages[1].(Sort).Keys[0].Direction)
	assert.Equal(t, Limit{N: 1}, p.Stages[2])
}

func TestBuilder_AveragePriceByGenre(t *testing.T) {
	p, err := NewBuilder().
		Group(ByField("genre"), Avg("avg_price", "price"), Sum("total", "price"), Count("n")).
		Build()
	require.NoError(t, err)

	accs := p.Stages[0].(Group).Accumulators
	require.Len(t, accs, 3)
	assert.Equal(t, Accumulator{Name: "avg_price", Op: OpAvg, Source: "price"}, accs[0])
	assert.Equal(t, Accumulator{Name: "total", Op: OpSum, Source: "price"}, accs[1])
	assert.Equal(t, Accumulator{Name: "n", Op: OpCount}, accs[2])
}

func TestBuilder_NullKey(t *testing.T) {
	p, err := NewBuilder().Group(All(), Avg("avg", "price")).Build()
	require.NoError(t, err)
	assert.Equal(t, NullKey{}, p.Stages[0].(Group).Key)
}

func TestBuilder_InvalidLimit(t *testing.T) {
	for _, n := range []int64{0, -3} {
		_, err := NewBuilder().Limit(n).Build()
		var limitErr *InvalidLimitError
		require.ErrorAs(t, err, &limitErr)
		assert.Equal(t, n, limitErr.N)
	}
}

func TestBuilder_DuplicateAccumulator(t *testing.T) {
	_, err := NewBuilder().Group(ByField("genre"), Count("n"), Sum("n", "price")).Build()
	var dup *DuplicateAccumulatorError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "n", dup.Name)
}

func TestBuilder_AccumulatorNameRules(t *testing.T) {
	for _, name := range []string{"_id", "a.b", "", "$x"} {
		_, err := NewBuilder().Group(All(), Count(name)).Build()
		var fieldErr *field.InvalidFieldError
		assert.ErrorAs(t, err, &fieldErr, "name %q", name)
	}
}

func TestBuilder_InvalidStages(t *testing.T) {
	tests := []struct {
		name string
		b    *Builder
	}{
		{"nil key", NewBuilder().Group(nil, Count("n"))},
		{"constant key", NewBuilder().Group(Derive(Int(1)), Count("n"))},
		{"divide by zero", NewBuilder().Group(Derive(Divide(Field("x"), Int(0))), Count("n"))},
		{"string constant", NewBuilder().Group(Derive(Add(Field("x"), Const{Value: value.String("a")})), Count("n"))},
		{"unknown accumulator", NewBuilder().Group(All(), Accumulator{Name: "m", Op: "max", Source: "x"})},
		{"bad direction", NewBuilder().SortBy("x", field.Direction(2))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.b.Build()
			var stageErr *InvalidStageError
			assert.ErrorAs(t, err, &stageErr)
		})
	}
}

func TestBuilder_RepeatedSortStagesAllowed(t *testing.T) {
	p, err := NewBuilder().
		SortBy("price", field.Ascending).
		SortBy("price", field.Descending).
		Build()
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())
}

func TestBuilder_StickyError(t *testing.T) {
	b := NewBuilder().Limit(0).Group(ByField("genre"), Count("n"))
	require.Error(t, b.Err())

	_, err := b.Build()
	var limitErr *InvalidLimitError
	assert.ErrorAs(t, err, &limitErr)
}

func TestBuilder_MatchCopiesFilter(t *testing.T) {
	q := query.NewBuilder().WithFilter("in_stock", query.OpEq, value.Bool(true)).MustBuild()
	p := NewBuilder().Match(q.Filter).Group(All(), Count("n")).MustBuild()

	q.Filter.Conditions[0].Comparisons[0].Value = value.Bool(false)
	m := p.Stages[0].(Match)
	assert.Equal(t, value.Bool(true), m.Filter.Conditions[0].Comparisons[0].Value)
}

func TestBuilder_EmptyMatch(t *testing.T) {
	p, err := NewBuilder().Match(query.Filter{}).Group(All(), Count("n")).Build()
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())
	assert.True(t, p.Stages[0].(Match).Filter.IsEmpty())
}

func TestBuilder_MustBuildPanics(t *testing.T) {
	assert.Panics(t, func() { NewBuilder().Limit(-1).MustBuild() })
}

func TestPipeline_Fingerprint(t *testing.T) {
	build := func() Pipeline {
		return NewBuilder().
			Group(decadeKey(), Count("count")).
			SortBy("_id", field.Ascending).
			MustBuild()
	}
	a, err := build().Fingerprint()
	require.NoError(t, err)
	b, err := build().Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	other, err := NewBuilder().
		SortBy("_id", field.Ascending).
		Group(decadeKey(), Count("count")).
		MustBuild().Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, a, other, "stage order is significant")
}

func TestPipeline_Canonical(t *testing.T) {
	p := NewBuilder().
		Group(decadeKey(), Count("count")).
		Limit(5).
		MustBuild()

	got, err := value.MarshalCanonical(p.Canonical())
	require.NoError(t, err)
	want := `{"stages":[{"group":{"accumulators":[{"name":"count","op":"count"}],` +
		`"key":{"expr":{"args":[{"args":[{"field":"published_year"},{"const":10}],"op":"divide"}],"op":"floor"}}}},` +
		`{"limit":5}]}`
	assert.Equal(t, want, string(got))
}
