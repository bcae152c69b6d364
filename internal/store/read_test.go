package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docq/internal/field"
	"github.com/roach88/docq/internal/pipeline"
	"github.com/roach88/docq/internal/query"
	"github.com/roach88/docq/internal/value"
)

var listFields = []string{"title", "author", "price"}

func find(t *testing.T, s *Store, b *query.Builder) []value.Object {
	t.Helper()
	q, err := b.Build()
	require.NoError(t, err)
	docs, err := s.Find(context.Background(), "books", q)
	require.NoError(t, err)
	return docs
}

func TestFind_AllDocumentsInInsertionOrder(t *testing.T) {
	s := seededStore(t)

	docs := find(t, s, query.NewBuilder())
	require.Len(t, docs, 16)
	assert.Equal(t, value.String("b01"), docs[0]["_id"])
	assert.Equal(t, value.String("b16"), docs[15]["_id"])
}

func TestFind_Genre(t *testing.T) {
	s := seededStore(t)

	docs := find(t, s, query.NewBuilder().WithFilter("genre", query.OpEq, value.String("Fiction")))
	assert.Equal(t, []string{
		"To Kill a Mockingbird",
		"The Great Gatsby",
		"The Catcher in the Rye",
		"The Alchemist",
		"The Midnight Library",
	}, titles(docs))
}

func TestFind_PublishedAfter(t *testing.T) {
	s := seededStore(t)

	docs := find(t, s, query.NewBuilder().WithFilter("published_year", query.OpGt, value.Int(1950)))
	assert.Len(t, docs, 7)
	for _, d := range docs {
		assert.Greater(t, int64(d["published_year"].(value.Int)), int64(1950))
	}
}

func TestFind_Author(t *testing.T) {
	s := seededStore(t)

	docs := find(t, s, query.NewBuilder().WithFilter("author", query.OpEq, value.String("George Orwell")))
	assert.Equal(t, []string{"1984", "Animal Farm", "Homage to Catalonia"}, titles(docs))
}

func TestFind_InStockAndRecentWithProjection(t *testing.T) {
	s := seededStore(t)

	docs := find(t, s, query.NewBuilder().
		WithFilter("in_stock", query.OpEq, value.Bool(true)).
		WithFilter("published_year", query.OpGt, value.Int(2010)).
		WithProjection(listFields, query.Include).
		ExcludeID())

	assert.Equal(t, []value.Object{
		{"title": value.String("The Midnight Library"), "author": value.String("Matt Haig"), "price": value.Float(14.50)},
		{"title": value.String("Circe"), "author": value.String("Madeline Miller"), "price": value.Float(13.99)},
	}, docs)
}

func TestFind_SortByPrice(t *testing.T) {
	s := seededStore(t)

	asc := find(t, s, query.NewBuilder().
		WithProjection(listFields, query.Include).
		ExcludeID().
		WithSort("price", field.Ascending))
	require.Len(t, asc, 16)
	assert.Equal(t, []string{
		"Pride and Prejudice",
		"Animal Farm",
		"The Catcher in the Rye",
		"The Great Gatsby",
		"Wuthering Heights",
	}, titles(asc[:5]), "equal prices keep insertion order")

	desc := find(t, s, query.NewBuilder().
		WithProjection(listFields, query.Include).
		ExcludeID().
		WithSort("price", field.Descending))
	assert.Equal(t, []string{
		"The Lord of the Rings",
		"Project Hail Mary",
		"The Hobbit",
		"The Midnight Library",
		"Circe",
	}, titles(desc[:5]))
}

func TestFind_Pagination(t *testing.T) {
	s := seededStore(t)

	page := func(skip int64) []string {
		return titles(find(t, s, query.NewBuilder().
			WithProjection(listFields, query.Include).
			ExcludeID().
			WithPage(skip, 5)))
	}

	assert.Equal(t, []string{
		"To Kill a Mockingbird", "1984", "The Great Gatsby", "Brave New World", "The Hobbit",
	}, page(0))
	assert.Equal(t, []string{
		"The Catcher in the Rye", "Pride and Prejudice", "The Lord of the Rings", "Animal Farm", "The Alchemist",
	}, page(5))
	assert.Len(t, page(15), 1)
	assert.Empty(t, page(20))
}

func TestFind_RangeAndNotEqual(t *testing.T) {
	s := seededStore(t)

	docs := find(t, s, query.NewBuilder().
		WithFilter("price", query.OpGte, value.Float(10)).
		WithFilter("price", query.OpLt, value.Float(12)).
		WithFilter("genre", query.OpNe, value.String("Dystopian")))
	assert.Equal(t, []string{"The Alchemist", "Homage to Catalonia"}, titles(docs))
}

func TestFind_TypeBracketing(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, err := s.Insert(ctx, "mixed",
		value.Object{"_id": value.String("n"), "year": value.Int(2000)},
		value.Object{"_id": value.String("s"), "year": value.String("2000")},
		value.Object{"_id": value.String("missing")},
	)
	require.NoError(t, err)

	q := query.NewBuilder().WithFilter("year", query.OpGt, value.Int(1990)).MustBuild()
	docs, err := s.Find(ctx, "mixed", q)
	require.NoError(t, err)
	require.Len(t, docs, 1, "strings never compare greater than numbers")
	assert.Equal(t, value.String("n"), docs[0]["_id"])

	q = query.NewBuilder().WithFilter("year", query.OpNe, value.Int(2000)).MustBuild()
	docs, err = s.Find(ctx, "mixed", q)
	require.NoError(t, err)
	assert.Len(t, docs, 2, "$ne matches other types and missing fields")

	q = query.NewBuilder().WithFilter("year", query.OpEq, value.Null{}).MustBuild()
	docs, err = s.Find(ctx, "mixed", q)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, value.String("missing"), docs[0]["_id"])
}

func TestFind_CollectionsAreIsolated(t *testing.T) {
	s := seededStore(t)

	docs, err := s.Find(context.Background(), "authors", query.NewBuilder().MustBuild())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func aggregate(t *testing.T, s *Store, b *pipeline.Builder) []value.Object {
	t.Helper()
	p, err := b.Build()
	require.NoError(t, err)
	docs, err := s.Aggregate(context.Background(), "books", p)
	require.NoError(t, err)
	return docs
}

func number(t *testing.T, v value.Value) float64 {
	t.Helper()
	switch n := v.(type) {
	case value.Int:
		return float64(n)
	case value.Float:
		return float64(n)
	}
	t.Fatalf("not a number: %#v", v)
	return 0
}

func TestAggregate_AveragePriceByGenre(t *testing.T) {
	s := seededStore(t)

	docs := aggregate(t, s, pipeline.NewBuilder().
		Group(pipeline.ByField("genre"), pipeline.Avg("averagePrice", "price")))
	require.Len(t, docs, 9)

	assert.Equal(t, value.String("Fiction"), docs[0]["_id"], "groups come out in first-seen order")
	assert.InDelta(t, 11.492, number(t, docs[0]["averagePrice"]), 1e-9)
	assert.Equal(t, value.String("Dystopian"), docs[1]["_id"])
	assert.InDelta(t, 11.245, number(t, docs[1]["averagePrice"]), 1e-9)
	assert.Equal(t, value.String("Memoir"), docs[8]["_id"])
}

func TestAggregate_AuthorWithMostBooks(t *testing.T) {
	s := seededStore(t)

	docs := aggregate(t, s, pipeline.NewBuilder().
		Group(pipeline.ByField("author"), pipeline.Count("bookCount")).
		SortBy("bookCount", field.Descending).
		Limit(1))

	assert.Equal(t, []value.Object{
		{"_id": value.String("George Orwell"), "bookCount": value.Int(3)},
	}, docs)
}

func TestAggregate_BooksPerDecade(t *testing.T) {
	s := seededStore(t)

	docs := aggregate(t, s, pipeline.NewBuilder().
		Group(pipeline.Derive(pipeline.Floor(pipeline.Divide(pipeline.Field("published_year"), pipeline.Int(10)))),
			pipeline.Count("count")).
		SortBy("_id", field.Ascending))

	type bucket struct{ decade, count int64 }
	var got []bucket
	for _, d := range docs {
		got = append(got, bucket{int64(number(t, d["_id"])), int64(number(t, d["count"]))})
	}
	assert.Equal(t, []bucket{
		{181, 1}, {184, 1}, {185, 1}, {192, 1}, {193, 3}, {194, 2},
		{195, 2}, {196, 1}, {198, 1}, {201, 1}, {202, 2},
	}, got)
}

func TestAggregate_MatchSumAndNullKey(t *testing.T) {
	s := seededStore(t)

	inStock := query.NewBuilder().WithFilter("in_stock", query.OpEq, value.Bool(false)).MustBuild().Filter
	docs := aggregate(t, s, pipeline.NewBuilder().
		Match(inStock).
		Group(pipeline.All(), pipeline.Count("n"), pipeline.Sum("total", "price")))

	require.Len(t, docs, 1)
	assert.Equal(t, value.Null{}, docs[0]["_id"])
	assert.Equal(t, value.Int(4), docs[0]["n"])
	assert.InDelta(t, 11.50+8.50+12.50+16.99, number(t, docs[0]["total"]), 1e-9)
}

func TestAggregate_EmptyMatchKeepsEverything(t *testing.T) {
	s := seededStore(t)

	docs := aggregate(t, s, pipeline.NewBuilder().
		Match(query.Filter{}).
		Group(pipeline.All(), pipeline.Count("n")))

	assert.Equal(t, []value.Object{{"_id": value.Null{}, "n": value.Int(16)}}, docs)
}

func TestAggregate_BooleanGroupKey(t *testing.T) {
	s := seededStore(t)

	docs := aggregate(t, s, pipeline.NewBuilder().
		Group(pipeline.ByField("in_stock"), pipeline.Count("n")).
		SortBy("_id", field.Ascending))

	assert.Equal(t, []value.Object{
		{"_id": value.Bool(false), "n": value.Int(4)},
		{"_id": value.Bool(true), "n": value.Int(12)},
	}, docs)
}

func TestAggregate_GroupKeyKeepsTypesApart(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, "mixed",
		value.Object{"_id": value.String("a"), "k": value.Bool(true)},
		value.Object{"_id": value.String("b"), "k": value.Int(1)},
		value.Object{"_id": value.String("c"), "k": value.String("true")},
		value.Object{"_id": value.String("d"), "k": value.Null{}},
		value.Object{"_id": value.String("e")},
	)
	require.NoError(t, err)

	p := pipeline.NewBuilder().Group(pipeline.ByField("k"), pipeline.Count("n")).MustBuild()
	docs, err := s.Aggregate(ctx, "mixed", p)
	require.NoError(t, err)

	assert.Equal(t, []value.Object{
		{"_id": value.Bool(true), "n": value.Int(1)},
		{"_id": value.Int(1), "n": value.Int(1)},
		{"_id": value.String("true"), "n": value.Int(1)},
		{"_id": value.Null{}, "n": value.Int(2)},
	}, docs)
}

func TestAggregate_NullKeyOverEmptyInput(t *testing.T) {
	s := createTestStore(t)

	p := pipeline.NewBuilder().Group(pipeline.All(), pipeline.Count("n")).MustBuild()
	docs, err := s.Aggregate(context.Background(), "books", p)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestExplain_ReportsIndexUse(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	hobbit := query.NewBuilder().WithFilter("title", query.OpEq, value.String("The Hobbit")).MustBuild()

	before, err := s.Explain(ctx, "books", hobbit)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", before.Backend)
	require.NotEmpty(t, before.Steps)
	assert.False(t, before.UsesIndex("docq_books_title_1"))

	spec, err := indexOn("title")
	require.NoError(t, err)
	name, err := s.CreateIndex(ctx, "books", spec)
	require.NoError(t, err)
	assert.Equal(t, "docq_books_title_1", name)

	after, err := s.Explain(ctx, "books", hobbit)
	require.NoError(t, err)
	assert.True(t, after.UsesIndex(name), "plan: %+v", after.Steps)

	docs, err := s.Find(ctx, "books", hobbit)
	require.NoError(t, err)
	assert.Equal(t, []string{"The Hobbit"}, titles(docs))
}
