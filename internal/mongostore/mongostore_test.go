package mongostore

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/roach88/docq/internal/bsonwire"
	"github.com/roach88/docq/internal/docstore"
	"github.com/roach88/docq/internal/field"
	"github.com/roach88/docq/internal/index"
	"github.com/roach88/docq/internal/pipeline"
	"github.com/roach88/docq/internal/query"
	"github.com/roach88/docq/internal/value"
)

func TestExplainCommand(t *testing.T) {
	q := query.NewBuilder().
		WithFilter("author", query.OpEq, value.String("George Orwell")).
		WithFilter("published_year", query.OpGt, value.Int(1940)).
		MustBuild()

	assert.Equal(t,
		`{explain: {find: "books", filter: {author: "George Orwell", published_year: {$gt: 1940}}}, verbosity: "executionStats"}`,
		bsonwire.Render(ExplainCommand("books", q)))
}

func TestOpen_RequiresDatabase(t *testing.T) {
	_, err := Open(context.Background(), Config{URI: "mongodb://localhost:27017"})
	assert.Error(t, err)
}

// openTestStore connects to DOCQ_MONGO_URI and returns a store over a
// throwaway database.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("DOCQ_MONGO_URI")
	if uri == "" {
		t.Skip("DOCQ_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s, err := Open(ctx, Config{URI: uri, Database: "docq_test_" + strconv.FormatInt(time.Now().UnixNano(), 36), Timeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx := context.Background()
		s.Database().Drop(ctx)
		s.Close(ctx)
	})
	return s
}

func book(id, title, author, genre string, year int64, price float64, inStock bool) value.Object {
	return value.Object{
		"_id":            value.String(id),
		"title":          value.String(title),
		"author":         value.String(author),
		"genre":          value.String(genre),
		"published_year": value.Int(year),
		"price":          value.Float(price),
		"in_stock":       value.Bool(inStock),
	}
}

func TestStore_Bookstore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ids, err := s.Insert(ctx, "books",
		book("b1", "1984", "George Orwell", "Dystopian", 1949, 10.99, true),
		book("b2", "The Hobbit", "J.R.R. Tolkien", "Fantasy", 1937, 14.99, true),
		book("b3", "Animal Farm", "George Orwell", "Political Satire", 1945, 8.50, false),
		book("b4", "Circe", "Madeline Miller", "Fantasy", 2018, 13.99, true),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2", "b3", "b4"}, ids)

	q := query.NewBuilder().
		WithFilter("in_stock", query.OpEq, value.Bool(true)).
		WithFilter("published_year", query.OpGt, value.Int(2010)).
		WithProjection([]string{"title", "author", "price"}, query.Include).
		ExcludeID().
		MustBuild()
	docs, err := s.Find(ctx, "books", q)
	require.NoError(t, err)
	assert.Equal(t, []value.Object{{
		"title":  value.String("Circe"),
		"author": value.String("Madeline Miller"),
		"price":  value.Float(13.99),
	}}, docs)

	top, err := s.Aggregate(ctx, "books", pipeline.NewBuilder().
		Group(pipeline.ByField("author"), pipeline.Count("bookCount")).
		SortBy("bookCount", field.Descending).
		Limit(1).
		MustBuild())
	require.NoError(t, err)
	assert.Equal(t, []value.Object{{"_id": value.String("George Orwell"), "bookCount": value.Int(2)}}, top)

	name, err := s.CreateIndex(ctx, "books", index.MustCompound(field.Asc("title")))
	require.NoError(t, err)
	assert.Equal(t, "title_1", name)

	hobbit := query.NewBuilder().WithFilter("title", query.OpEq, value.String("The Hobbit")).MustBuild()
	report, err := s.Explain(ctx, "books", hobbit)
	require.NoError(t, err)
	assert.True(t, report.UsesIndex(name))

	u, err := query.NewUpdate(hobbit.Filter).Set("price", value.Float(15.99)).Build()
	require.NoError(t, err)
	n, err := s.UpdateOne(ctx, "books", u)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	farm := query.NewBuilder().WithFilter("title", query.OpEq, value.String("Animal Farm")).MustBuild()
	n, err = s.DeleteOne(ctx, "books", farm.Filter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRepeatedID(t *testing.T) {
	i, ok := repeatedID(bson.A{"a", "b", "a"})
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = repeatedID(bson.A{int64(1), "1"})
	assert.False(t, ok, "an integer and a string are different identities")

	_, ok = repeatedID(bson.A{"a"})
	assert.False(t, ok)
}

func TestStore_InsertDuplicateStoresNothing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, "books", book("b1", "1984", "George Orwell", "Dystopian", 1949, 10.99, true))
	require.NoError(t, err)

	_, err = s.Insert(ctx, "books",
		book("b2", "The Hobbit", "J.R.R. Tolkien", "Fantasy", 1937, 14.99, true),
		book("b1", "1984", "George Orwell", "Dystopian", 1949, 10.99, true),
	)
	require.ErrorIs(t, err, docstore.ErrDuplicateID)

	_, err = s.Insert(ctx, "books",
		book("b3", "Circe", "Madeline Miller", "Fantasy", 2018, 13.99, true),
		book("b3", "Circe", "Madeline Miller", "Fantasy", 2018, 13.99, true),
	)
	require.ErrorIs(t, err, docstore.ErrDuplicateID)

	n, err := s.Database().Collection("books").CountDocuments(ctx, bson.D{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "failed batches store nothing")

	ids, err := s.Insert(ctx, "books",
		value.Object{"_id": value.Int(1)},
		value.Object{"_id": value.String("1")},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "1"}, ids)
}
