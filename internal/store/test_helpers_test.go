package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/docq/internal/docstore"
	"github.com/roach88/docq/internal/value"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func book(id, title, author, genre string, year int64, price float64, inStock bool) docstore.Document {
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

// bookstore is the sample collection every end-to-end test runs against.
func bookstore() []docstore.Document {
	return []docstore.Document{
		book("b01", "To Kill a Mockingbird", "Harper Lee", "Fiction", 1960, 12.99, true),
		book("b02", "1984", "George Orwell", "Dystopian", 1949, 10.99, true),
		book("b03", "The Great Gatsby", "F. Scott Fitzgerald", "Fiction", 1925, 9.99, true),
		book("b04", "Brave New World", "Aldous Huxley", "Dystopian", 1932, 11.50, false),
		book("b05", "The Hobbit", "J.R.R. Tolkien", "Fantasy", 1937, 14.99, true),
		book("b06", "The Catcher in the Rye", "J.D. Salinger", "Fiction", 1951, 8.99, true),
		book("b07", "Pride and Prejudice", "Jane Austen", "Romance", 1813, 7.99, true),
		book("b08", "The Lord of the Rings", "J.R.R. Tolkien", "Fantasy", 1954, 19.99, true),
		book("b09", "Animal Farm", "George Orwell", "Political Satire", 1945, 8.50, false),
		book("b10", "The Alchemist", "Paulo Coelho", "Fiction", 1988, 10.99, true),
		book("b11", "Moby Dick", "Herman Melville", "Adventure", 1851, 12.50, false),
		book("b12", "Wuthering Heights", "Emily Brontë", "Gothic Fiction", 1847, 9.99, true),
		book("b13", "The Midnight Library", "Matt Haig", "Fiction", 2020, 14.50, true),
		book("b14", "Project Hail Mary", "Andy Weir", "Science Fiction", 2021, 16.99, false),
		book("b15", "Circe", "Madeline Miller", "Fantasy", 2018, 13.99, true),
		book("b16", "Homage to Catalonia", "George Orwell", "Memoir", 1938, 11.99, true),
	}
}

// seededStore returns a store holding the bookstore collection "books".
func seededStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	_, err := s.Insert(context.Background(), "books", bookstore()...)
	require.NoError(t, err)
	return s
}

func titles(docs []docstore.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = string(d["title"].(value.String))
	}
	return out
}
