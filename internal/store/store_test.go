package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docq/internal/query"
	"github.com/roach88/docq/internal/value"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close(context.Background())

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close(context.Background())
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close(context.Background())

	var name string
	err = s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
		"documents",
	).Scan(&name)
	if err != nil {
		t.Errorf("documents table not found after idempotent opens: %v", err)
	}
}

func TestOpen_KeepsDocumentsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	if _, err := s1.Insert(ctx, "books", bookstore()...); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	s1.Close(ctx)

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close(ctx)

	n, err := s2.Count(ctx, "books")
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != int64(len(bookstore())) {
		t.Errorf("Count() = %d, want %d", n, len(bookstore()))
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL = 1
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.verifyPragma(tt.name, tt.expected); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestOpen_SchemaVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("query user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name=?",
		"idx_documents_collection_seq",
	).Scan(&name)
	if err != nil {
		t.Errorf("migration index not found: %v", err)
	}
}

func TestOpen_MigratesTextIdentities(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v1.db")

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE documents (
			seq        INTEGER PRIMARY KEY,
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			body       TEXT NOT NULL CHECK (json_valid(body)),
			UNIQUE (collection, id)
		)`,
		"CREATE INDEX idx_documents_collection_seq ON documents(collection, seq)",
		`CREATE INDEX docq_books_title_1 ON documents (json_extract(body, '$."title"')) WHERE collection = 'books'`,
		`INSERT INTO documents (collection, id, body) VALUES ('books', '1', '{"_id":1,"title":"one"}')`,
		`INSERT INTO documents (collection, id, body) VALUES ('books', 'b2', '{"_id":"b2","title":"two"}')`,
		"PRAGMA user_version = 1",
	} {
		_, err := raw.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, raw.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close(context.Background())

	var colType string
	require.NoError(t, s.db.QueryRow("SELECT type FROM pragma_table_info('documents') WHERE name = 'id'").Scan(&colType))
	assert.Equal(t, "BLOB", colType)

	var idType string
	require.NoError(t, s.db.QueryRow("SELECT typeof(id) FROM documents WHERE seq = 1").Scan(&idType))
	assert.Equal(t, "integer", idType)

	var name string
	require.NoError(t, s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name=?", "docq_books_title_1",
	).Scan(&name), "indexes survive the rebuild")

	docs, err := s.Find(context.Background(), "books", query.NewBuilder().MustBuild())
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, titles(docs))

	_, err = s.Insert(context.Background(), "books", value.Object{"_id": value.String("1")})
	assert.NoError(t, err)
}

func TestOpen_RejectsInvalidBody(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec("INSERT INTO documents (collection, id, body) VALUES ('books', 'x', 'not json')")
	if err == nil {
		t.Error("expected CHECK constraint failure for invalid JSON body")
	}
}
