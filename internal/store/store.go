package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/docq/internal/docstore"
	"github.com/roach88/docq/internal/querysql"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added (collection, seq) index for collection scans
// 2 - id keeps the JSON type of _id, so 1 and "1" are distinct
const currentSchemaVersion = 2

// Store executes descriptors against a SQLite database.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db       *sql.DB
	compiler *querysql.SQLCompiler
	logger   *slog.Logger
}

var _ docstore.Executor = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for statement tracing at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{
		db:       db,
		compiler: querysql.NewSQLCompiler(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// trace logs one statement at debug level and returns its request id.
func (s *Store) trace(ctx context.Context, op, collection, stmt string, params []any) string {
	id := docstore.NewRequestID()
	s.logger.DebugContext(ctx, "sqlite statement",
		"request_id", id,
		"op", op,
		"collection", collection,
		"sql", stmt,
		"params", len(params),
	)
	return id
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if version < 2 {
		if err := migrateToV2(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the (collection, seq) index used by unsorted scans.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_documents_collection_seq
		ON documents(collection, seq)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// migrateToV2 rebuilds documents with an untyped id column. Integer
// identities stored as text are converted back; indexes are recreated.
func migrateToV2(db *sql.DB) error {
	var colType string
	err := db.QueryRow("SELECT type FROM pragma_table_info('documents') WHERE name = 'id'").Scan(&colType)
	if err != nil {
		return fmt.Errorf("migrate to v2: id column: %w", err)
	}
	if strings.EqualFold(colType, "BLOB") {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate to v2: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	rows, err := tx.Query("SELECT sql FROM sqlite_master WHERE type = 'index' AND tbl_name = 'documents' AND sql IS NOT NULL")
	if err != nil {
		return fmt.Errorf("migrate to v2: list indexes: %w", err)
	}
	var indexes []string
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			rows.Close()
			return fmt.Errorf("migrate to v2: list indexes: %w", err)
		}
		indexes = append(indexes, stmt)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("migrate to v2: list indexes: %w", err)
	}

	stmts := []string{
		`CREATE TABLE documents_v2 (
			seq        INTEGER PRIMARY KEY,
			collection TEXT NOT NULL,
			id         BLOB NOT NULL,
			body       TEXT NOT NULL CHECK (json_valid(body)),
			UNIQUE (collection, id)
		)`,
		`INSERT INTO documents_v2 (seq, collection, id, body)
			SELECT seq, collection,
				CASE json_type(body, '$."_id"') WHEN 'integer' THEN json_extract(body, '$."_id"') ELSE id END,
				body
			FROM documents`,
		"DROP TABLE documents",
		"ALTER TABLE documents_v2 RENAME TO documents",
	}
	for _, stmt := range append(stmts, indexes...) {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("migrate to v2: %w", err)
		}
	}
	return tx.Commit()
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
