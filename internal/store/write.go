package store

import (
	"context"
	"fmt"

	"github.com/roach88/docq/internal/docstore"
	"github.com/roach88/docq/internal/field"
	"github.com/roach88/docq/internal/index"
	"github.com/roach88/docq/internal/query"
	"github.com/roach88/docq/internal/querysql"
	"github.com/roach88/docq/internal/value"
)

// Insert stores docs in one transaction. A document without "_id" gets a
// UUIDv7 string identity. Reusing an identity fails with
// docstore.ErrDuplicateID and stores nothing.
func (s *Store) Insert(ctx context.Context, collection string, docs ...docstore.Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("insert: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	ids := make([]string, 0, len(docs))
	for i, doc := range docs {
		stored := make(value.Object, len(doc)+1)
		for k, v := range doc {
			stored[k] = v
		}
		if _, ok := stored[field.IDField]; !ok {
			stored[field.IDField] = value.String(docstore.NewRequestID())
		}
		id, ok := docstore.IDString(stored[field.IDField])
		if !ok {
			return nil, fmt.Errorf("insert: document %d: _id must be a string or integer", i)
		}

		body, err := value.Marshal(stored)
		if err != nil {
			return nil, fmt.Errorf("insert: document %d: %w", i, err)
		}
		stmt, params := s.compiler.CompileInsert(collection, idKey(stored[field.IDField]), body)
		s.trace(ctx, "insert", collection, stmt, params)

		if _, err := tx.ExecContext(ctx, stmt, params...); err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("insert %q: %w", id, docstore.ErrDuplicateID)
			}
			return nil, fmt.Errorf("insert %q: %w", id, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("insert: commit: %w", err)
	}
	return ids, nil
}

// UpdateOne applies u to the first matching document in insertion order.
func (s *Store) UpdateOne(ctx context.Context, collection string, u query.Update) (int64, error) {
	stmt, params, err := s.compiler.CompileUpdateOne(collection, u)
	if err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}
	s.trace(ctx, "update", collection, stmt, params)

	result, err := s.db.ExecContext(ctx, stmt, params...)
	if err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}
	return result.RowsAffected()
}

// DeleteOne removes the first document matching f in insertion order.
func (s *Store) DeleteOne(ctx context.Context, collection string, f query.Filter) (int64, error) {
	stmt, params, err := s.compiler.CompileDeleteOne(collection, f)
	if err != nil {
		return 0, fmt.Errorf("delete: %w", err)
	}
	s.trace(ctx, "delete", collection, stmt, params)

	result, err := s.db.ExecContext(ctx, stmt, params...)
	if err != nil {
		return 0, fmt.Errorf("delete: %w", err)
	}
	return result.RowsAffected()
}

// CreateIndex creates an expression index for spec and returns its SQLite
// name. Creating the same index twice is a no-op.
func (s *Store) CreateIndex(ctx context.Context, collection string, spec index.Spec) (string, error) {
	stmt, err := s.compiler.CompileCreateIndex(collection, spec)
	if err != nil {
		return "", fmt.Errorf("create index: %w", err)
	}
	s.trace(ctx, "create_index", collection, stmt, nil)

	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return "", fmt.Errorf("create index: %w", err)
	}
	return querysql.IndexName(collection, spec), nil
}

// idKey is the id column value of an identity. Integers are bound as
// integers so they never collide with the string of the same digits.
func idKey(v value.Value) any {
	if n, ok := v.(value.Int); ok {
		return int64(n)
	}
	id, _ := docstore.IDString(v)
	return id
}
