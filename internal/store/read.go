package store

import (
	"context"
	"fmt"

	"github.com/roach88/docq/internal/docstore"
	"github.com/roach88/docq/internal/pipeline"
	"github.com/roach88/docq/internal/query"
	"github.com/roach88/docq/internal/value"
)

// Find returns the documents of collection matching q.
// Results are sorted by q's keys, then by insertion order.
func (s *Store) Find(ctx context.Context, collection string, q query.Query) ([]docstore.Document, error) {
	stmt, params, err := s.compiler.CompileFind(collection, q)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	reqID := s.trace(ctx, "find", collection, stmt, params)

	rows, err := s.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", reqID, err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("find: scan: %w", err)
		}
		doc, err := value.DecodeObject([]byte(body))
		if err != nil {
			return nil, fmt.Errorf("find: document %q: %w", id, err)
		}
		docs = append(docs, q.Projection.Apply(doc))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find: iterate rows: %w", err)
	}
	return docs, nil
}

// Aggregate runs p over collection.
func (s *Store) Aggregate(ctx context.Context, collection string, p pipeline.Pipeline) ([]docstore.Document, error) {
	stmt, params, err := s.compiler.CompileAggregate(collection, p)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	reqID := s.trace(ctx, "aggregate", collection, stmt, params)

	rows, err := s.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", reqID, err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("aggregate: scan: %w", err)
		}
		doc, err := value.DecodeObject([]byte(body))
		if err != nil {
			return nil, fmt.Errorf("aggregate: decode: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aggregate: iterate rows: %w", err)
	}
	return docs, nil
}

// Explain returns SQLite's EXPLAIN QUERY PLAN rows for the find statement.
func (s *Store) Explain(ctx context.Context, collection string, q query.Query) (docstore.ExplainReport, error) {
	stmt, params, err := s.compiler.CompileExplain(collection, q)
	if err != nil {
		return docstore.ExplainReport{}, fmt.Errorf("explain: %w", err)
	}
	s.trace(ctx, "explain", collection, stmt, params)

	rows, err := s.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return docstore.ExplainReport{}, fmt.Errorf("explain: %w", err)
	}
	defer rows.Close()

	report := docstore.ExplainReport{Backend: "sqlite"}
	for rows.Next() {
		var step docstore.PlanStep
		var notused int64
		if err := rows.Scan(&step.ID, &step.Parent, &notused, &step.Detail); err != nil {
			return docstore.ExplainReport{}, fmt.Errorf("explain: scan: %w", err)
		}
		report.Steps = append(report.Steps, step)
	}
	if err := rows.Err(); err != nil {
		return docstore.ExplainReport{}, fmt.Errorf("explain: iterate rows: %w", err)
	}
	return report, nil
}

// Count returns the number of documents in collection.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE collection = ?", collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}
