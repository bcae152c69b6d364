// Package mongostore executes descriptors against MongoDB using the
// official driver. Descriptors are translated by internal/bsonwire.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mopt "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roach88/docq/internal/bsonwire"
	"github.com/roach88/docq/internal/docstore"
	"github.com/roach88/docq/internal/field"
	"github.com/roach88/docq/internal/index"
	"github.com/roach88/docq/internal/pipeline"
	"github.com/roach88/docq/internal/query"
	"github.com/roach88/docq/internal/value"
)

// DefaultTimeout bounds connection and server selection.
const DefaultTimeout = 10 * time.Second

// Config holds connection settings.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Store executes descriptors against one MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

var _ docstore.Executor = (*Store)(nil)

// Open connects and pings the server.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Database == "" {
		return nil, errors.New("mongo: database name is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := mopt.Client().ApplyURI(cfg.URI)
	opts.SetConnectTimeout(timeout).SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return &Store{client: client, db: client.Database(cfg.Database), logger: logger}, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Database returns the underlying database handle.
func (s *Store) Database() *mongo.Database {
	return s.db
}

func (s *Store) trace(ctx context.Context, op, collection string, command any) string {
	id := docstore.NewRequestID()
	s.logger.DebugContext(ctx, "mongo command",
		"request_id", id,
		"op", op,
		"collection", collection,
		"command", bsonwire.Render(command),
	)
	return id
}

// Find runs q. Sorted queries get "_id" as the final tiebreaker.
func (s *Store) Find(ctx context.Context, collection string, q query.Query) ([]docstore.Document, error) {
	s.trace(ctx, "find", collection, bsonwire.EncodeFind(q))

	cursor, err := s.db.Collection(collection).Find(ctx, bsonwire.EncodeFilter(q.Filter), bsonwire.FindOptions(q))
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	return drain(ctx, cursor)
}

// Aggregate runs p.
func (s *Store) Aggregate(ctx context.Context, collection string, p pipeline.Pipeline) ([]docstore.Document, error) {
	stages := bsonwire.EncodePipeline(p)
	s.trace(ctx, "aggregate", collection, stages)

	cursor, err := s.db.Collection(collection).Aggregate(ctx, stages)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	return drain(ctx, cursor)
}

func drain(ctx context.Context, cursor *mongo.Cursor) ([]docstore.Document, error) {
	defer cursor.Close(ctx)

	var docs []docstore.Document
	for cursor.Next(ctx) {
		var raw bson.D
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		doc, err := bsonwire.DecodeDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor: %w", err)
	}
	return docs, nil
}

// CreateIndex creates spec and returns the server's index name.
func (s *Store) CreateIndex(ctx context.Context, collection string, spec index.Spec) (string, error) {
	model := bsonwire.EncodeIndex(spec)
	s.trace(ctx, "create_index", collection, model.Keys)

	name, err := s.db.Collection(collection).Indexes().CreateOne(ctx, model)
	if err != nil {
		return "", fmt.Errorf("create index: %w", err)
	}
	return name, nil
}

// Explain runs the explain command for q with executionStats verbosity.
func (s *Store) Explain(ctx context.Context, collection string, q query.Query) (docstore.ExplainReport, error) {
	cmd := ExplainCommand(collection, q)
	s.trace(ctx, "explain", collection, cmd)

	var raw bson.M
	if err := s.db.RunCommand(ctx, cmd).Decode(&raw); err != nil {
		return docstore.ExplainReport{}, fmt.Errorf("explain: %w", err)
	}
	plan, err := toObject(raw)
	if err != nil {
		return docstore.ExplainReport{}, fmt.Errorf("explain: %w", err)
	}
	return docstore.ExplainReport{Backend: "mongo", Raw: plan}, nil
}

// ExplainCommand builds {explain: {find, filter, ...}, verbosity}.
func ExplainCommand(collection string, q query.Query) bson.D {
	find := bson.D{{Key: "find", Value: collection}}
	find = append(find, bsonwire.EncodeFind(q)...)
	return bson.D{
		{Key: "explain", Value: find},
		{Key: "verbosity", Value: "executionStats"},
	}
}

// toObject converts an explain result through relaxed extended JSON, so
// server-only types such as timestamps survive as plain objects.
func toObject(raw bson.M) (value.Object, error) {
	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, err
	}
	return value.DecodeObject(data)
}

// Insert stores docs with InsertMany. Missing identities are generated
// client side so the returned ids are known before the write. A batch
// repeating an identity, or reusing a stored one, is rejected before
// anything is written.
func (s *Store) Insert(ctx context.Context, collection string, docs ...docstore.Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(docs))
	keys := make(bson.A, 0, len(docs))
	batch := make([]any, 0, len(docs))
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
		ids = append(ids, id)
		keys = append(keys, bsonwire.ToBSON(stored[field.IDField]))
		batch = append(batch, bsonwire.EncodeDocument(stored))
	}
	if i, ok := repeatedID(keys); ok {
		return nil, fmt.Errorf("insert %q: %w", ids[i], docstore.ErrDuplicateID)
	}

	coll := s.db.Collection(collection)
	existing := bson.D{{Key: field.IDField, Value: bson.D{{Key: "$in", Value: keys}}}}
	s.trace(ctx, "insert", collection, bson.D{{Key: "documents", Value: len(batch)}})

	n, err := coll.CountDocuments(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("insert: check identities: %w", err)
	}
	if n > 0 {
		return nil, fmt.Errorf("insert: %w", docstore.ErrDuplicateID)
	}

	// A concurrent writer can still claim an identity between the check
	// and the write; the server then rejects it.
	if _, err := coll.InsertMany(ctx, batch); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("insert: %w", docstore.ErrDuplicateID)
		}
		return nil, fmt.Errorf("insert: %w", err)
	}
	return ids, nil
}

// repeatedID returns the index of the first key equal to an earlier one.
// Keys are compared with their BSON type, so 1 and "1" differ.
func repeatedID(keys bson.A) (int, bool) {
	seen := make(map[any]struct{}, len(keys))
	for i, k := range keys {
		if _, dup := seen[k]; dup {
			return i, true
		}
		seen[k] = struct{}{}
	}
	return 0, false
}

// UpdateOne applies u with updateOne and returns the matched count.
func (s *Store) UpdateOne(ctx context.Context, collection string, u query.Update) (int64, error) {
	filter, update := bsonwire.EncodeUpdate(u)
	s.trace(ctx, "update", collection, bson.D{{Key: "filter", Value: filter}, {Key: "update", Value: update}})

	res, err := s.db.Collection(collection).UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}
	return res.MatchedCount, nil
}

// DeleteOne removes the first document matching f.
func (s *Store) DeleteOne(ctx context.Context, collection string, f query.Filter) (int64, error) {
	filter := bsonwire.EncodeFilter(f)
	s.trace(ctx, "delete", collection, filter)

	res, err := s.db.Collection(collection).DeleteOne(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("delete: %w", err)
	}
	return res.DeletedCount, nil
}
