// Package docstore defines the collaborator that executes descriptors
// against a document store.
//
// Executors are thin: they translate a descriptor to the backend's native
// form, run it once and return the results. They never retry and never
// reinterpret a descriptor.
package docstore

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/docq/internal/index"
	"github.com/roach88/docq/internal/pipeline"
	"github.com/roach88/docq/internal/query"
	"github.com/roach88/docq/internal/value"
)

// Document is one stored or produced document.
type Document = value.Object

// ErrDuplicateID is returned when an inserted document reuses an identity
// already present in its collection.
var ErrDuplicateID = errors.New("duplicate document id")

// Executor runs descriptors against one database.
// Implementations are safe for concurrent use.
type Executor interface {
	// Find returns the documents matching q, projected, sorted and paged.
	Find(ctx context.Context, collection string, q query.Query) ([]Document, error)

	// Aggregate runs p and returns its output documents in order.
	Aggregate(ctx context.Context, collection string, p pipeline.Pipeline) ([]Document, error)

	// CreateIndex declares spec on collection and returns the index name.
	// Declaring an existing index again is not an error.
	CreateIndex(ctx context.Context, collection string, spec index.Spec) (string, error)

	// Explain returns the backend's plan for q without running it.
	Explain(ctx context.Context, collection string, q query.Query) (ExplainReport, error)

	// Insert stores docs. A document without "_id" gets a generated one.
	// Returns the identities in input order.
	Insert(ctx context.Context, collection string, docs ...Document) ([]string, error)

	// UpdateOne applies u to the first matching document and returns the
	// number of documents matched (0 or 1).
	UpdateOne(ctx context.Context, collection string, u query.Update) (int64, error)

	// DeleteOne removes the first document matching f and returns the
	// number removed (0 or 1).
	DeleteOne(ctx context.Context, collection string, f query.Filter) (int64, error)

	// Close releases the connection.
	Close(ctx context.Context) error
}

// PlanStep is one line of a query plan.
type PlanStep struct {
	ID     int64  `json:"id"`
	Parent int64  `json:"parent"`
	Detail string `json:"detail"`
}

// ExplainReport is the backend's query plan, passed through as-is.
type ExplainReport struct {
	Backend string       `json:"backend"`
	Steps   []PlanStep   `json:"steps,omitempty"`
	Raw     value.Object `json:"raw,omitempty"`
}

// UsesIndex reports whether any plan step or the raw plan names the index.
func (r ExplainReport) UsesIndex(name string) bool {
	for _, s := range r.Steps {
		if strings.Contains(s.Detail, name) {
			return true
		}
	}
	if r.Raw == nil {
		return false
	}
	data, err := value.Marshal(r.Raw)
	if err != nil {
		return false
	}
	return strings.Contains(string(data), `"`+name+`"`)
}

// IDString returns the string form of a document identity.
// Strings are used as-is and integers in decimal; any other type has no
// string identity. 1 and "1" share a string form but remain distinct
// identities.
func IDString(v value.Value) (string, bool) {
	switch id := v.(type) {
	case value.String:
		return string(id), true
	case value.Int:
		return strconv.FormatInt(int64(id), 10), true
	default:
		return "", false
	}
}

// NewRequestID returns a time-ordered identifier for correlating the log
// lines of one executor call.
func NewRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
