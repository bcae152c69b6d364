package bsonwire

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/roach88/docq/internal/index"
	"github.com/roach88/docq/internal/pipeline"
	"github.com/roach88/docq/internal/query"
)

// ShellFind renders q as a mongo shell call:
// db.books.find({genre: "Fiction"}, {title: 1}).sort({price: -1}).skip(5).limit(5).
// The sort is shown as written, without the "_id" tiebreaker FindOptions adds.
func ShellFind(collection string, q query.Query) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "db.%s.find(%s", collection, Render(EncodeFilter(q.Filter)))
	if proj := EncodeProjection(q.Projection); proj != nil {
		sb.WriteString(", ")
		sb.WriteString(Render(proj))
	}
	sb.WriteByte(')')
	if s := EncodeSort(q.Sort); s != nil {
		fmt.Fprintf(&sb, ".sort(%s)", Render(s))
	}
	if q.Page.Skip > 0 {
		fmt.Fprintf(&sb, ".skip(%d)", q.Page.Skip)
	}
	if q.Page.Limit > 0 {
		fmt.Fprintf(&sb, ".limit(%d)", q.Page.Limit)
	}
	return sb.String()
}

// ShellExplain renders the executionStats explain of q.
func ShellExplain(collection string, q query.Query) string {
	return ShellFind(collection, q) + `.explain("executionStats")`
}

// ShellAggregate renders p as db.<collection>.aggregate([...]).
func ShellAggregate(collection string, p pipeline.Pipeline) string {
	return fmt.Sprintf("db.%s.aggregate(%s)", collection, Render(EncodePipeline(p)))
}

// ShellCreateIndex renders spec as db.<collection>.createIndex(keys[, options]).
// Options appear only for a non-default name or a unique index.
func ShellCreateIndex(collection string, spec index.Spec) string {
	keys := Render(EncodeIndex(spec).Keys)
	var opts bson.D
	if spec.Name() != index.MustCompound(spec.Keys...).Name() {
		opts = append(opts, bson.E{Key: "name", Value: spec.Name()})
	}
	if spec.Unique() {
		opts = append(opts, bson.E{Key: "unique", Value: true})
	}
	if opts == nil {
		return fmt.Sprintf("db.%s.createIndex(%s)", collection, keys)
	}
	return fmt.Sprintf("db.%s.createIndex(%s, %s)", collection, keys, Render(opts))
}

// ShellUpdateOne renders u as db.<collection>.updateOne(filter, {$set: ...}).
func ShellUpdateOne(collection string, u query.Update) string {
	filter, update := EncodeUpdate(u)
	return fmt.Sprintf("db.%s.updateOne(%s, %s)", collection, Render(filter), Render(update))
}

// ShellDeleteOne renders db.<collection>.deleteOne(filter).
func ShellDeleteOne(collection string, f query.Filter) string {
	return fmt.Sprintf("db.%s.deleteOne(%s)", collection, Render(EncodeFilter(f)))
}
