package bsonwire

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roach88/docq/internal/field"
	"github.com/roach88/docq/internal/query"
)

// EncodeProjection renders {f: 1, ..., _id: 0} for include projections and
// {f: 0, ...} for exclude projections. Returns nil for an empty projection.
func EncodeProjection(p query.Projection) bson.D {
	if p.IsEmpty() {
		return nil
	}
	flag := int32(1)
	if p.Mode == query.Exclude {
		flag = 0
	}
	out := make(bson.D, 0, len(p.Fields)+1)
	for _, f := range p.Fields {
		out = append(out, bson.E{Key: f.String(), Value: flag})
	}
	if p.SuppressID {
		out = append(out, bson.E{Key: field.IDField, Value: int32(0)})
	}
	return out
}

// EncodeSort renders sort keys in priority order. Returns nil for no keys.
func EncodeSort(keys []field.SortKey) bson.D {
	if len(keys) == 0 {
		return nil
	}
	out := make(bson.D, 0, len(keys))
	for _, k := range keys {
		out = append(out, bson.E{Key: k.Field.String(), Value: int32(k.Direction)})
	}
	return out
}

// FindOptions returns driver options for q.
//
// A sorted query gets "_id" appended as the final ascending key unless it
// already sorts on it, so equal sort keys never reorder between runs.
func FindOptions(q query.Query) *options.FindOptions {
	opts := options.Find()
	if proj := EncodeProjection(q.Projection); proj != nil {
		opts.SetProjection(proj)
	}
	if len(q.Sort) > 0 {
		keys := q.Sort
		if !sortsOnID(keys) {
			keys = append(append([]field.SortKey(nil), keys...), field.Asc(field.IDField))
		}
		opts.SetSort(EncodeSort(keys))
	}
	if q.Page.Skip > 0 {
		opts.SetSkip(q.Page.Skip)
	}
	if q.Page.Limit > 0 {
		opts.SetLimit(q.Page.Limit)
	}
	return opts
}

// EncodeFind renders the whole find call as one document, in shell order:
// {filter, projection, sort, skip, limit}. Zero parts are omitted.
func EncodeFind(q query.Query) bson.D {
	out := bson.D{{Key: "filter", Value: EncodeFilter(q.Filter)}}
	if proj := EncodeProjection(q.Projection); proj != nil {
		out = append(out, bson.E{Key: "projection", Value: proj})
	}
	if s := EncodeSort(q.Sort); s != nil {
		out = append(out, bson.E{Key: "sort", Value: s})
	}
	if q.Page.Skip > 0 {
		out = append(out, bson.E{Key: "skip", Value: q.Page.Skip})
	}
	if q.Page.Limit > 0 {
		out = append(out, bson.E{Key: "limit", Value: q.Page.Limit})
	}
	return out
}

// EncodeUpdate returns the filter and the {$set: {...}} document of u.
func EncodeUpdate(u query.Update) (filter, update bson.D) {
	set := make(bson.D, 0, len(u.Set))
	for _, a := range u.Set {
		set = append(set, bson.E{Key: a.Field.String(), Value: ToBSON(a.Value)})
	}
	return EncodeFilter(u.Filter), bson.D{{Key: "$set", Value: set}}
}

func sortsOnID(keys []field.SortKey) bool {
	for _, k := range keys {
		if k.Field == field.IDField {
			return true
		}
	}
	return false
}
