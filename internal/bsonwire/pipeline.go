package bsonwire

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roach88/docq/internal/field"
	"github.com/roach88/docq/internal/index"
	"github.com/roach88/docq/internal/pipeline"
)

// EncodePipeline renders every stage in order.
func EncodePipeline(p pipeline.Pipeline) mongo.Pipeline {
	out := make(mongo.Pipeline, 0, len(p.Stages))
	for _, s := range p.Stages {
		out = append(out, encodeStage(s))
	}
	return out
}

func encodeStage(s pipeline.Stage) bson.D {
	switch st := s.(type) {
	case pipeline.Group:
		group := bson.D{{Key: field.IDField, Value: encodeKey(st.Key)}}
		for _, acc := range st.Accumulators {
			group = append(group, bson.E{Key: acc.Name, Value: encodeAccumulator(acc)})
		}
		return bson.D{{Key: "$group", Value: group}}
	case pipeline.Sort:
		return bson.D{{Key: "$sort", Value: EncodeSort(st.Keys)}}
	case pipeline.Limit:
		return bson.D{{Key: "$limit", Value: st.N}}
	case pipeline.Match:
		return bson.D{{Key: "$match", Value: EncodeFilter(st.Filter)}}
	default:
		return bson.D{}
	}
}

func encodeKey(k pipeline.KeyExpr) any {
	switch key := k.(type) {
	case pipeline.FieldKey:
		return "$" + key.Field.String()
	case pipeline.Derived:
		return encodeExpr(key.Expr)
	default:
		return nil
	}
}

func encodeAccumulator(acc pipeline.Accumulator) bson.D {
	switch acc.Op {
	case pipeline.OpCount:
		return bson.D{{Key: "$sum", Value: int32(1)}}
	case pipeline.OpAvg:
		return bson.D{{Key: "$avg", Value: "$" + acc.Source.String()}}
	default:
		return bson.D{{Key: "$sum", Value: "$" + acc.Source.String()}}
	}
}

func encodeExpr(e pipeline.Expr) any {
	switch x := e.(type) {
	case pipeline.FieldRef:
		return "$" + x.Field.String()
	case pipeline.Const:
		return ToBSON(x.Value)
	case pipeline.Binary:
		return bson.D{{Key: "$" + string(x.Op), Value: bson.A{encodeExpr(x.Left), encodeExpr(x.Right)}}}
	case pipeline.FloorOf:
		return bson.D{{Key: "$floor", Value: encodeExpr(x.Arg)}}
	default:
		return nil
	}
}

// EncodeIndex returns the driver index model for s.
func EncodeIndex(s index.Spec) mongo.IndexModel {
	opts := options.Index().SetName(s.Name())
	if s.Unique() {
		opts.SetUnique(true)
	}
	return mongo.IndexModel{Keys: EncodeSort(s.Keys), Options: opts}
}
