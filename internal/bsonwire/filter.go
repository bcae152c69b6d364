package bsonwire

import (
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/roach88/docq/internal/query"
)

// EncodeFilter renders a filter in condition order.
//
// Equality is the bare literal ({genre: "Fiction"}); every other
// comparison is an operator document ({published_year: {$gt: 2010}}).
// An empty filter encodes as an empty document, matching everything.
func EncodeFilter(f query.Filter) bson.D {
	out := make(bson.D, 0, len(f.Conditions))
	for _, c := range f.Conditions {
		if c.IsEquality() {
			out = append(out, bson.E{Key: c.Field.String(), Value: ToBSON(c.Comparisons[0].Value)})
			continue
		}
		ops := make(bson.D, 0, len(c.Comparisons))
		for _, cmp := range c.Comparisons {
			ops = append(ops, bson.E{Key: "$" + string(cmp.Op), Value: ToBSON(cmp.Value)})
		}
		out = append(out, bson.E{Key: c.Field.String(), Value: ops})
	}
	return out
}

// DecodeFilter parses a filter document back into a Filter, applying the
// same validation as query.Builder.
//
// A field value that is a document whose keys all start with "$" is an
// operator document; anything else is an equality literal.
func DecodeFilter(doc bson.D) (query.Filter, error) {
	b := query.NewBuilder()
	for _, e := range doc {
		if strings.HasPrefix(e.Key, "$") {
			return query.Filter{}, fmt.Errorf("top-level operator %q is not supported", e.Key)
		}
		ops, isOps := operatorDoc(e.Value)
		if !isOps {
			v, err := FromBSON(e.Value)
			if err != nil {
				return query.Filter{}, fmt.Errorf("field %q: %w", e.Key, err)
			}
			b.WithFilter(e.Key, query.OpEq, v)
			continue
		}
		for _, opElem := range ops {
			op, err := query.ParseOperator(opElem.Key)
			if err != nil {
				return query.Filter{}, err
			}
			v, err := FromBSON(opElem.Value)
			if err != nil {
				return query.Filter{}, fmt.Errorf("field %q %s: %w", e.Key, opElem.Key, err)
			}
			b.WithFilter(e.Key, op, v)
		}
	}
	q, err := b.Build()
	if err != nil {
		return query.Filter{}, err
	}
	return q.Filter, nil
}

// operatorDoc returns v as an ordered document when every key is an
// operator. bson.M keys are taken in sorted order.
func operatorDoc(v any) (bson.D, bool) {
	var d bson.D
	switch doc := v.(type) {
	case bson.D:
		d = doc
	case bson.M:
		d = sortedD(doc)
	case map[string]any:
		d = sortedD(doc)
	default:
		return nil, false
	}
	if len(d) == 0 {
		return nil, false
	}
	for _, e := range d {
		if !strings.HasPrefix(e.Key, "$") {
			return nil, false
		}
	}
	return d, true
}

func sortedD(m map[string]any) bson.D {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(bson.D, 0, len(keys))
	for _, k := range keys {
		out = append(out, bson.E{Key: k, Value: m[k]})
	}
	return out
}

