// Package bsonwire translates docq descriptors to and from the BSON shapes
// the MongoDB driver accepts.
//
// Documents are always ordered (bson.D) so the wire form preserves the
// order the caller built: filter conditions, projection fields, sort keys
// and pipeline stages come out exactly as appended.
package bsonwire

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roach88/docq/internal/value"
)

// UnsupportedTypeError reports a BSON value with no value.Value counterpart.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported BSON type %s", e.Type)
}

// ToBSON converts a literal to the Go type the driver marshals.
// Objects become bson.D with keys in canonical order.
func ToBSON(v value.Value) any {
	switch val := v.(type) {
	case nil, value.Null:
		return nil
	case value.String:
		return string(val)
	case value.Int:
		return int64(val)
	case value.Float:
		return float64(val)
	case value.Bool:
		return bool(val)
	case value.Array:
		out := make(bson.A, len(val))
		for i, elem := range val {
			out[i] = ToBSON(elem)
		}
		return out
	case value.Object:
		return EncodeDocument(val)
	default:
		return nil
	}
}

// EncodeDocument converts a document for insertion.
func EncodeDocument(obj value.Object) bson.D {
	keys := obj.SortedKeys()
	out := make(bson.D, 0, len(keys))
	for _, k := range keys {
		out = append(out, bson.E{Key: k, Value: ToBSON(obj[k])})
	}
	return out
}

// FromBSON converts a decoded BSON value back to a literal.
//
// ObjectIDs become their hex string, datetimes an RFC 3339 UTC string and
// decimals a float.
func FromBSON(v any) (value.Value, error) {
	switch val := v.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return value.Null{}, nil
	case string:
		return value.String(val), nil
	case bool:
		return value.Bool(val), nil
	case int32:
		return value.Int(val), nil
	case int64:
		return value.Int(val), nil
	case int:
		return value.Int(val), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, &UnsupportedTypeError{Type: "non-finite double"}
		}
		return value.Float(val), nil
	case primitive.ObjectID:
		return value.String(val.Hex()), nil
	case primitive.DateTime:
		return value.String(val.Time().UTC().Format(time.RFC3339Nano)), nil
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(val.String(), 64)
		if err != nil {
			return nil, fmt.Errorf("decimal %s: %w", val.String(), err)
		}
		return FromBSON(f)
	case bson.A:
		return fromArray(val)
	case []any:
		return fromArray(val)
	case bson.D:
		obj := make(value.Object, len(val))
		for _, e := range val {
			conv, err := FromBSON(e.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e.Key, err)
			}
			obj[e.Key] = conv
		}
		return obj, nil
	case bson.M:
		return fromMap(val)
	case map[string]any:
		return fromMap(val)
	default:
		return nil, &UnsupportedTypeError{Type: fmt.Sprintf("%T", v)}
	}
}

// DecodeDocument converts a decoded result document.
func DecodeDocument(doc bson.D) (value.Object, error) {
	v, err := FromBSON(doc)
	if err != nil {
		return nil, err
	}
	return v.(value.Object), nil
}

func fromArray(arr []any) (value.Value, error) {
	out := make(value.Array, len(arr))
	for i, elem := range arr {
		conv, err := FromBSON(elem)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = conv
	}
	return out, nil
}

func fromMap(m map[string]any) (value.Value, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	obj := make(value.Object, len(m))
	for _, k := range keys {
		conv, err := FromBSON(m[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		obj[k] = conv
	}
	return obj, nil
}
