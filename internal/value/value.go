package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf16"
)

// Value is a sealed interface over the literal types that may appear in a
// query descriptor or a stored document.
// Only Null, String, Int, Float, Bool, Array and Object implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents a JSON null literal.
// Using an explicit type keeps nil out of descriptors.
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String represents a string literal.
type String string

func (String) value() {}

// Int represents an integer literal. Always int64.
type Int int64

func (Int) value() {}

// Float represents a finite floating point literal (prices, averages).
// NaN and infinities are rejected at every conversion boundary.
type Float float64

func (Float) value() {}

// Bool represents a boolean literal.
type Bool bool

func (Bool) value() {}

// Array represents an ordered list of values.
type Array []Value

func (Array) value() {}

// Object represents a map of field names to values.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 byte order, which differs for astral code points.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Lookup resolves a dotted path inside the object.
// Returns false when any segment is missing or crosses a non-object.
func (obj Object) Lookup(path string) (Value, bool) {
	var cur Value = obj
	for _, seg := range strings.Split(path, ".") {
		o, ok := cur.(Object)
		if !ok {
			return nil, false
		}
		cur, ok = o[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := len(a16)
	if len(b16) < minLen {
		minLen = len(b16)
	}

	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// Of converts a native Go value into a Value.
// Accepts the shapes produced by encoding/json, yaml.v3 and CUE decoding.
func Of(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return uintValue(uint64(val))
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return uintValue(val)
	case float32:
		return floatValue(float64(val))
	case float64:
		return floatValue(val)
	case json.Number:
		return numberValue(string(val))
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			converted, err := Of(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = converted
		}
		return arr, nil
	case []string:
		arr := make(Array, len(val))
		for i, elem := range val {
			arr[i] = String(elem)
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			converted, err := Of(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = converted
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// MustOf is like Of but panics on error.
// Use only in tests or with literals known to be valid.
func MustOf(v any) Value {
	converted, err := Of(v)
	if err != nil {
		panic(err)
	}
	return converted
}

func uintValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("integer out of int64 range: %d", u)
	}
	return Int(int64(u)), nil
}

func floatValue(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite float: %v", f)
	}
	return Float(f), nil
}

// numberValue keeps integral JSON numbers as Int and everything else as Float.
func numberValue(s string) (Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		var n json.Number = json.Number(s)
		if i, err := n.Int64(); err == nil {
			return Int(i), nil
		}
	}
	var n json.Number = json.Number(s)
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return floatValue(f)
}

// ToAny converts a Value back to the plain Go shape used by drivers:
// string, int64, float64, bool, nil, []any and map[string]any.
func ToAny(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToAny(elem)
		}
		return out
	default:
		return nil
	}
}

// Decode parses a JSON document into a Value.
// Integral numbers decode as Int, other numbers as Float.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return Of(raw)
}

// DecodeObject parses a JSON object. Non-object input is an error.
func DecodeObject(data []byte) (Object, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(Object)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %T", v)
	}
	return obj, nil
}

// UnmarshalJSON implements json.Unmarshaler for Object.
func (obj *Object) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeObject(data)
	if err != nil {
		return err
	}
	*obj = decoded
	return nil
}

// MarshalJSON implements json.Marshaler for Object with sorted keys.
// This is not the canonical form; use MarshalCanonical for fingerprints.
func (obj Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := Marshal(obj[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler for Array.
func (arr Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := Marshal(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Marshal encodes a Value as JSON.
func Marshal(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(val))
	case Int:
		return json.Marshal(int64(val))
	case Float:
		return json.Marshal(float64(val))
	case Bool:
		return json.Marshal(bool(val))
	case Array:
		return val.MarshalJSON()
	case Object:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}
