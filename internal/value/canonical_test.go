package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"max int64", Int(9223372036854775807), "9223372036854775807"},
		{"float", Float(15.99), "15.99"},
		{"integral float", Float(10), "10"},
		{"zero float", Float(0), "0"},
		{"tiny float", Float(1e-7), "1e-7"},
		{"huge float", Float(1e21), "1e+21"},
		{"bool true", Bool(true), "true"},
		{"null", Null{}, "null"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"array of ints", Array{Int(1), Int(2), Int(3)}, "[1,2,3]"},
		{"native map", map[string]any{"a": 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNestedSortedKeys(t *testing.T) {
	obj := Object{
		"z": Object{
			"b": Int(1),
			"a": Int(2),
		},
		"a": Int(3),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"z":{"a":2,"b":1}}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+10000 encodes as a surrogate pair (0xD800...) and sorts before U+E000.
	obj := Object{
		"": Int(1),
		"𐀀":      Int(2),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"𐀀":2,"`+""+`":1}`, string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(String("<a&b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	decomposed := "é"
	composed := "é"

	a, err := MarshalCanonical(String(decomposed))
	require.NoError(t, err)
	b, err := MarshalCanonical(String(composed))
	require.NoError(t, err)

	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	result, err := MarshalCanonical(String("a b"))
	require.NoError(t, err)
	assert.Equal(t, "\"a b\"", string(result))

	result, err = MarshalCanonical(String(`a\u2028b`))
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(result))
}

func TestFingerprint(t *testing.T) {
	obj := Object{"filter": Object{"genre": String("Fiction")}}

	a, err := Fingerprint(DomainQuery, obj)
	require.NoError(t, err)
	b, err := Fingerprint(DomainQuery, Object{"filter": Object{"genre": String("Fiction")}})
	require.NoError(t, err)
	c, err := Fingerprint(DomainPipeline, obj)
	require.NoError(t, err)

	assert.Len(t, a, 64, "SHA-256 hex is 64 characters")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c, "domain separation must change the hash")
}
