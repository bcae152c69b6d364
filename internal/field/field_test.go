package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	for _, s := range []string{"title", "published_year", "author.name", "_id", "a.b.c"} {
		t.Run(s, func(t *testing.T) {
			p, err := Parse(s)
			require.NoError(t, err)
			assert.Equal(t, s, p.String())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		input  string
		reason string
	}{
		{"", "empty path"},
		{".title", "leading or trailing dot"},
		{"title.", "leading or trailing dot"},
		{"author..name", "empty segment"},
		{"$where", "segment starts with '$'"},
		{"price.$gt", "segment starts with '$'"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)

			var fieldErr *InvalidFieldError
			require.ErrorAs(t, err, &fieldErr)
			assert.Equal(t, tt.input, fieldErr.Path)
			assert.Equal(t, tt.reason, fieldErr.Reason)
		})
	}
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("") })
}

func TestPath_Segments(t *testing.T) {
	p := MustParse("author.name")
	assert.Equal(t, []string{"author", "name"}, p.Segments())
	assert.False(t, p.IsTopLevel())
	assert.True(t, MustParse("title").IsTopLevel())
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		input    string
		expected Direction
	}{
		{"asc", Ascending},
		{"ascending", Ascending},
		{"1", Ascending},
		{"", Ascending},
		{"desc", Descending},
		{"descending", Descending},
		{"-1", Descending},
	}
	for _, tt := range tests {
		d, err := ParseDirection(tt.input)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, d, tt.input)
	}

	_, err := ParseDirection("sideways")
	assert.Error(t, err)
}

func TestDirection_String(t *testing.T) {
	assert.Equal(t, "asc", Ascending.String())
	assert.Equal(t, "desc", Descending.String())
	assert.True(t, Ascending.Valid())
	assert.False(t, Direction(0).Valid())
}

func TestSortKeyHelpers(t *testing.T) {
	assert.Equal(t, SortKey{Field: "price", Direction: Ascending}, Asc("price"))
	assert.Equal(t, SortKey{Field: "price", Direction: Descending}, Desc("price"))
}
