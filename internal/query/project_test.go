package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/docq/internal/value"
)

func hobbit() value.Object {
	return value.Object{
		"_id":    value.String("b4"),
		"title":  value.String("The Hobbit"),
		"author": value.String("J.R.R. Tolkien"),
		"price":  value.Float(14.99),
		"publisher": value.Object{
			"name": value.String("Allen & Unwin"),
			"city": value.String("London"),
		},
	}
}

func TestProjection_ApplyInclude(t *testing.T) {
	q := NewBuilder().
		WithProjection([]string{"title", "author", "price"}, Include).
		ExcludeID().
		MustBuild()

	assert.Equal(t, value.Object{
		"title":  value.String("The Hobbit"),
		"author": value.String("J.R.R. Tolkien"),
		"price":  value.Float(14.99),
	}, q.Projection.Apply(hobbit()))
}

func TestProjection_ApplyIncludeKeepsID(t *testing.T) {
	q := NewBuilder().WithProjection([]string{"title", "isbn"}, Include).MustBuild()

	got := q.Projection.Apply(hobbit())
	assert.Equal(t, value.Object{
		"_id":   value.String("b4"),
		"title": value.String("The Hobbit"),
	}, got, "missing fields are omitted")
}

func TestProjection_ApplyNested(t *testing.T) {
	q := NewBuilder().WithProjection([]string{"publisher.city"}, Include).ExcludeID().MustBuild()
	assert.Equal(t, value.Object{
		"publisher": value.Object{"city": value.String("London")},
	}, q.Projection.Apply(hobbit()))
}

func TestProjection_ApplyExclude(t *testing.T) {
	doc := hobbit()
	q := NewBuilder().WithProjection([]string{"price", "publisher.city", "_id"}, Exclude).MustBuild()

	got := q.Projection.Apply(doc)
	assert.Equal(t, value.Object{
		"title":     value.String("The Hobbit"),
		"author":    value.String("J.R.R. Tolkien"),
		"publisher": value.Object{"name": value.String("Allen & Unwin")},
	}, got)

	assert.Equal(t, hobbit(), doc, "input is untouched")
}

func TestProjection_ApplyEmpty(t *testing.T) {
	doc := hobbit()
	assert.Equal(t, doc, Projection{}.Apply(doc))
}
