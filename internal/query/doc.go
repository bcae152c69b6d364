// Package query builds immutable read descriptors for a document store.
//
// A Query is the typed form of a shell snippet such as
//
//	db.books.find(
//	  { in_stock: true, published_year: { $gt: 2010 } },
//	  { title: 1, author: 1, price: 1, _id: 0 }
//	).sort({ price: 1 }).skip(5).limit(5)
//
// and is produced by Builder:
//
//	q, err := query.NewBuilder().
//		WithFilter("in_stock", query.OpEq, value.Bool(true)).
//		WithFilter("published_year", query.OpGt, value.Int(2010)).
//		WithProjection([]string{"title", "author", "price"}, query.Include).
//		ExcludeID().
//		WithSort("price", field.Ascending).
//		WithPage(5, 5).
//		Build()
//
// VALIDATION:
//
// Every builder method validates its input at the call. The first failure is
// recorded, reported by Err(), returned by Build(), and every later call on
// the same builder is ignored. A Query value is therefore always valid.
//
// Policy restrictions:
//   - equality and a range operator never share a field
//   - the same operator is never applied twice to one field
//   - include and exclude projections are never mixed
//   - a field appears at most once in a sort
//
// Queries carry no connection or store handle. Translation to a concrete
// store lives in internal/bsonwire and internal/querysql.
package query
