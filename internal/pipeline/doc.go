// Package pipeline builds ordered aggregation pipelines.
//
// A Pipeline is the typed form of a shell aggregation such as
//
//	db.books.aggregate([
//	  { $group: { _id: { $floor: { $divide: ["$published_year", 10] } }, count: { $sum: 1 } } },
//	  { $sort: { _id: 1 } }
//	])
//
// built with
//
//	p, err := pipeline.NewBuilder().
//		Group(pipeline.Derive(pipeline.Floor(pipeline.Divide(pipeline.Field("published_year"), pipeline.Int(10)))),
//			pipeline.Count("count")).
//		SortBy("_id", field.Ascending).
//		Build()
//
// Stage and KeyExpr are sealed interfaces (marker methods), so translators
// can switch exhaustively over them:
//
//	switch s := stage.(type) {
//	case Group:
//	case Sort:
//	case Limit:
//	case Match:
//	}
//
// Stages are kept exactly in the order they were appended. Unlike a find
// query, repeated Sort stages are legal.
package pipeline
