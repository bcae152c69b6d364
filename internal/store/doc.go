// Package store provides the SQLite-backed document executor.
//
// Every collection lives in one table:
//
//	documents(seq INTEGER PRIMARY KEY, collection TEXT, id BLOB, body TEXT)
//
// body is the JSON document including "_id"; id is that identity with its
// type kept, integer or text, and is unique per collection. seq is the insertion order and the final
// tiebreaker of every ordering, so results never depend on the planner.
//
// Descriptors are compiled by internal/querysql. Indexes are SQLite
// expression indexes over json_extract(body, path), matched by the planner
// when a filter or sort uses the same path.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
