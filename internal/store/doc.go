// Package store provides a SQLite-backed document store and a plan executor.
//
// Source records are kept as JSON objects in a single documents table, tagged
// with the name of the source shape they conform to. The executor runs a
// compiled query.Plan against that table through querysql and applies the
// plan's projection to each returned row.
//
// # Value Encoding
//
// Documents are stored as written. Comparisons happen inside SQLite, so
// values have to be stored in a form that compares the way their kind does:
//   - time values as RFC 3339 text in UTC with a "Z" suffix
//   - dates as "2006-01-02"
//   - decimals as JSON numbers or numeric strings (cast to REAL when compared)
//   - identifiers in their canonical lower-case text form
//
// # Deterministic Results
//
// Every select orders by the plan's keys and then by row id, which is the
// insertion order. Executing a plan here returns the same page as executing
// it in memory over Documents for the same shape.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
