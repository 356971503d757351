// Package library stores albums and items in SQLite.
//
// Each entity type has a table of fixed columns (see ir.Fields) and a
// key/value table of flexible attributes. A NULL fixed column reads as an
// absent field; removing a fixed field writes NULL.
//
// Fetch is the raw storage fetch the rules engine consumes: every call
// returns fresh *Model wrappers, even for rows returned before. Wrap the
// library in a session.Session to get one instance per row.
//
// # Query Pushdown
//
// Fetch compiles the predicate with querysql, which pushes down only the
// conjuncts whose SQL meaning equals queryir.Match, then re-checks every row
// with queryir.Match. A fetch therefore returns exactly the records a direct
// match would accept.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Stored paths are NFC normalized on write so that path predicates compare
// equal in SQL and in memory.
package library
