// Package queryir provides the predicate intermediate representation that
// rule queries compile to.
//
// QueryIR is the abstraction boundary between the textual query fragments of
// a rule and the places a query is evaluated:
//
//	[query fragments] -> [Predicate] -> Match (in memory, one record)
//	                                 -> querysql (SQLite WHERE pushdown)
//
// Both evaluation paths consume the same Predicate value, so "does this
// record match" and "fetch every matching record" cannot disagree. The SQL
// backend only ever narrows a fetch to a superset of the matching rows; the
// library re-checks every row with Match.
//
// SEALED INTERFACE:
//
// Predicate is a sealed interface using the marker method pattern. Only
// types in this package implement it, which keeps the type switches in Match
// and in querysql exhaustive.
//
//	switch p := pred.(type) {
//	case And:
//	case Substring:
//	...
//	}
//
// Predicate types:
//   - And: all sub-predicates hold (empty = always true)
//   - Not: the sub-predicate does not hold
//   - Equals: exact string equality on one field
//   - Substring: case-insensitive substring on one field
//   - AnyField: case-insensitive substring on any of several fields
//   - Regexp: regular expression on one field
//   - NumericRange: inclusive integer range on one field
//   - Path: path equality or ancestry on one field
//
// Absent fields never match a positive predicate.
package queryir
