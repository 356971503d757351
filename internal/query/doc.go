// Package query compiles the query fragments of a rule into a single
// queryir.Predicate for one entity type.
//
// Fragments are routed to one of two predicate families:
//
//   - Path fragments contain a path separator before their first colon
//     ("/music/Beatles", "/music/x:y") and become queryir.Path.
//   - Everything else goes through the field builder: "field:value",
//     a bare "value" matched against the entity's search fields, an optional
//     leading "^" to negate, and a value prefix looked up in a Registry.
//
// The result is the conjunction of all field predicates followed by all path
// predicates.
package query
