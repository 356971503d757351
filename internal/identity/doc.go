// Package identity keeps at most one live instance per (entity type, id).
//
// A storage fetch returns a fresh wrapper for every row, so mutations made
// through two independent fetches of the same record would land on two
// different objects. Cache.Canonicalize folds every fetched wrapper onto the
// first live instance seen for its key.
//
// The cache holds weak pointers only. Once nothing outside the cache
// references a record, the garbage collector reclaims it and a runtime
// cleanup removes its entry. Eviction happens after the collector runs, so
// entries for unreachable records may linger until then; lookups treat such
// entries as absent.
//
// Record shape is fixed by the type parameters: one cache serves exactly one
// concrete record type, for every entity type it tracks.
package identity
