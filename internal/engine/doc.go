// Package engine applies rules to a library.
//
// Run is a straight-line pipeline per rule, in list order:
//
//  1. compile the rule's query for its entity type (memoized on the rule)
//  2. fetch matching records through the batch session
//  3. apply the rule's change-set to each canonical record
//  4. add each record to the ModifiedSet
//
// Because the session hands out one instance per record, a record matched by
// several rules collects every rule's changes on one object and appears once
// in the ModifiedSet. A later rule's mutation of a field overrides an earlier
// one. Persisting the ModifiedSet is the caller's job.
//
// MatchAndApply and Import test a single record directly, without a fetch.
// They serve newly imported records that never passed through a session.
//
// Evaluation is single-threaded. Rules run in the order supplied and records
// in fetch order, so output is deterministic.
package engine
