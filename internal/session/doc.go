// Package session scopes one batch of rule applications.
//
// A Session wraps a raw storage fetcher with an identity cache: every record
// a fetch yields is replaced by the canonical instance for its key before the
// caller sees it. Within one Session, two fetches that reach the same record
// yield the same object, so changes made through either are visible through
// both. A new Session starts a fresh identity domain.
package session
