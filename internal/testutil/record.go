package testutil

import (
	"fmt"

	"github.com/roach88/tagrules/internal/ir"
)

// Record is an in-memory ir.Record for core tests.
//
// Every Set stores an IRString unless the field is in Reject, which makes
// Set fail the way a storage layer rejects a value of the wrong kind.
type Record struct {
	Kind   ir.EntityType
	Key    int64
	Values ir.IRObject
	Reject map[string]bool

	// Sets counts successful Set calls, for asserting idempotence.
	Sets int
}

// NewRecord creates a record with a copy of fields.
func NewRecord(kind ir.EntityType, id int64, fields ir.IRObject) *Record {
	values := fields.Clone()
	if values == nil {
		values = ir.IRObject{}
	}
	return &Record{Kind: kind, Key: id, Values: values}
}

func (r *Record) ID() int64             { return r.Key }
func (r *Record) Entity() ir.EntityType { return r.Kind }
func (r *Record) Fields() ir.IRObject   { return r.Values.Clone() }

func (r *Record) Get(name string) (ir.IRValue, bool) {
	v, ok := r.Values[name]
	return v, ok
}

func (r *Record) Has(name string) bool {
	_, ok := r.Values[name]
	return ok
}

func (r *Record) Set(name, value string) error {
	if r.Reject[name] {
		return fmt.Errorf("field %s rejects value %q", name, value)
	}
	r.Values[name] = ir.IRString(value)
	r.Sets++
	return nil
}

func (r *Record) Remove(name string) {
	delete(r.Values, name)
}
