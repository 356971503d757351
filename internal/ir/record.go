package ir

// Record is one logical metadata entity as seen by the rules core.
//
// Records are owned by the storage layer. The core only borrows them: it
// reads their identity, tests them against predicates and mutates their
// fields. Persistence is the owner's job.
//
// Field storage is dynamic: Set on a name that is not a fixed field of the
// entity creates a flexible attribute.
type Record interface {
	// ID is unique within Entity().
	ID() int64
	Entity() EntityType

	// Get returns the current value of a fixed field or flexible attribute.
	Get(name string) (IRValue, bool)
	Has(name string) bool

	// Set converts value to the field's kind and stores it.
	// Returns an error if the storage layer rejects the value.
	Set(name, value string) error

	// Remove deletes a field. Removing an absent field is a no-op.
	Remove(name string)

	// Fields returns a snapshot of every present field.
	Fields() IRObject
}

// Key identifies a record across entity types.
type Key struct {
	Entity EntityType
	ID     int64
}

// KeyOf returns the identity key of a record.
func KeyOf(r Record) Key {
	return Key{Entity: r.Entity(), ID: r.ID()}
}
