package library

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/tagrules/internal/ir"
)

// FieldError reports a value a fixed field cannot hold.
type FieldError struct {
	Entity ir.EntityType
	Field  string
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s field %s: invalid value %q: %s", e.Entity, e.Field, e.Value, e.Reason)
}

// IsFieldError returns true if err is or wraps a *FieldError.
func IsFieldError(err error) bool {
	var fe *FieldError
	return errors.As(err, &fe)
}

// Change is one field difference between the stored and current state of
// a Model. Old or New is nil when the field is absent on that side.
type Change struct {
	Field string
	Old   ir.IRValue
	New   ir.IRValue
}

// Model is one album or item row plus its flexible attributes.
//
// Model implements ir.Record. Changes are kept in memory until Store.
// The "id" field is read-only and is assigned by Add.
type Model struct {
	entity ir.EntityType
	id     int64

	values ir.IRObject // present fields, including id once stored
	stored ir.IRObject // values as of the last load or store
}

// NewModel creates an unsaved model. Set fields, then pass it to Add.
func NewModel(entity ir.EntityType) *Model {
	return &Model{
		entity: entity,
		values: ir.IRObject{},
		stored: ir.IRObject{},
	}
}

// ModelFromFields builds an unsaved model from decoded YAML or JSON
// values. Each value is set through its formatted string form, so it is
// checked the same way a rule mutation is.
func ModelFromFields(entity ir.EntityType, fields map[string]any) (*Model, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	m := NewModel(entity)
	for _, name := range names {
		v, err := ir.ToIRValue(fields[name])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		if err := m.Set(name, ir.Format(v)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Model) ID() int64             { return m.id }
func (m *Model) Entity() ir.EntityType { return m.entity }

// Get returns the current value of a field.
func (m *Model) Get(name string) (ir.IRValue, bool) {
	v, ok := m.values[name]
	return v, ok
}

// Has reports whether a field is present. A fixed field holding NULL is
// absent.
func (m *Model) Has(name string) bool {
	_, ok := m.values[name]
	return ok
}

// Set converts value to the field's kind and stores it.
//
// Int fields accept a decimal integer, or "" to clear the field. Path
// fields are NFC normalized. Any other name creates or replaces a flexible
// attribute.
func (m *Model) Set(name, value string) error {
	if name == "id" {
		return &FieldError{Entity: m.entity, Field: name, Value: value, Reason: "read-only"}
	}

	f, fixed := ir.LookupField(m.entity, name)
	if !fixed {
		m.values[name] = ir.IRString(value)
		return nil
	}

	switch f.Kind {
	case ir.KindInt:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			delete(m.values, name)
			return nil
		}
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return &FieldError{Entity: m.entity, Field: name, Value: value, Reason: "not an integer"}
		}
		m.values[name] = ir.IRInt(n)
	case ir.KindPath:
		m.values[name] = ir.IRString(norm.NFC.String(value))
	default:
		m.values[name] = ir.IRString(value)
	}
	return nil
}

// Remove deletes a field. The id cannot be removed.
func (m *Model) Remove(name string) {
	if name == "id" {
		return
	}
	delete(m.values, name)
}

// Fields returns a snapshot of every present field.
func (m *Model) Fields() ir.IRObject {
	return m.values.Clone()
}

// Dirty returns the names of fields changed since the last load or store,
// in sorted order.
func (m *Model) Dirty() []string {
	changes := m.Changes()
	names := make([]string, len(changes))
	for i, c := range changes {
		names[i] = c.Field
	}
	return names
}

// IsDirty reports whether any field changed since the last load or store.
func (m *Model) IsDirty() bool {
	return len(m.Changes()) > 0
}

// Changes returns every field difference since the last load or store,
// ordered by field name.
func (m *Model) Changes() []Change {
	names := make(map[string]struct{}, len(m.values)+len(m.stored))
	for k := range m.values {
		names[k] = struct{}{}
	}
	for k := range m.stored {
		names[k] = struct{}{}
	}

	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var changes []Change
	for _, k := range keys {
		oldV, hadOld := m.stored[k]
		newV, hasNew := m.values[k]
		if hadOld && hasNew && ir.Equal(oldV, newV) {
			continue
		}
		c := Change{Field: k}
		if hadOld {
			c.Old = oldV
		}
		if hasNew {
			c.New = newV
		}
		changes = append(changes, c)
	}
	return changes
}

// Revert discards every change since the last load or store.
func (m *Model) Revert() {
	m.values = m.stored.Clone()
}

func (m *Model) String() string {
	return fmt.Sprintf("%s %d", m.entity, m.id)
}

// markStored records the current values as the stored state.
func (m *Model) markStored() {
	m.stored = m.values.Clone()
}

// setID assigns the row id after insert.
func (m *Model) setID(id int64) {
	m.id = id
	m.values["id"] = ir.IRInt(id)
}
