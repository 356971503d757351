package engine

import (
	"github.com/roach88/tagrules/internal/ir"
)

// ModifiedSet is the set of canonical records touched during one run.
// Membership is by object identity; iteration follows insertion order.
type ModifiedSet[T any, P interface {
	*T
	ir.Record
}] struct {
	order []P
	index map[*T]int
}

// NewModifiedSet creates an empty set.
func NewModifiedSet[T any, P interface {
	*T
	ir.Record
}]() *ModifiedSet[T, P] {
	return &ModifiedSet[T, P]{index: make(map[*T]int)}
}

// Add inserts rec. Returns false if rec was already present.
func (m *ModifiedSet[T, P]) Add(rec P) bool {
	if _, ok := m.index[(*T)(rec)]; ok {
		return false
	}
	m.index[(*T)(rec)] = len(m.order)
	m.order = append(m.order, rec)
	return true
}

// Remove deletes rec. Returns false if rec was not present.
func (m *ModifiedSet[T, P]) Remove(rec P) bool {
	i, ok := m.index[(*T)(rec)]
	if !ok {
		return false
	}
	delete(m.index, (*T)(rec))
	m.order = append(m.order[:i], m.order[i+1:]...)
	for j := i; j < len(m.order); j++ {
		m.index[(*T)(m.order[j])] = j
	}
	return true
}

// Contains reports whether rec itself is in the set.
func (m *ModifiedSet[T, P]) Contains(rec P) bool {
	_, ok := m.index[(*T)(rec)]
	return ok
}

// Len returns the number of records.
func (m *ModifiedSet[T, P]) Len() int {
	return len(m.order)
}

// Records returns the records in insertion order.
func (m *ModifiedSet[T, P]) Records() []P {
	out := make([]P, len(m.order))
	copy(out, m.order)
	return out
}
