package queryir

import (
	"regexp"
)

// Predicate represents a filter condition over one record.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// And represents a conjunction of predicates (all must be true).
// Empty Predicates means always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Not negates a predicate.
type Not struct {
	Predicate Predicate
}

func (Not) predicateNode() {}

// Equals matches when the formatted field value is exactly Value.
//
//	genre:=Rock
type Equals struct {
	Field string
	Value string
}

func (Equals) predicateNode() {}

// Substring matches when the formatted field value contains Pattern,
// ignoring case.
//
//	artist:beatles
type Substring struct {
	Field   string
	Pattern string
}

func (Substring) predicateNode() {}

// AnyField matches when any of Fields contains Pattern, ignoring case.
// It is what a bare query term compiles to.
type AnyField struct {
	Fields  []string
	Pattern string
}

func (AnyField) predicateNode() {}

// Regexp matches when Pattern matches the formatted field value.
//
//	title::^Come
type Regexp struct {
	Field   string
	Pattern *regexp.Regexp
}

func (Regexp) predicateNode() {}

// NumericRange matches integer field values within [Min, Max].
// A nil bound is open. Values that do not parse as integers never match.
//
//	year:2000..2010
type NumericRange struct {
	Field string
	Min   *int64
	Max   *int64
}

func (NumericRange) predicateNode() {}

// Path matches a path field equal to Path or any path below Path as a
// directory. Path is NFC normalized and has no trailing separator.
//
// Fast is true when Field is a fixed, indexed column of the entity type and
// false when it is a flexible attribute standing in for one.
type Path struct {
	Field string
	Path  string
	Fast  bool
}

func (Path) predicateNode() {}

// Int64 returns a pointer to n, for building NumericRange bounds.
func Int64(n int64) *int64 {
	return &n
}

// Sort orders a fetch by one fixed field. The zero value orders by id.
// Ties are always broken by id ascending.
type Sort struct {
	Field string
	Desc  bool
}
