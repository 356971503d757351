package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/tagrules/internal/ir"
)

// Policy decides what a mutation failure does to the rest of a run.
type Policy int

const (
	// FailFast aborts the run on the first failed record application.
	FailFast Policy = iota

	// BestEffort skips records whose application failed and keeps going.
	// Skipped records are left out of the ModifiedSet; their errors are
	// collected in Result.Errors.
	BestEffort
)

func (p Policy) String() string {
	switch p {
	case FailFast:
		return "failfast"
	case BestEffort:
		return "besteffort"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses "failfast" or "besteffort". Empty means FailFast.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "failfast":
		return FailFast, nil
	case "besteffort":
		return BestEffort, nil
	default:
		return FailFast, fmt.Errorf("unknown failure policy %q (known: failfast, besteffort)", s)
	}
}

// RunError reports which rule, and which record if any, a failure came from.
type RunError struct {
	// Rule is the index of the failing rule in the list passed to Run.
	Rule int

	// Source is the rule's canonical rendering.
	Source string

	// Record identifies the record being changed. Nil for compile and fetch
	// failures.
	Record *ir.Key

	Err error
}

func (e *RunError) Error() string {
	if e.Record != nil {
		return fmt.Sprintf("rule %d %s: %s %d: %v", e.Rule, e.Source, e.Record.Entity, e.Record.ID, e.Err)
	}
	return fmt.Sprintf("rule %d %s: %v", e.Rule, e.Source, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// IsRecordError returns true if err is a RunError tied to one record, the
// kind BestEffort skips.
func IsRecordError(err error) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Record != nil
	}
	return false
}
