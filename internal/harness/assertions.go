package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/tagrules/internal/config"
	"github.com/roach88/tagrules/internal/ir"
	"github.com/roach88/tagrules/internal/library"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Modified []string // Modified records, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Modified) > 0 {
		fmt.Fprintf(&buf, "\nModified records:\n")
		for i, rec := range e.Modified {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, rec)
		}
	}

	return buf.String()
}

// AssertionContext provides what final_state assertions read.
type AssertionContext struct {
	Library *library.Library
	Config  *config.Config
	Ctx     context.Context
}

// EvaluateAssertions checks every assertion and returns the failure
// messages, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertModifiedCount:
		return assertModifiedCount(result, a)
	case AssertModifiedOrder:
		return assertModifiedOrder(result, a)
	case AssertErrorCount:
		return assertErrorCount(result, a)
	case AssertRunError:
		return assertRunError(result, a)
	case AssertFinalState:
		return assertFinalState(actx, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// modifiedKeys lists the modified records as "<entity> <id>".
func modifiedKeys(result *Result) []string {
	keys := make([]string, len(result.Modified))
	for i, s := range result.Modified {
		keys[i] = fmt.Sprintf("%s %d", s.Entity, s.ID)
	}
	return keys
}

func assertModifiedCount(result *Result, a Assertion) error {
	if len(result.Modified) != a.Count {
		return &AssertionError{
			Type:     AssertModifiedCount,
			Expected: fmt.Sprintf("%d modified records", a.Count),
			Actual:   fmt.Sprintf("%d modified records", len(result.Modified)),
			Modified: modifiedKeys(result),
		}
	}
	return nil
}

// assertModifiedOrder checks the exact first-modification order.
func assertModifiedOrder(result *Result, a Assertion) error {
	actual := modifiedKeys(result)
	if strings.Join(actual, ",") != strings.Join(a.Records, ",") {
		return &AssertionError{
			Type:     AssertModifiedOrder,
			Expected: fmt.Sprintf("%v", a.Records),
			Actual:   fmt.Sprintf("%v", actual),
		}
	}
	return nil
}

func assertErrorCount(result *Result, a Assertion) error {
	if len(result.RecordErrors) != a.Count {
		return &AssertionError{
			Type:     AssertErrorCount,
			Expected: fmt.Sprintf("%d skipped records", a.Count),
			Actual:   fmt.Sprintf("%d skipped records: %v", len(result.RecordErrors), result.RecordErrors),
		}
	}
	return nil
}

func assertRunError(result *Result, a Assertion) error {
	if result.RunError == "" {
		return &AssertionError{
			Type:     AssertRunError,
			Expected: fmt.Sprintf("run aborted with %q", a.Contains),
			Actual:   "run completed",
			Modified: modifiedKeys(result),
		}
	}
	if !strings.Contains(result.RunError, a.Contains) {
		return &AssertionError{
			Type:     AssertRunError,
			Expected: fmt.Sprintf("run aborted with %q", a.Contains),
			Actual:   result.RunError,
		}
	}
	return nil
}

// assertFinalState fetches the stored records the query selects and
// checks each of them. At least one record must match.
func assertFinalState(actx *AssertionContext, a Assertion) error {
	entity, err := ir.ParseEntityType(a.Entity)
	if err != nil {
		return err
	}

	cq, err := actx.Config.Compiler().Compile(a.Query, entity)
	if err != nil {
		return fmt.Errorf("final_state query: %w", err)
	}

	matched := 0
	for m, err := range actx.Library.Fetch(actx.Ctx, entity, cq.Predicate, library.Sort{}) {
		if err != nil {
			return fmt.Errorf("final_state fetch: %w", err)
		}
		matched++
		if err := checkRecord(m, a); err != nil {
			return err
		}
	}

	if matched == 0 {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s records matching %q", entity, strings.Join(a.Query, " ")),
			Actual:   "no records matched",
		}
	}
	return nil
}

// checkRecord compares expected values by their formatted string form, so
// YAML ints and strings both match an int field.
func checkRecord(m *library.Model, a Assertion) error {
	for field, want := range a.Expect {
		wantValue, err := ir.ToIRValue(want)
		if err != nil {
			return fmt.Errorf("expect %q: %w", field, err)
		}

		got, ok := m.Get(field)
		if !ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s: %s = %q", m, field, ir.Format(wantValue)),
				Actual:   fmt.Sprintf("%s: %s is absent", m, field),
			}
		}
		if ir.Format(got) != ir.Format(wantValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s: %s = %q", m, field, ir.Format(wantValue)),
				Actual:   fmt.Sprintf("%s: %s = %q", m, field, ir.Format(got)),
			}
		}
	}

	for _, field := range a.Absent {
		if got, ok := m.Get(field); ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s: %s is absent", m, field),
				Actual:   fmt.Sprintf("%s: %s = %q", m, field, ir.Format(got)),
			}
		}
	}
	return nil
}
