package harness

import (
	"github.com/roach88/tagrules/internal/library"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success: the run finished as the
	// assertions expect and every assertion holds.
	Pass bool

	// SessionID is the batch session the rules ran in.
	SessionID string

	// Modified holds the pending changes of every modified record, in
	// first-modification order, as they were before Store.
	Modified []library.Summary

	// RecordErrors holds the records skipped under besteffort.
	RecordErrors []string

	// RunError is set when the run aborted. Nothing is stored then.
	RunError string

	// Errors contains assertion failure messages.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult(sessionID string) *Result {
	return &Result{
		Pass:         true,
		SessionID:    sessionID,
		Modified:     []library.Summary{},
		RecordErrors: []string{},
		Errors:       []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Snapshot renders the run outcome for ir.MarshalCanonical. Assertion
// errors are not part of it.
func (r *Result) Snapshot(name string) map[string]any {
	recordErrors := make([]any, len(r.RecordErrors))
	for i, e := range r.RecordErrors {
		recordErrors[i] = e
	}

	snap := map[string]any{
		"scenario_name": name,
		"session":       r.SessionID,
		"modified":      library.CanonicalSummaries(r.Modified),
		"record_errors": recordErrors,
	}
	if r.RunError != "" {
		snap["run_error"] = r.RunError
	}
	return snap
}
