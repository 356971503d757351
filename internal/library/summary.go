package library

import (
	"github.com/roach88/tagrules/internal/ir"
)

// Summary is the set of pending changes on one model.
type Summary struct {
	Entity  ir.EntityType
	ID      int64
	Changes []Change
}

// Summarize reports the pending changes of each model, in the given order.
// Models without changes are skipped.
func Summarize(models []*Model) []Summary {
	out := make([]Summary, 0, len(models))
	for _, m := range models {
		changes := m.Changes()
		if len(changes) == 0 {
			continue
		}
		out = append(out, Summary{Entity: m.entity, ID: m.id, Changes: changes})
	}
	return out
}

// Canonical renders s for ir.MarshalCanonical. Absent values are null.
func (s Summary) Canonical() map[string]any {
	changes := make([]any, len(s.Changes))
	for i, c := range s.Changes {
		changes[i] = map[string]any{
			"field": c.Field,
			"old":   orNull(c.Old),
			"new":   orNull(c.New),
		}
	}
	return map[string]any{
		"entity":  s.Entity.String(),
		"id":      s.ID,
		"changes": changes,
	}
}

// CanonicalSummaries renders every summary for ir.MarshalCanonical.
func CanonicalSummaries(summaries []Summary) []any {
	out := make([]any, len(summaries))
	for i, s := range summaries {
		out[i] = s.Canonical()
	}
	return out
}

func orNull(v ir.IRValue) ir.IRValue {
	if v == nil {
		return ir.IRNull{}
	}
	return v
}
