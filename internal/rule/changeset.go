package rule

import (
	"fmt"
	"sort"

	"github.com/roach88/tagrules/internal/ir"
)

// ChangeSet is the (mutations, deletions) pair of a rule.
type ChangeSet struct {
	Mutations map[string]string
	Deletions []string // sorted, unique
}

// ApplyTo mutates r in place: every mutation first, then every deletion.
// A field both set and deleted by the same change-set ends up absent.
// Deleting an absent field is a no-op, so applying twice equals applying once.
//
// Mutations are applied in field-name order. The first value the record
// rejects aborts the application and is returned.
func (cs ChangeSet) ApplyTo(r ir.Record) error {
	for _, field := range sortedKeys(cs.Mutations) {
		if err := r.Set(field, cs.Mutations[field]); err != nil {
			return fmt.Errorf("set %s on %s %d: %w", field, r.Entity(), r.ID(), err)
		}
	}

	for _, field := range cs.Deletions {
		if r.Has(field) {
			r.Remove(field)
		}
	}
	return nil
}

// Empty reports whether applying the change-set can never change a record.
func (cs ChangeSet) Empty() bool {
	return len(cs.Mutations) == 0 && len(cs.Deletions) == 0
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
