package testutil

import (
	"context"
	"iter"
	"sort"

	"github.com/roach88/tagrules/internal/ir"
	"github.com/roach88/tagrules/internal/queryir"
)

// MemStore is a raw, non-deduplicating record source.
//
// Like a real database wrapper, every Fetch returns fresh *Record values: two
// fetches of the same row never share an object.
type MemStore struct {
	rows    map[ir.Key]ir.IRObject
	reject  map[string]bool
	Fetches int
	Err     error // returned by Fetch when set
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{rows: make(map[ir.Key]ir.IRObject)}
}

// Put inserts or replaces a row.
func (s *MemStore) Put(kind ir.EntityType, id int64, fields ir.IRObject) {
	s.rows[ir.Key{Entity: kind, ID: id}] = fields.Clone()
}

// RejectField makes every record handed out reject Set on field.
func (s *MemStore) RejectField(field string) {
	if s.reject == nil {
		s.reject = make(map[string]bool)
	}
	s.reject[field] = true
}

// Fetch yields fresh copies of every matching row of kind in id order.
func (s *MemStore) Fetch(ctx context.Context, kind ir.EntityType, pred queryir.Predicate, _ queryir.Sort) iter.Seq2[*Record, error] {
	s.Fetches++
	return func(yield func(*Record, error) bool) {
		if s.Err != nil {
			yield(nil, s.Err)
			return
		}

		var ids []int64
		for k := range s.rows {
			if k.Entity == kind {
				ids = append(ids, k.ID)
			}
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			rec := NewRecord(kind, id, s.rows[ir.Key{Entity: kind, ID: id}])
			rec.Reject = s.reject
			if !queryir.Match(pred, rec) {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}
