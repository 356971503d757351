package identity

import (
	"runtime"
	"slices"
	"sync"
	"weak"

	"github.com/roach88/tagrules/internal/ir"
)

// Cache maps (entity type, id) to the canonical live record.
//
// T is the concrete record struct and P its pointer type. Fixing T at
// compile time is how the cache guarantees that every record it tracks has
// the same shape.
//
// Cache is safe for concurrent use. Canonicalize and the lookups are meant
// to be called from one goroutine; the mutex exists because runtime
// cleanups run on a goroutine of their own.
type Cache[T any, P interface {
	*T
	ir.Record
}] struct {
	mu     sync.Mutex
	tables map[ir.EntityType]map[int64]weak.Pointer[T]
}

// New creates an empty cache.
func New[T any, P interface {
	*T
	ir.Record
}]() *Cache[T, P] {
	return &Cache[T, P]{tables: make(map[ir.EntityType]map[int64]weak.Pointer[T])}
}

type entry[T any] struct {
	key ir.Key
	ref weak.Pointer[T]
}

// Canonicalize returns the tracked instance for rec's key if one is still
// alive, leaving rec untouched. Otherwise rec becomes the canonical instance
// and is returned.
func (c *Cache[T, P]) Canonicalize(rec P) P {
	if rec == nil {
		return nil
	}
	key := ir.KeyOf(rec)

	c.mu.Lock()
	defer c.mu.Unlock()

	table := c.tables[key.Entity]
	if table == nil {
		table = make(map[int64]weak.Pointer[T])
		c.tables[key.Entity] = table
	}

	if ref, ok := table[key.ID]; ok {
		if live := ref.Value(); live != nil {
			return P(live)
		}
	}

	ptr := (*T)(rec)
	ref := weak.Make(ptr)
	table[key.ID] = ref
	runtime.AddCleanup(ptr, c.evict, entry[T]{key: key, ref: ref})
	return rec
}

// evict drops the entry for a collected record unless the key has since
// been re-registered with a newer instance.
func (c *Cache[T, P]) evict(e entry[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	table := c.tables[e.key.Entity]
	if ref, ok := table[e.key.ID]; ok && ref == e.ref {
		delete(table, e.key.ID)
	}
}

// Contains reports whether a live instance is tracked for rec's key.
func (c *Cache[T, P]) Contains(rec ir.Record) bool {
	key := ir.KeyOf(rec)

	c.mu.Lock()
	defer c.mu.Unlock()

	ref, ok := c.tables[key.Entity][key.ID]
	return ok && ref.Value() != nil
}

// Lookup returns the live instance tracked for key, if any.
func (c *Cache[T, P]) Lookup(key ir.Key) (P, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ref, ok := c.tables[key.Entity][key.ID]
	if !ok {
		return nil, false
	}
	live := ref.Value()
	if live == nil {
		return nil, false
	}
	return P(live), true
}

// AllTracked returns every live canonical record of entity, ordered by id.
func (c *Cache[T, P]) AllTracked(entity ir.EntityType) []P {
	c.mu.Lock()
	defer c.mu.Unlock()

	table := c.tables[entity]
	ids := make([]int64, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]P, 0, len(ids))
	for _, id := range ids {
		if live := table[id].Value(); live != nil {
			out = append(out, P(live))
		}
	}
	return out
}

// Len returns the number of entries for entity, including entries whose
// record has become unreachable but has not been cleaned up yet.
func (c *Cache[T, P]) Len(entity ir.EntityType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tables[entity])
}
