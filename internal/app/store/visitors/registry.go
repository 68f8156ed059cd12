// internal/app/store/visitors/registry.go
package visitors

import (
	"sync"
	"time"
)

// Registry hands out one Table per browser session.
//
// Tables live only in memory. A table that has not been touched for longer
// than the idle timeout is dropped by Sweep.
type Registry struct {
	mu     sync.Mutex
	tables map[string]*entry
	now    func() time.Time
}

type entry struct {
	table    *Table
	lastUsed time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tables: make(map[string]*entry),
		now:    time.Now,
	}
}

// Table returns the table for key, creating it on first use.
func (r *Registry) Table(key string) *Table {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.tables[key]
	if !ok {
		e = &entry{table: NewTable()}
		r.tables[key] = e
	}
	e.lastUsed = r.now()
	return e.table
}

// Drop forgets the table for key. The next Table call starts an empty log.
func (r *Registry) Drop(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tables, key)
}

// Sweep drops tables idle for longer than idle and returns how many it removed.
func (r *Registry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idle)
	removed := 0
	for key, e := range r.tables {
		if e.lastUsed.Before(cutoff) {
			delete(r.tables, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live tables.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tables)
}
