package server

import (
	"sort"
	"sync"
)

// TableSet owns the live tables. Ids are dense small positive integers: the
// smallest unused id is assigned and becomes available again once the table
// is destroyed, so long-running servers do not accumulate id space.
type TableSet struct {
	mu     sync.RWMutex
	tables map[int]*Table
}

func NewTableSet() *TableSet {
	return &TableSet{tables: make(map[int]*Table)}
}

// Insert allocates the smallest free id and stores the table built for it.
// Allocation and insertion happen under one lock so two creators can never
// claim the same id.
func (ts *TableSet) Insert(build func(id int) *Table) *Table {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	id := 1
	for {
		if _, taken := ts.tables[id]; !taken {
			break
		}
		id++
	}
	t := build(id)
	ts.tables[id] = t
	return t
}

func (ts *TableSet) Get(id int) (*Table, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	t, ok := ts.tables[id]
	return t, ok
}

// Remove releases the id for reuse.
func (ts *TableSet) Remove(id int) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	delete(ts.tables, id)
}

// Snapshot returns the live tables ordered by id.
func (ts *TableSet) Snapshot() []*Table {
	ts.mu.RLock()
	out := make([]*Table, 0, len(ts.tables))
	for _, t := range ts.tables {
		out = append(out, t)
	}
	ts.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (ts *TableSet) Count() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.tables)
}
