package merge

import (
	"fmt"
	"sync"

	"feed-merger/core/graph"
	"feed-merger/core/identity"
)

// Table maps the keys of one kind in one source graph onto target keys.
// It is filled during the kind's pass and frozen when the pass completes.
type Table struct {
	mu     sync.RWMutex
	source string
	kind   graph.Kind
	ids    map[identity.ID]identity.ID
	frozen bool
}

func newTable(source string, kind graph.Kind) *Table {
	return &Table{source: source, kind: kind, ids: make(map[identity.ID]identity.ID)}
}

// Lookup returns the target key assigned to a source key.
func (t *Table) Lookup(id identity.ID) (identity.ID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	to, ok := t.ids[id]
	return to, ok
}

// Len returns the number of mappings.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ids)
}

// Frozen reports whether the kind's pass has completed.
func (t *Table) Frozen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frozen
}

func (t *Table) put(from, to identity.ID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.frozen {
		return fmt.Errorf("remapping table %s/%s is frozen", t.source, t.kind)
	}
	if prev, ok := t.ids[from]; ok && prev != to {
		return fmt.Errorf("remapping table %s/%s: %s already mapped to %s", t.source, t.kind, from, prev)
	}
	t.ids[from] = to
	return nil
}

func (t *Table) freeze() {
	t.mu.Lock()
	t.frozen = true
	t.mu.Unlock()
}

type tableKey struct {
	source graph.Handle
	kind   graph.Kind
}

// Tables holds every remapping table of a run.
type Tables struct {
	mu     sync.RWMutex
	tables map[tableKey]*Table
}

func newTables() *Tables {
	return &Tables{tables: make(map[tableKey]*Table)}
}

// Get returns the table of (source, kind), or nil before its pass started.
func (ts *Tables) Get(source *graph.Graph, kind graph.Kind) *Table {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.tables[tableKey{source: source.Handle(), kind: kind}]
}

func (ts *Tables) create(source *graph.Graph, kind graph.Kind) *Table {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t := newTable(source.Name(), kind)
	ts.tables[tableKey{source: source.Handle(), kind: kind}] = t
	return t
}
