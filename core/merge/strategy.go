package merge

import (
	"fmt"

	"feed-merger/core/cache"
	"feed-merger/core/graph"
	"feed-merger/core/identity"
)

// Candidate is a source entity on its way into the target.
type Candidate struct {
	// Source is the graph the entity comes from.
	Source *graph.Graph
	// SourceID is the entity's key in Source.
	SourceID identity.ID
	// Entity has every foreign key rewritten into target keys. Positional
	// entities carry a key re-derived from the rewritten parent.
	Entity graph.Entity
	// Signature is the strategy's comparison value, computed once per run.
	Signature any
}

// Verdict is a strategy's classification of a candidate.
type Verdict struct {
	Decision Decision
	// Match is the target key a Reuse maps onto.
	Match  identity.ID
	Reason string
}

// Strategy encapsulates the duplicate detection of one kind.
type Strategy interface {
	// Signature computes the value Classify compares. It runs on worker
	// goroutines and may only read source graphs and completed tables.
	Signature(run *Run, c *Candidate) (any, error)
	// Classify decides the candidate against the target built so far.
	Classify(run *Run, c *Candidate) (Verdict, error)
	// ApplyInsert returns the entity to insert under the assigned key.
	ApplyInsert(c *Candidate, assigned identity.ID) graph.Entity
}

// insertObserver is implemented by strategies that index inserted entities.
type insertObserver interface {
	inserted(run *Run, c *Candidate, e graph.Entity)
}

// Registry holds one strategy per kind.
type Registry map[graph.Kind]Strategy

// DefaultRegistry returns the built-in strategies.
func DefaultRegistry() Registry {
	r := Registry{
		graph.KindAgency:   agencyStrategy{},
		graph.KindStop:     stopStrategy{},
		graph.KindCalendar: calendarStrategy{},
	}
	for _, kind := range graph.MergeOrder {
		if _, ok := r[kind]; !ok {
			r[kind] = exactStrategy{}
		}
	}
	return r
}

func (r Registry) validate() error {
	for _, kind := range graph.MergeOrder {
		if r[kind] == nil {
			return fmt.Errorf("no merge strategy registered for %s", kind)
		}
	}
	return nil
}

// rebind is the ApplyInsert shared by the built-in strategies: references
// are already rewritten, only the key changes.
type rebind struct{}

func (rebind) ApplyInsert(c *Candidate, assigned identity.ID) graph.Entity {
	return c.Entity.Rebind(assigned, nil)
}

// contentValues returns the column values of e without its own key and parent.
func contentValues(e graph.Entity) []string {
	schema := graph.SchemaOf(e.Kind())
	values := e.Values()
	content := make([]string, 0, len(values))
	for i, c := range schema.Columns {
		if c.Role == graph.RoleID || c.Role == graph.RoleParent {
			continue
		}
		content = append(content, values[i])
	}
	return content
}

// fingerprint digests a candidate's content followed by the content of its
// ordered children, with the children's references rewritten as well.
func (r *Run) fingerprint(c *Candidate) (cache.Fingerprint, error) {
	d := cache.NewDigest()
	d.Record(contentValues(c.Entity)...)

	schema := graph.SchemaOf(c.Entity.Kind())
	if schema.HasChild {
		for _, child := range c.Source.ChildrenOf(c.SourceID, schema.Child) {
			rewritten, err := r.rewrite(c.Source, child, true)
			if err != nil {
				return cache.Fingerprint{}, err
			}
			d.Record(contentValues(rewritten)...)
		}
	}
	return d.Sum(), nil
}
