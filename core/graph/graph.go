package graph

import (
	"errors"
	"fmt"
	"slices"

	"feed-merger/core/identity"

	"github.com/google/uuid"
)

// ErrDuplicateIdentifier is returned when inserting a key that is already taken.
var ErrDuplicateIdentifier = errors.New("duplicate identifier")

// DuplicateError names the colliding entity.
type DuplicateError struct {
	Kind Kind
	ID   identity.ID
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrDuplicateIdentifier, e.Kind, e.ID)
}

func (e *DuplicateError) Unwrap() error {
	return ErrDuplicateIdentifier
}

// Handle is the opaque identity of a graph. Two graphs never share a handle,
// even if they hold the same data.
type Handle = uuid.UUID

// Ref is one foreign key held by an entity.
type Ref struct {
	Column string
	Target Kind
	ID     identity.ID
}

type childKey struct {
	kind   Kind
	parent identity.ID
}

// Graph is the entity store of one feed.
type Graph struct {
	name     string
	handle   Handle
	entities [kindCount]map[identity.ID]Entity
	children map[childKey][]Positional
}

// New creates an empty graph. The name is used in logs and reports.
func New(name string) *Graph {
	g := &Graph{
		name:     name,
		handle:   uuid.New(),
		children: make(map[childKey][]Positional),
	}
	for k := range g.entities {
		g.entities[k] = make(map[identity.ID]Entity)
	}
	return g
}

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// Handle returns the graph identity.
func (g *Graph) Handle() Handle { return g.handle }

// Insert adds an entity. Positional entities are also indexed under their parent.
func (g *Graph) Insert(e Entity) error {
	kind := e.Kind()
	id := e.ID()
	if id.IsZero() {
		return fmt.Errorf("insert %s: empty identifier", kind)
	}
	if _, exists := g.entities[kind][id]; exists {
		return &DuplicateError{Kind: kind, ID: id}
	}

	if SchemaOf(kind).Positional() {
		p, ok := e.(Positional)
		if !ok {
			return fmt.Errorf("insert %s %s: entity is not positional", kind, id)
		}
		key := childKey{kind: kind, parent: p.Parent()}
		siblings := g.children[key]
		// Stable insert: equal positions keep insertion order.
		i := len(siblings)
		for i > 0 && CompareEntities(siblings[i-1], p) > 0 {
			i--
		}
		g.children[key] = slices.Insert(siblings, i, p)
	}

	g.entities[kind][id] = e
	return nil
}

// Lookup returns the entity of the given kind and key.
func (g *Graph) Lookup(kind Kind, id identity.ID) (Entity, bool) {
	e, ok := g.entities[kind][id]
	return e, ok
}

// Has reports whether the key is taken for the kind.
func (g *Graph) Has(kind Kind, id identity.ID) bool {
	_, ok := g.entities[kind][id]
	return ok
}

// Len returns the number of entities of a kind.
func (g *Graph) Len(kind Kind) int {
	return len(g.entities[kind])
}

// Counts returns the number of entities per kind.
func (g *Graph) Counts() map[Kind]int {
	counts := make(map[Kind]int, kindCount)
	for k := range g.entities {
		counts[Kind(k)] = len(g.entities[k])
	}
	return counts
}

// All returns every entity of a kind in CompareEntities order.
func (g *Graph) All(kind Kind) []Entity {
	all := make([]Entity, 0, len(g.entities[kind]))
	for _, e := range g.entities[kind] {
		all = append(all, e)
	}
	slices.SortFunc(all, CompareEntities)
	return all
}

// ChildrenOf returns the positional entities of a kind under parent, ordered.
// The returned slice is a copy.
func (g *Graph) ChildrenOf(parent identity.ID, kind Kind) []Positional {
	return slices.Clone(g.children[childKey{kind: kind, parent: parent}])
}

// ReferencesOf lists the non-empty foreign keys of an entity, in schema order.
func ReferencesOf(e Entity) []Ref {
	var refs []Ref
	for _, c := range SchemaOf(e.Kind()).References() {
		id := e.Ref(c.Name)
		if id.IsZero() {
			continue
		}
		refs = append(refs, Ref{Column: c.Name, Target: c.Target, ID: id})
	}
	return refs
}
