package graph

import (
	"errors"
	"fmt"

	"feed-merger/core/identity"

	"go.uber.org/multierr"
)

// ErrDanglingReference is returned by Validate for each unresolved foreign key.
var ErrDanglingReference = errors.New("dangling reference")

// DanglingError names an unresolved foreign key.
type DanglingError struct {
	Kind   Kind
	Entity identity.ID
	Ref    Ref
}

func (e *DanglingError) Error() string {
	return fmt.Sprintf("%s: %s %s column %s points at missing %s %s",
		ErrDanglingReference, e.Kind, e.Entity, e.Ref.Column, e.Ref.Target, e.Ref.ID)
}

func (e *DanglingError) Unwrap() error {
	return ErrDanglingReference
}

// Validate checks referential integrity: every reference resolves to an
// entity in the same graph and every required reference is set. All problems
// are reported, combined with multierr.
func (g *Graph) Validate() error {
	var err error
	for _, kind := range MergeOrder {
		schema := SchemaOf(kind)
		for _, e := range g.All(kind) {
			for _, c := range schema.References() {
				id := e.Ref(c.Name)
				if id.IsZero() {
					if !c.Optional {
						err = multierr.Append(err, &DanglingError{Kind: kind, Entity: e.ID(), Ref: Ref{Column: c.Name, Target: c.Target}})
					}
					continue
				}
				if !g.Has(c.Target, id) {
					err = multierr.Append(err, &DanglingError{Kind: kind, Entity: e.ID(), Ref: Ref{Column: c.Name, Target: c.Target, ID: id}})
				}
			}
		}
	}
	return err
}

// Unordered counts the entities of kind that sort before the previous sibling
// in the given sequence. Graphs always store children ordered; this reports on
// the order entities were presented in, e.g. by a feed file.
func Unordered(kind Kind, items []Positional) int {
	seen := make(map[identity.ID]Positional)
	violations := 0
	for _, p := range items {
		if p.Kind() != kind {
			continue
		}
		if prev, ok := seen[p.Parent()]; ok && ComparePositional(prev, p) > 0 {
			violations++
		}
		seen[p.Parent()] = p
	}
	return violations
}
