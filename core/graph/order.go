package graph

import (
	"cmp"

	"feed-merger/core/identity"
)

// CompareShapePoints orders shape points by (shape, sequence).
func CompareShapePoints(a, b *ShapePoint) int {
	if c := identity.Compare(a.ShapeID, b.ShapeID); c != 0 {
		return c
	}
	return cmp.Compare(a.Seq, b.Seq)
}

// CompareStopTimes orders stop times by (trip, stop sequence).
func CompareStopTimes(a, b *StopTime) int {
	if c := identity.Compare(a.TripID, b.TripID); c != 0 {
		return c
	}
	return cmp.Compare(a.StopSequence, b.StopSequence)
}

// ComparePositional orders any positional entities by (parent, sequence).
func ComparePositional(a, b Positional) int {
	if c := identity.Compare(a.Parent(), b.Parent()); c != 0 {
		return c
	}
	return cmp.Compare(a.Sequence(), b.Sequence())
}

// CompareEntities is the total order used for deterministic iteration:
// positional entities by (parent, sequence) then key, everything else by key.
func CompareEntities(a, b Entity) int {
	pa, okA := a.(Positional)
	pb, okB := b.(Positional)
	if okA && okB {
		if c := ComparePositional(pa, pb); c != 0 {
			return c
		}
	}
	return identity.Compare(a.ID(), b.ID())
}
