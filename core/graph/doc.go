// Package graph provides the in-memory entity graph of one transit feed.
//
// Entities form a closed set of tagged variants, one Go type per Kind. Every
// kind has a static Schema listing its columns and, for reference columns,
// the kind they point at. The merge engine rewrites foreign keys generically
// from these schemas instead of knowing about individual entity types.
//
// Positional kinds (shape points, calendar dates, stop times, fare rules) are
// ordered within a parent by a sequence number. Their key is derived from the
// parent and the sequence with ChildKey, and ChildrenOf always returns them in
// the order defined by ComparePositional.
//
// A Graph is mutated only through Insert. Entities are never updated in
// place; a changed entity is a new entity under a new key. Graphs are safe for
// concurrent readers once loading has finished, but not for concurrent
// mutation.
package graph
