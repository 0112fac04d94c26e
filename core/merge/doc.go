// Package merge combines several feed graphs into one consistent graph.
//
// The engine walks the entity kinds in graph.MergeOrder. For every source
// graph and every entity of the current kind, in key order, it:
//
//  1. rewrites the entity's foreign keys through the remapping tables of the
//     kinds it references, failing with ErrUnresolvedReference when a
//     referenced key was never merged;
//  2. asks the kind's Strategy to classify the rewritten candidate against the
//     target built so far as Insert, Reuse or Conflict;
//  3. assigns a target key (renaming on Conflict), inserts the entity when it
//     is new, and records the mapping in the remapping table of
//     (source graph, kind).
//
// Because each kind only consults tables of kinds that are already complete,
// the target graph never holds a dangling reference.
//
// # Strategies
//
// Duplicate detection is kind specific:
//   - Agencies are duplicates when id, name and timezone match.
//   - Stops are duplicates when names match and coordinates lie within the
//     configured tolerance. With fuzzy matching enabled, stops under other
//     ids are found through a spatial grid index.
//   - Calendars are duplicates when their expanded service dates are equal.
//   - Every other kind is a duplicate only on an id collision with byte-equal
//     content. Parent kinds (trips, shapes, fares) include their ordered
//     children in that content.
//
// Renamed keys take the form "<local>-n" and never use a key that any source
// holds for the same kind. Children of a parent that was reused follow the
// parent: a child whose key the target already has is reused, any other is
// dropped, so a (parent, sequence) pair is never repeated.
//
// Signatures used for these comparisons are computed on worker goroutines and
// memoized in a cache.Cache scoped to the run. Identifier assignment stays
// sequential so renames always see earlier renames.
//
// # Usage
//
//	engine, err := merge.NewEngine(cfg, merge.WithLogger(logger))
//	result, err := engine.Merge(ctx, feedA, feedB)
//	fmt.Println(result.Report.Kinds)
package merge
