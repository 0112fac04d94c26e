// Package cache memoizes expensive per-entity values for one merge run.
//
// Values are keyed by the source graph handle, the entity kind and the
// entity's scoped identifier, so the same local id in two unrelated feeds
// never shares an entry. GetOrCompute runs the compute function at most once
// per key, even under concurrent callers, using singleflight to collapse
// in-flight computations.
//
// Fingerprints are 256-bit HighwayHash digests of canonical column values and
// are the typical cached value: two entities are byte-equal exactly when their
// fingerprints match.
//
// A Cache belongs to a single merge run and is discarded with it.
package cache
