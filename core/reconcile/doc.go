// Package reconcile reconciles the two records of a merge output: the run
// persisted in the database and the merged archive stored in the bucket.
//
// A merge writes its archive to the bucket and, when a database is
// configured, the run and its entities to the feed store. The two drift
// apart when archives are removed by hand or a run is saved elsewhere.
//
// # Architecture
//
// 1. Engine: builds the union of keys (output object names) from both
// sources and reports where each one is present.
//
// 2. Adapter: loads the database index and the storage set. Adapters that
// also implement Mutator can apply plans.
//
// 3. Cache: TTL-based cache of the indices with stampede protection, so
// repeated plans do not list the bucket again.
//
// # Usage Example
//
//	spec := &reconcile.Spec{Adapter: adapter, CacheTTL: time.Minute, StoragePrefix: "merged/"}
//	plan, err := reconcile.ReconcileWithPlan(ctx, spec, db, client, bucket, reconcile.ReconcileOptions{DoRestore: true})
//	executed, err := reconcile.ApplyPlan(ctx, spec, plan, reconcile.ReconcileOptions{DoRestore: true, Confirmed: true})
package reconcile
