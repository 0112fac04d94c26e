package reconcile

import (
	"context"
	"sort"

	"feed-merger/core/storage"

	"gorm.io/gorm"
)

// ReconcileAll reconciles every output object, sorted by name.
func ReconcileAll(ctx context.Context, spec *Spec, db *gorm.DB, client storage.Client, bucket string) ([]ReconcileResult, error) {
	cache, err := GetOrBuildCache(ctx, spec, db, client, bucket)
	if err != nil {
		return nil, err
	}
	return reconcileFromCache(cache), nil
}

// reconcileFromCache builds one result per key of either source.
func reconcileFromCache(cache *ReconcileCache) []ReconcileResult {
	union := buildUnion(cache.DBIndex, cache.StorageSet)

	results := make([]ReconcileResult, 0, len(union))
	for key := range union {
		results = append(results, buildResult(key, cache.DBIndex, cache.StorageSet))
	}

	// Sort results by key for deterministic output
	sort.Slice(results, func(i, j int) bool {
		return results[i].ID < results[j].ID
	})
	return results
}

func buildUnion(dbIndex map[string]DBItem, storageSet map[string]struct{}) map[string]struct{} {
	union := make(map[string]struct{}, len(dbIndex)+len(storageSet))
	for key := range dbIndex {
		union[key] = struct{}{}
	}
	for key := range storageSet {
		union[key] = struct{}{}
	}
	return union
}

func buildResult(key string, dbIndex map[string]DBItem, storageSet map[string]struct{}) ReconcileResult {
	item, dbPresent := dbIndex[key]
	_, storagePresent := storageSet[key]
	return ReconcileResult{
		ID:             key,
		RunID:          item.RunID,
		DBPresent:      dbPresent,
		StoragePresent: storagePresent,
	}
}
