package reconcile

import (
	"context"
	"sync"
	"time"

	"feed-merger/core/storage"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// ReconcileCache holds pre-built indices.
type ReconcileCache struct {
	// DBIndex maps output object names to their persisted run.
	DBIndex map[string]DBItem

	// StorageSet is the set of object names present in the bucket.
	StorageSet map[string]struct{}

	// Built is the timestamp when this cache was built.
	Built time.Time

	// TTL is the time-to-live for this cache.
	TTL time.Duration
}

// IsExpired returns true if this cache has expired based on its TTL.
func (c *ReconcileCache) IsExpired() bool {
	if c.TTL == 0 {
		return true // No caching
	}
	return time.Since(c.Built) > c.TTL
}

// cacheStore holds all reconcile caches keyed by spec cache key.
type cacheStore struct {
	mu     sync.RWMutex
	caches map[string]*ReconcileCache
	sf     singleflight.Group
}

// globalCacheStore is the singleton cache store for all reconcile operations.
var globalCacheStore = &cacheStore{
	caches: make(map[string]*ReconcileCache),
}

// BuildCache loads both indices concurrently. It does not store the cache;
// use GetOrBuildCache for that.
func BuildCache(ctx context.Context, spec *Spec, db *gorm.DB, client storage.Client, bucket string) (*ReconcileCache, error) {
	var (
		dbIndex    map[string]DBItem
		storageSet map[string]struct{}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dbIndex, err = spec.Adapter.LoadDBIndex(gctx, db, spec.StoragePrefix)
		return err
	})
	g.Go(func() error {
		var err error
		storageSet, err = spec.Adapter.LoadStorageSet(gctx, client, bucket, spec.StoragePrefix)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ReconcileCache{
		DBIndex:    dbIndex,
		StorageSet: storageSet,
		Built:      time.Now(),
		TTL:        spec.CacheTTL,
	}, nil
}

// GetOrBuildCache retrieves a cache for the given spec from the store,
// or builds a new one if it doesn't exist or has expired.
// Uses singleflight to prevent cache stampedes.
func GetOrBuildCache(ctx context.Context, spec *Spec, db *gorm.DB, client storage.Client, bucket string) (*ReconcileCache, error) {
	cacheKey := spec.CacheKey()

	// Fast path: check if cache exists and is fresh
	globalCacheStore.mu.RLock()
	cache, exists := globalCacheStore.caches[cacheKey]
	globalCacheStore.mu.RUnlock()

	if exists && !cache.IsExpired() {
		return cache, nil
	}

	result, err, _ := globalCacheStore.sf.Do(cacheKey, func() (interface{}, error) {
		// Double-check after acquiring singleflight lock
		globalCacheStore.mu.RLock()
		cache, exists := globalCacheStore.caches[cacheKey]
		globalCacheStore.mu.RUnlock()

		if exists && !cache.IsExpired() {
			return cache, nil
		}

		newCache, err := BuildCache(ctx, spec, db, client, bucket)
		if err != nil {
			return nil, err
		}

		globalCacheStore.mu.Lock()
		globalCacheStore.caches[cacheKey] = newCache
		globalCacheStore.mu.Unlock()

		return newCache, nil
	})

	if err != nil {
		return nil, err
	}

	return result.(*ReconcileCache), nil
}

// InvalidateCache removes the cache for the given spec from the store.
// Applying a plan calls it, since the indices no longer reflect the sources.
func InvalidateCache(spec *Spec) {
	cacheKey := spec.CacheKey()
	globalCacheStore.mu.Lock()
	delete(globalCacheStore.caches, cacheKey)
	globalCacheStore.mu.Unlock()
}
