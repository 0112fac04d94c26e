package cache

import (
	"fmt"
	"sync"
	"sync/atomic"

	"feed-merger/core/graph"
	"feed-merger/core/identity"

	"golang.org/x/sync/singleflight"
)

// Key identifies one entity of one graph.
type Key struct {
	Graph graph.Handle
	Kind  graph.Kind
	ID    identity.ID
}

// KeyOf builds the key of an entity of g.
func KeyOf(g *graph.Graph, e graph.Entity) Key {
	return Key{Graph: g.Handle(), Kind: e.Kind(), ID: e.ID()}
}

func (k Key) String() string {
	return k.Graph.String() + "|" + k.Kind.String() + "|" + identity.Format(k.ID)
}

// Cache holds memoized values.
type Cache struct {
	mu     sync.RWMutex
	values map[Key]any
	sf     singleflight.Group

	computations atomic.Int64
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{values: make(map[Key]any)}
}

// GetOrCompute returns the value cached under key, computing and storing it
// on first use. Failed computations are not cached.
func GetOrCompute[V any](c *Cache, key Key, compute func() (V, error)) (V, error) {
	var zero V

	// Fast path
	c.mu.RLock()
	v, ok := c.values[key]
	c.mu.RUnlock()
	if ok {
		return typed[V](key, v)
	}

	result, err, _ := c.sf.Do(key.String(), func() (interface{}, error) {
		// A computation for this key may have finished between the fast path and here.
		c.mu.RLock()
		v, ok := c.values[key]
		c.mu.RUnlock()
		if ok {
			return v, nil
		}

		computed, err := compute()
		if err != nil {
			return nil, err
		}
		c.computations.Add(1)

		c.mu.Lock()
		c.values[key] = computed
		c.mu.Unlock()
		return computed, nil
	})
	if err != nil {
		return zero, err
	}
	return typed[V](key, result)
}

// Prime stores v under key unless a value is already present. It reports
// whether v was stored.
func (c *Cache) Prime(key Key, v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.values[key]; ok {
		return false
	}
	c.values[key] = v
	return true
}

// Len returns the number of cached values.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Computations returns how many compute functions have completed successfully.
func (c *Cache) Computations() int64 {
	return c.computations.Load()
}

func typed[V any](key Key, v any) (V, error) {
	t, ok := v.(V)
	if !ok {
		var zero V
		return zero, fmt.Errorf("cache entry %s holds %T, want %T", key, v, zero)
	}
	return t, nil
}
