package mapper

import (
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Cache holds one fully built instance per Key for the lifetime of the process.
//
// Entries are only ever inserted. Concurrent GetOrCreate calls for the same
// key share a single factory invocation; calls for different keys do not
// block each other. A failed factory stores nothing, so the next call retries.
type Cache struct {
	items sync.Map // map[Key]any
	group singleflight.Group
	count atomic.Int64
}

// NewCache returns an empty cache.
func NewCache() *Cache { return &Cache{} }

// Lookup returns the instance stored under key.
func (c *Cache) Lookup(key Key) (any, bool) {
	return c.items.Load(key)
}

// GetOrCreate returns the instance stored under key, calling factory to build
// and store it on a miss.
//
// The second return value reports whether the instance was already cached
// when the call started (false for the caller that built it and for callers
// that waited on that build).
func (c *Cache) GetOrCreate(key Key, factory func() (any, error)) (any, bool, error) {
	if v, ok := c.items.Load(key); ok {
		return v, true, nil
	}

	v, err, _ := c.group.Do(string(key), func() (any, error) {
		// A previous flight may have finished between Load and Do.
		if v, ok := c.items.Load(key); ok {
			return v, nil
		}
		inst, err := factory()
		if err != nil {
			return nil, err
		}
		c.items.Store(key, inst)
		c.count.Add(1)
		return inst, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v, false, nil
}

// Len returns the number of cached instances.
func (c *Cache) Len() int { return int(c.count.Load()) }

// Keys returns the cached keys in sorted order.
func (c *Cache) Keys() []Key {
	out := make([]Key, 0, c.Len())
	c.items.Range(func(k, _ any) bool {
		out = append(out, k.(Key))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
