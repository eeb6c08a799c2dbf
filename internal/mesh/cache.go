package mesh

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// CachingLoader memoizes successful loads for the lifetime of the session.
// Concurrent requests for the same path share a single underlying load.
// Failures are not cached so a later attempt can succeed.
type CachingLoader struct {
	next  Loader
	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]*Mesh
}

// NewCachingLoader wraps next with a per-session cache.
func NewCachingLoader(next Loader) *CachingLoader {
	return &CachingLoader{next: next, cache: make(map[string]*Mesh)}
}

// Load returns the cached mesh for path or loads it through the wrapped loader.
func (c *CachingLoader) Load(ctx context.Context, path string) (*Mesh, error) {
	c.mu.RLock()
	m, ok := c.cache[path]
	c.mu.RUnlock()
	if ok {
		return m, nil
	}

	v, err, _ := c.group.Do(path, func() (any, error) {
		c.mu.RLock()
		m, ok := c.cache[path]
		c.mu.RUnlock()
		if ok {
			return m, nil
		}

		m, err := c.next.Load(ctx, path)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[path] = m
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Mesh), nil
}

// Len returns the number of cached meshes.
func (c *CachingLoader) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
