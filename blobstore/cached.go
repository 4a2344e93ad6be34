package blobstore

import (
	"context"
	"sync"
)

// Cached wraps a Store with whole-object read-through caching. Archived
// result sets are immutable, so cached reads only have to be
// invalidated when the same name is rewritten or deleted.
type Cached struct {
	inner Store

	mu    sync.RWMutex
	cache map[string][]byte
}

// NewCached creates a caching wrapper around inner.
func NewCached(inner Store) *Cached {
	return &Cached{inner: inner, cache: make(map[string][]byte)}
}

// Put implements Store. The cache entry for name is invalidated.
func (c *Cached) Put(ctx context.Context, name string, data []byte) error {
	c.mu.Lock()
	delete(c.cache, name)
	c.mu.Unlock()
	return c.inner.Put(ctx, name, data)
}

// Get implements Store.
func (c *Cached) Get(ctx context.Context, name string) ([]byte, error) {
	c.mu.RLock()
	data, ok := c.cache[name]
	c.mu.RUnlock()
	if ok {
		return data, nil
	}

	data, err := c.inner.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cache[name] = data
	c.mu.Unlock()
	return data, nil
}

// Delete implements Store.
func (c *Cached) Delete(ctx context.Context, name string) error {
	c.mu.Lock()
	delete(c.cache, name)
	c.mu.Unlock()
	return c.inner.Delete(ctx, name)
}

// List implements Store. Listings always hit the inner store.
func (c *Cached) List(ctx context.Context, prefix string) ([]string, error) {
	return c.inner.List(ctx, prefix)
}
