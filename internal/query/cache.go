// Package query caches the results of upstream reads by query key.
//
// Concurrent reads of the same key share one upstream call, which is not
// cancelled when one of the callers gives up. Successful results are kept for
// the cache TTL; failures are never cached, so the next read retries.
package query

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key joins query key parts, e.g. Key("Debt", "WalletDebtData", addr, "1").
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// FetchFunc loads the value for a key from upstream.
type FetchFunc[T any] func(ctx context.Context) (T, error)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Cache is a TTL cache with per-key request deduplication.
type Cache[T any] struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	entries map[string]entry[T]
	gens    map[string]uint64
	group   singleflight.Group
}

// New creates a Cache whose entries live for ttl.
func New[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry[T]),
		gens:    make(map[string]uint64),
	}
}

// Get returns the cached value for key or loads it with fetch. A caller whose
// ctx ends stops waiting, but the shared fetch keeps running for the others.
func (c *Cache[T]) Get(ctx context.Context, key string, fetch FetchFunc[T]) (T, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		gen := c.generation(key)
		v, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		c.store(key, v, gen)
		return v, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Invalidate drops the cached value for key. A fetch already running for key
// still answers its callers but its result is not cached.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.gens[key]++
	c.group.Forget(key)
}

func (c *Cache[T]) generation(key string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[key]
}

func (c *Cache[T]) lookup(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// store caches v unless key was invalidated after gen was read.
func (c *Cache[T]) store(key string, v T, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[key] != gen {
		return
	}
	c.entries[key] = entry[T]{
		value:     v,
		expiresAt: c.now().Add(c.ttl),
	}
}
