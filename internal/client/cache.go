package client

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Fetcher loads the value stored under a cache key.
type Fetcher func(ctx context.Context) (any, error)

type cacheEntry struct {
	val     any
	fetched time.Time
}

// loadState lives while a key has callers in load. Invalidate bumps epoch
// so flights started earlier do not store their result.
type loadState struct {
	epoch   uint64
	waiters int
}

// Cache is a stale-while-revalidate cache. Concurrent fetches of one key
// share a single request. A fresh entry is served as is; a stale entry is
// served immediately while one background fetch refreshes it; an
// invalidated or missing entry is fetched in the caller's goroutine.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
	loads   map[string]*loadState // keys with a load in flight

	group singleflight.Group
	bg    sync.WaitGroup
}

// NewCache returns a cache whose entries turn stale after ttl. ttl <= 0
// makes every hit stale.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
		loads:   make(map[string]*loadState),
	}
}

// Fetch returns the value under key, loading it with fn when needed.
func (c *Cache) Fetch(ctx context.Context, key string, fn Fetcher) (any, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()

	if ok {
		if c.now().Sub(e.fetched) >= c.ttl {
			c.revalidate(ctx, key, fn)
		}
		return e.val, nil
	}
	return c.load(ctx, key, fn)
}

// load runs fn once for all concurrent callers of key and stores the result
// unless the key was invalidated while fn ran.
func (c *Cache) load(ctx context.Context, key string, fn Fetcher) (any, error) {
	c.mu.Lock()
	st, ok := c.loads[key]
	if !ok {
		st = &loadState{}
		c.loads[key] = st
	}
	st.waiters++
	ep := st.epoch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if st.waiters--; st.waiters == 0 {
			delete(c.loads, key)
		}
		c.mu.Unlock()
	}()

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		e, ok := c.entries[key]
		c.mu.Unlock()
		if ok && c.now().Sub(e.fetched) < c.ttl {
			// a flight that just finished stored it
			return e.val, nil
		}
		val, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if cur := c.loads[key]; cur != nil && cur.epoch == ep {
			c.entries[key] = cacheEntry{val: val, fetched: c.now()}
		}
		c.mu.Unlock()
		return val, nil
	})
	return v, err
}

func (c *Cache) revalidate(ctx context.Context, key string, fn Fetcher) {
	bgCtx := context.WithoutCancel(ctx)
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		// errors keep the stale value; the next stale hit retries
		_, _ = c.load(bgCtx, key, fn)
	}()
}

// Invalidate drops every entry whose key starts with prefix. Fetches in
// flight for those keys do not store their result.
func (c *Cache) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			n++
		}
	}
	for k, st := range c.loads {
		if strings.HasPrefix(k, prefix) {
			st.epoch++
			c.group.Forget(k)
		}
	}
	return n
}

// Peek returns the cached value of key without fetching.
func (c *Cache) Peek(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e.val, ok
}

// Wait blocks until background revalidations finish.
func (c *Cache) Wait() { c.bg.Wait() }

// Get is Fetch with a typed result.
func Get[T any](ctx context.Context, c *Cache, key string, fn func(context.Context) (T, error)) (T, error) {
	v, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) { return fn(ctx) })
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
