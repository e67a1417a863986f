package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/voucherverse/storefront-api/internal/domain"
	"github.com/voucherverse/storefront-api/internal/observability"
	"github.com/voucherverse/storefront-api/internal/realtime"
)

// ListingCache keeps the active products of a (business, category) pair as
// loaded from the store. Window filtering, search and ranking run per
// request on a copy, so cached entries never go stale with the clock; only
// store changes make them stale. Writers of this process invalidate
// directly; writes of other processes arrive as catalog events or expire
// with the TTL.
type ListingCache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[listingKey]listingEntry
	epoch   map[uint]uint64 // per business, bumped by Invalidate
	gen     uint64          // bumped when everything is dropped
}

type listingKey struct {
	business uint
	category uint // 0 means all
}

type listingEntry struct {
	products []domain.Product
	expires  time.Time
}

// NewListingCache returns a cache; a non-positive ttl disables it.
func NewListingCache(ttl time.Duration) *ListingCache {
	return &ListingCache{
		ttl:     ttl,
		entries: make(map[listingKey]listingEntry),
		epoch:   make(map[uint]uint64),
	}
}

func keyFor(businessID uint, categoryID *uint) listingKey {
	k := listingKey{business: businessID}
	if categoryID != nil {
		k.category = *categoryID
	}
	return k
}

// get returns a copy of the entry under k. On a miss it also returns the
// business's epoch, which the caller hands back to put with what it loaded.
func (c *ListingCache) get(k listingKey, now time.Time) ([]domain.Product, uint64, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok || now.After(e.expires) {
		delete(c.entries, k)
		observability.ListingCacheTotal.WithLabelValues("miss").Inc()
		return nil, c.stamp(k.business), false
	}
	observability.ListingCacheTotal.WithLabelValues("hit").Inc()
	return append([]domain.Product(nil), e.products...), 0, true
}

// put stores ps unless the business was invalidated since get returned ep;
// such a load may predate the write that invalidated it.
func (c *ListingCache) put(k listingKey, ps []domain.Product, ep uint64, now time.Time) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stamp(k.business) != ep {
		observability.ListingCacheTotal.WithLabelValues("discard").Inc()
		return
	}
	c.entries[k] = listingEntry{products: append([]domain.Product(nil), ps...), expires: now.Add(c.ttl)}
}

// Invalidate drops every entry of a business. Loads already in flight for
// it are not stored.
func (c *ListingCache) Invalidate(businessID uint) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch[businessID]++
	for k := range c.entries {
		if k.business == businessID {
			delete(c.entries, k)
		}
	}
}

func (c *ListingCache) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	clear(c.entries)
}

// stamp only grows, so any invalidation since a get changes it. mu must be
// held.
func (c *ListingCache) stamp(businessID uint) uint64 {
	return c.gen + c.epoch[businessID]
}

// Len reports the number of cached entries.
func (c *ListingCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Watch follows the catalog feed of all businesses and invalidates the one
// each event names, until ctx ends or cancel is called. An event without a
// business drops the whole cache.
func (c *ListingCache) Watch(ctx context.Context, b realtime.Broker) (func(), error) {
	return b.Subscribe(ctx, realtime.CatalogFeedTopic, func(ev realtime.Event) {
		var d realtime.CatalogData
		if err := json.Unmarshal(ev.Data, &d); err != nil || d.BusinessID == 0 {
			c.invalidateAll()
			return
		}
		c.Invalidate(d.BusinessID)
	})
}
