package client

import (
	"context"
	"sync"

	"github.com/voucherverse/storefront-api/internal/services"
)

// Pager walks the product listing page by page ("load more"), accumulating
// the items loaded so far. Pages go through the store's cache.
type Pager struct {
	store *Store
	query ProductQuery

	mu    sync.Mutex
	items []services.ProductView
	next  int
	total int
	done  bool
	gen   int
}

// Pager returns a pager over q; q.Page is ignored and q.Limit defaults to
// the server's page size.
func (s *Store) Pager(q ProductQuery) *Pager {
	if q.Limit <= 0 {
		q.Limit = services.DefaultPageSize
	}
	q.BusinessID = s.businessID
	return &Pager{store: s, query: q, next: 1}
}

// Next loads the following page and returns its items. At the end it
// returns no items and a nil error.
func (p *Pager) Next(ctx context.Context) ([]services.ProductView, error) {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return nil, nil
	}
	q := p.query
	q.Page = p.next
	gen := p.gen
	p.mu.Unlock()

	page, err := p.store.Products(ctx, q)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen || q.Page != p.next {
		// reset or a concurrent Next while loading
		return nil, nil
	}
	p.items = append(p.items, page.Data...)
	p.total = page.Count
	p.next++
	p.done = len(page.Data) == 0 || len(p.items) >= page.Count
	return page.Data, nil
}

// Items returns everything loaded so far.
func (p *Pager) Items() []services.ProductView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]services.ProductView(nil), p.items...)
}

// Total is the filtered total reported by the last page.
func (p *Pager) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

// HasMore reports whether Next may return more items.
func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.done
}

// Reset drops the loaded items and restarts from the first page.
func (p *Pager) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items, p.total, p.next, p.done = nil, 0, 1, false
	p.gen++
}
