// Package services – CatalogService
//
// This file implements product listing for the storefront. Active products
// are loaded with their voucher, rating aggregate, category and images;
// vouchers outside their claim window are hidden; an optional free-text
// search narrows the set; the remainder is ranked and paginated.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/voucherverse/storefront-api/internal/domain"
	"github.com/voucherverse/storefront-api/internal/repo"
	"github.com/voucherverse/storefront-api/internal/search"
	"github.com/voucherverse/storefront-api/internal/utils"
)

// Listing limits.
const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

// ProductQuery selects a listing page. Page and Limit are untrusted and
// clamped.
type ProductQuery struct {
	BusinessID uint
	CategoryID *uint
	Search     string
	Page       int
	Limit      int
}

// ProductView is a product with the values the product card derives.
type ProductView struct {
	domain.Product
	AverageRating   float64           `json:"average_rating"`
	TotalRatings    int               `json:"total_ratings"`
	Stars           domain.StarFill   `json:"stars"`
	RemainingClaims *int              `json:"remaining_claims"`
	Countdown       *domain.Countdown `json:"countdown,omitempty"`
}

// ProductPage is one listing page; Count is the total after filtering.
type ProductPage struct {
	Data  []ProductView `json:"data"`
	Count int           `json:"count"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// CatalogService lists and ranks products.
type CatalogService struct {
	DB    *gorm.DB
	Promo PromoRanker
	Cache *ListingCache
	Now   func() time.Time
}

// ListProducts returns one ranked page of active products.
func (s *CatalogService) ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	tr := otel.Tracer("services/CatalogService")
	ctx, span := tr.Start(ctx, "ListProducts",
		trace.WithAttributes(
			attribute.Int("business.id", int(q.BusinessID)),
			attribute.Bool("search", q.Search != ""),
		),
	)
	defer span.End()

	page, limit := utils.ClampPage(q.Page, q.Limit, DefaultPageSize, MaxPageSize)
	ranked, err := s.ranked(ctx, q.BusinessID, q.CategoryID, q.Search)
	if err != nil {
		return nil, err
	}
	now := clock(s.Now)
	from, to := utils.PageBounds(page, limit, len(ranked))
	out := &ProductPage{Data: make([]ProductView, 0, to-from), Count: len(ranked), Page: page, Limit: limit}
	for i := from; i < to; i++ {
		out.Data = append(out.Data, NewProductView(ranked[i], now))
	}
	span.SetAttributes(attribute.Int("result.count", out.Count))
	return out, nil
}

// AllProducts returns every active product of a business, ranked.
func (s *CatalogService) AllProducts(ctx context.Context, businessID uint) ([]ProductView, error) {
	ranked, err := s.ranked(ctx, businessID, nil, "")
	if err != nil {
		return nil, err
	}
	now := clock(s.Now)
	out := make([]ProductView, 0, len(ranked))
	for _, p := range ranked {
		out = append(out, NewProductView(p, now))
	}
	return out, nil
}

// Fingerprint identifies the current listing of a business for conditional
// requests. It changes with any product, voucher or rating write and with
// the minute, since voucher windows and countdowns move with the clock.
func (s *CatalogService) Fingerprint(ctx context.Context, businessID uint) (string, error) {
	n, latest, err := repo.CatalogStats(ctx, s.DB, businessID)
	if err != nil {
		return "", err
	}
	var ts int64
	if latest != nil {
		ts = latest.UTC().UnixNano()
	}
	return fmt.Sprintf("%d-%d-%d-%d", businessID, n, ts, clock(s.Now).Truncate(time.Minute).Unix()), nil
}

func (s *CatalogService) ranked(ctx context.Context, businessID uint, categoryID *uint, query string) ([]domain.Product, error) {
	now := clock(s.Now)
	key := keyFor(businessID, categoryID)
	products, ep, ok := s.Cache.get(key, now)
	if !ok {
		var err error
		products, err = repo.ListActiveProducts(ctx, s.DB, repo.ProductFilter{BusinessID: businessID, CategoryID: categoryID})
		if err != nil {
			return nil, err
		}
		s.Cache.put(key, products, ep, now)
	}

	products = hideInactiveVouchers(products, now)
	if q := strings.TrimSpace(query); q != "" {
		products = filterBySearch(products, q)
	}
	RankProducts(products, s.Promo)
	return products, nil
}

// hideInactiveVouchers returns a copy whose vouchers outside their window
// (or not flagged promo) are removed. Cached values are not modified.
func hideInactiveVouchers(ps []domain.Product, now time.Time) []domain.Product {
	out := make([]domain.Product, len(ps))
	copy(out, ps)
	for i := range out {
		if v := out[i].Voucher; v != nil && !v.ActiveAt(now) {
			out[i].Voucher = nil
		}
	}
	return out
}

func filterBySearch(ps []domain.Product, q string) []domain.Product {
	docs := make([]search.Document, 0, len(ps))
	for _, p := range ps {
		var b strings.Builder
		b.WriteString(p.Name)
		for _, s := range []*string{p.ShortDescription, p.Description} {
			if s != nil {
				b.WriteByte(' ')
				b.WriteString(*s)
			}
		}
		if p.Category != nil {
			b.WriteByte(' ')
			b.WriteString(p.Category.Name)
		}
		docs = append(docs, search.Document{ID: p.ID, Text: b.String()})
	}
	hits := search.NewIndex(docs).Matches(q)
	out := ps[:0:0]
	for _, p := range ps {
		if _, ok := hits[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}

// NewProductView derives the card values of a product at now.
func NewProductView(p domain.Product, now time.Time) ProductView {
	v := ProductView{Product: p}
	if p.Rating != nil {
		v.AverageRating = p.Rating.Average()
		v.TotalRatings = p.Rating.Total()
	}
	v.Stars = domain.Stars(v.AverageRating)
	if p.Voucher != nil {
		v.RemainingClaims = p.Voucher.Remaining()
		cd := domain.CountdownTo(p.Voucher.EndDate, now)
		v.Countdown = &cd
	}
	return v
}
