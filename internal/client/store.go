package client

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/voucherverse/storefront-api/internal/domain"
	"github.com/voucherverse/storefront-api/internal/services"
)

// Cache key prefixes.
const (
	keyBusiness     = "business"
	keyProducts     = "products?"
	keyCategories   = "categories"
	keyServices     = "services"
	keyTestimonials = "testimonials"
	keyReviews      = "reviews:"
)

// ModalKind names the open modal.
type ModalKind string

const (
	ModalNone    ModalKind = "closed"
	ModalVoucher ModalKind = "voucher"
	ModalReview  ModalKind = "review"
)

// Modal is the storefront's single modal slot: exactly one of Closed,
// VoucherModal or ReviewModal.
type Modal interface {
	Kind() ModalKind
}

// Closed is the empty modal slot.
type Closed struct{}

// VoucherModal shows the claim form of a product's voucher.
type VoucherModal struct {
	Product services.ProductView
	Voucher domain.Voucher
}

// ReviewModal shows the review form of a product.
type ReviewModal struct {
	Product services.ProductView
}

func (Closed) Kind() ModalKind       { return ModalNone }
func (VoucherModal) Kind() ModalKind { return ModalVoucher }
func (ReviewModal) Kind() ModalKind  { return ModalReview }

// ErrNoVoucher is returned when opening the voucher modal of a product
// without a voucher.
var ErrNoVoucher = errors.New("product has no voucher")

// ChangeSource delivers external change notifications for a business.
// Watcher implements it over the /events stream.
type ChangeSource interface {
	Changes(ctx context.Context, businessID uint, fn func(reason string)) error
}

// Store is the application state of one storefront: cached reads of the
// business data and the modal slot. It replaces an ambient app-wide
// context; views receive the Store explicitly.
type Store struct {
	api        *Client
	cache      *Cache
	businessID uint
	log        zerolog.Logger

	mu    sync.RWMutex
	modal Modal
	subs  map[int]func(Modal)
	next  int
}

// NewStore returns a store for businessID whose reads stay fresh for ttl.
func NewStore(api *Client, businessID uint, ttl time.Duration, log zerolog.Logger) *Store {
	return &Store{
		api:        api,
		cache:      NewCache(ttl),
		businessID: businessID,
		log:        log.With().Str("component", "store").Logger(),
		modal:      Closed{},
		subs:       make(map[int]func(Modal)),
	}
}

// BusinessID is the business the store serves.
func (s *Store) BusinessID() uint { return s.businessID }

// Business returns the storefront business.
func (s *Store) Business(ctx context.Context) (*domain.Business, error) {
	return Get(ctx, s.cache, keyBusiness, s.api.Business)
}

// Products returns one listing page of the store's business.
func (s *Store) Products(ctx context.Context, q ProductQuery) (*services.ProductPage, error) {
	q.BusinessID = s.businessID
	return Get(ctx, s.cache, q.key(), func(ctx context.Context) (*services.ProductPage, error) {
		return s.api.Products(ctx, q)
	})
}

// Categories lists the business's categories.
func (s *Store) Categories(ctx context.Context) ([]domain.Category, error) {
	return Get(ctx, s.cache, keyCategories, func(ctx context.Context) ([]domain.Category, error) {
		return s.api.Categories(ctx, s.businessID)
	})
}

// Services lists the business's services.
func (s *Store) Services(ctx context.Context) ([]domain.BusinessService, error) {
	return Get(ctx, s.cache, keyServices, func(ctx context.Context) ([]domain.BusinessService, error) {
		return s.api.Services(ctx, s.businessID)
	})
}

// Testimonials lists testimonials, newest first.
func (s *Store) Testimonials(ctx context.Context) ([]domain.Testimonial, error) {
	return Get(ctx, s.cache, keyTestimonials, func(ctx context.Context) ([]domain.Testimonial, error) {
		return s.api.Testimonials(ctx, s.businessID)
	})
}

// Reviews lists the written reviews of a product.
func (s *Store) Reviews(ctx context.Context, productID uint) ([]domain.ProductReview, error) {
	key := keyReviews + strconv.FormatUint(uint64(productID), 10)
	return Get(ctx, s.cache, key, func(ctx context.Context) ([]domain.ProductReview, error) {
		return s.api.Reviews(ctx, productID)
	})
}

// SubmitReview posts a review and drops the product's cached reviews and
// the listings carrying its rating.
func (s *Store) SubmitReview(ctx context.Context, productID uint, rating int, email, text string) (*Result, error) {
	res, err := s.api.SubmitReview(ctx, Review{
		BusinessID: s.businessID, ProductID: productID, Rating: rating, Email: email, Text: text,
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(keyReviews + strconv.FormatUint(uint64(productID), 10))
	s.InvalidateProducts()
	return res, nil
}

// SubmitTestimonial posts a testimonial and drops the cached list.
func (s *Store) SubmitTestimonial(ctx context.Context, t Testimonial) (*Result, error) {
	t.BusinessID = s.businessID
	res, err := s.api.SubmitTestimonial(ctx, t)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(keyTestimonials)
	return res, nil
}

// InvalidateProducts drops every cached listing page.
func (s *Store) InvalidateProducts() {
	n := s.cache.Invalidate(keyProducts)
	s.log.Debug().Int("pages", n).Msg("product listings invalidated")
}

// Follow invalidates product listings on every change src reports, until
// ctx ends. Broken streams are reopened after retry.
func (s *Store) Follow(ctx context.Context, src ChangeSource, retry time.Duration) error {
	if retry <= 0 {
		retry = 2 * time.Second
	}
	for {
		err := src.Changes(ctx, s.businessID, func(reason string) {
			s.log.Debug().Str("reason", reason).Msg("catalog changed")
			s.InvalidateProducts()
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.log.Warn().Err(err).Dur("retry_in", retry).Msg("change stream broken")
		}
		// changes may have been missed while disconnected
		s.InvalidateProducts()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry):
		}
	}
}

// Modal returns the open modal.
func (s *Store) Modal() Modal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modal
}

// OpenVoucher opens the claim form for p.
func (s *Store) OpenVoucher(p services.ProductView) error {
	if p.Voucher == nil {
		return ErrNoVoucher
	}
	s.setModal(VoucherModal{Product: p, Voucher: *p.Voucher})
	return nil
}

// OpenReview opens the review form for p.
func (s *Store) OpenReview(p services.ProductView) { s.setModal(ReviewModal{Product: p}) }

// CloseModal empties the modal slot.
func (s *Store) CloseModal() { s.setModal(Closed{}) }

// OnModal registers fn for modal changes; the returned func unregisters it.
func (s *Store) OnModal(fn func(Modal)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) setModal(m Modal) {
	s.mu.Lock()
	s.modal = m
	fns := make([]func(Modal), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(m)
	}
}
