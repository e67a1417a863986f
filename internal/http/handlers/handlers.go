// Package handlers implements the storefront's HTTP endpoints.
//
// Handlers are transport-thin: they validate input, call application
// services through the interfaces below, and translate results and service
// sentinels into HTTP responses.
package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/voucherverse/storefront-api/internal/content"
	"github.com/voucherverse/storefront-api/internal/domain"
	"github.com/voucherverse/storefront-api/internal/realtime"
	"github.com/voucherverse/storefront-api/internal/services"
	"github.com/voucherverse/storefront-api/internal/utils"
)

//
// Service contracts (context-aware)
//

// CatalogService lists products and fingerprints the listing.
type CatalogService interface {
	ListProducts(ctx context.Context, q services.ProductQuery) (*services.ProductPage, error)
	Fingerprint(ctx context.Context, businessID uint) (string, error)
}

// StorefrontService serves the business and its small collections.
type StorefrontService interface {
	Business(ctx context.Context, id uint) (*domain.Business, error)
	Categories(ctx context.Context, businessID uint) ([]domain.Category, error)
	Services(ctx context.Context, businessID uint) ([]domain.BusinessService, error)
	Snapshot(ctx context.Context, businessID uint) (*services.Storefront, error)
}

// ClaimService claims vouchers and reports claim status.
type ClaimService interface {
	Claim(ctx context.Context, req services.ClaimRequest) (*services.ClaimTicket, error)
	Status(ctx context.Context, emailID string) (*domain.PromoClaim, error)
}

// DeliveryService applies provider delivery events.
type DeliveryService interface {
	ApplyEvent(ctx context.Context, eventType string, refs ...string) (services.EventResult, error)
}

// ReviewService stores and lists product reviews.
type ReviewService interface {
	Submit(ctx context.Context, req services.ReviewRequest) (*domain.ProductReview, error)
	List(ctx context.Context, productID uint) ([]domain.ProductReview, error)
}

// TestimonialService stores and lists testimonials.
type TestimonialService interface {
	Submit(ctx context.Context, req services.TestimonialRequest) (*domain.Testimonial, error)
	List(ctx context.Context, businessID uint) ([]domain.Testimonial, error)
}

// StreamServer upgrades a request into an event stream (realtime.Hub).
type StreamServer interface {
	Serve(w http.ResponseWriter, r *http.Request, topic string, snapshot realtime.Snapshot, until func(realtime.Event) bool)
}

//
// Handler wiring
//

// Deps are the collaborators of Handlers. BusinessID is the storefront's
// business singleton served by GET /business.
type Deps struct {
	Catalog      CatalogService
	Storefront   StorefrontService
	Claims       ClaimService
	Deliveries   DeliveryService
	Reviews      ReviewService
	Testimonials TestimonialService
	Streams      StreamServer
	Content      *content.Site
	BusinessID   uint
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	catalog      CatalogService
	storefront   StorefrontService
	claims       ClaimService
	deliveries   DeliveryService
	reviews      ReviewService
	testimonials TestimonialService
	streams      StreamServer
	site         *content.Site
	businessID   uint
}

// New constructs Handlers bound to d. A nil Content serves the defaults.
func New(d Deps) *Handlers {
	site := d.Content
	if site == nil {
		site = content.Default()
	}
	bid := d.BusinessID
	if bid == 0 {
		bid = 1
	}
	return &Handlers{
		catalog:      d.Catalog,
		storefront:   d.Storefront,
		claims:       d.Claims,
		deliveries:   d.Deliveries,
		reviews:      d.Reviews,
		testimonials: d.Testimonials,
		streams:      d.Streams,
		site:         site,
		businessID:   bid,
	}
}

//
// Params
//

// FlexID is a positive id that clients may send as a JSON number or a
// numeric string.
type FlexID uint

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexID) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(b), `"`))
	n, ok := utils.ParseID(strings.TrimSpace(s))
	if !ok {
		return fmt.Errorf("invalid id %q", s)
	}
	*f = FlexID(n)
	return nil
}

// queryID parses a required positive id query parameter. It writes the 400
// and returns false when the value is missing or malformed.
func queryID(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		missingParams(c, []string{name})
		return 0, false
	}
	id, ok := utils.ParseID(raw)
	if !ok {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Invalid "+name+".")
		return 0, false
	}
	return id, true
}

// optionalQueryID parses an optional id query parameter.
func optionalQueryID(c *gin.Context, name string) (*uint, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	id, ok := utils.ParseID(raw)
	if !ok {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Invalid "+name+".")
		return nil, false
	}
	return &id, true
}

// bindJSON decodes the body into dst, answering 400 "Invalid request
// format." on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badFormat(c)
		return false
	}
	return true
}

// missing collects the names whose check reports absence, in order.
type missing []string

func (m *missing) check(name string, absent bool) {
	if absent {
		*m = append(*m, name)
	}
}

func blank(s *string) bool { return s == nil || strings.TrimSpace(*s) == "" }
