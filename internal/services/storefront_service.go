package services

import (
	"context"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/voucherverse/storefront-api/internal/domain"
	"github.com/voucherverse/storefront-api/internal/repo"
)

// Storefront is everything the landing page renders in one response.
type Storefront struct {
	Business     *domain.Business         `json:"business"`
	Products     []ProductView            `json:"products"`
	Services     []domain.BusinessService `json:"services"`
	Testimonials []domain.Testimonial     `json:"testimonials"`
}

// StorefrontService serves the business singleton and its simple
// collections.
type StorefrontService struct {
	DB      *gorm.DB
	Catalog *CatalogService
}

// Business returns the business with id.
func (s *StorefrontService) Business(ctx context.Context, id uint) (*domain.Business, error) {
	b, err := repo.GetBusiness(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrBusinessNotFound
		}
		return nil, err
	}
	return b, nil
}

// Categories lists the categories of a business.
func (s *StorefrontService) Categories(ctx context.Context, businessID uint) ([]domain.Category, error) {
	return repo.ListCategories(ctx, s.DB, businessID)
}

// Services lists the service offerings of a business.
func (s *StorefrontService) Services(ctx context.Context, businessID uint) ([]domain.BusinessService, error) {
	return repo.ListServices(ctx, s.DB, businessID)
}

// Snapshot loads the business and its collections concurrently.
func (s *StorefrontService) Snapshot(ctx context.Context, businessID uint) (*Storefront, error) {
	var out Storefront
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := s.Business(gctx, businessID)
		out.Business = b
		return err
	})
	g.Go(func() error {
		ps, err := s.Catalog.AllProducts(gctx, businessID)
		out.Products = ps
		return err
	})
	g.Go(func() error {
		svc, err := repo.ListServices(gctx, s.DB, businessID)
		out.Services = svc
		return err
	})
	g.Go(func() error {
		ts, err := repo.ListTestimonials(gctx, s.DB, businessID)
		out.Testimonials = ts
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}
