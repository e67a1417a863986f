// Package services – ReviewService
//
// This file implements product reviews. A review carries a 1..5 rating and
// optional text; the store procedure inserts it and bumps the product's
// rating bucket in one transaction, enforcing one review per
// (product, email).
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/voucherverse/storefront-api/internal/domain"
	"github.com/voucherverse/storefront-api/internal/repo"
)

// DefaultMaxTextRunes caps review and testimonial text.
const DefaultMaxTextRunes = 2000

// ReviewRequest is a review submission.
type ReviewRequest struct {
	BusinessID uint
	ProductID  uint
	Email      string
	Rating     int
	Review     *string
}

// ReviewService stores and lists product reviews.
type ReviewService struct {
	DB           *gorm.DB
	Events       Publisher
	MaxTextRunes int
	Now          func() time.Time
}

// Submit validates and stores a review.
func (s *ReviewService) Submit(ctx context.Context, req ReviewRequest) (*domain.ProductReview, error) {
	tr := otel.Tracer("services/ReviewService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(attribute.Int("product.id", int(req.ProductID))),
	)
	defer span.End()

	if req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRating
	}
	email := NormalizeEmail(req.Email)
	if !ValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	text, err := s.normalizeText(req.Review)
	if err != nil {
		return nil, err
	}

	rev, err := repo.RateAndReviewProduct(ctx, s.DB, repo.ReviewInput{
		BusinessID: req.BusinessID,
		ProductID:  req.ProductID,
		Email:      email,
		Rating:     req.Rating,
		Review:     text,
		Now:        clock(s.Now),
	})
	switch {
	case err == nil:
	case isNotFound(err):
		return nil, ErrProductNotFound
	case errors.Is(err, repo.ErrDuplicate):
		return nil, ErrDuplicateReview
	default:
		return nil, err
	}
	publishCatalog(ctx, s.Events, req.BusinessID, "review")
	return rev, nil
}

// List returns the reviews of a product that carry text, newest first.
func (s *ReviewService) List(ctx context.Context, productID uint) ([]domain.ProductReview, error) {
	return repo.ListReviews(ctx, s.DB, productID)
}

func (s *ReviewService) normalizeText(p *string) (*string, error) {
	if p == nil {
		return nil, nil
	}
	t := strings.TrimSpace(*p)
	if t == "" {
		return nil, nil
	}
	max := s.MaxTextRunes
	if max <= 0 {
		max = DefaultMaxTextRunes
	}
	if utf8.RuneCountInString(t) > max {
		return nil, ErrTooLong
	}
	return &t, nil
}
