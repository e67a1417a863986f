// Package services – TestimonialService
//
// This file implements business testimonials: one per (business, email),
// with the customer's name title-cased for display.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/voucherverse/storefront-api/internal/domain"
	"github.com/voucherverse/storefront-api/internal/repo"
)

// TestimonialRequest is a testimonial submission.
type TestimonialRequest struct {
	BusinessID uint
	Email      string
	Name       *string
	Message    string
	Rating     int
}

// TestimonialService stores and lists testimonials.
type TestimonialService struct {
	DB           *gorm.DB
	MaxTextRunes int
	// NameLocale drives name casing; language.Und means English.
	NameLocale language.Tag
	Now        func() time.Time
}

// Submit validates and stores a testimonial.
func (s *TestimonialService) Submit(ctx context.Context, req TestimonialRequest) (*domain.Testimonial, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRating
	}
	email := NormalizeEmail(req.Email)
	if !ValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return nil, ErrEmptyMessage
	}
	max := s.MaxTextRunes
	if max <= 0 {
		max = DefaultMaxTextRunes
	}
	if utf8.RuneCountInString(msg) > max {
		return nil, ErrTooLong
	}

	t := &domain.Testimonial{
		BusinessID:    req.BusinessID,
		CustomerName:  s.titleName(req.Name),
		CustomerEmail: email,
		Message:       msg,
		Rating:        req.Rating,
		CreatedAt:     clock(s.Now),
	}
	if err := repo.InsertTestimonial(ctx, s.DB, t); err != nil {
		switch {
		case isNotFound(err):
			return nil, ErrBusinessNotFound
		case errors.Is(err, repo.ErrDuplicate):
			return nil, ErrDuplicateTestimonial
		}
		return nil, err
	}
	return t, nil
}

// List returns the testimonials of a business, newest first.
func (s *TestimonialService) List(ctx context.Context, businessID uint) ([]domain.Testimonial, error) {
	return repo.ListTestimonials(ctx, s.DB, businessID)
}

// titleName collapses whitespace and title-cases a name; blank names
// become nil.
func (s *TestimonialService) titleName(p *string) *string {
	if p == nil {
		return nil
	}
	name := strings.Join(strings.Fields(*p), " ")
	if name == "" {
		return nil
	}
	tag := s.NameLocale
	if tag == language.Und {
		tag = language.English
	}
	name = cases.Title(tag).String(name)
	return &name
}
