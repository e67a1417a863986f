// Package services defines the storefront use-cases: catalog listing and
// ranking, voucher claims, delivery-status tracking, reviews, testimonials
// and the storefront aggregate. This file centralizes the service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed
// at the handler layer.
package services

import "errors"

// Lookup errors.
var (
	// ErrBusinessNotFound indicates that the business does not exist.
	ErrBusinessNotFound = errors.New("business not found")

	// ErrProductNotFound indicates that the product does not exist, is
	// inactive, or belongs to another business.
	ErrProductNotFound = errors.New("product not found")

	// ErrVoucherNotFound indicates that the voucher does not exist or its
	// product is not an active product of the business.
	ErrVoucherNotFound = errors.New("voucher not found")

	// ErrClaimNotFound indicates that no claim matches the email id.
	ErrClaimNotFound = errors.New("claim not found")
)

// Claim errors.
var (
	// ErrAlreadyClaimed is returned when the email already holds a claim on
	// the voucher.
	ErrAlreadyClaimed = errors.New("already claimed")

	// ErrFullyClaimed is returned when the voucher reached max_claims.
	ErrFullyClaimed = errors.New("promo fully claimed")

	// ErrVoucherNotActive is returned when the voucher is not a promo or the
	// current instant lies outside its window.
	ErrVoucherNotActive = errors.New("voucher is not active")

	// ErrEnqueue is returned when a committed claim could not be handed to
	// the email dispatcher. The claim is marked failed.
	ErrEnqueue = errors.New("could not schedule voucher email")
)

// Submission errors.
var (
	// ErrInvalidEmail is returned for a malformed email address.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidRating is returned when a rating is not a whole number
	// between 1 and 5.
	ErrInvalidRating = errors.New("rating must be a whole number between 1 and 5")

	// ErrEmptyMessage is returned when a testimonial has no text.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrTooLong is returned when a review or testimonial exceeds the
	// configured length limit.
	ErrTooLong = errors.New("text too long")

	// ErrDuplicateReview is returned when the email already reviewed the
	// product.
	ErrDuplicateReview = errors.New("product already reviewed by this email")

	// ErrDuplicateTestimonial is returned when the email already left a
	// testimonial for the business.
	ErrDuplicateTestimonial = errors.New("email already used for this business")
)
