// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case. Generic codes mirror the HTTP status; the
// domain codes let the storefront render a specific "already done" state
// instead of a retry prompt (already_claimed, fully_claimed, ...).
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "duplicate_review",
//	  "message": "You have already reviewed this product."
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voucherverse/storefront-api/internal/http/middleware"
	"github.com/voucherverse/storefront-api/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeMissingParams    = "missing_parameters"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeInvalidEmail         = "invalid_email"
	ErrCodeInvalidRating        = "invalid_rating"
	ErrCodeBusinessNotFound     = "business_not_found"
	ErrCodeProductNotFound      = "product_not_found"
	ErrCodeVoucherNotFound      = "voucher_not_found"
	ErrCodeClaimNotFound        = "claim_not_found"
	ErrCodeVoucherNotActive     = "voucher_not_active"
	ErrCodeAlreadyClaimed       = "already_claimed"
	ErrCodeFullyClaimed         = "fully_claimed"
	ErrCodeDuplicateReview      = "duplicate_review"
	ErrCodeDuplicateTestimonial = "duplicate_testimonial"
)

// Messages shown to visitors.
const (
	MsgInvalidRating = "Rating must be a whole number between 1 and 5."
	MsgInternal      = "Internal server error"
)

type errorMapping struct {
	err    error
	status int
	code   string
	msg    string
}

// serviceErrors maps service sentinels to responses; first match wins.
var serviceErrors = []errorMapping{
	{services.ErrInvalidEmail, http.StatusBadRequest, ErrCodeInvalidEmail, "Invalid email address."},
	{services.ErrInvalidRating, http.StatusBadRequest, ErrCodeInvalidRating, MsgInvalidRating},
	{services.ErrEmptyMessage, http.StatusBadRequest, ErrCodeBadRequest, "Message must not be empty."},
	{services.ErrTooLong, http.StatusBadRequest, ErrCodeBadRequest, "Text is too long."},
	{services.ErrBusinessNotFound, http.StatusNotFound, ErrCodeBusinessNotFound, "Business not found"},
	{services.ErrProductNotFound, http.StatusNotFound, ErrCodeProductNotFound, "Product not found"},
	{services.ErrVoucherNotFound, http.StatusNotFound, ErrCodeVoucherNotFound, "Voucher not found"},
	{services.ErrClaimNotFound, http.StatusNotFound, ErrCodeClaimNotFound, "Claim not found"},
	{services.ErrVoucherNotActive, http.StatusConflict, ErrCodeVoucherNotActive, "Voucher is not active"},
	{services.ErrAlreadyClaimed, http.StatusConflict, ErrCodeAlreadyClaimed, "Already claimed"},
	{services.ErrFullyClaimed, http.StatusConflict, ErrCodeFullyClaimed, "Promo fully claimed"},
	{services.ErrDuplicateReview, http.StatusConflict, ErrCodeDuplicateReview, "You have already reviewed this product."},
	{services.ErrDuplicateTestimonial, http.StatusConflict, ErrCodeDuplicateTestimonial, "Email already used for this business"},
}

// failService writes the response for a service error. Unknown errors
// become a generic 500; the cause goes to the request log only.
func failService(c *gin.Context, err error) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			fail(c, m.status, m.code, m.msg)
			return
		}
	}
	_ = c.Error(err)
	middleware.LoggerFrom(c).Error().Err(err).Msg("request failed")
	fail(c, http.StatusInternalServerError, ErrCodeInternal, MsgInternal)
}
