// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response utilities shared by all endpoints: the
// error envelope, the success envelope of write endpoints and helpers for
// common HTTP patterns.
//
// Conventions:
//   - Every error response is an ErrorResponse with a stable `code`.
//   - `fail()` centralizes error formatting; 5xx responses are logged with the
//     request-scoped logger, and the cause never reaches the client.
//   - `ok()` writes success bodies.
//
// Example error response:
//
//	HTTP/1.1 409 Conflict
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "already_claimed",
//	  "message": "Already claimed"
//	}
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/voucherverse/storefront-api/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"fully_claimed"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"Promo fully claimed"`
}

// StatusResponse is the body of successful review and testimonial writes.
type StatusResponse struct {
	Message string `json:"message" example:"Thank you for your review!"`
	Status  string `json:"status"  example:"success"`
}

// fail aborts the request with a structured error. Server errors (>=500)
// are logged using the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: middleware.GetRequestID(c),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail() for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// badFormat answers a body that is not valid JSON for the route.
func badFormat(c *gin.Context) {
	fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request format.")
}

// missingParams answers a request lacking required fields, named in
// request order.
func missingParams(c *gin.Context, names []string) {
	fail(c, http.StatusBadRequest, ErrCodeMissingParams,
		"Missing required parameters: "+strings.Join(names, ", ")+".")
}

// matchesETag reports whether an If-None-Match header value matches etag.
// Weak comparison applies, so W/"x" matches "x".
func matchesETag(header, etag string) bool {
	if header == "" {
		return false
	}
	if strings.TrimSpace(header) == "*" {
		return true
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, cand := range strings.Split(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(cand), "W/") == want {
			return true
		}
	}
	return false
}
