// Review and testimonial HTTP handlers.
//
//   - POST /review         (rate and optionally review a product)
//   - GET  /reviews        (text reviews of a product, newest first)
//   - POST /testimonial    (one per business and email)
//   - GET  /testimonials   (newest first)
//
// Payload field names keep the p_ prefix storefront clients already send.
package handlers

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voucherverse/storefront-api/internal/services"
)

// SubmitReviewRequest is the review payload.
type SubmitReviewRequest struct {
	BusinessID *FlexID      `json:"p_business_id" swaggertype:"integer" example:"1"`
	ProductID  *FlexID      `json:"p_product_id"  swaggertype:"integer" example:"7"`
	Rating     *json.Number `json:"p_rating"      swaggertype:"integer" example:"5"`
	Email      *string      `json:"p_email"       example:"ana@example.com"`
	Review     *string      `json:"p_review,omitempty" example:"Light and roomy."`
}

// SubmitTestimonialRequest is the testimonial payload.
type SubmitTestimonialRequest struct {
	BusinessID    *FlexID      `json:"p_business_id"    swaggertype:"integer" example:"1"`
	CustomerEmail *string      `json:"p_customer_email" example:"ana@example.com"`
	Message       *string      `json:"p_message"        example:"Great service!"`
	Rating        *json.Number `json:"p_rating"         swaggertype:"integer" example:"5"`
	CustomerName  *string      `json:"p_customer_name,omitempty" example:"ana maría"`
}

// parseRating accepts whole numbers 1..5, including 4.0 and "4".
func parseRating(n *json.Number) (int, bool) {
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < 1 || f > 5 {
		return 0, false
	}
	return int(f), true
}

// SubmitReview godoc
// @ID          submitReview
// @Summary     Review a product
// @Description Stores a 1..5 rating with optional text and updates the product's rating aggregate. One review per product and email.
// @Tags        Reviews
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false "Replays the stored response for retries"
// @Param       body  body  handlers.SubmitReviewRequest  true  "Review payload"
// @Success     200  {object} handlers.StatusResponse
// @Failure     400  {object} handlers.ErrorResponse "Validation error"
// @Failure     404  {object} handlers.ErrorResponse "Product not found"
// @Failure     409  {object} handlers.ErrorResponse "You have already reviewed this product."
// @Failure     500  {object} handlers.ErrorResponse
// @Router      /review [post]
func (h *Handlers) SubmitReview(c *gin.Context) {
	var req SubmitReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	var m missing
	m.check("p_business_id", req.BusinessID == nil)
	m.check("p_product_id", req.ProductID == nil)
	m.check("p_rating", req.Rating == nil)
	m.check("p_email", blank(req.Email))
	if len(m) > 0 {
		missingParams(c, m)
		return
	}
	rating, valid := parseRating(req.Rating)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeInvalidRating, MsgInvalidRating)
		return
	}

	_, err := h.reviews.Submit(c.Request.Context(), services.ReviewRequest{
		BusinessID: uint(*req.BusinessID),
		ProductID:  uint(*req.ProductID),
		Email:      *req.Email,
		Rating:     rating,
		Review:     req.Review,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, StatusResponse{Message: "Thank you for your review!", Status: "success"})
}

// ListReviews godoc
// @ID          listReviews
// @Summary     List product reviews
// @Description Reviews that carry text, newest first.
// @Tags        Reviews
// @Produce     json
// @Param       product_id  query  int  true  "Product ID"  minimum(1)
// @Success     200  {array}  domain.ProductReview
// @Failure     400  {object} handlers.ErrorResponse
// @Failure     500  {object} handlers.ErrorResponse
// @Router      /reviews [get]
func (h *Handlers) ListReviews(c *gin.Context) {
	pid, okID := queryID(c, "product_id")
	if !okID {
		return
	}
	list, err := h.reviews.List(c.Request.Context(), pid)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, list)
}

// SubmitTestimonial godoc
// @ID          submitTestimonial
// @Summary     Leave a testimonial
// @Description One testimonial per business and email; the name is title-cased.
// @Tags        Testimonials
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false "Replays the stored response for retries"
// @Param       body  body  handlers.SubmitTestimonialRequest  true  "Testimonial payload"
// @Success     200  {object} handlers.StatusResponse
// @Failure     400  {object} handlers.ErrorResponse "Validation error"
// @Failure     404  {object} handlers.ErrorResponse "Business not found"
// @Failure     409  {object} handlers.ErrorResponse "Email already used for this business"
// @Failure     500  {object} handlers.ErrorResponse
// @Router      /testimonial [post]
func (h *Handlers) SubmitTestimonial(c *gin.Context) {
	var req SubmitTestimonialRequest
	if !bindJSON(c, &req) {
		return
	}
	var m missing
	m.check("p_business_id", req.BusinessID == nil)
	m.check("p_customer_email", blank(req.CustomerEmail))
	m.check("p_message", blank(req.Message))
	m.check("p_rating", req.Rating == nil)
	if len(m) > 0 {
		missingParams(c, m)
		return
	}
	rating, valid := parseRating(req.Rating)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeInvalidRating, MsgInvalidRating)
		return
	}

	_, err := h.testimonials.Submit(c.Request.Context(), services.TestimonialRequest{
		BusinessID: uint(*req.BusinessID),
		Email:      *req.CustomerEmail,
		Name:       req.CustomerName,
		Message:    *req.Message,
		Rating:     rating,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, StatusResponse{Message: "Testimonial inserted successfully", Status: "success"})
}

// ListTestimonials godoc
// @ID          listTestimonials
// @Summary     List testimonials
// @Tags        Testimonials
// @Produce     json
// @Param       business_id  query  int  true  "Business ID"  minimum(1)
// @Success     200  {array}  domain.Testimonial
// @Failure     400  {object} handlers.ErrorResponse
// @Failure     500  {object} handlers.ErrorResponse
// @Router      /testimonials [get]
func (h *Handlers) ListTestimonials(c *gin.Context) {
	bid, okID := queryID(c, "business_id")
	if !okID {
		return
	}
	list, err := h.testimonials.List(c.Request.Context(), bid)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, list)
}
