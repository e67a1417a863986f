// Claim HTTP handlers.
//
//   - POST /claim-voucher              (claim; answers "processing")
//   - GET  /claims/{email_id}          (current delivery status)
//   - GET  /claims/{email_id}/stream   (websocket: status until terminal)
//   - GET  /events                     (websocket: catalog invalidations)
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/voucherverse/storefront-api/internal/domain"
	"github.com/voucherverse/storefront-api/internal/http/middleware"
	"github.com/voucherverse/storefront-api/internal/realtime"
	"github.com/voucherverse/storefront-api/internal/services"
)

// ClaimVoucherRequest is the claim payload. Ids may be numbers or numeric
// strings. Timezone (IANA) localizes the dates in the voucher email.
type ClaimVoucherRequest struct {
	VoucherID  *FlexID `json:"voucher_id"  swaggertype:"integer" example:"12"`
	UserEmail  *string `json:"user_email"  example:"ana@example.com"`
	BusinessID *FlexID `json:"business_id" swaggertype:"integer" example:"1"`
	Timezone   string  `json:"timezone,omitempty" example:"Europe/Athens"`
}

// ClaimVoucherResponse acknowledges an accepted claim. The voucher email
// is on its way; EmailID identifies the claim for status reads and streams.
type ClaimVoucherResponse struct {
	Message string             `json:"message" example:"Processing your voucher claim."`
	Status  domain.ClaimStatus `json:"status"  example:"processing"`
	EmailID string             `json:"emailId" example:"0b8e7d2c-3f7a-4e0b-9f5d-1f0c5d1e2a33"`
}

// ClaimStatusResponse is a claim's delivery status.
type ClaimStatusResponse struct {
	EmailID   string             `json:"email_id"`
	Status    domain.ClaimStatus `json:"status"`
	VoucherID uint               `json:"voucher_id"`
}

// ClaimVoucher godoc
// @ID          claimVoucher
// @Summary     Claim a voucher
// @Description Records the claim and schedules the voucher email. The response is immediate with status "processing"; watch /claims/{email_id}/stream for delivery.
// @Tags        Claims
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Replays the stored response for retries"
// @Param       body             body    handlers.ClaimVoucherRequest  true  "Claim payload"
//
// @Success     200  {object} handlers.ClaimVoucherResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid request format / missing parameters / invalid email"
// @Failure     404  {object} handlers.ErrorResponse "Voucher not found"
// @Failure     409  {object} handlers.ErrorResponse "voucher_not_active | already_claimed | fully_claimed"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /claim-voucher [post]
func (h *Handlers) ClaimVoucher(c *gin.Context) {
	var req ClaimVoucherRequest
	if !bindJSON(c, &req) {
		return
	}
	var m missing
	m.check("voucher_id", req.VoucherID == nil)
	m.check("user_email", blank(req.UserEmail))
	m.check("business_id", req.BusinessID == nil)
	if len(m) > 0 {
		missingParams(c, m)
		return
	}

	t, err := h.claims.Claim(c.Request.Context(), services.ClaimRequest{
		VoucherID:  uint(*req.VoucherID),
		BusinessID: uint(*req.BusinessID),
		Email:      *req.UserEmail,
		Timezone:   strings.TrimSpace(req.Timezone),
	})
	if err != nil {
		failService(c, err)
		return
	}
	middleware.LoggerFrom(c).Info().
		Uint("voucher_id", t.VoucherID).
		Str("email_id", t.EmailID).
		Msg("voucher claimed")
	ok(c, http.StatusOK, ClaimVoucherResponse{
		Message: "Processing your voucher claim.",
		Status:  domain.ClaimProcessing,
		EmailID: t.EmailID,
	})
}

// GetClaim godoc
// @ID          getClaim
// @Summary     Claim delivery status
// @Tags        Claims
// @Produce     json
// @Param       email_id  path  string  true  "Claim email id (UUID)"  format(uuid)
// @Success     200  {object} handlers.ClaimStatusResponse
// @Failure     404  {object} handlers.ErrorResponse "Claim not found"
// @Failure     500  {object} handlers.ErrorResponse
// @Router      /claims/{email_id} [get]
func (h *Handlers) GetClaim(c *gin.Context) {
	pc, err := h.claims.Status(c.Request.Context(), c.Param("email_id"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, ClaimStatusResponse{EmailID: pc.EmailID, Status: pc.Status, VoucherID: pc.VoucherID})
}

// StreamClaim godoc
// @ID          streamClaim
// @Summary     Watch a claim's delivery status
// @Description Websocket. Sends the current status first, then every change, and closes after a terminal status (delivered, bounced, spam, failed).
// @Tags        Claims
// @Param       email_id  path  string  true  "Claim email id (UUID)"  format(uuid)
// @Success     101  {object} realtime.Event
// @Failure     404  {object} handlers.ErrorResponse "Claim not found"
// @Router      /claims/{email_id}/stream [get]
func (h *Handlers) StreamClaim(c *gin.Context) {
	emailID := c.Param("email_id")
	// 404 before upgrading, while a JSON answer is still possible
	if _, err := h.claims.Status(c.Request.Context(), emailID); err != nil {
		failService(c, err)
		return
	}
	snapshot := func(ctx context.Context) (*realtime.Event, error) {
		pc, err := h.claims.Status(ctx, emailID)
		if err != nil {
			return nil, err
		}
		ev, err := realtime.NewEvent(realtime.TypeClaimStatus, realtime.ClaimStatusData{
			EmailID: pc.EmailID, VoucherID: pc.VoucherID, Status: string(pc.Status),
		})
		return &ev, err
	}
	h.streams.Serve(c.Writer, c.Request, realtime.ClaimTopic(emailID), snapshot, claimSettled)
}

// StreamEvents godoc
// @ID          streamEvents
// @Summary     Watch catalog changes
// @Description Websocket of catalog.invalidate events for a business (claims, reviews, deliveries). Clients refetch the listing on each event.
// @Tags        Catalog
// @Param       business_id  query  int  true  "Business ID"  minimum(1)
// @Success     101  {object} realtime.Event
// @Failure     400  {object} handlers.ErrorResponse
// @Router      /events [get]
func (h *Handlers) StreamEvents(c *gin.Context) {
	bid, okID := queryID(c, "business_id")
	if !okID {
		return
	}
	h.streams.Serve(c.Writer, c.Request, realtime.CatalogTopic(bid), nil, nil)
}

// claimSettled ends a claim stream once a terminal status was sent.
func claimSettled(ev realtime.Event) bool {
	if ev.Type != realtime.TypeClaimStatus {
		return false
	}
	var d realtime.ClaimStatusData
	if err := json.Unmarshal(ev.Data, &d); err != nil {
		return false
	}
	return domain.ClaimStatus(d.Status).IsTerminal()
}
