package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/voucherverse/storefront-api/internal/domain"
	"github.com/voucherverse/storefront-api/internal/http/middleware"
	"github.com/voucherverse/storefront-api/internal/services"
)

// EmailWebhookRequest is the email provider's delivery event. Only the
// fields used to track claims are decoded. Data.EmailID is the provider's
// message id; the "email_id" tag set at send time carries ours.
type EmailWebhookRequest struct {
	Type string `json:"type" example:"email.delivered"`
	Data struct {
		EmailID string      `json:"email_id" example:"4ef9a417-02e9-4d39-ad75-9611e0fcc33c"`
		Tags    webhookTags `json:"tags" swaggertype:"object"`
	} `json:"data"`
}

// webhookTags accepts tags as an object or as a [{name, value}] list. Any
// other shape decodes to no tags rather than rejecting the event.
type webhookTags map[string]string

func (t *webhookTags) UnmarshalJSON(b []byte) error {
	var m map[string]string
	if err := json.Unmarshal(b, &m); err == nil {
		*t = m
		return nil
	}
	var list []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(b, &list); err != nil {
		*t = nil
		return nil
	}
	*t = make(webhookTags, len(list))
	for _, kv := range list {
		(*t)[kv.Name] = kv.Value
	}
	return nil
}

// WebhookAck acknowledges a webhook delivery.
type WebhookAck struct {
	Received bool `json:"received" example:"true"`
}

// EmailWebhook godoc
// @ID          emailWebhook
// @Summary     Email delivery webhook
// @Description Receives provider events (email.sent, email.delivered, email.bounced, email.complained, email.failed) and advances the matching claim. Unknown events and claims are acknowledged so the provider stops retrying.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
// @Param       webhook-id         header  string  false "Event id"
// @Param       webhook-timestamp  header  string  false "Unix seconds"
// @Param       webhook-signature  header  string  false "v1,<base64 HMAC-SHA256>"
// @Param       body  body  handlers.EmailWebhookRequest  true  "Event"
// @Success     200  {object} handlers.WebhookAck
// @Failure     400  {object} handlers.ErrorResponse "Malformed event"
// @Failure     401  {object} handlers.ErrorResponse "Bad signature"
// @Router      /email/webhook [post]
func (h *Handlers) EmailWebhook(c *gin.Context) {
	var ev EmailWebhookRequest
	if !bindJSON(c, &ev) {
		return
	}
	log := middleware.LoggerFrom(c)
	typ := strings.TrimSpace(ev.Type)
	if typ == "" {
		missingParams(c, missing{"type"})
		return
	}
	if _, tracked := domain.StatusFromEvent(typ); !tracked {
		log.Debug().Str("event", typ).Msg("webhook event ignored")
		ok(c, http.StatusOK, WebhookAck{Received: true})
		return
	}
	ref := strings.TrimSpace(ev.Data.EmailID)
	tagRef := strings.TrimSpace(ev.Data.Tags["email_id"])
	if ref == "" && tagRef == "" {
		missingParams(c, missing{"data.email_id"})
		return
	}

	// the tag resolves even before the provider id is stored on the claim
	res, err := h.deliveries.ApplyEvent(c.Request.Context(), typ, tagRef, ref)
	switch {
	case errors.Is(err, services.ErrClaimNotFound):
		log.Warn().Str("event", typ).Str("email_ref", ref).Msg("webhook for unknown claim")
	case err != nil:
		// acknowledged anyway; provider retries would hit the same failure
		log.Error().Err(err).Str("event", typ).Str("email_ref", ref).Msg("webhook apply failed")
	case res.Ignored:
		log.Debug().Str("event", typ).Msg("webhook event ignored")
	default:
		log.Info().
			Str("event", typ).
			Str("email_ref", ref).
			Str("status", string(res.Status)).
			Bool("changed", res.Changed).
			Msg("webhook applied")
	}
	ok(c, http.StatusOK, WebhookAck{Received: true})
}
