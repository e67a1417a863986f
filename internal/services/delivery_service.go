// Package services – DeliveryService
//
// This file tracks the confirmation email of a claim. The dispatcher reports
// sends and exhausted retries through it, and the provider webhook feeds it
// delivery events. Every status change is published on the claim's topic so
// waiting clients learn about it without polling.
package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/voucherverse/storefront-api/internal/domain"
	"github.com/voucherverse/storefront-api/internal/observability"
	"github.com/voucherverse/storefront-api/internal/realtime"
	"github.com/voucherverse/storefront-api/internal/repo"
)

// DeliveryService implements mail.Deliveries and webhook processing.
// Cache, when set, is the listing cache of this process.
type DeliveryService struct {
	DB     *gorm.DB
	Events Publisher
	Cache  *ListingCache
	Now    func() time.Time
}

// EventResult describes what a webhook event did.
type EventResult struct {
	Status  domain.ClaimStatus
	Changed bool
	Ignored bool // event type does not affect claims
}

// ForDispatch loads the claim and what its email shows. A missing claim
// yields all nils.
func (s *DeliveryService) ForDispatch(ctx context.Context, emailID string) (*domain.PromoClaim, *domain.Product, *domain.Business, error) {
	c, p, b, err := repo.GetClaimForDispatch(ctx, s.DB, emailID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, nil, nil
		}
		return nil, nil, nil, err
	}
	return c, p, b, nil
}

// MarkSent stores the provider message id and moves the claim from pending
// to processing.
func (s *DeliveryService) MarkSent(ctx context.Context, emailID, providerID string) error {
	c, changed, err := repo.AttachProviderMessage(ctx, s.DB, emailID, providerID, clock(s.Now))
	if err != nil {
		if isNotFound(err) {
			return ErrClaimNotFound
		}
		return err
	}
	if changed {
		s.publishStatus(ctx, c)
	}
	return nil
}

// MarkFailed moves the claim to failed unless it already reached a terminal
// status.
func (s *DeliveryService) MarkFailed(ctx context.Context, emailID string) error {
	_, err := s.apply(ctx, emailID, domain.ClaimFailed)
	return err
}

// ApplyEvent maps a provider event ("email.delivered", ...) to a claim
// status and applies it to the first claim matched by refs (our email id or
// the provider's message id). Unknown event types are ignored. Terminal
// statuses are never left, so late or reordered events are harmless.
func (s *DeliveryService) ApplyEvent(ctx context.Context, eventType string, refs ...string) (EventResult, error) {
	tr := otel.Tracer("services/DeliveryService")
	ctx, span := tr.Start(ctx, "ApplyEvent",
		trace.WithAttributes(attribute.String("event.type", eventType)),
	)
	defer span.End()

	status, ok := domain.StatusFromEvent(eventType)
	if !ok {
		observability.WebhookEventsTotal.WithLabelValues("ignored").Inc()
		return EventResult{Ignored: true}, nil
	}
	observability.WebhookEventsTotal.WithLabelValues(string(status)).Inc()
	err := ErrClaimNotFound
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		var res EventResult
		res, err = s.apply(ctx, ref, status)
		if !errors.Is(err, ErrClaimNotFound) {
			return res, err
		}
	}
	return EventResult{}, err
}

func (s *DeliveryService) apply(ctx context.Context, ref string, status domain.ClaimStatus) (EventResult, error) {
	c, changed, err := repo.VerifyClaim(ctx, s.DB, ref, status, clock(s.Now))
	if err != nil {
		if isNotFound(err) {
			return EventResult{}, ErrClaimNotFound
		}
		return EventResult{}, err
	}
	if changed {
		s.publishStatus(ctx, c)
		if c.Status == domain.ClaimDelivered {
			if bid, err := repo.BusinessIDForVoucher(ctx, s.DB, c.VoucherID); err == nil {
				s.Cache.Invalidate(bid)
				publishCatalog(ctx, s.Events, bid, "delivered")
			}
		}
	}
	return EventResult{Status: c.Status, Changed: changed}, nil
}

func (s *DeliveryService) publishStatus(ctx context.Context, c *domain.PromoClaim) {
	publish(ctx, s.Events, realtime.ClaimTopic(c.EmailID), realtime.TypeClaimStatus,
		realtime.ClaimStatusData{EmailID: c.EmailID, VoucherID: c.VoucherID, Status: string(c.Status)})
}
