// Package services – ClaimService
//
// This file implements voucher claiming. The claim itself is one store
// transaction (repo.ClaimVoucher); the confirmation email is sent
// asynchronously by the dispatcher, so a successful claim answers with
// status "processing" and the email id the client watches.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/voucherverse/storefront-api/internal/domain"
	"github.com/voucherverse/storefront-api/internal/observability"
	"github.com/voucherverse/storefront-api/internal/queue"
	"github.com/voucherverse/storefront-api/internal/realtime"
	"github.com/voucherverse/storefront-api/internal/repo"
)

// Enqueuer is the producer side of queue.Queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.Job) error
}

// ClaimRequest is a visitor's claim. Timezone is the IANA zone the email
// renders dates in.
type ClaimRequest struct {
	VoucherID  uint
	BusinessID uint
	Email      string
	Timezone   string
}

// ClaimTicket is what the client receives for an accepted claim.
type ClaimTicket struct {
	EmailID         string             `json:"email_id"`
	Status          domain.ClaimStatus `json:"status"`
	VoucherID       uint               `json:"voucher_id"`
	ClaimedCount    int                `json:"claimed_count"`
	RemainingClaims *int               `json:"remaining_claims"`
}

// ClaimService claims vouchers and schedules their confirmation email.
// Cache, when set, is the listing cache of this process.
type ClaimService struct {
	DB     *gorm.DB
	Queue  Enqueuer
	Events Publisher
	Cache  *ListingCache
	Now    func() time.Time
}

// Claim records the claim and enqueues the email job.
//
// Errors:
//   - ErrInvalidEmail for a malformed address.
//   - ErrVoucherNotFound, ErrVoucherNotActive, ErrAlreadyClaimed,
//     ErrFullyClaimed from the store procedure, checked in that order.
//   - ErrEnqueue when the job could not be queued; the claim is then marked
//     failed so the client does not wait for an email that never comes.
func (s *ClaimService) Claim(ctx context.Context, req ClaimRequest) (*ClaimTicket, error) {
	tr := otel.Tracer("services/ClaimService")
	ctx, span := tr.Start(ctx, "Claim",
		trace.WithAttributes(
			attribute.Int("voucher.id", int(req.VoucherID)),
			attribute.Int("business.id", int(req.BusinessID)),
		),
	)
	defer span.End()

	email := NormalizeEmail(req.Email)
	if !ValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	now := clock(s.Now)
	emailID := uuid.NewString()

	res, err := repo.ClaimVoucher(ctx, s.DB, repo.ClaimInput{
		VoucherID:  req.VoucherID,
		BusinessID: req.BusinessID,
		Email:      email,
		EmailID:    emailID,
		Now:        now,
	})
	if err != nil {
		err = mapClaimErr(err)
		observability.ClaimsTotal.WithLabelValues(claimOutcome(err)).Inc()
		if !isClaimRejection(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "claim failed")
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("claim.email_id", emailID))
	// claimed_count moved; the next listing must not serve the old one
	s.Cache.Invalidate(req.BusinessID)

	job, err := queue.NewJob(queue.JobSendVoucherEmail, queue.VoucherEmailPayload{
		EmailID:  emailID,
		Timezone: strings.TrimSpace(req.Timezone),
	})
	if err == nil {
		err = s.Queue.Enqueue(ctx, job)
	}
	if err != nil {
		observability.ClaimsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "enqueue failed")
		s.failUnqueued(ctx, emailID, req.VoucherID, now)
		return nil, fmt.Errorf("%w: %v", ErrEnqueue, err)
	}

	observability.ClaimsTotal.WithLabelValues("accepted").Inc()
	publishCatalog(ctx, s.Events, req.BusinessID, "claim")

	return &ClaimTicket{
		EmailID:         emailID,
		Status:          domain.ClaimProcessing,
		VoucherID:       req.VoucherID,
		ClaimedCount:    res.Voucher.ClaimedCount,
		RemainingClaims: res.Voucher.Remaining(),
	}, nil
}

func (s *ClaimService) failUnqueued(ctx context.Context, emailID string, voucherID uint, now time.Time) {
	// the request context may already be gone; the status write must land
	ctx = context.WithoutCancel(ctx)
	c, changed, err := repo.VerifyClaim(ctx, s.DB, emailID, domain.ClaimFailed, now)
	if err != nil {
		loggerFrom(ctx).Error().Err(err).Str("email_id", emailID).Msg("mark unqueued claim failed")
		return
	}
	if changed {
		publish(ctx, s.Events, realtime.ClaimTopic(emailID), realtime.TypeClaimStatus,
			realtime.ClaimStatusData{EmailID: emailID, VoucherID: voucherID, Status: string(c.Status)})
	}
}

// Status returns the claim identified by its email id.
func (s *ClaimService) Status(ctx context.Context, emailID string) (*domain.PromoClaim, error) {
	if _, err := uuid.Parse(emailID); err != nil {
		return nil, ErrClaimNotFound
	}
	c, err := repo.GetClaimByEmailID(ctx, s.DB, emailID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}
	return c, nil
}

func mapClaimErr(err error) error {
	switch {
	case isNotFound(err):
		return ErrVoucherNotFound
	case errors.Is(err, repo.ErrWindow):
		return ErrVoucherNotActive
	case errors.Is(err, repo.ErrDuplicate):
		return ErrAlreadyClaimed
	case errors.Is(err, repo.ErrCapacity):
		return ErrFullyClaimed
	}
	return err
}

func isClaimRejection(err error) bool {
	return errors.Is(err, ErrVoucherNotFound) || errors.Is(err, ErrVoucherNotActive) ||
		errors.Is(err, ErrAlreadyClaimed) || errors.Is(err, ErrFullyClaimed)
}

func claimOutcome(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, ErrFullyClaimed):
		return "fully_claimed"
	case errors.Is(err, ErrVoucherNotActive):
		return "not_active"
	case errors.Is(err, ErrVoucherNotFound):
		return "not_found"
	}
	return "error"
}
