package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/voucherverse/storefront-api/internal/domain"
	"github.com/voucherverse/storefront-api/internal/observability"
	"github.com/voucherverse/storefront-api/internal/queue"
)

// ErrPermanent marks job failures that retrying cannot fix. A Mailer may
// wrap it for rejections such as an invalid recipient.
var ErrPermanent = errors.New("permanent dispatch failure")

// errNoClaim is the permanent failure of a job whose claim is gone; there
// is nothing to mark failed.
var errNoClaim = fmt.Errorf("%w: claim not found", ErrPermanent)

// DefaultBackoff is the pause after a failed job.
const DefaultBackoff = 2 * time.Second

// Deliveries is the claim-side state the dispatcher reads and advances.
//
// ForDispatch returns a nil claim and a nil error when the claim does not
// exist. MarkSent stores the provider message id and moves the claim to
// processing; MarkFailed moves it to failed. Both publish the change.
type Deliveries interface {
	ForDispatch(ctx context.Context, emailID string) (*domain.PromoClaim, *domain.Product, *domain.Business, error)
	MarkSent(ctx context.Context, emailID, providerID string) error
	MarkFailed(ctx context.Context, emailID string) error
}

// Dispatcher turns queued claim jobs into provider emails.
type Dispatcher struct {
	Queue      queue.Queue
	Mailer     Mailer
	Deliveries Deliveries
	Backoff    time.Duration
	Log        zerolog.Logger
}

// Process sends the email of one job.
func (d *Dispatcher) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobSendVoucherEmail {
		return fmt.Errorf("%w: unknown job type %q", ErrPermanent, job.Type)
	}
	var p queue.VoucherEmailPayload
	if err := job.Decode(&p); err != nil {
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}

	ctx, span := otel.Tracer("mail").Start(ctx, "Dispatcher.Process")
	defer span.End()
	span.SetAttributes(attribute.String("claim.email_id", p.EmailID), attribute.Int("job.attempt", job.Attempt))

	claim, product, business, err := d.Deliveries.ForDispatch(ctx, p.EmailID)
	if err != nil {
		return fmt.Errorf("load claim: %w", err)
	}
	if claim == nil {
		return fmt.Errorf("%w: %s", errNoClaim, p.EmailID)
	}
	if claim.Status != domain.ClaimPending || claim.ProviderMessageID != nil {
		// already sent by an earlier attempt
		d.Log.Info().Str("email_id", p.EmailID).Str("status", string(claim.Status)).Msg("claim already dispatched")
		return nil
	}

	email := NewVoucherEmail(claim, product, business)
	html, err := email.Render(p.Timezone)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	providerID, err := d.Mailer.Send(ctx, Message{
		To:      claim.UserEmail,
		Subject: email.Subject(),
		HTML:    html,
		Tags:    map[string]string{"email_id": claim.EmailID, "category": "voucher_claim"},
	})
	if err != nil {
		return err
	}
	if err := d.Deliveries.MarkSent(ctx, claim.EmailID, providerID); err != nil {
		// the email is out; retrying would send it twice
		d.Log.Error().Err(err).Str("email_id", claim.EmailID).Str("provider_id", providerID).Msg("record provider id failed")
	}
	return nil
}

// Run consumes the queue until ctx is done or the queue is closed.
func (d *Dispatcher) Run(ctx context.Context) {
	log := d.Log.With().Str("component", "dispatcher").Logger()
	log.Info().Msg("email dispatcher started")
	defer log.Info().Msg("email dispatcher stopped")

	for ctx.Err() == nil {
		job, err := d.Queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) || ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Msg("dequeue failed")
			d.pause(ctx)
			continue
		}
		if job == nil {
			continue
		}
		d.handle(ctx, log, job)
	}
}

func (d *Dispatcher) handle(ctx context.Context, log zerolog.Logger, job *queue.Job) {
	err := d.Process(ctx, job)
	switch {
	case err == nil:
		observability.EmailDispatchTotal.WithLabelValues("sent").Inc()
		log.Debug().Str("job_id", job.ID).Msg("job done")
	case errors.Is(err, ErrPermanent):
		observability.EmailDispatchTotal.WithLabelValues("skipped").Inc()
		log.Warn().Err(err).Str("job_id", job.ID).Msg("job dropped")
		if !errors.Is(err, errNoClaim) {
			// otherwise the claim waits in pending for an email that never comes
			d.markFailed(ctx, log, job)
		}
	default:
		log.Error().Err(err).Str("job_id", job.ID).Int("attempt", job.Attempt).Msg("job failed")
		dead, rerr := d.Queue.Retry(ctx, job)
		if rerr != nil {
			log.Error().Err(rerr).Str("job_id", job.ID).Msg("retry enqueue failed")
		}
		if dead {
			observability.EmailDispatchTotal.WithLabelValues("dead").Inc()
			d.markFailed(ctx, log, job)
		} else {
			observability.EmailDispatchTotal.WithLabelValues("retried").Inc()
		}
		d.pause(ctx)
	}
}

// markFailed moves the job's claim to failed. Jobs that do not decode carry
// no claim.
func (d *Dispatcher) markFailed(ctx context.Context, log zerolog.Logger, job *queue.Job) {
	var p queue.VoucherEmailPayload
	if job.Type != queue.JobSendVoucherEmail || job.Decode(&p) != nil || p.EmailID == "" {
		return
	}
	if err := d.Deliveries.MarkFailed(ctx, p.EmailID); err != nil {
		log.Error().Err(err).Str("email_id", p.EmailID).Msg("mark claim failed")
	}
}

func (d *Dispatcher) pause(ctx context.Context) {
	b := d.Backoff
	if b <= 0 {
		b = DefaultBackoff
	}
	t := time.NewTimer(b)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
