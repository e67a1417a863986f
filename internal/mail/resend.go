package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Tags    map[string]string
}

// Mailer sends messages and returns the provider's message id. Errors
// wrapping ErrPermanent are not retried.
type Mailer interface {
	Send(ctx context.Context, m Message) (string, error)
}

// ResendMailer delivers through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

// NewResendMailer builds a mailer sending as from.
func NewResendMailer(apiKey, from string) (*ResendMailer, error) {
	if apiKey == "" || from == "" {
		return nil, errors.New("mail: api key and sender address are required")
	}
	return &ResendMailer{client: resend.NewClient(apiKey), from: from}, nil
}

// Send implements Mailer.
func (r *ResendMailer) Send(ctx context.Context, m Message) (string, error) {
	ctx, span := otel.Tracer("mail").Start(ctx, "ResendMailer.Send")
	defer span.End()

	req := &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{m.To},
		Subject: m.Subject,
		Html:    m.HTML,
	}
	for k, v := range m.Tags {
		req.Tags = append(req.Tags, resend.Tag{Name: k, Value: v})
	}
	sent, err := r.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return "", fmt.Errorf("resend: %w", err)
	}
	span.SetAttributes(attribute.String("mail.message_id", sent.Id))
	return sent.Id, nil
}
