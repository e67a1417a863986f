// Package queue carries background jobs from the HTTP process to the email
// dispatcher. Two implementations exist: a Redis list shared between
// processes and an in-memory channel for single-process deployments and
// tests.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobType identifies the job kind.
type JobType string

// JobSendVoucherEmail asks the dispatcher to send the confirmation email of
// a freshly created claim.
const JobSendVoucherEmail JobType = "send_voucher_email"

// DefaultMaxRetries is how many times a failing job is retried before it is
// moved to the dead-letter list.
const DefaultMaxRetries = 3

// ErrClosed is returned by Dequeue once a queue has been closed.
var ErrClosed = errors.New("queue closed")

// VoucherEmailPayload is the payload of JobSendVoucherEmail. The claim is
// reloaded by EmailID so the job never carries stale voucher data.
type VoucherEmailPayload struct {
	EmailID  string `json:"email_id"`
	Timezone string `json:"timezone,omitempty"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewJob wraps payload into a fresh envelope.
func NewJob(t JobType, payload any) (Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("marshal payload: %w", err)
	}
	return Job{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   body,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the payload into v.
func (j Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}

// Queue is the contract shared by the implementations.
//
// Dequeue blocks until a job is available or ctx is done; it may return
// (nil, nil) when a poll interval elapses without work. Retry re-enqueues a
// failed job with its attempt counter incremented, or moves it to the
// dead-letter list once the retry budget is spent, in which case dead is
// true.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Dequeue(ctx context.Context) (*Job, error)
	Retry(ctx context.Context, job *Job) (dead bool, err error)
}
