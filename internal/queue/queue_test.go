package queue

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func TestNewJob_DecodeRoundTrip(t *testing.T) {
	job, err := NewJob(JobSendVoucherEmail, VoucherEmailPayload{EmailID: "abc", Timezone: "Europe/Athens"})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if job.ID == "" || job.Type != JobSendVoucherEmail || job.Attempt != 0 {
		t.Fatalf("unexpected envelope: %+v", job)
	}
	var p VoucherEmailPayload
	if err := job.Decode(&p); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.EmailID != "abc" || p.Timezone != "Europe/Athens" {
		t.Fatalf("payload = %+v", p)
	}
}

func TestMemoryQueue_FIFO(t *testing.T) {
	q := NewMemoryQueue(4, 1)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(ctx, Job{ID: id}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("Len = %d", q.Len())
	}
	for _, want := range []string{"a", "b", "c"} {
		j, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if j.ID != want {
			t.Fatalf("got %q want %q", j.ID, want)
		}
	}
}

func TestMemoryQueue_RetryThenDead(t *testing.T) {
	q := NewMemoryQueue(4, 2)
	ctx := context.Background()
	job := &Job{ID: "x"}

	for i := 1; i <= 2; i++ {
		dead, err := q.Retry(ctx, job)
		if err != nil || dead {
			t.Fatalf("retry %d: dead=%v err=%v", i, dead, err)
		}
		got, _ := q.Dequeue(ctx)
		if got.Attempt != i {
			t.Fatalf("attempt = %d want %d", got.Attempt, i)
		}
		job = got
	}
	dead, err := q.Retry(ctx, job)
	if err != nil || !dead {
		t.Fatalf("expected dead-letter, dead=%v err=%v", dead, err)
	}
	if q.Len() != 0 {
		t.Fatalf("dead job must not be re-enqueued")
	}
	if d := q.Dead(); len(d) != 1 || d[0].ID != "x" {
		t.Fatalf("Dead() = %+v", d)
	}
}

func TestMemoryQueue_DequeueHonoursContext(t *testing.T) {
	q := NewMemoryQueue(1, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := q.Dequeue(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestMemoryQueue_Close(t *testing.T) {
	q := NewMemoryQueue(1, 0)
	done := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background())
		done <- err
	}()
	q.Close()
	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("consumer not woken by Close")
	}
	if err := q.Enqueue(context.Background(), Job{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Enqueue after Close = %v", err)
	}
	q.Close() // idempotent
}

// Runs against a real server only when TEST_REDIS_ADDR is set.
func TestRedisQueue_Integration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	name := "test:emails:" + time.Now().Format("150405.000000")
	q := NewRedisQueue(client, name, 0, zerolog.Nop())
	defer client.Del(ctx, name, q.DeadLetterKey())

	job, _ := NewJob(JobSendVoucherEmail, VoucherEmailPayload{EmailID: "e1"})
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	got, err := q.Dequeue(ctx)
	if err != nil || got == nil || got.ID != job.ID {
		t.Fatalf("Dequeue = %+v, %v", got, err)
	}
	dead, err := q.Retry(ctx, got)
	if err != nil || !dead {
		t.Fatalf("Retry with zero budget: dead=%v err=%v", dead, err)
	}
	if n, _ := client.LLen(ctx, q.DeadLetterKey()).Result(); n != 1 {
		t.Fatalf("dlq len = %d", n)
	}
}
