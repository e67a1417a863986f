package queue

import (
	"context"
	"sync"
)

// MemoryQueue is a bounded in-process queue. Jobs do not survive a restart.
type MemoryQueue struct {
	jobs       chan Job
	maxRetries int

	mu     sync.Mutex
	dead   []Job
	closed bool
	done   chan struct{}
}

// NewMemoryQueue returns a queue holding up to size pending jobs.
func NewMemoryQueue(size, maxRetries int) *MemoryQueue {
	if size <= 0 {
		size = 256
	}
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &MemoryQueue{
		jobs:       make(chan Job, size),
		maxRetries: maxRetries,
		done:       make(chan struct{}),
	}
}

// Enqueue adds job, blocking while the buffer is full.
func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrClosed
	}
	select {
	case q.jobs <- job:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue waits for the next job.
func (q *MemoryQueue) Dequeue(ctx context.Context) (*Job, error) {
	select {
	case job := <-q.jobs:
		return &job, nil
	case <-q.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Retry re-enqueues job or records it as dead.
func (q *MemoryQueue) Retry(ctx context.Context, job *Job) (bool, error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.mu.Lock()
		q.dead = append(q.dead, *job)
		q.mu.Unlock()
		return true, nil
	}
	return false, q.Enqueue(ctx, *job)
}

// Dead returns a copy of the dead-lettered jobs.
func (q *MemoryQueue) Dead() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Job(nil), q.dead...)
}

// Len reports the number of waiting jobs.
func (q *MemoryQueue) Len() int { return len(q.jobs) }

// Close wakes all blocked consumers and rejects further jobs.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
}
