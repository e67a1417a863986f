package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// pollTimeout bounds a single BLPOP so a cancelled context is noticed even
// when the list stays empty.
const pollTimeout = 5 * time.Second

// RedisQueue stores jobs in a Redis list. Producers RPUSH, consumers BLPOP,
// so each job is handed to exactly one dispatcher.
type RedisQueue struct {
	client     *redis.Client
	name       string
	maxRetries int
	log        zerolog.Logger
}

// NewRedisQueue returns a queue on list name; exhausted jobs go to
// name+":dlq".
func NewRedisQueue(client *redis.Client, name string, maxRetries int, log zerolog.Logger) *RedisQueue {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &RedisQueue{
		client:     client,
		name:       name,
		maxRetries: maxRetries,
		log:        log.With().Str("component", "queue").Str("queue", name).Logger(),
	}
}

// DeadLetterKey is the list holding jobs that ran out of retries.
func (q *RedisQueue) DeadLetterKey() string { return q.name + ":dlq" }

// Enqueue appends job to the list.
func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, q.name, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.log.Debug().Str("job_id", job.ID).Str("type", string(job.Type)).Msg("job enqueued")
	return nil
}

// Dequeue pops the oldest job, waiting up to pollTimeout.
func (q *RedisQueue) Dequeue(ctx context.Context) (*Job, error) {
	res, err := q.client.BLPop(ctx, pollTimeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if len(res) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		q.log.Warn().Err(err).Msg("dropping undecodable job")
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues job or moves it to the dead-letter list.
func (q *RedisQueue) Retry(ctx context.Context, job *Job) (bool, error) {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return false, err
	}
	if job.Attempt > q.maxRetries {
		if err := q.client.RPush(ctx, q.DeadLetterKey(), raw).Err(); err != nil {
			return false, fmt.Errorf("dlq push: %w", err)
		}
		q.log.Warn().Str("job_id", job.ID).Int("attempt", job.Attempt).Msg("job moved to DLQ")
		return true, nil
	}
	if err := q.client.RPush(ctx, q.name, raw).Err(); err != nil {
		return false, fmt.Errorf("rpush: %w", err)
	}
	q.log.Info().Str("job_id", job.ID).Int("attempt", job.Attempt).Msg("job retried")
	return false, nil
}

// Len reports the number of waiting jobs.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}
