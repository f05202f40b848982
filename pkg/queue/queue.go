// Package queue is a Redis-backed named job queue with deterministic job
// ids. Enqueueing the same id twice within the dedup TTL is a no-op, which
// collapses duplicate webhook deliveries to one execution.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultName is the queue manual sync and webhooks enqueue onto.
const DefaultName = "default"

// DefaultResultTTL keeps a finished or pending job id reserved for an hour.
const DefaultResultTTL = time.Hour

// Job is one unit of work on the queue.
type Job struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// SyncJobID builds the deterministic id for an activity sync job.
func SyncJobID(objectID, eventTime int64) string {
	return fmt.Sprintf("sync_%d_%d", objectID, eventTime)
}

// Queue is a named Redis list with a per-job-id dedup guard.
type Queue struct {
	rdb  *redis.Client
	name string
}

// New connects to the broker at redisURL and binds the named queue.
func New(redisURL, name string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
	}
	return NewWithClient(redis.NewClient(opts), name), nil
}

// NewWithClient binds the named queue on an existing client.
func NewWithClient(rdb *redis.Client, name string) *Queue {
	return &Queue{rdb: rdb, name: name}
}

// Ping verifies broker reachability.
func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

// Close releases the broker connection.
func (q *Queue) Close() error {
	return q.rdb.Close()
}

// Enqueue pushes the job unless its id is already reserved. Returns false
// when the id was a duplicate within resultTTL; duplicate ids never
// re-execute.
func (q *Queue) Enqueue(ctx context.Context, job *Job, resultTTL time.Duration) (bool, error) {
	if resultTTL <= 0 {
		resultTTL = DefaultResultTTL
	}
	reserved, err := q.rdb.SetNX(ctx, q.dedupKey(job.ID), "1", resultTTL).Result()
	if err != nil {
		return false, fmt.Errorf("reserving job id: %w", err)
	}
	if !reserved {
		return false, nil
	}

	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	data, err := json.Marshal(job)
	if err != nil {
		return false, fmt.Errorf("encoding job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.listKey(), data).Err(); err != nil {
		// Release the reservation so a later delivery can retry.
		q.rdb.Del(ctx, q.dedupKey(job.ID))
		return false, fmt.Errorf("pushing job: %w", err)
	}
	return true, nil
}

// Dequeue blocks up to timeout for the next job. Returns nil when the
// timeout elapses with an empty queue.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.listKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(res) < 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of length %d", len(res))
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decoding job: %w", err)
	}
	return &job, nil
}

// Len returns the number of pending jobs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.listKey()).Result()
}

func (q *Queue) listKey() string {
	return "queue:" + q.name
}

func (q *Queue) dedupKey(jobID string) string {
	return "queue:" + q.name + ":job:" + jobID
}
