package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/graphmail/internal/domain"
)

// ErrQueueEmpty is returned by Dequeue when no job arrived within the wait.
var ErrQueueEmpty = errors.New("job queue empty")

// Queue is a FIFO of notification jobs held in a Redis list.
type Queue struct {
	rdb *redis.Client
	key string
}

// NewQueue returns a queue stored under key.
func NewQueue(rdb *redis.Client, key string) *Queue {
	return &Queue{rdb: rdb, key: key}
}

// Enqueue appends job to the queue.
func (q *Queue) Enqueue(ctx context.Context, job domain.NotificationJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	if err := q.rdb.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	return nil
}

// Dequeue blocks up to wait for the oldest job.
func (q *Queue) Dequeue(ctx context.Context, wait time.Duration) (*domain.NotificationJob, error) {
	res, err := q.rdb.BRPop(ctx, wait, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrQueueEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}

	// BRPOP replies with [key, value].
	var job domain.NotificationJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

// Len reports the number of waiting jobs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}
