package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client enqueues submission tasks.
type Client struct {
	client  enqueuer
	timeout time.Duration
}

// NewClient builds a Client on an existing redis connection. timeout bounds
// a single submission run and also the uniqueness window of its task.
func NewClient(rdb redis.UniversalClient, timeout time.Duration) *Client {
	return &Client{
		client:  asynq.NewClientFromRedisClient(rdb),
		timeout: timeout,
	}
}

// EnqueueSubmit schedules submission of drawingID. A submission already
// waiting in the queue is not duplicated.
func (c *Client) EnqueueSubmit(ctx context.Context, drawingID string) error {
	task, err := NewSubmitTask(drawingID)
	if err != nil {
		return err
	}

	opts := []asynq.Option{asynq.MaxRetry(0)}
	if c.timeout > 0 {
		opts = append(opts, asynq.Timeout(c.timeout), asynq.Unique(c.timeout))
	}

	_, err = c.client.EnqueueContext(ctx, task, opts...)
	switch {
	case errors.Is(err, asynq.ErrDuplicateTask):
		return nil
	case err != nil:
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close queue client: %w", err)
	}
	return nil
}
