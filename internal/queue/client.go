package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Client enqueues processing jobs. It wraps the asynq client so callers
// depend on a narrow Enqueue contract.
type Client struct {
	client  *asynq.Client
	policy  RetryPolicy
	timeout time.Duration
}

// NewClient creates an enqueue-side queue client.
func NewClient(redisOpt asynq.RedisClientOpt, policy RetryPolicy, timeout time.Duration) *Client {
	return &Client{
		client:  asynq.NewClient(redisOpt),
		policy:  policy,
		timeout: timeout,
	}
}

// Enqueue adds one processing job to the queue.
func (c *Client) Enqueue(ctx context.Context, p ProcessDocumentPayload) error {
	task, err := NewProcessDocumentTask(p, c.policy, c.timeout)
	if err != nil {
		return fmt.Errorf("failed to create processing task: %w", err)
	}

	if _, err := c.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue processing task: %w", err)
	}

	return nil
}

// Close releases the underlying queue connection.
func (c *Client) Close() error {
	return c.client.Close()
}
