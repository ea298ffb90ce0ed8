// Package worker runs background jobs: achievement evaluation after each
// completed session and a periodic sweep that abandons stale sessions.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names.
const (
	TaskProcessAchievements = "achievements:process"
	TaskExpireAbandoned     = "sessions:expire_abandoned"
)

// Queue names, highest priority first.
const (
	QueueAchievements = "achievements"
	QueueMaintenance  = "maintenance"
)

// ProcessAchievementsPayload carries the completed session to evaluate.
type ProcessAchievementsPayload struct {
	SessionID uuid.UUID `json:"session_id"`
}

// NewProcessAchievementsTask builds the evaluation task for a session.
func NewProcessAchievementsTask(sessionID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(ProcessAchievementsPayload{SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TaskProcessAchievements, payload, asynq.MaxRetry(3)), nil
}

// Client enqueues background tasks. It satisfies the enqueuer interface the
// session service depends on.
type Client struct {
	client *asynq.Client
}

// NewClient creates a task client against the given redis address.
func NewClient(redisAddr, redisPassword string, redisDB int) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     redisAddr,
			Password: redisPassword,
			DB:       redisDB,
		}),
	}
}

// EnqueueProcessSession schedules achievement evaluation for a session.
func (c *Client) EnqueueProcessSession(ctx context.Context, sessionID uuid.UUID) error {
	task, err := NewProcessAchievementsTask(sessionID)
	if err != nil {
		return err
	}
	if _, err := c.client.EnqueueContext(ctx, task, asynq.Queue(QueueAchievements)); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Close releases the underlying redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}
