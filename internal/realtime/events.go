// Package realtime fans group session events out to websocket clients.
// Events travel through redis pub/sub so every server instance sees them,
// then each hub delivers to its locally connected clients.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/stillwater-labs/stillwater/internal/database"
)

// Event types delivered to session rooms.
const (
	EventUserJoined       = "user_joined"
	EventUserLeft         = "user_left"
	EventNewMessage       = "new_message"
	EventSessionStarted   = "session_started"
	EventSessionEnded     = "session_ended"
	EventSessionCancelled = "session_cancelled"
	EventTypingStart      = "typing_start"
	EventTypingEnd        = "typing_end"
)

// Event is one message delivered to everyone watching a session room.
// Delivery is at-most-once per connected client.
type Event struct {
	Type      string    `json:"type"`
	SessionID uuid.UUID `json:"session_id"`
	Data      any       `json:"data,omitempty"`
}

// Publisher sends events toward session rooms.
type Publisher interface {
	PublishEvent(ctx context.Context, event Event) error
}

// channelPrefix namespaces session rooms in redis pub/sub.
const channelPrefix = "room:"

// RoomChannel returns the redis channel for a session room.
func RoomChannel(sessionID uuid.UUID) string {
	return channelPrefix + sessionID.String()
}

// RedisPublisher publishes events through redis pub/sub.
type RedisPublisher struct {
	redis *database.Redis
}

// NewRedisPublisher creates a redis-backed event publisher.
func NewRedisPublisher(redis *database.Redis) *RedisPublisher {
	return &RedisPublisher{redis: redis}
}

// PublishEvent serializes the event and publishes it to the session room.
func (p *RedisPublisher) PublishEvent(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.redis.Publish(ctx, RoomChannel(event.SessionID), payload); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

var _ Publisher = (*RedisPublisher)(nil)
