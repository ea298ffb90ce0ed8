package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageType distinguishes user text from lifecycle announcements.
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeSystem MessageType = "system"
)

// ChatMessage is one entry in a group session's append-only message log.
// System messages carry no author. The ID is a ULID, so ordering by ID
// descending yields most-recent-first.
type ChatMessage struct {
	ID        string      `json:"id" db:"id"`
	SessionID uuid.UUID   `json:"session_id" db:"session_id"`
	UserID    *uuid.UUID  `json:"user_id,omitempty" db:"user_id"`
	Content   string      `json:"content" db:"content"`
	Type      MessageType `json:"type" db:"type"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}
