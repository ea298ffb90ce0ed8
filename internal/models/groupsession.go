package models

import (
	"time"

	"github.com/google/uuid"
)

// GroupSessionStatus is the lifecycle state of a group session.
// Transitions are one-directional: scheduled -> in_progress -> completed,
// with cancellation allowed from scheduled and in_progress.
type GroupSessionStatus string

const (
	GroupSessionScheduled  GroupSessionStatus = "scheduled"
	GroupSessionInProgress GroupSessionStatus = "in_progress"
	GroupSessionCompleted  GroupSessionStatus = "completed"
	GroupSessionCancelled  GroupSessionStatus = "cancelled"
)

// Terminal returns true for states that admit no further transitions.
func (s GroupSessionStatus) Terminal() bool {
	return s == GroupSessionCompleted || s == GroupSessionCancelled
}

// Joinable returns true while new participants may join.
func (s GroupSessionStatus) Joinable() bool {
	return s == GroupSessionScheduled || s == GroupSessionInProgress
}

// ParticipantStatus is a user's state within a group session,
// distinct from the session's own status.
type ParticipantStatus string

const (
	ParticipantJoined    ParticipantStatus = "joined"
	ParticipantLeft      ParticipantStatus = "left"
	ParticipantCompleted ParticipantStatus = "completed"
)

// GroupSession is a scheduled meditation shared by several users.
type GroupSession struct {
	ID              uuid.UUID          `json:"id" db:"id"`
	HostID          uuid.UUID          `json:"host_id" db:"host_id"`
	MeditationID    uuid.UUID          `json:"meditation_id" db:"meditation_id"`
	Title           string             `json:"title" db:"title"`
	Description     string             `json:"description" db:"description"`
	ScheduledTime   time.Time          `json:"scheduled_time" db:"scheduled_time"`
	Duration        int                `json:"duration" db:"duration"` // minutes
	MaxParticipants int                `json:"max_participants" db:"max_participants"`
	IsPrivate       bool               `json:"is_private" db:"is_private"`
	Status          GroupSessionStatus `json:"status" db:"status"`
	Participants    []*Participant     `json:"participants,omitempty" db:"-"`
	CreatedAt       time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" db:"updated_at"`
}

// JoinedCount counts participants currently joined.
func (g *GroupSession) JoinedCount() int {
	n := 0
	for _, p := range g.Participants {
		if p.Status == ParticipantJoined {
			n++
		}
	}
	return n
}

// Participant is one user's membership entry in a group session.
type Participant struct {
	ID                uuid.UUID         `json:"id" db:"id"`
	SessionID         uuid.UUID         `json:"session_id" db:"session_id"`
	UserID            uuid.UUID         `json:"user_id" db:"user_id"`
	Status            ParticipantStatus `json:"status" db:"status"`
	DurationCompleted *int              `json:"duration_completed,omitempty" db:"duration_completed"`
	MoodBefore        *Mood             `json:"mood_before,omitempty" db:"mood_before"`
	MoodAfter         *Mood             `json:"mood_after,omitempty" db:"mood_after"`
	JoinedAt          time.Time         `json:"joined_at" db:"joined_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}
