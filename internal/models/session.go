package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a meditation session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusAbandoned SessionStatus = "abandoned"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// Terminal returns true once a session can no longer change.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionStatusCompleted, SessionStatusAbandoned, SessionStatusCancelled:
		return true
	default:
		return false
	}
}

// Mood is a point on the ordered mood scale, worst to best.
type Mood string

const (
	MoodVeryStressed Mood = "very_stressed"
	MoodStressed     Mood = "stressed"
	MoodAnxious      Mood = "anxious"
	MoodNeutral      Mood = "neutral"
	MoodCalm         Mood = "calm"
	MoodPeaceful     Mood = "peaceful"
	MoodVeryPeaceful Mood = "very_peaceful"
)

// moodRank orders moods from worst (0) to best.
var moodRank = map[Mood]int{
	MoodVeryStressed: 0,
	MoodStressed:     1,
	MoodAnxious:      2,
	MoodNeutral:      3,
	MoodCalm:         4,
	MoodPeaceful:     5,
	MoodVeryPeaceful: 6,
}

// Valid returns true if the mood is on the scale.
func (m Mood) Valid() bool {
	_, ok := moodRank[m]
	return ok
}

// Rank returns the mood's position on the scale, -1 if unknown.
func (m Mood) Rank() int {
	if r, ok := moodRank[m]; ok {
		return r
	}
	return -1
}

// MoodImproved reports whether after ranks strictly better than before.
// Unknown moods never count as an improvement.
func MoodImproved(before, after *Mood) bool {
	if before == nil || after == nil {
		return false
	}
	b, a := before.Rank(), after.Rank()
	return b >= 0 && a >= 0 && a > b
}

// MeditationSession is one user's attempt at a meditation.
// Immutable once its status is terminal.
type MeditationSession struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	UserID            uuid.UUID     `json:"user_id" db:"user_id"`
	MeditationID      uuid.UUID     `json:"meditation_id" db:"meditation_id"`
	StartTime         time.Time     `json:"start_time" db:"start_time"`
	EndTime           *time.Time    `json:"end_time,omitempty" db:"end_time"`
	Duration          int           `json:"duration" db:"duration"` // planned minutes
	DurationCompleted int           `json:"duration_completed" db:"duration_completed"`
	Status            SessionStatus `json:"status" db:"status"`
	Interruptions     int           `json:"interruptions" db:"interruptions"`
	Completed         bool          `json:"completed" db:"completed"`
	MoodBefore        *Mood         `json:"mood_before,omitempty" db:"mood_before"`
	MoodAfter         *Mood         `json:"mood_after,omitempty" db:"mood_after"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}

// SessionAnalytics is the denormalized per-session analytics record.
// Written once when the session completes, read-only afterwards.
type SessionAnalytics struct {
	ID                uuid.UUID `json:"id" db:"id"`
	SessionID         uuid.UUID `json:"session_id" db:"session_id"`
	UserID            uuid.UUID `json:"user_id" db:"user_id"`
	MeditationID      uuid.UUID `json:"meditation_id" db:"meditation_id"`
	StartTime         time.Time `json:"start_time" db:"start_time"`
	EndTime           time.Time `json:"end_time" db:"end_time"`
	Duration          int       `json:"duration" db:"duration"`
	DurationCompleted int       `json:"duration_completed" db:"duration_completed"`
	MoodBefore        *Mood     `json:"mood_before,omitempty" db:"mood_before"`
	MoodAfter         *Mood     `json:"mood_after,omitempty" db:"mood_after"`
	Interruptions     int       `json:"interruptions" db:"interruptions"`
	FocusScore        int       `json:"focus_score" db:"focus_score"` // 0-10
	MaintainedStreak  bool      `json:"maintained_streak" db:"maintained_streak"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// UserStats aggregates a user's completed sessions.
type UserStats struct {
	TotalSessions      int     `json:"total_sessions"`
	TotalMinutes       int     `json:"total_minutes"`
	AverageFocusScore  float64 `json:"average_focus_score"`
	TotalInterruptions int     `json:"total_interruptions"`
}

// MoodImprovementStats summarizes mood deltas over a period.
type MoodImprovementStats struct {
	TotalSessions   int     `json:"total_sessions"`
	TotalImproved   int     `json:"total_improved"`
	ImprovementRate float64 `json:"improvement_rate"` // percent
}
