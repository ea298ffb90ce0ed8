package models

import (
	"time"

	"github.com/google/uuid"
)

// MeditationType classifies how a meditation is delivered.
type MeditationType string

const (
	MeditationTypeGuided    MeditationType = "guided"
	MeditationTypeUnguided  MeditationType = "unguided"
	MeditationTypeMusic     MeditationType = "music"
	MeditationTypeBreathing MeditationType = "breathing"
)

// Valid returns true if the meditation type is valid.
func (t MeditationType) Valid() bool {
	switch t {
	case MeditationTypeGuided, MeditationTypeUnguided, MeditationTypeMusic, MeditationTypeBreathing:
		return true
	default:
		return false
	}
}

// MeditationCategory classifies what a meditation is for.
type MeditationCategory string

const (
	CategoryStress  MeditationCategory = "stress"
	CategorySleep   MeditationCategory = "sleep"
	CategoryFocus   MeditationCategory = "focus"
	CategoryAnxiety MeditationCategory = "anxiety"
	CategoryGeneral MeditationCategory = "general"
)

// Valid returns true if the category is valid.
func (c MeditationCategory) Valid() bool {
	switch c {
	case CategoryStress, CategorySleep, CategoryFocus, CategoryAnxiety, CategoryGeneral:
		return true
	default:
		return false
	}
}

// Difficulty is the experience level a meditation targets.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Valid returns true if the difficulty is valid.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	default:
		return false
	}
}

// Meditation is a static content record. Read-only to session flows.
type Meditation struct {
	ID          uuid.UUID          `json:"id" db:"id"`
	Title       string             `json:"title" db:"title"`
	Description string             `json:"description" db:"description"`
	Duration    int                `json:"duration" db:"duration"` // minutes
	Type        MeditationType     `json:"type" db:"type"`
	Category    MeditationCategory `json:"category" db:"category"`
	Difficulty  Difficulty         `json:"difficulty" db:"difficulty"`
	AudioURL    *string            `json:"audio_url,omitempty" db:"audio_url"`
	IsActive    bool               `json:"is_active" db:"is_active"`
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" db:"updated_at"`
}

// MeditationFilter narrows meditation listings.
type MeditationFilter struct {
	Category   *MeditationCategory
	Type       *MeditationType
	Difficulty *Difficulty
	Page       int
	Limit      int
}
