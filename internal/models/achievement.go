package models

import (
	"time"

	"github.com/google/uuid"
)

// AchievementType identifies an entry in the achievement catalogue.
type AchievementType string

const (
	AchievementEarlyBird             AchievementType = "early_bird"
	AchievementMarathonMeditator     AchievementType = "marathon_meditator"
	AchievementWeekWarrior           AchievementType = "week_warrior"
	AchievementMoodLifter            AchievementType = "mood_lifter"
	AchievementBeginnerMeditator     AchievementType = "beginner_meditator"
	AchievementIntermediateMeditator AchievementType = "intermediate_meditator"
	AchievementAdvancedMeditator     AchievementType = "advanced_meditator"
)

// Achievement is one user's progress against one catalogue entry.
// Exactly one row exists per (user, type); completed never reverts.
type Achievement struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	Type        AchievementType `json:"type" db:"type"`
	Progress    int             `json:"progress" db:"progress"`
	Target      int             `json:"target" db:"target"`
	Completed   bool            `json:"completed" db:"completed"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}
