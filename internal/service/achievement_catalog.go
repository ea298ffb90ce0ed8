package service

import (
	"time"

	"github.com/stillwater-labs/stillwater/internal/models"
)

// RuleKind selects how an achievement rule evaluates a session.
type RuleKind string

const (
	// RuleOneShotTimeWindow completes in full the first time a session
	// starts inside the rule's UTC hour window.
	RuleOneShotTimeWindow RuleKind = "one_shot_time_window"
	// RuleThresholdCount increments progress once per qualifying session.
	RuleThresholdCount RuleKind = "threshold_count"
	// RuleStreak sets progress to the current run of consecutive calendar
	// days with at least one completed session.
	RuleStreak RuleKind = "streak"
)

// AchievementRule is one immutable entry in the achievement catalogue.
type AchievementRule struct {
	Type   models.AchievementType
	Kind   RuleKind
	Target int
	Points int

	// WindowStartHour/WindowEndHour bound one_shot_time_window rules,
	// UTC, start inclusive, end exclusive.
	WindowStartHour int
	WindowEndHour   int

	// Qualifies gates threshold_count increments. Nil means every
	// completed session counts.
	Qualifies func(s *models.MeditationSession) bool
}

// achievementCatalog is the fixed rule table. Rows in the achievements
// table are seeded from it at registration and evaluated against it after
// every completed session. Changing targets or points here rewrites the
// contract for all users, so treat edits as a migration.
var achievementCatalog = []AchievementRule{
	{
		Type:            models.AchievementEarlyBird,
		Kind:            RuleOneShotTimeWindow,
		Target:          1,
		Points:          50,
		WindowStartHour: 5,
		WindowEndHour:   9,
	},
	{
		Type:   models.AchievementMarathonMeditator,
		Kind:   RuleThresholdCount,
		Target: 5,
		Points: 150,
		Qualifies: func(s *models.MeditationSession) bool {
			return s.DurationCompleted >= 30
		},
	},
	{
		Type:   models.AchievementMoodLifter,
		Kind:   RuleThresholdCount,
		Target: 10,
		Points: 100,
		Qualifies: func(s *models.MeditationSession) bool {
			return models.MoodImproved(s.MoodBefore, s.MoodAfter)
		},
	},
	{
		Type:   models.AchievementBeginnerMeditator,
		Kind:   RuleThresholdCount,
		Target: 1,
		Points: 10,
	},
	{
		Type:   models.AchievementIntermediateMeditator,
		Kind:   RuleThresholdCount,
		Target: 10,
		Points: 50,
	},
	{
		Type:   models.AchievementAdvancedMeditator,
		Kind:   RuleThresholdCount,
		Target: 50,
		Points: 200,
	},
	{
		Type:   models.AchievementWeekWarrior,
		Kind:   RuleStreak,
		Target: 7,
		Points: 120,
	},
}

// Catalog returns the full rule table.
func Catalog() []AchievementRule {
	return achievementCatalog
}

// RuleFor looks up the catalogue entry for a type.
func RuleFor(typ models.AchievementType) (AchievementRule, bool) {
	for _, r := range achievementCatalog {
		if r.Type == typ {
			return r, true
		}
	}
	return AchievementRule{}, false
}

// Evaluate returns the new progress for an achievement row given a completed
// session and the user's current daily streak. Progress never decreases and
// never exceeds the target; completed rows are left untouched by callers.
func (r AchievementRule) Evaluate(current int, s *models.MeditationSession, streakDays int) int {
	next := current
	switch r.Kind {
	case RuleOneShotTimeWindow:
		h := s.StartTime.UTC().Hour()
		if h >= r.WindowStartHour && h < r.WindowEndHour {
			next = r.Target
		}
	case RuleThresholdCount:
		if r.Qualifies == nil || r.Qualifies(s) {
			next = current + 1
		}
	case RuleStreak:
		if streakDays > next {
			next = streakDays
		}
	}
	if next > r.Target {
		next = r.Target
	}
	if next < current {
		next = current
	}
	return next
}

// StreakDays counts the consecutive UTC calendar days with at least one
// completed session, ending on the day of ref. Sessions is any set covering
// the window; order does not matter.
func StreakDays(sessions []*models.MeditationSession, ref time.Time) int {
	days := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		days[s.StartTime.UTC().Format("2006-01-02")] = true
	}

	streak := 0
	day := ref.UTC()
	for days[day.Format("2006-01-02")] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}
