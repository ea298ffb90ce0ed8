package service

import (
	"testing"
	"time"

	"github.com/stillwater-labs/stillwater/internal/models"
)

func completedSession(start time.Time, minutes int) *models.MeditationSession {
	return &models.MeditationSession{
		StartTime:         start,
		DurationCompleted: minutes,
		Status:            models.SessionStatusCompleted,
	}
}

func TestRuleForCoversCatalog(t *testing.T) {
	for _, rule := range Catalog() {
		found, ok := RuleFor(rule.Type)
		if !ok {
			t.Fatalf("RuleFor(%s) not found", rule.Type)
		}
		if found.Target != rule.Target || found.Points != rule.Points {
			t.Errorf("RuleFor(%s) = %+v, want %+v", rule.Type, found, rule)
		}
		if rule.Target <= 0 {
			t.Errorf("%s has non-positive target %d", rule.Type, rule.Target)
		}
	}

	if _, ok := RuleFor(models.AchievementType("unknown")); ok {
		t.Error("RuleFor(unknown) = true, want false")
	}
}

func TestEvaluate_EarlyBird(t *testing.T) {
	rule, _ := RuleFor(models.AchievementEarlyBird)

	t.Run("completes inside window", func(t *testing.T) {
		s := completedSession(time.Date(2026, 3, 10, 6, 30, 0, 0, time.UTC), 10)
		if got := rule.Evaluate(0, s, 0); got != 1 {
			t.Errorf("Evaluate() = %d, want 1", got)
		}
	})

	t.Run("window start is inclusive", func(t *testing.T) {
		s := completedSession(time.Date(2026, 3, 10, 5, 0, 0, 0, time.UTC), 10)
		if got := rule.Evaluate(0, s, 0); got != 1 {
			t.Errorf("Evaluate() = %d, want 1", got)
		}
	})

	t.Run("window end is exclusive", func(t *testing.T) {
		s := completedSession(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), 10)
		if got := rule.Evaluate(0, s, 0); got != 0 {
			t.Errorf("Evaluate() = %d, want 0", got)
		}
	})

	t.Run("evaluates start time in UTC", func(t *testing.T) {
		loc := time.FixedZone("UTC+3", 3*3600)
		// 07:00 local is 04:00 UTC, outside the window.
		s := completedSession(time.Date(2026, 3, 10, 7, 0, 0, 0, loc), 10)
		if got := rule.Evaluate(0, s, 0); got != 0 {
			t.Errorf("Evaluate() = %d, want 0", got)
		}
	})
}

func TestEvaluate_ThresholdCount(t *testing.T) {
	t.Run("marathon only counts long sessions", func(t *testing.T) {
		rule, _ := RuleFor(models.AchievementMarathonMeditator)

		short := completedSession(time.Now(), 29)
		if got := rule.Evaluate(2, short, 0); got != 2 {
			t.Errorf("Evaluate(short) = %d, want 2", got)
		}

		long := completedSession(time.Now(), 30)
		if got := rule.Evaluate(2, long, 0); got != 3 {
			t.Errorf("Evaluate(long) = %d, want 3", got)
		}
	})

	t.Run("mood lifter requires strict improvement", func(t *testing.T) {
		rule, _ := RuleFor(models.AchievementMoodLifter)

		stressed := models.MoodStressed
		calm := models.MoodCalm

		improved := completedSession(time.Now(), 10)
		improved.MoodBefore = &stressed
		improved.MoodAfter = &calm
		if got := rule.Evaluate(0, improved, 0); got != 1 {
			t.Errorf("Evaluate(improved) = %d, want 1", got)
		}

		same := completedSession(time.Now(), 10)
		same.MoodBefore = &calm
		same.MoodAfter = &calm
		if got := rule.Evaluate(0, same, 0); got != 0 {
			t.Errorf("Evaluate(same) = %d, want 0", got)
		}

		missing := completedSession(time.Now(), 10)
		missing.MoodAfter = &calm
		if got := rule.Evaluate(0, missing, 0); got != 0 {
			t.Errorf("Evaluate(missing before) = %d, want 0", got)
		}
	})

	t.Run("progress caps at target", func(t *testing.T) {
		rule, _ := RuleFor(models.AchievementBeginnerMeditator)
		s := completedSession(time.Now(), 10)
		if got := rule.Evaluate(1, s, 0); got != 1 {
			t.Errorf("Evaluate() = %d, want 1", got)
		}
	})
}

func TestEvaluate_Streak(t *testing.T) {
	rule, _ := RuleFor(models.AchievementWeekWarrior)
	s := completedSession(time.Now(), 10)

	if got := rule.Evaluate(2, s, 4); got != 4 {
		t.Errorf("Evaluate(streak 4) = %d, want 4", got)
	}

	// A broken streak never lowers recorded progress.
	if got := rule.Evaluate(5, s, 1); got != 5 {
		t.Errorf("Evaluate(streak 1, progress 5) = %d, want 5", got)
	}

	if got := rule.Evaluate(0, s, 12); got != rule.Target {
		t.Errorf("Evaluate(streak 12) = %d, want %d", got, rule.Target)
	}
}

func TestStreakDays(t *testing.T) {
	ref := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
	day := func(offset, hour int) *models.MeditationSession {
		return completedSession(ref.AddDate(0, 0, offset).Truncate(24*time.Hour).Add(time.Duration(hour)*time.Hour), 10)
	}

	t.Run("counts consecutive days", func(t *testing.T) {
		sessions := []*models.MeditationSession{day(0, 8), day(-1, 22), day(-2, 6)}
		if got := StreakDays(sessions, ref); got != 3 {
			t.Errorf("StreakDays() = %d, want 3", got)
		}
	})

	t.Run("gap breaks the run", func(t *testing.T) {
		sessions := []*models.MeditationSession{day(0, 8), day(-2, 6), day(-3, 6)}
		if got := StreakDays(sessions, ref); got != 1 {
			t.Errorf("StreakDays() = %d, want 1", got)
		}
	})

	t.Run("no session today means zero", func(t *testing.T) {
		sessions := []*models.MeditationSession{day(-1, 8), day(-2, 6)}
		if got := StreakDays(sessions, ref); got != 0 {
			t.Errorf("StreakDays() = %d, want 0", got)
		}
	})

	t.Run("multiple sessions one day count once", func(t *testing.T) {
		sessions := []*models.MeditationSession{day(0, 8), day(0, 19), day(-1, 7)}
		if got := StreakDays(sessions, ref); got != 2 {
			t.Errorf("StreakDays() = %d, want 2", got)
		}
	})
}
