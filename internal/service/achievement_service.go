package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stillwater-labs/stillwater/internal/models"
	"github.com/stillwater-labs/stillwater/internal/repository"
)

// AchievementService defines the interface for achievement evaluation.
type AchievementService interface {
	// InitializeAchievements seeds one zero-progress row per catalogue
	// entry. Safe to call more than once.
	InitializeAchievements(ctx context.Context, userID uuid.UUID) error

	// ProcessSession re-evaluates every catalogue rule against a session.
	// Sessions that are not completed are ignored.
	ProcessSession(ctx context.Context, sessionID uuid.UUID) error

	List(ctx context.Context, userID uuid.UUID) ([]*models.Achievement, error)
	UserPoints(ctx context.Context, userID uuid.UUID) (int, error)
}

type achievementService struct {
	achievementRepo repository.AchievementRepository
	sessionRepo     repository.SessionRepository
	logger          *slog.Logger
}

// NewAchievementService creates a new achievement service.
func NewAchievementService(
	achievementRepo repository.AchievementRepository,
	sessionRepo repository.SessionRepository,
	logger *slog.Logger,
) AchievementService {
	return &achievementService{
		achievementRepo: achievementRepo,
		sessionRepo:     sessionRepo,
		logger:          logger,
	}
}

// InitializeAchievements seeds the user's achievement rows from the catalogue.
func (s *achievementService) InitializeAchievements(ctx context.Context, userID uuid.UUID) error {
	rows := make([]*models.Achievement, 0, len(achievementCatalog))
	for _, rule := range achievementCatalog {
		rows = append(rows, &models.Achievement{
			UserID: userID,
			Type:   rule.Type,
			Target: rule.Target,
		})
	}
	if err := s.achievementRepo.InitializeForUser(ctx, userID, rows); err != nil {
		return fmt.Errorf("failed to initialize achievements: %w", err)
	}
	return nil
}

// ProcessSession evaluates the catalogue against one completed session.
// Progress only ever moves forward, so replaying the same session after a
// worker retry cannot revert a completion.
func (s *achievementService) ProcessSession(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil || session.Status != models.SessionStatusCompleted {
		return nil
	}

	achievements, err := s.achievementRepo.ListByUser(ctx, session.UserID)
	if err != nil {
		return fmt.Errorf("failed to list achievements: %w", err)
	}

	streak, err := s.streakDays(ctx, session)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, a := range achievements {
		if a.Completed {
			continue
		}
		rule, ok := RuleFor(a.Type)
		if !ok {
			// Row predates a catalogue change. Leave it alone.
			continue
		}

		next := rule.Evaluate(a.Progress, session, streak)
		if next == a.Progress {
			continue
		}

		a.Progress = next
		if a.Progress >= a.Target {
			a.Completed = true
			completedAt := now
			a.CompletedAt = &completedAt
		}
		if err := s.achievementRepo.UpdateProgress(ctx, a); err != nil {
			return fmt.Errorf("failed to update achievement %s: %w", a.Type, err)
		}
		if a.Completed {
			s.logger.Info("achievement completed",
				"user_id", session.UserID,
				"type", a.Type,
				"points", rule.Points)
		}
	}
	return nil
}

// List retrieves a user's achievement rows.
func (s *achievementService) List(ctx context.Context, userID uuid.UUID) ([]*models.Achievement, error) {
	achievements, err := s.achievementRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	return achievements, nil
}

// UserPoints sums catalogue points over the user's completed achievements.
func (s *achievementService) UserPoints(ctx context.Context, userID uuid.UUID) (int, error) {
	achievements, err := s.achievementRepo.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list achievements: %w", err)
	}

	points := 0
	for _, a := range achievements {
		if !a.Completed {
			continue
		}
		if rule, ok := RuleFor(a.Type); ok {
			points += rule.Points
		}
	}
	return points, nil
}

// streakDays computes the user's current consecutive-day run, looking back
// over twice the week_warrior window to keep the query bounded.
func (s *achievementService) streakDays(ctx context.Context, session *models.MeditationSession) (int, error) {
	rule, ok := RuleFor(models.AchievementWeekWarrior)
	if !ok {
		return 0, nil
	}

	since := session.StartTime.UTC().AddDate(0, 0, -(rule.Target * 2))
	history, err := s.sessionRepo.ListCompletedSince(ctx, session.UserID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to load session history: %w", err)
	}
	// The triggering session may not yet be visible to the read.
	history = append(history, session)
	return StreakDays(history, session.StartTime), nil
}

var _ AchievementService = (*achievementService)(nil)
