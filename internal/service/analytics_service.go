package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stillwater-labs/stillwater/internal/models"
	apierrors "github.com/stillwater-labs/stillwater/internal/pkg/errors"
	"github.com/stillwater-labs/stillwater/internal/repository"
)

// SessionHistory is one page of a user's analytics records.
type SessionHistory struct {
	Sessions      []*models.SessionAnalytics `json:"sessions"`
	TotalSessions int                        `json:"total_sessions"`
	TotalPages    int                        `json:"total_pages"`
}

// AnalyticsService defines the interface for session analytics queries.
type AnalyticsService interface {
	History(ctx context.Context, userID uuid.UUID, page, limit int) (*SessionHistory, error)
	Stats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
	MoodImprovement(ctx context.Context, userID uuid.UUID, since time.Time) (*models.MoodImprovementStats, error)
	Export(ctx context.Context, userID uuid.UUID, from, to *time.Time) ([]*models.SessionAnalytics, error)
}

type analyticsService struct {
	analyticsRepo repository.AnalyticsRepository
}

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(analyticsRepo repository.AnalyticsRepository) AnalyticsService {
	return &analyticsService{analyticsRepo: analyticsRepo}
}

// History returns a page of the user's completed sessions, newest first.
func (s *analyticsService) History(ctx context.Context, userID uuid.UUID, page, limit int) (*SessionHistory, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	records, total, err := s.analyticsRepo.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list session history: %w", err)
	}

	totalPages := (total + limit - 1) / limit
	return &SessionHistory{
		Sessions:      records,
		TotalSessions: total,
		TotalPages:    totalPages,
	}, nil
}

// Stats aggregates the user's completed sessions.
func (s *analyticsService) Stats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	stats, err := s.analyticsRepo.UserStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	return stats, nil
}

// MoodImprovement reports mood deltas since the given time. The rate is 0,
// not NaN, when the user has no sessions with both moods recorded.
func (s *analyticsService) MoodImprovement(ctx context.Context, userID uuid.UUID, since time.Time) (*models.MoodImprovementStats, error) {
	stats, err := s.analyticsRepo.MoodImprovement(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate mood improvement: %w", err)
	}
	return stats, nil
}

// Export returns the user's analytics records, optionally bounded to
// [from, to). Unbounded exports come back newest first; bounded ones oldest
// first, matching the range scan.
func (s *analyticsService) Export(ctx context.Context, userID uuid.UUID, from, to *time.Time) ([]*models.SessionAnalytics, error) {
	if from != nil || to != nil {
		lo := time.Time{}
		if from != nil {
			lo = *from
		}
		hi := time.Now().UTC()
		if to != nil {
			hi = *to
		}
		if hi.Before(lo) {
			return nil, apierrors.NewValidationError("to", "must not be before from")
		}
		records, err := s.analyticsRepo.ListByUserBetween(ctx, userID, lo, hi)
		if err != nil {
			return nil, fmt.Errorf("failed to export sessions: %w", err)
		}
		return records, nil
	}

	// One page large enough for any realistic personal history.
	records, _, err := s.analyticsRepo.ListByUser(ctx, userID, 10000, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to export sessions: %w", err)
	}
	return records, nil
}

var _ AnalyticsService = (*analyticsService)(nil)
