package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stillwater-labs/stillwater/internal/models"
	apierrors "github.com/stillwater-labs/stillwater/internal/pkg/errors"
	"github.com/stillwater-labs/stillwater/internal/repository"
)

// AchievementEnqueuer hands completed sessions to the background worker
// for achievement evaluation.
type AchievementEnqueuer interface {
	EnqueueProcessSession(ctx context.Context, sessionID uuid.UUID) error
}

// SessionService defines the interface for solo meditation sessions.
type SessionService interface {
	Start(ctx context.Context, req StartSessionRequest) (*models.MeditationSession, error)
	Active(ctx context.Context, userID uuid.UUID) (*models.MeditationSession, error)
	List(ctx context.Context, userID uuid.UUID, page, limit int) ([]*models.MeditationSession, int, error)
	RecordInterruption(ctx context.Context, sessionID, userID uuid.UUID) (*models.MeditationSession, error)
	Complete(ctx context.Context, sessionID, userID uuid.UUID, req CompleteSessionRequest) (*models.MeditationSession, error)
	Abandon(ctx context.Context, sessionID, userID uuid.UUID) (*models.MeditationSession, error)
}

// StartSessionRequest starts a new session.
type StartSessionRequest struct {
	UserID       uuid.UUID    `json:"-"`
	MeditationID uuid.UUID    `json:"meditation_id" validate:"required"`
	MoodBefore   *models.Mood `json:"mood_before,omitempty"`
}

// CompleteSessionRequest finalizes an active session.
type CompleteSessionRequest struct {
	DurationCompleted int          `json:"duration_completed" validate:"min=0"`
	FocusScore        int          `json:"focus_score" validate:"min=0,max=10"`
	MoodAfter         *models.Mood `json:"mood_after,omitempty"`
}

type sessionService struct {
	sessionRepo    repository.SessionRepository
	meditationRepo repository.MeditationRepository
	enqueuer       AchievementEnqueuer
	logger         *slog.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(
	sessionRepo repository.SessionRepository,
	meditationRepo repository.MeditationRepository,
	enqueuer AchievementEnqueuer,
	logger *slog.Logger,
) SessionService {
	return &sessionService{
		sessionRepo:    sessionRepo,
		meditationRepo: meditationRepo,
		enqueuer:       enqueuer,
		logger:         logger,
	}
}

// Start begins a new active session. A user can have at most one.
func (s *sessionService) Start(ctx context.Context, req StartSessionRequest) (*models.MeditationSession, error) {
	if req.MoodBefore != nil && !req.MoodBefore.Valid() {
		return nil, apierrors.NewValidationError("mood_before", "unknown mood")
	}

	meditation, err := s.meditationRepo.GetByID(ctx, req.MeditationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get meditation: %w", err)
	}
	if meditation == nil || !meditation.IsActive {
		return nil, apierrors.NewNotFoundError("Meditation")
	}

	session := &models.MeditationSession{
		UserID:       req.UserID,
		MeditationID: req.MeditationID,
		StartTime:    time.Now().UTC(),
		Duration:     meditation.Duration,
		Status:       models.SessionStatusActive,
		MoodBefore:   req.MoodBefore,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrActiveSessionExists) {
			return nil, apierrors.NewStateConflictError("You already have an active session")
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// Active returns the user's current active session.
func (s *sessionService) Active(ctx context.Context, userID uuid.UUID) (*models.MeditationSession, error) {
	session, err := s.sessionRepo.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	if session == nil {
		return nil, apierrors.NewNotFoundError("Active session")
	}
	return session, nil
}

// List returns a page of the user's sessions in every state, newest first.
// History is the completed-only view; this one includes active and abandoned
// sessions.
func (s *sessionService) List(ctx context.Context, userID uuid.UUID, page, limit int) ([]*models.MeditationSession, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	sessions, total, err := s.sessionRepo.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, total, nil
}

// RecordInterruption increments the interruption counter on an active session.
func (s *sessionService) RecordInterruption(ctx context.Context, sessionID, userID uuid.UUID) (*models.MeditationSession, error) {
	session, err := s.getOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusActive {
		return nil, apierrors.NewStateConflictError("Session is not active")
	}

	count, err := s.sessionRepo.IncrementInterruptions(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to record interruption: %w", err)
	}
	session.Interruptions = count
	return session, nil
}

// Complete finalizes an active session and writes its analytics projection,
// then hands the session to the achievement worker.
func (s *sessionService) Complete(ctx context.Context, sessionID, userID uuid.UUID, req CompleteSessionRequest) (*models.MeditationSession, error) {
	if req.MoodAfter != nil && !req.MoodAfter.Valid() {
		return nil, apierrors.NewValidationError("mood_after", "unknown mood")
	}
	if req.FocusScore < 0 || req.FocusScore > 10 {
		return nil, apierrors.NewValidationError("focus_score", "must be between 0 and 10")
	}
	if req.DurationCompleted < 0 {
		return nil, apierrors.NewValidationError("duration_completed", "must not be negative")
	}

	session, err := s.getOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusActive {
		return nil, apierrors.NewStateConflictError("Session is already " + string(session.Status))
	}

	now := time.Now().UTC()
	maintained, err := s.maintainedStreak(ctx, session, now)
	if err != nil {
		return nil, err
	}

	session.EndTime = &now
	session.DurationCompleted = req.DurationCompleted
	session.MoodAfter = req.MoodAfter
	session.Status = models.SessionStatusCompleted
	session.Completed = true

	analytics := &models.SessionAnalytics{
		SessionID:         session.ID,
		UserID:            session.UserID,
		MeditationID:      session.MeditationID,
		StartTime:         session.StartTime,
		EndTime:           now,
		Duration:          session.Duration,
		DurationCompleted: req.DurationCompleted,
		MoodBefore:        session.MoodBefore,
		MoodAfter:         req.MoodAfter,
		Interruptions:     session.Interruptions,
		FocusScore:        req.FocusScore,
		MaintainedStreak:  maintained,
	}

	if err := s.sessionRepo.Complete(ctx, session, analytics); err != nil {
		return nil, fmt.Errorf("failed to complete session: %w", err)
	}

	// The session is committed at this point. The worker re-evaluates full
	// history, so a dropped enqueue is recovered by the next completion.
	if err := s.enqueuer.EnqueueProcessSession(ctx, session.ID); err != nil {
		s.logger.Error("failed to enqueue achievement processing", "session_id", session.ID, "error", err)
	}

	return session, nil
}

// Abandon marks an active session abandoned. No analytics row is written.
func (s *sessionService) Abandon(ctx context.Context, sessionID, userID uuid.UUID) (*models.MeditationSession, error) {
	session, err := s.getOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusActive {
		return nil, apierrors.NewStateConflictError("Session is already " + string(session.Status))
	}

	now := time.Now().UTC()
	session.EndTime = &now
	session.Status = models.SessionStatusAbandoned

	if err := s.sessionRepo.Abandon(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to abandon session: %w", err)
	}
	return session, nil
}

// getOwned loads a session and hides other users' sessions behind not-found.
func (s *sessionService) getOwned(ctx context.Context, sessionID, userID uuid.UUID) (*models.MeditationSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil || session.UserID != userID {
		return nil, apierrors.NewNotFoundError("Session")
	}
	return session, nil
}

// maintainedStreak reports whether the user completed a session on the
// previous UTC calendar day.
func (s *sessionService) maintainedStreak(ctx context.Context, session *models.MeditationSession, now time.Time) (bool, error) {
	yesterday := now.UTC().AddDate(0, 0, -1).Format("2006-01-02")
	history, err := s.sessionRepo.ListCompletedSince(ctx, session.UserID, now.UTC().AddDate(0, 0, -2))
	if err != nil {
		return false, fmt.Errorf("failed to load session history: %w", err)
	}
	for _, past := range history {
		if past.StartTime.UTC().Format("2006-01-02") == yesterday {
			return true, nil
		}
	}
	return false, nil
}

var _ SessionService = (*sessionService)(nil)
