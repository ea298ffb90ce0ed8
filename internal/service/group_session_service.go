package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stillwater-labs/stillwater/internal/models"
	apierrors "github.com/stillwater-labs/stillwater/internal/pkg/errors"
	"github.com/stillwater-labs/stillwater/internal/pkg/ulid"
	"github.com/stillwater-labs/stillwater/internal/realtime"
	"github.com/stillwater-labs/stillwater/internal/repository"
)

// GroupSessionService defines the interface for shared meditation sessions.
type GroupSessionService interface {
	Create(ctx context.Context, req CreateGroupSessionRequest) (*models.GroupSession, error)
	Get(ctx context.Context, id uuid.UUID) (*models.GroupSession, error)
	Upcoming(ctx context.Context, userID uuid.UUID, page, limit int) ([]*models.GroupSession, int, error)
	Mine(ctx context.Context, userID uuid.UUID) ([]*models.GroupSession, error)

	Join(ctx context.Context, sessionID, userID uuid.UUID) (*models.GroupSession, error)
	Leave(ctx context.Context, sessionID, userID uuid.UUID) error
	Start(ctx context.Context, sessionID, userID uuid.UUID) (*models.GroupSession, error)
	Complete(ctx context.Context, sessionID, userID uuid.UUID, req CompleteParticipantRequest) (*models.GroupSession, error)
	Cancel(ctx context.Context, sessionID, userID uuid.UUID) (*models.GroupSession, error)
}

// CreateGroupSessionRequest schedules a new group session.
type CreateGroupSessionRequest struct {
	HostID          uuid.UUID `json:"-"`
	MeditationID    uuid.UUID `json:"meditation_id" validate:"required"`
	Title           string    `json:"title" validate:"required,min=1,max=200"`
	Description     string    `json:"description" validate:"max=2000"`
	ScheduledTime   time.Time `json:"scheduled_time" validate:"required"`
	Duration        int       `json:"duration" validate:"required,min=1,max=240"`
	MaxParticipants int       `json:"max_participants" validate:"min=0,max=100"`
	IsPrivate       bool      `json:"is_private"`
}

// CompleteParticipantRequest records one participant's completion.
type CompleteParticipantRequest struct {
	DurationCompleted int          `json:"duration_completed" validate:"min=0"`
	MoodBefore        *models.Mood `json:"mood_before,omitempty"`
	MoodAfter         *models.Mood `json:"mood_after,omitempty"`
}

type groupSessionService struct {
	groupRepo      repository.GroupSessionRepository
	meditationRepo repository.MeditationRepository
	userRepo       repository.UserRepository
	chatRepo       repository.ChatRepository
	publisher      realtime.Publisher
	logger         *slog.Logger
}

// NewGroupSessionService creates a new group session service.
func NewGroupSessionService(
	groupRepo repository.GroupSessionRepository,
	meditationRepo repository.MeditationRepository,
	userRepo repository.UserRepository,
	chatRepo repository.ChatRepository,
	publisher realtime.Publisher,
	logger *slog.Logger,
) GroupSessionService {
	return &groupSessionService{
		groupRepo:      groupRepo,
		meditationRepo: meditationRepo,
		userRepo:       userRepo,
		chatRepo:       chatRepo,
		publisher:      publisher,
		logger:         logger,
	}
}

// Create schedules a session and joins the host as its first participant.
func (s *groupSessionService) Create(ctx context.Context, req CreateGroupSessionRequest) (*models.GroupSession, error) {
	if !req.ScheduledTime.After(time.Now()) {
		return nil, apierrors.NewValidationError("scheduled_time", "must be in the future")
	}

	meditation, err := s.meditationRepo.GetByID(ctx, req.MeditationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get meditation: %w", err)
	}
	if meditation == nil || !meditation.IsActive {
		return nil, apierrors.NewNotFoundError("Meditation")
	}

	if req.MaxParticipants <= 0 {
		req.MaxParticipants = 10
	}

	gs := &models.GroupSession{
		HostID:          req.HostID,
		MeditationID:    req.MeditationID,
		Title:           req.Title,
		Description:     req.Description,
		ScheduledTime:   req.ScheduledTime,
		Duration:        req.Duration,
		MaxParticipants: req.MaxParticipants,
		IsPrivate:       req.IsPrivate,
		Status:          models.GroupSessionScheduled,
	}
	if err := s.groupRepo.Create(ctx, gs); err != nil {
		return nil, fmt.Errorf("failed to create group session: %w", err)
	}

	if _, err := s.groupRepo.Join(ctx, gs.ID, req.HostID); err != nil {
		return nil, fmt.Errorf("failed to join host: %w", err)
	}
	return s.Get(ctx, gs.ID)
}

// Get retrieves a session with its participants.
func (s *groupSessionService) Get(ctx context.Context, id uuid.UUID) (*models.GroupSession, error) {
	gs, err := s.groupRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get group session: %w", err)
	}
	if gs == nil {
		return nil, apierrors.NewNotFoundError("Group session")
	}
	return gs, nil
}

// Upcoming lists scheduled future sessions the user can see, soonest first.
func (s *groupSessionService) Upcoming(ctx context.Context, userID uuid.UUID, page, limit int) ([]*models.GroupSession, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	sessions, total, err := s.groupRepo.ListUpcoming(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list upcoming sessions: %w", err)
	}
	return sessions, total, nil
}

// Mine lists sessions the user hosts or participates in.
func (s *groupSessionService) Mine(ctx context.Context, userID uuid.UUID) ([]*models.GroupSession, error) {
	sessions, err := s.groupRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user sessions: %w", err)
	}
	return sessions, nil
}

// Join adds the user to the session under the capacity guard.
func (s *groupSessionService) Join(ctx context.Context, sessionID, userID uuid.UUID) (*models.GroupSession, error) {
	gs, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apierrors.NewNotFoundError("User")
	}

	result, err := JoinTransition(gs, user.Username)
	if err != nil {
		return nil, err
	}

	participant, err := s.groupRepo.GetParticipant(ctx, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	if participant != nil && participant.Status == models.ParticipantJoined {
		return nil, apierrors.NewStateConflictError("Already joined this session")
	}

	joined, err := s.groupRepo.Join(ctx, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to join session: %w", err)
	}
	if !joined {
		return nil, apierrors.NewStateConflictError("session is full")
	}

	s.applyResult(ctx, sessionID, result)
	return s.Get(ctx, sessionID)
}

// Leave removes the user from the session.
func (s *groupSessionService) Leave(ctx context.Context, sessionID, userID uuid.UUID) error {
	gs, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return apierrors.NewNotFoundError("User")
	}

	left, err := s.groupRepo.MarkLeft(ctx, sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to leave session: %w", err)
	}
	if !left {
		return apierrors.NewNotFoundError("Participant")
	}

	s.applyResult(ctx, sessionID, LeaveTransition(gs, user.Username))
	return nil
}

// Start moves a scheduled session in progress. Host only.
func (s *groupSessionService) Start(ctx context.Context, sessionID, userID uuid.UUID) (*models.GroupSession, error) {
	gs, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result, err := StartTransition(gs, userID)
	if err != nil {
		return nil, err
	}

	moved, err := s.groupRepo.TransitionStatus(ctx, sessionID, gs.Status, result.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	if !moved {
		return nil, apierrors.NewStateConflictError("Session state changed, try again")
	}

	s.applyResult(ctx, sessionID, result)
	return s.Get(ctx, sessionID)
}

// Complete records the caller's completion. The session itself completes
// once the last joined participant finishes.
func (s *groupSessionService) Complete(ctx context.Context, sessionID, userID uuid.UUID, req CompleteParticipantRequest) (*models.GroupSession, error) {
	if req.MoodBefore != nil && !req.MoodBefore.Valid() {
		return nil, apierrors.NewValidationError("mood_before", "unknown mood")
	}
	if req.MoodAfter != nil && !req.MoodAfter.Valid() {
		return nil, apierrors.NewValidationError("mood_after", "unknown mood")
	}

	gs, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if gs.Status != models.GroupSessionInProgress {
		return nil, apierrors.NewStateConflictError("Cannot complete a " + string(gs.Status) + " session")
	}

	participant := &models.Participant{
		SessionID:         sessionID,
		UserID:            userID,
		DurationCompleted: &req.DurationCompleted,
		MoodBefore:        req.MoodBefore,
		MoodAfter:         req.MoodAfter,
	}
	marked, err := s.groupRepo.MarkCompleted(ctx, participant)
	if err != nil {
		return nil, fmt.Errorf("failed to complete participant: %w", err)
	}
	if !marked {
		return nil, apierrors.NewNotFoundError("Participant")
	}

	participants, err := s.groupRepo.ListParticipants(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	remaining := 0
	for _, p := range participants {
		if p.Status == models.ParticipantJoined {
			remaining++
		}
	}

	result, err := CompleteTransition(gs, remaining)
	if err != nil {
		return nil, err
	}
	if result.Status != gs.Status {
		moved, err := s.groupRepo.TransitionStatus(ctx, sessionID, gs.Status, result.Status)
		if err != nil {
			return nil, fmt.Errorf("failed to complete session: %w", err)
		}
		// A concurrent Complete may have won the CAS. Only the winner gets
		// to write the ending message and publish the event.
		if moved {
			s.applyResult(ctx, sessionID, result)
		}
	}
	return s.Get(ctx, sessionID)
}

// Cancel cancels a session. Host only, never after completion.
func (s *groupSessionService) Cancel(ctx context.Context, sessionID, userID uuid.UUID) (*models.GroupSession, error) {
	gs, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result, err := CancelTransition(gs, userID)
	if err != nil {
		return nil, err
	}

	moved, err := s.groupRepo.TransitionStatus(ctx, sessionID, gs.Status, result.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel session: %w", err)
	}
	if !moved {
		return nil, apierrors.NewStateConflictError("Session state changed, try again")
	}

	s.applyResult(ctx, sessionID, result)
	return s.Get(ctx, sessionID)
}

// applyResult persists a transition's system messages and publishes its
// events. Both are best effort once the state change itself is committed.
func (s *groupSessionService) applyResult(ctx context.Context, sessionID uuid.UUID, result *TransitionResult) {
	for _, content := range result.SystemMessages {
		msg := &models.ChatMessage{
			ID:        ulid.New(),
			SessionID: sessionID,
			Content:   content,
			Type:      models.MessageTypeSystem,
		}
		if err := s.chatRepo.Create(ctx, msg); err != nil {
			s.logger.Error("failed to write system message", "session_id", sessionID, "error", err)
			continue
		}
		s.publish(ctx, realtime.Event{
			Type:      realtime.EventNewMessage,
			SessionID: sessionID,
			Data:      msg,
		})
	}
	for _, event := range result.Events {
		s.publish(ctx, event)
	}
}

func (s *groupSessionService) publish(ctx context.Context, event realtime.Event) {
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "type", event.Type, "session_id", event.SessionID, "error", err)
	}
}

var _ GroupSessionService = (*groupSessionService)(nil)
