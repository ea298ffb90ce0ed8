package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/stillwater-labs/stillwater/internal/models"
	apierrors "github.com/stillwater-labs/stillwater/internal/pkg/errors"
	"github.com/stillwater-labs/stillwater/internal/pkg/ulid"
	"github.com/stillwater-labs/stillwater/internal/realtime"
	"github.com/stillwater-labs/stillwater/internal/repository"
)

// ChatService defines the interface for group session chat.
type ChatService interface {
	AddMessage(ctx context.Context, sessionID, userID uuid.UUID, content string) (*models.ChatMessage, error)
	Messages(ctx context.Context, sessionID uuid.UUID, limit int, before string) ([]*models.ChatMessage, error)
}

// AddMessageRequest posts a chat message.
type AddMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

type chatService struct {
	chatRepo  repository.ChatRepository
	groupRepo repository.GroupSessionRepository
	publisher realtime.Publisher
	logger    *slog.Logger
}

// NewChatService creates a new chat service.
func NewChatService(
	chatRepo repository.ChatRepository,
	groupRepo repository.GroupSessionRepository,
	publisher realtime.Publisher,
	logger *slog.Logger,
) ChatService {
	return &chatService{
		chatRepo:  chatRepo,
		groupRepo: groupRepo,
		publisher: publisher,
		logger:    logger,
	}
}

// AddMessage appends a text message to the session log and publishes it to
// the session room. Only currently joined participants may post.
func (s *chatService) AddMessage(ctx context.Context, sessionID, userID uuid.UUID, content string) (*models.ChatMessage, error) {
	gs, err := s.groupRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group session: %w", err)
	}
	if gs == nil {
		return nil, apierrors.NewNotFoundError("Group session")
	}
	if gs.Status == models.GroupSessionCancelled {
		return nil, apierrors.NewStateConflictError("Cannot send messages in a cancelled session")
	}

	participant, err := s.groupRepo.GetParticipant(ctx, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	if participant == nil || participant.Status != models.ParticipantJoined {
		return nil, apierrors.NewAuthorizationError("User is not a participant in this session")
	}

	msg := &models.ChatMessage{
		ID:        ulid.New(),
		SessionID: sessionID,
		UserID:    &userID,
		Content:   content,
		Type:      models.MessageTypeText,
	}
	if err := s.chatRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	// Persisted is the contract; delivery is at-most-once.
	if err := s.publisher.PublishEvent(ctx, realtime.Event{
		Type:      realtime.EventNewMessage,
		SessionID: sessionID,
		Data:      msg,
	}); err != nil {
		s.logger.Error("failed to publish event", "type", realtime.EventNewMessage, "session_id", sessionID, "error", err)
	}
	return msg, nil
}

// Messages returns the session log most-recent-first.
func (s *chatService) Messages(ctx context.Context, sessionID uuid.UUID, limit int, before string) ([]*models.ChatMessage, error) {
	gs, err := s.groupRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group session: %w", err)
	}
	if gs == nil {
		return nil, apierrors.NewNotFoundError("Group session")
	}

	if limit < 1 || limit > 200 {
		limit = 50
	}
	messages, err := s.chatRepo.ListBySession(ctx, sessionID, limit, before)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

var _ ChatService = (*chatService)(nil)
