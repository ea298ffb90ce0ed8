package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stillwater-labs/stillwater/internal/models"
	apierrors "github.com/stillwater-labs/stillwater/internal/pkg/errors"
	"github.com/stillwater-labs/stillwater/internal/repository"
)

// FriendService defines the interface for the social graph.
type FriendService interface {
	SendRequest(ctx context.Context, requesterID, recipientID uuid.UUID) (*models.Friendship, error)
	AcceptRequest(ctx context.Context, requestID, userID uuid.UUID) (*models.Friendship, error)
	Remove(ctx context.Context, userID, otherID uuid.UUID) error
	ListFriends(ctx context.Context, userID uuid.UUID) ([]*models.User, error)
	ListPending(ctx context.Context, userID uuid.UUID) ([]*models.Friendship, error)
	Block(ctx context.Context, userID, otherID uuid.UUID) error
	Unblock(ctx context.Context, userID, otherID uuid.UUID) error
}

// FriendRequestRequest targets a user by id.
type FriendRequestRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

type friendService struct {
	friendRepo repository.FriendRepository
	userRepo   repository.UserRepository
}

// NewFriendService creates a new friend service.
func NewFriendService(friendRepo repository.FriendRepository, userRepo repository.UserRepository) FriendService {
	return &friendService{
		friendRepo: friendRepo,
		userRepo:   userRepo,
	}
}

// SendRequest creates a pending request. Self-requests, duplicates and
// blocked pairs are rejected.
func (s *friendService) SendRequest(ctx context.Context, requesterID, recipientID uuid.UUID) (*models.Friendship, error) {
	if requesterID == recipientID {
		return nil, apierrors.NewValidationError("user_id", "cannot friend yourself")
	}

	recipient, err := s.userRepo.GetByID(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if recipient == nil {
		return nil, apierrors.NewNotFoundError("User")
	}

	blocked, err := s.friendRepo.IsBlockedEither(ctx, requesterID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to check blocks: %w", err)
	}
	if blocked {
		return nil, apierrors.NewStateConflictError("Cannot send a friend request to this user")
	}

	existing, err := s.friendRepo.GetBetween(ctx, requesterID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to check friendship: %w", err)
	}
	if existing != nil {
		if existing.Status == models.FriendshipAccepted {
			return nil, apierrors.NewStateConflictError("Already friends")
		}
		return nil, apierrors.NewStateConflictError("A friend request is already pending")
	}

	friendship := &models.Friendship{
		RequesterID: requesterID,
		RecipientID: recipientID,
		Status:      models.FriendshipPending,
	}
	if err := s.friendRepo.CreateRequest(ctx, friendship); err != nil {
		return nil, fmt.Errorf("failed to create friend request: %w", err)
	}
	return friendship, nil
}

// AcceptRequest accepts a pending request. Recipient only.
func (s *friendService) AcceptRequest(ctx context.Context, requestID, userID uuid.UUID) (*models.Friendship, error) {
	friendship, err := s.friendRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get friend request: %w", err)
	}
	if friendship == nil {
		return nil, apierrors.NewNotFoundError("Friend request")
	}
	if friendship.RecipientID != userID {
		return nil, apierrors.NewAuthorizationError("Only the recipient can accept a friend request")
	}

	accepted, err := s.friendRepo.Accept(ctx, requestID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to accept friend request: %w", err)
	}
	if !accepted {
		return nil, apierrors.NewStateConflictError("Request is no longer pending")
	}

	friendship.Status = models.FriendshipAccepted
	return friendship, nil
}

// Remove deletes a friendship or pending request between two users.
func (s *friendService) Remove(ctx context.Context, userID, otherID uuid.UUID) error {
	friendship, err := s.friendRepo.GetBetween(ctx, userID, otherID)
	if err != nil {
		return fmt.Errorf("failed to get friendship: %w", err)
	}
	if friendship == nil {
		return apierrors.NewNotFoundError("Friendship")
	}
	if err := s.friendRepo.Delete(ctx, friendship.ID); err != nil {
		return fmt.Errorf("failed to remove friendship: %w", err)
	}
	return nil
}

// ListFriends returns the user's accepted friends.
func (s *friendService) ListFriends(ctx context.Context, userID uuid.UUID) ([]*models.User, error) {
	friends, err := s.friendRepo.ListFriends(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	return friends, nil
}

// ListPending returns incoming requests awaiting the user's answer.
func (s *friendService) ListPending(ctx context.Context, userID uuid.UUID) ([]*models.Friendship, error) {
	pending, err := s.friendRepo.ListPending(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}
	return pending, nil
}

// Block blocks a user and removes any friendship between the pair.
func (s *friendService) Block(ctx context.Context, userID, otherID uuid.UUID) error {
	if userID == otherID {
		return apierrors.NewValidationError("user_id", "cannot block yourself")
	}

	if err := s.friendRepo.Block(ctx, userID, otherID); err != nil {
		return fmt.Errorf("failed to block user: %w", err)
	}

	friendship, err := s.friendRepo.GetBetween(ctx, userID, otherID)
	if err != nil {
		return fmt.Errorf("failed to get friendship: %w", err)
	}
	if friendship != nil {
		if err := s.friendRepo.Delete(ctx, friendship.ID); err != nil {
			return fmt.Errorf("failed to remove friendship: %w", err)
		}
	}
	return nil
}

// Unblock removes a block.
func (s *friendService) Unblock(ctx context.Context, userID, otherID uuid.UUID) error {
	if err := s.friendRepo.Unblock(ctx, userID, otherID); err != nil {
		return fmt.Errorf("failed to unblock user: %w", err)
	}
	return nil
}

var _ FriendService = (*friendService)(nil)
