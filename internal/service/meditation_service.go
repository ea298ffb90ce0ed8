package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stillwater-labs/stillwater/internal/models"
	apierrors "github.com/stillwater-labs/stillwater/internal/pkg/errors"
	"github.com/stillwater-labs/stillwater/internal/repository"
)

// MeditationService defines the interface for the meditation catalogue.
type MeditationService interface {
	Create(ctx context.Context, req CreateMeditationRequest) (*models.Meditation, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Meditation, error)
	List(ctx context.Context, filter models.MeditationFilter) ([]*models.Meditation, int, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateMeditationRequest) (*models.Meditation, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateMeditationRequest adds a catalogue entry.
type CreateMeditationRequest struct {
	Title       string                    `json:"title" validate:"required,min=1,max=200"`
	Description string                    `json:"description" validate:"max=2000"`
	Duration    int                       `json:"duration" validate:"required,min=1,max=240"`
	Type        models.MeditationType     `json:"type" validate:"required"`
	Category    models.MeditationCategory `json:"category" validate:"required"`
	Difficulty  models.Difficulty         `json:"difficulty" validate:"required"`
	AudioURL    *string                   `json:"audio_url,omitempty" validate:"omitempty,url"`
}

// UpdateMeditationRequest replaces a catalogue entry's fields.
type UpdateMeditationRequest struct {
	Title       string                    `json:"title" validate:"required,min=1,max=200"`
	Description string                    `json:"description" validate:"max=2000"`
	Duration    int                       `json:"duration" validate:"required,min=1,max=240"`
	Type        models.MeditationType     `json:"type" validate:"required"`
	Category    models.MeditationCategory `json:"category" validate:"required"`
	Difficulty  models.Difficulty         `json:"difficulty" validate:"required"`
	AudioURL    *string                   `json:"audio_url,omitempty" validate:"omitempty,url"`
	IsActive    *bool                     `json:"is_active,omitempty"`
}

type meditationService struct {
	meditationRepo repository.MeditationRepository
}

// NewMeditationService creates a new meditation service.
func NewMeditationService(meditationRepo repository.MeditationRepository) MeditationService {
	return &meditationService{meditationRepo: meditationRepo}
}

// Create adds a meditation to the catalogue.
func (s *meditationService) Create(ctx context.Context, req CreateMeditationRequest) (*models.Meditation, error) {
	if err := validateContentEnums(req.Type, req.Category, req.Difficulty); err != nil {
		return nil, err
	}

	m := &models.Meditation{
		Title:       req.Title,
		Description: req.Description,
		Duration:    req.Duration,
		Type:        req.Type,
		Category:    req.Category,
		Difficulty:  req.Difficulty,
		AudioURL:    req.AudioURL,
		IsActive:    true,
	}
	if err := s.meditationRepo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create meditation: %w", err)
	}
	return m, nil
}

// Get retrieves one meditation.
func (s *meditationService) Get(ctx context.Context, id uuid.UUID) (*models.Meditation, error) {
	m, err := s.meditationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get meditation: %w", err)
	}
	if m == nil {
		return nil, apierrors.NewNotFoundError("Meditation")
	}
	return m, nil
}

// List retrieves active meditations matching the filter with total count.
func (s *meditationService) List(ctx context.Context, filter models.MeditationFilter) ([]*models.Meditation, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Type != nil && !filter.Type.Valid() {
		return nil, 0, apierrors.NewValidationError("type", "unknown meditation type")
	}
	if filter.Category != nil && !filter.Category.Valid() {
		return nil, 0, apierrors.NewValidationError("category", "unknown category")
	}
	if filter.Difficulty != nil && !filter.Difficulty.Valid() {
		return nil, 0, apierrors.NewValidationError("difficulty", "unknown difficulty")
	}

	meditations, total, err := s.meditationRepo.List(ctx, filter, filter.Limit, (filter.Page-1)*filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list meditations: %w", err)
	}
	return meditations, total, nil
}

// Update replaces a meditation's fields.
func (s *meditationService) Update(ctx context.Context, id uuid.UUID, req UpdateMeditationRequest) (*models.Meditation, error) {
	if err := validateContentEnums(req.Type, req.Category, req.Difficulty); err != nil {
		return nil, err
	}

	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	m.Title = req.Title
	m.Description = req.Description
	m.Duration = req.Duration
	m.Type = req.Type
	m.Category = req.Category
	m.Difficulty = req.Difficulty
	m.AudioURL = req.AudioURL
	if req.IsActive != nil {
		m.IsActive = *req.IsActive
	}

	if err := s.meditationRepo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to update meditation: %w", err)
	}
	return m, nil
}

// Delete deactivates a meditation. Sessions referencing it keep working.
func (s *meditationService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.meditationRepo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("failed to deactivate meditation: %w", err)
	}
	return nil
}

func validateContentEnums(t models.MeditationType, c models.MeditationCategory, d models.Difficulty) error {
	if !t.Valid() {
		return apierrors.NewValidationError("type", "unknown meditation type")
	}
	if !c.Valid() {
		return apierrors.NewValidationError("category", "unknown category")
	}
	if !d.Valid() {
		return apierrors.NewValidationError("difficulty", "unknown difficulty")
	}
	return nil
}

var _ MeditationService = (*meditationService)(nil)
