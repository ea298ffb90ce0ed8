package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stillwater-labs/stillwater/internal/models"
)

// MeditationRepository defines the interface for meditation catalogue operations.
type MeditationRepository interface {
	Create(ctx context.Context, m *models.Meditation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Meditation, error)
	List(ctx context.Context, filter models.MeditationFilter, limit, offset int) ([]*models.Meditation, int, error)
	Update(ctx context.Context, m *models.Meditation) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type meditationRepo struct {
	pool *pgxpool.Pool
}

// NewMeditationRepository creates a new meditation repository.
func NewMeditationRepository(pool *pgxpool.Pool) MeditationRepository {
	return &meditationRepo{pool: pool}
}

// Create inserts a new meditation.
func (r *meditationRepo) Create(ctx context.Context, m *models.Meditation) error {
	query := `
		INSERT INTO meditations (id, title, description, duration, type, category, difficulty, audio_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	return r.pool.QueryRow(ctx, query,
		m.ID,
		m.Title,
		m.Description,
		m.Duration,
		m.Type,
		m.Category,
		m.Difficulty,
		m.AudioURL,
		m.IsActive,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
}

// GetByID retrieves a meditation by its UUID.
func (r *meditationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Meditation, error) {
	query := `
		SELECT id, title, description, duration, type, category, difficulty, audio_url, is_active, created_at, updated_at
		FROM meditations
		WHERE id = $1`

	var m models.Meditation
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&m.ID,
		&m.Title,
		&m.Description,
		&m.Duration,
		&m.Type,
		&m.Category,
		&m.Difficulty,
		&m.AudioURL,
		&m.IsActive,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List retrieves active meditations matching the filter, with total count.
func (r *meditationRepo) List(ctx context.Context, filter models.MeditationFilter, limit, offset int) ([]*models.Meditation, int, error) {
	conditions := []string{"is_active = TRUE"}
	args := []any{}
	argN := 1

	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argN))
		args = append(args, *filter.Type)
		argN++
	}
	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argN))
		args = append(args, *filter.Category)
		argN++
	}
	if filter.Difficulty != nil {
		conditions = append(conditions, fmt.Sprintf("difficulty = $%d", argN))
		args = append(args, *filter.Difficulty)
		argN++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM meditations ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, title, description, duration, type, category, difficulty, audio_url, is_active, created_at, updated_at
		FROM meditations
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, argN, argN+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var meditations []*models.Meditation
	for rows.Next() {
		var m models.Meditation
		if err := rows.Scan(
			&m.ID,
			&m.Title,
			&m.Description,
			&m.Duration,
			&m.Type,
			&m.Category,
			&m.Difficulty,
			&m.AudioURL,
			&m.IsActive,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		meditations = append(meditations, &m)
	}
	return meditations, total, rows.Err()
}

// Update updates a meditation's mutable fields.
func (r *meditationRepo) Update(ctx context.Context, m *models.Meditation) error {
	query := `
		UPDATE meditations
		SET title = $2, description = $3, duration = $4, type = $5, category = $6,
		    difficulty = $7, audio_url = $8, is_active = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	return r.pool.QueryRow(ctx, query,
		m.ID,
		m.Title,
		m.Description,
		m.Duration,
		m.Type,
		m.Category,
		m.Difficulty,
		m.AudioURL,
		m.IsActive,
	).Scan(&m.UpdatedAt)
}

// Deactivate soft-deletes a meditation so existing sessions keep their reference.
func (r *meditationRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE meditations SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

var _ MeditationRepository = (*meditationRepo)(nil)
