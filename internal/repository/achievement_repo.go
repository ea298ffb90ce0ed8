package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stillwater-labs/stillwater/internal/models"
)

// AchievementRepository defines the interface for achievement progress rows.
type AchievementRepository interface {
	InitializeForUser(ctx context.Context, userID uuid.UUID, rows []*models.Achievement) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Achievement, error)
	UpdateProgress(ctx context.Context, a *models.Achievement) error
}

type achievementRepo struct {
	pool *pgxpool.Pool
}

// NewAchievementRepository creates a new achievement repository.
func NewAchievementRepository(pool *pgxpool.Pool) AchievementRepository {
	return &achievementRepo{pool: pool}
}

// InitializeForUser inserts one zero-progress row per catalogue entry.
// Idempotent: existing rows are left untouched.
func (r *achievementRepo) InitializeForUser(ctx context.Context, userID uuid.UUID, rows []*models.Achievement) error {
	batch := &pgx.Batch{}
	for _, a := range rows {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		batch.Queue(`
			INSERT INTO achievements (id, user_id, type, progress, target)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, type) DO NOTHING`,
			a.ID, userID, a.Type, a.Progress, a.Target)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

// ListByUser retrieves all of a user's achievement rows.
func (r *achievementRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Achievement, error) {
	query := `
		SELECT id, user_id, type, progress, target, completed, completed_at, created_at, updated_at
		FROM achievements
		WHERE user_id = $1
		ORDER BY created_at ASC, type ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var achievements []*models.Achievement
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.Type,
			&a.Progress,
			&a.Target,
			&a.Completed,
			&a.CompletedAt,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		achievements = append(achievements, &a)
	}
	return achievements, rows.Err()
}

// UpdateProgress persists new progress for a row that is not yet completed.
// The guard keeps completed achievements immutable even under races.
func (r *achievementRepo) UpdateProgress(ctx context.Context, a *models.Achievement) error {
	query := `
		UPDATE achievements
		SET progress = $2, completed = $3, completed_at = $4, updated_at = NOW()
		WHERE id = $1 AND completed = FALSE
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query, a.ID, a.Progress, a.Completed, a.CompletedAt).Scan(&a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Already completed by a concurrent writer. Nothing to do.
		return nil
	}
	return err
}

var _ AchievementRepository = (*achievementRepo)(nil)
