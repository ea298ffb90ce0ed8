package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stillwater-labs/stillwater/internal/models"
)

// AnalyticsRepository defines the interface for session analytics reads.
// Rows are written by SessionRepository.Complete; this side only aggregates.
type AnalyticsRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.SessionAnalytics, int, error)
	ListByUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.SessionAnalytics, error)
	UserStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
	MoodImprovement(ctx context.Context, userID uuid.UUID, since time.Time) (*models.MoodImprovementStats, error)
}

type analyticsRepo struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository creates a new analytics repository.
func NewAnalyticsRepository(pool *pgxpool.Pool) AnalyticsRepository {
	return &analyticsRepo{pool: pool}
}

const analyticsColumns = `id, session_id, user_id, meditation_id, start_time, end_time,
	duration, duration_completed, mood_before, mood_after, interruptions, focus_score,
	maintained_streak, created_at`

// ListByUser retrieves a user's analytics records newest first, with total count.
func (r *analyticsRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.SessionAnalytics, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM session_analytics WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + analyticsColumns + `
		FROM session_analytics
		WHERE user_id = $1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records, err := r.scanMany(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListByUserBetween retrieves analytics records in [from, to), oldest first.
func (r *analyticsRepo) ListByUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.SessionAnalytics, error) {
	query := `SELECT ` + analyticsColumns + `
		FROM session_analytics
		WHERE user_id = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time ASC`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanMany(rows)
}

// UserStats aggregates completed-session totals for a user.
func (r *analyticsRepo) UserStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(duration_completed), 0),
		       COALESCE(AVG(focus_score), 0),
		       COALESCE(SUM(interruptions), 0)
		FROM session_analytics
		WHERE user_id = $1`

	var stats models.UserStats
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&stats.TotalSessions,
		&stats.TotalMinutes,
		&stats.AverageFocusScore,
		&stats.TotalInterruptions,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// MoodImprovement counts sessions since the given time where the mood after
// ranks strictly better than the mood before. Sessions missing either mood
// are excluded from both totals.
func (r *analyticsRepo) MoodImprovement(ctx context.Context, userID uuid.UUID, since time.Time) (*models.MoodImprovementStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE ` +
		rankExpr("mood_after") + ` > ` + rankExpr("mood_before") + `)
		FROM session_analytics
		WHERE user_id = $1 AND start_time >= $2
		  AND mood_before IS NOT NULL AND mood_after IS NOT NULL`

	var stats models.MoodImprovementStats
	err := r.pool.QueryRow(ctx, query, userID, since).Scan(&stats.TotalSessions, &stats.TotalImproved)
	if err != nil {
		return nil, err
	}
	if stats.TotalSessions > 0 {
		stats.ImprovementRate = float64(stats.TotalImproved) / float64(stats.TotalSessions) * 100
	}
	return &stats, nil
}

// rankExpr maps mood labels to their scale position inside queries.
// Must stay in sync with the mood scale in the models package.
func rankExpr(column string) string {
	return `CASE ` + column + `
		WHEN 'very_stressed' THEN 0
		WHEN 'stressed' THEN 1
		WHEN 'anxious' THEN 2
		WHEN 'neutral' THEN 3
		WHEN 'calm' THEN 4
		WHEN 'peaceful' THEN 5
		WHEN 'very_peaceful' THEN 6
	END`
}

func (r *analyticsRepo) scanMany(rows pgx.Rows) ([]*models.SessionAnalytics, error) {
	var records []*models.SessionAnalytics
	for rows.Next() {
		var a models.SessionAnalytics
		if err := rows.Scan(
			&a.ID,
			&a.SessionID,
			&a.UserID,
			&a.MeditationID,
			&a.StartTime,
			&a.EndTime,
			&a.Duration,
			&a.DurationCompleted,
			&a.MoodBefore,
			&a.MoodAfter,
			&a.Interruptions,
			&a.FocusScore,
			&a.MaintainedStreak,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, &a)
	}
	return records, rows.Err()
}

var _ AnalyticsRepository = (*analyticsRepo)(nil)
