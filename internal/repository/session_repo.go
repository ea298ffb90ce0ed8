package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stillwater-labs/stillwater/internal/models"
)

// ErrActiveSessionExists is returned when a user already has an active session.
var ErrActiveSessionExists = errors.New("active session already exists")

const sessionColumns = `id, user_id, meditation_id, start_time, end_time, duration,
	duration_completed, status, interruptions, completed, mood_before, mood_after,
	created_at, updated_at`

// SessionRepository defines the interface for meditation session operations.
type SessionRepository interface {
	Create(ctx context.Context, s *models.MeditationSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.MeditationSession, error)
	GetActiveByUser(ctx context.Context, userID uuid.UUID) (*models.MeditationSession, error)
	IncrementInterruptions(ctx context.Context, id uuid.UUID) (int, error)
	Complete(ctx context.Context, s *models.MeditationSession, a *models.SessionAnalytics) error
	Abandon(ctx context.Context, s *models.MeditationSession) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.MeditationSession, int, error)
	ListCompletedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.MeditationSession, error)
	MarkAbandonedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type sessionRepo struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepo{pool: pool}
}

// Create inserts a new active session. The partial unique index on
// (user_id) WHERE status = 'active' rejects a second concurrent start.
func (r *sessionRepo) Create(ctx context.Context, s *models.MeditationSession) error {
	query := `
		INSERT INTO meditation_sessions (id, user_id, meditation_id, start_time, duration, status, mood_before)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		s.ID,
		s.UserID,
		s.MeditationID,
		s.StartTime,
		s.Duration,
		s.Status,
		s.MoodBefore,
	).Scan(&s.CreatedAt, &s.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrActiveSessionExists
	}
	return err
}

// GetByID retrieves a session by its UUID.
func (r *sessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.MeditationSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM meditation_sessions WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetActiveByUser retrieves the user's active session, if any.
func (r *sessionRepo) GetActiveByUser(ctx context.Context, userID uuid.UUID) (*models.MeditationSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM meditation_sessions WHERE user_id = $1 AND status = 'active'`
	return r.scanOne(r.pool.QueryRow(ctx, query, userID))
}

// IncrementInterruptions bumps the interruption counter on an active session
// and returns the new count. Returns pgx.ErrNoRows if the session is not active.
func (r *sessionRepo) IncrementInterruptions(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		UPDATE meditation_sessions
		SET interruptions = interruptions + 1, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
		RETURNING interruptions`

	var count int
	err := r.pool.QueryRow(ctx, query, id).Scan(&count)
	return count, err
}

// Complete finalizes a session and writes its analytics record in one
// transaction. Either both rows land or neither does.
func (r *sessionRepo) Complete(ctx context.Context, s *models.MeditationSession, a *models.SessionAnalytics) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	updateQuery := `
		UPDATE meditation_sessions
		SET status = 'completed', completed = TRUE, end_time = $2,
		    duration_completed = $3, mood_after = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
		RETURNING updated_at`

	err = tx.QueryRow(ctx, updateQuery,
		s.ID,
		s.EndTime,
		s.DurationCompleted,
		s.MoodAfter,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return err
	}

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	insertQuery := `
		INSERT INTO session_analytics (id, session_id, user_id, meditation_id, start_time, end_time,
			duration, duration_completed, mood_before, mood_after, interruptions, focus_score, maintained_streak)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at`

	err = tx.QueryRow(ctx, insertQuery,
		a.ID,
		a.SessionID,
		a.UserID,
		a.MeditationID,
		a.StartTime,
		a.EndTime,
		a.Duration,
		a.DurationCompleted,
		a.MoodBefore,
		a.MoodAfter,
		a.Interruptions,
		a.FocusScore,
		a.MaintainedStreak,
	).Scan(&a.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Abandon marks an active session abandoned. No analytics record is written.
func (r *sessionRepo) Abandon(ctx context.Context, s *models.MeditationSession) error {
	query := `
		UPDATE meditation_sessions
		SET status = 'abandoned', end_time = $2, duration_completed = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
		RETURNING updated_at`

	return r.pool.QueryRow(ctx, query, s.ID, s.EndTime, s.DurationCompleted).Scan(&s.UpdatedAt)
}

// ListByUser retrieves a user's sessions newest first, with total count.
func (r *sessionRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.MeditationSession, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM meditation_sessions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + sessionColumns + `
		FROM meditation_sessions
		WHERE user_id = $1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	sessions, err := r.scanMany(rows)
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// ListCompletedSince retrieves the user's completed sessions starting at or
// after the given time, oldest first.
func (r *sessionRepo) ListCompletedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.MeditationSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM meditation_sessions
		WHERE user_id = $1 AND status = 'completed' AND start_time >= $2
		ORDER BY start_time ASC`

	rows, err := r.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanMany(rows)
}

// MarkAbandonedBefore abandons active sessions started before the cutoff.
// Used by the background sweep.
func (r *sessionRepo) MarkAbandonedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE meditation_sessions
		SET status = 'abandoned', end_time = NOW(), updated_at = NOW()
		WHERE status = 'active' AND start_time < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *sessionRepo) scanOne(row pgx.Row) (*models.MeditationSession, error) {
	var s models.MeditationSession
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.MeditationID,
		&s.StartTime,
		&s.EndTime,
		&s.Duration,
		&s.DurationCompleted,
		&s.Status,
		&s.Interruptions,
		&s.Completed,
		&s.MoodBefore,
		&s.MoodAfter,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) scanMany(rows pgx.Rows) ([]*models.MeditationSession, error) {
	var sessions []*models.MeditationSession
	for rows.Next() {
		var s models.MeditationSession
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.MeditationID,
			&s.StartTime,
			&s.EndTime,
			&s.Duration,
			&s.DurationCompleted,
			&s.Status,
			&s.Interruptions,
			&s.Completed,
			&s.MoodBefore,
			&s.MoodAfter,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

var _ SessionRepository = (*sessionRepo)(nil)
