package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stillwater-labs/stillwater/internal/models"
)

// GroupSessionRepository defines the interface for group session state.
type GroupSessionRepository interface {
	Create(ctx context.Context, gs *models.GroupSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.GroupSession, error)
	ListUpcoming(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.GroupSession, int, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.GroupSession, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.GroupSessionStatus) (bool, error)

	Join(ctx context.Context, sessionID, userID uuid.UUID) (bool, error)
	GetParticipant(ctx context.Context, sessionID, userID uuid.UUID) (*models.Participant, error)
	ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]*models.Participant, error)
	MarkLeft(ctx context.Context, sessionID, userID uuid.UUID) (bool, error)
	MarkCompleted(ctx context.Context, p *models.Participant) (bool, error)
}

type groupSessionRepo struct {
	pool *pgxpool.Pool
}

// NewGroupSessionRepository creates a new group session repository.
func NewGroupSessionRepository(pool *pgxpool.Pool) GroupSessionRepository {
	return &groupSessionRepo{pool: pool}
}

const groupSessionColumns = `id, host_id, meditation_id, title, description, scheduled_time,
	duration, max_participants, is_private, status, created_at, updated_at`

// Create inserts a new scheduled group session.
func (r *groupSessionRepo) Create(ctx context.Context, gs *models.GroupSession) error {
	query := `
		INSERT INTO group_sessions (id, host_id, meditation_id, title, description, scheduled_time, duration, max_participants, is_private, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	if gs.ID == uuid.Nil {
		gs.ID = uuid.New()
	}

	return r.pool.QueryRow(ctx, query,
		gs.ID,
		gs.HostID,
		gs.MeditationID,
		gs.Title,
		gs.Description,
		gs.ScheduledTime,
		gs.Duration,
		gs.MaxParticipants,
		gs.IsPrivate,
		gs.Status,
	).Scan(&gs.CreatedAt, &gs.UpdatedAt)
}

// GetByID retrieves a group session with its participants.
func (r *groupSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.GroupSession, error) {
	query := `SELECT ` + groupSessionColumns + ` FROM group_sessions WHERE id = $1`

	gs, err := r.scanOne(r.pool.QueryRow(ctx, query, id))
	if err != nil || gs == nil {
		return gs, err
	}

	participants, err := r.ListParticipants(ctx, id)
	if err != nil {
		return nil, err
	}
	gs.Participants = participants
	return gs, nil
}

// ListUpcoming retrieves scheduled future sessions visible to the user,
// soonest first, with total count. Public sessions are visible to everyone;
// private ones only to their host and participants.
func (r *groupSessionRepo) ListUpcoming(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.GroupSession, int, error) {
	where := `
		WHERE g.status = 'scheduled'
		  AND g.scheduled_time > NOW()
		  AND (g.is_private = FALSE
		       OR g.host_id = $1
		       OR EXISTS (SELECT 1 FROM group_session_participants p
		                  WHERE p.session_id = g.id AND p.user_id = $1))`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM group_sessions g `+where, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + groupSessionColumns + `
		FROM group_sessions g ` + where + `
		ORDER BY g.scheduled_time ASC
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

// ListByUser retrieves sessions the user hosts or participates in,
// newest scheduled first.
func (r *groupSessionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.GroupSession, error) {
	query := `
		SELECT DISTINCT g.id, g.host_id, g.meditation_id, g.title, g.description, g.scheduled_time,
			g.duration, g.max_participants, g.is_private, g.status, g.created_at, g.updated_at
		FROM group_sessions g
		LEFT JOIN group_session_participants p ON p.session_id = g.id
		WHERE g.host_id = $1 OR p.user_id = $1
		ORDER BY g.scheduled_time DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanMany(rows)
}

// TransitionStatus moves a session from one status to another. Returns false
// when the session was not in the expected status, so callers can surface a
// state conflict instead of clobbering a concurrent transition.
func (r *groupSessionRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.GroupSessionStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE group_sessions
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Join adds the user as a joined participant, or flips an earlier 'left' row
// back to joined. All joins for a session serialize on an advisory lock held
// until commit, so the capacity count always sees every committed join and
// concurrent joins cannot overshoot max_participants. A plain row lock is not
// enough here: after a lock wait Postgres only re-checks the locked row's own
// columns, not the participant count. Returns false when the session is full
// or not joinable.
func (r *groupSessionRepo) Join(ctx context.Context, sessionID, userID uuid.UUID) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, sessionID)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO group_session_participants (id, session_id, user_id, status)
		SELECT $3, g.id, $2, 'joined'
		FROM group_sessions g
		WHERE g.id = $1
		  AND g.status IN ('scheduled', 'in_progress')
		  AND (SELECT COUNT(*) FROM group_session_participants p
		       WHERE p.session_id = g.id AND p.status = 'joined') < g.max_participants
		ON CONFLICT (session_id, user_id)
		DO UPDATE SET status = 'joined', updated_at = NOW()`

	tag, err := tx.Exec(ctx, query, sessionID, userID, uuid.New())
	if err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetParticipant retrieves one membership row.
func (r *groupSessionRepo) GetParticipant(ctx context.Context, sessionID, userID uuid.UUID) (*models.Participant, error) {
	query := `
		SELECT id, session_id, user_id, status, duration_completed, mood_before, mood_after, joined_at, updated_at
		FROM group_session_participants
		WHERE session_id = $1 AND user_id = $2`

	var p models.Participant
	err := r.pool.QueryRow(ctx, query, sessionID, userID).Scan(
		&p.ID,
		&p.SessionID,
		&p.UserID,
		&p.Status,
		&p.DurationCompleted,
		&p.MoodBefore,
		&p.MoodAfter,
		&p.JoinedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListParticipants retrieves all membership rows for a session in join order.
func (r *groupSessionRepo) ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]*models.Participant, error) {
	query := `
		SELECT id, session_id, user_id, status, duration_completed, mood_before, mood_after, joined_at, updated_at
		FROM group_session_participants
		WHERE session_id = $1
		ORDER BY joined_at ASC`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []*models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(
			&p.ID,
			&p.SessionID,
			&p.UserID,
			&p.Status,
			&p.DurationCompleted,
			&p.MoodBefore,
			&p.MoodAfter,
			&p.JoinedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		participants = append(participants, &p)
	}
	return participants, rows.Err()
}

// MarkLeft flips a joined participant to left. Returns false when the user
// was not a joined participant.
func (r *groupSessionRepo) MarkLeft(ctx context.Context, sessionID, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE group_session_participants
		SET status = 'left', updated_at = NOW()
		WHERE session_id = $1 AND user_id = $2 AND status = 'joined'`, sessionID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkCompleted records a joined participant's completion payload. Returns
// false when the user was not a joined participant.
func (r *groupSessionRepo) MarkCompleted(ctx context.Context, p *models.Participant) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE group_session_participants
		SET status = 'completed', duration_completed = $3, mood_before = $4, mood_after = $5, updated_at = NOW()
		WHERE session_id = $1 AND user_id = $2 AND status = 'joined'`,
		p.SessionID, p.UserID, p.DurationCompleted, p.MoodBefore, p.MoodAfter)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *groupSessionRepo) scanOne(row pgx.Row) (*models.GroupSession, error) {
	var gs models.GroupSession
	err := row.Scan(
		&gs.ID,
		&gs.HostID,
		&gs.MeditationID,
		&gs.Title,
		&gs.Description,
		&gs.ScheduledTime,
		&gs.Duration,
		&gs.MaxParticipants,
		&gs.IsPrivate,
		&gs.Status,
		&gs.CreatedAt,
		&gs.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &gs, nil
}

func (r *groupSessionRepo) scanMany(rows pgx.Rows) ([]*models.GroupSession, error) {
	var sessions []*models.GroupSession
	for rows.Next() {
		var gs models.GroupSession
		if err := rows.Scan(
			&gs.ID,
			&gs.HostID,
			&gs.MeditationID,
			&gs.Title,
			&gs.Description,
			&gs.ScheduledTime,
			&gs.Duration,
			&gs.MaxParticipants,
			&gs.IsPrivate,
			&gs.Status,
			&gs.CreatedAt,
			&gs.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, &gs)
	}
	return sessions, rows.Err()
}

var _ GroupSessionRepository = (*groupSessionRepo)(nil)
