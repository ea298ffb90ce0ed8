package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stillwater-labs/stillwater/internal/models"
)

// ChatRepository defines the interface for the group session message log.
type ChatRepository interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit int, before string) ([]*models.ChatMessage, error)
}

type chatRepo struct {
	pool *pgxpool.Pool
}

// NewChatRepository creates a new chat repository.
func NewChatRepository(pool *pgxpool.Pool) ChatRepository {
	return &chatRepo{pool: pool}
}

// Create appends a message to the session's log.
func (r *chatRepo) Create(ctx context.Context, msg *models.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, session_id, user_id, content, type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		msg.ID,
		msg.SessionID,
		msg.UserID,
		msg.Content,
		msg.Type,
	).Scan(&msg.CreatedAt)
}

// ListBySession retrieves messages most-recent-first. ULID ids order by
// creation time, so keyset pagination rides on the primary key: pass the
// oldest id from the previous page as before, or "" for the first page.
func (r *chatRepo) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int, before string) ([]*models.ChatMessage, error) {
	query := `
		SELECT id, session_id, user_id, content, type, created_at
		FROM chat_messages
		WHERE session_id = $1 AND ($2 = '' OR id < $2)
		ORDER BY id DESC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, sessionID, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(
			&m.ID,
			&m.SessionID,
			&m.UserID,
			&m.Content,
			&m.Type,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

var _ ChatRepository = (*chatRepo)(nil)
