package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stillwater-labs/stillwater/internal/models"
)

// FriendRepository defines the interface for friendships and blocks.
type FriendRepository interface {
	CreateRequest(ctx context.Context, f *models.Friendship) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Friendship, error)
	GetBetween(ctx context.Context, a, b uuid.UUID) (*models.Friendship, error)
	Accept(ctx context.Context, id, recipientID uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListFriends(ctx context.Context, userID uuid.UUID) ([]*models.User, error)
	ListPending(ctx context.Context, userID uuid.UUID) ([]*models.Friendship, error)

	Block(ctx context.Context, userID, blockedID uuid.UUID) error
	Unblock(ctx context.Context, userID, blockedID uuid.UUID) error
	IsBlockedEither(ctx context.Context, a, b uuid.UUID) (bool, error)
}

type friendRepo struct {
	pool *pgxpool.Pool
}

// NewFriendRepository creates a new friend repository.
func NewFriendRepository(pool *pgxpool.Pool) FriendRepository {
	return &friendRepo{pool: pool}
}

// CreateRequest inserts a pending friend request.
func (r *friendRepo) CreateRequest(ctx context.Context, f *models.Friendship) error {
	query := `
		INSERT INTO friendships (id, requester_id, recipient_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}

	return r.pool.QueryRow(ctx, query,
		f.ID,
		f.RequesterID,
		f.RecipientID,
		f.Status,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
}

// GetByID retrieves a friendship by its UUID.
func (r *friendRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Friendship, error) {
	query := `
		SELECT id, requester_id, recipient_id, status, created_at, updated_at
		FROM friendships
		WHERE id = $1`

	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetBetween retrieves the friendship row linking two users in either direction.
func (r *friendRepo) GetBetween(ctx context.Context, a, b uuid.UUID) (*models.Friendship, error) {
	query := `
		SELECT id, requester_id, recipient_id, status, created_at, updated_at
		FROM friendships
		WHERE (requester_id = $1 AND recipient_id = $2)
		   OR (requester_id = $2 AND recipient_id = $1)`

	return r.scanOne(r.pool.QueryRow(ctx, query, a, b))
}

// Accept flips a pending request to accepted. Only the recipient may accept.
// Returns false when the row was not a pending request addressed to them.
func (r *friendRepo) Accept(ctx context.Context, id, recipientID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE friendships
		SET status = 'accepted', updated_at = NOW()
		WHERE id = $1 AND recipient_id = $2 AND status = 'pending'`, id, recipientID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes a friendship or pending request.
func (r *friendRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM friendships WHERE id = $1`, id)
	return err
}

// ListFriends retrieves the users on the other side of accepted friendships.
func (r *friendRepo) ListFriends(ctx context.Context, userID uuid.UUID) ([]*models.User, error) {
	query := `
		SELECT u.id, u.username, u.email, u.password_hash, u.created_at, u.updated_at
		FROM friendships f
		JOIN users u ON u.id = CASE WHEN f.requester_id = $1 THEN f.recipient_id ELSE f.requester_id END
		WHERE (f.requester_id = $1 OR f.recipient_id = $1) AND f.status = 'accepted'
		ORDER BY u.username ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// ListPending retrieves incoming requests awaiting the user's answer.
func (r *friendRepo) ListPending(ctx context.Context, userID uuid.UUID) ([]*models.Friendship, error) {
	query := `
		SELECT id, requester_id, recipient_id, status, created_at, updated_at
		FROM friendships
		WHERE recipient_id = $1 AND status = 'pending'
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*models.Friendship
	for rows.Next() {
		var f models.Friendship
		if err := rows.Scan(&f.ID, &f.RequesterID, &f.RecipientID, &f.Status, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, &f)
	}
	return requests, rows.Err()
}

// Block records that userID blocked blockedID. Idempotent.
func (r *friendRepo) Block(ctx context.Context, userID, blockedID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO blocked_users (user_id, blocked_user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, blockedID)
	return err
}

// Unblock removes a block. Idempotent.
func (r *friendRepo) Unblock(ctx context.Context, userID, blockedID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM blocked_users WHERE user_id = $1 AND blocked_user_id = $2`, userID, blockedID)
	return err
}

// IsBlockedEither reports whether either user has blocked the other.
func (r *friendRepo) IsBlockedEither(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var blocked bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM blocked_users
			WHERE (user_id = $1 AND blocked_user_id = $2)
			   OR (user_id = $2 AND blocked_user_id = $1)
		)`, a, b).Scan(&blocked)
	return blocked, err
}

func (r *friendRepo) scanOne(row pgx.Row) (*models.Friendship, error) {
	var f models.Friendship
	err := row.Scan(&f.ID, &f.RequesterID, &f.RecipientID, &f.Status, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

var _ FriendRepository = (*friendRepo)(nil)
