package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const (
	// UserIDKey holds the authenticated user's id.
	UserIDKey contextKey = "user_id"
	// TokenIDKey holds the JWT id, used for logout revocation.
	TokenIDKey contextKey = "token_id"
	// TokenExpiryKey holds the token's expiry time.
	TokenExpiryKey contextKey = "token_expiry"
)

// GetUserID extracts the authenticated user id from the context.
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return id, ok
}

// GetTokenID extracts the JWT id from the context.
func GetTokenID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(TokenIDKey).(string)
	return id, ok
}

// GetTokenExpiry extracts the token expiry from the context.
func GetTokenExpiry(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(TokenExpiryKey).(time.Time)
	return t, ok
}
