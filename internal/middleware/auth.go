package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	apierrors "github.com/stillwater-labs/stillwater/internal/pkg/errors"
	"github.com/stillwater-labs/stillwater/internal/pkg/response"
)

// TokenValidator verifies a bearer token and returns the subject, token id
// and expiry. Implemented by the auth service.
type TokenValidator func(ctx context.Context, token string) (uuid.UUID, string, time.Time, error)

// Auth returns middleware that authenticates requests with a bearer token.
// Websocket clients can't set headers from the browser, so a token query
// parameter is accepted as a fallback.
func Auth(validate TokenValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				response.Error(w, apierrors.ErrUnauthorized)
				return
			}

			userID, tokenID, expiresAt, err := validate(r.Context(), token)
			if err != nil {
				response.Error(w, apierrors.ErrUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, TokenIDKey, tokenID)
			ctx = context.WithValue(ctx, TokenExpiryKey, expiresAt)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
