package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	apierrors "github.com/stillwater-labs/stillwater/internal/pkg/errors"
)

func TestAuth(t *testing.T) {
	userID := uuid.New()
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)

	validate := func(ctx context.Context, token string) (uuid.UUID, string, time.Time, error) {
		if token != "good-token" {
			return uuid.Nil, "", time.Time{}, apierrors.ErrUnauthorized
		}
		return userID, "jti-abc", expiry, nil
	}

	var gotUser uuid.UUID
	var gotTokenID string
	var gotExpiry time.Time
	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		gotUser, _ = GetUserID(r.Context())
		gotTokenID, _ = GetTokenID(r.Context())
		gotExpiry, _ = GetTokenExpiry(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Auth(validate)(next)

	t.Run("bearer header", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Status = %d, want 200", rec.Code)
		}
		if !called {
			t.Fatal("next handler was not called")
		}
		if gotUser != userID {
			t.Errorf("user id = %s, want %s", gotUser, userID)
		}
		if gotTokenID != "jti-abc" {
			t.Errorf("token id = %s, want jti-abc", gotTokenID)
		}
		if !gotExpiry.Equal(expiry) {
			t.Errorf("expiry = %v, want %v", gotExpiry, expiry)
		}
	})

	t.Run("token query fallback", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/ws?token=good-token", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Status = %d, want 200", rec.Code)
		}
		if gotUser != userID {
			t.Errorf("user id = %s, want %s", gotUser, userID)
		}
	})

	t.Run("header takes precedence over query", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/ws?token=bad-token", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Status = %d, want 200", rec.Code)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Status = %d, want 401", rec.Code)
		}
		if called {
			t.Error("next handler should not be called")
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
		req.Header.Set("Authorization", "Bearer expired")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Status = %d, want 401", rec.Code)
		}
		if called {
			t.Error("next handler should not be called")
		}
	})

	t.Run("malformed authorization header", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
		req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Status = %d, want 401", rec.Code)
		}
	})
}
