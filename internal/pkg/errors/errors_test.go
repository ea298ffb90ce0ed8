package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestAsAPIError(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		src := NewStateConflictError("Session is already completed")
		apiErr, ok := AsAPIError(src)
		if !ok {
			t.Fatal("AsAPIError() ok = false, want true")
		}
		if apiErr != src {
			t.Errorf("AsAPIError() = %v, want the original error", apiErr)
		}
		if apiErr.StatusCode != http.StatusConflict {
			t.Errorf("StatusCode = %d, want 409", apiErr.StatusCode)
		}
	})

	t.Run("plain error", func(t *testing.T) {
		apiErr, ok := AsAPIError(errors.New("connection reset"))
		if ok {
			t.Error("AsAPIError() ok = true, want false")
		}
		if apiErr != nil {
			t.Errorf("AsAPIError() = %v, want nil", apiErr)
		}
	})

	t.Run("nil error", func(t *testing.T) {
		if _, ok := AsAPIError(nil); ok {
			t.Error("AsAPIError(nil) ok = true, want false")
		}
	})
}

func TestWithMessage(t *testing.T) {
	custom := ErrUnauthorized.WithMessage("Invalid email or password")
	if custom == ErrUnauthorized {
		t.Fatal("WithMessage() should return a copy")
	}
	if custom.Message != "Invalid email or password" {
		t.Errorf("Message = %q", custom.Message)
	}
	if custom.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", custom.StatusCode)
	}
	if ErrUnauthorized.Message != "Authentication required" {
		t.Errorf("original mutated: %q", ErrUnauthorized.Message)
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("focus_score", "must be between 1 and 10")
	if err.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", err.StatusCode)
	}
	details, ok := err.Details.(map[string]string)
	if !ok {
		t.Fatalf("Details = %T, want map[string]string", err.Details)
	}
	if details["field"] != "focus_score" {
		t.Errorf("field = %q", details["field"])
	}
}
