package handler

import (
	"context"
	"encoding/csv"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stillwater-labs/stillwater/internal/models"
)

func exportFixture(userID uuid.UUID) []*models.SessionAnalytics {
	before := models.MoodStressed
	after := models.MoodCalm
	start := time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)
	return []*models.SessionAnalytics{
		{
			ID:                uuid.New(),
			SessionID:         uuid.New(),
			UserID:            userID,
			MeditationID:      uuid.New(),
			StartTime:         start,
			EndTime:           start.Add(15 * time.Minute),
			Duration:          15,
			DurationCompleted: 14,
			MoodBefore:        &before,
			MoodAfter:         &after,
			Interruptions:     1,
			FocusScore:        8,
			MaintainedStreak:  true,
		},
		{
			ID:           uuid.New(),
			SessionID:    uuid.New(),
			UserID:       userID,
			MeditationID: uuid.New(),
			StartTime:    start.Add(-24 * time.Hour),
			EndTime:      start.Add(-24*time.Hour + 10*time.Minute),
			Duration:     10,
		},
	}
}

func TestExportHandler_Sessions(t *testing.T) {
	userID := uuid.New()
	records := exportFixture(userID)
	handler := NewExportHandler(&mockAnalyticsService{
		exportFunc: func(ctx context.Context, uid uuid.UUID, from, to *time.Time) ([]*models.SessionAnalytics, error) {
			return records, nil
		},
	})

	t.Run("json by default", func(t *testing.T) {
		rec := serveAuthed(t, handler.Routes(), jsonRequest(t, http.MethodGet, "/sessions", nil), userID)
		if rec.Code != http.StatusOK {
			t.Fatalf("Status = %d, want 200. Body: %s", rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
			t.Errorf("Content-Type = %q", ct)
		}
	})

	t.Run("csv download", func(t *testing.T) {
		rec := serveAuthed(t, handler.Routes(), jsonRequest(t, http.MethodGet, "/sessions?format=csv", nil), userID)
		if rec.Code != http.StatusOK {
			t.Fatalf("Status = %d, want 200. Body: %s", rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
			t.Errorf("Content-Type = %q, want text/csv", ct)
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "sessions.csv") {
			t.Errorf("Content-Disposition = %q", cd)
		}

		rows, err := csv.NewReader(rec.Body).ReadAll()
		if err != nil {
			t.Fatalf("csv parse error: %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("rows = %d, want header + 2", len(rows))
		}
		if rows[0][0] != "session_id" || rows[0][10] != "maintained_streak" {
			t.Errorf("header = %v", rows[0])
		}

		first := rows[1]
		if first[0] != records[0].SessionID.String() {
			t.Errorf("session_id = %s", first[0])
		}
		if first[6] != "stressed" || first[7] != "calm" {
			t.Errorf("moods = %s/%s, want stressed/calm", first[6], first[7])
		}
		if first[10] != "true" {
			t.Errorf("maintained_streak = %s, want true", first[10])
		}

		// Missing moods serialize as empty cells.
		second := rows[2]
		if second[6] != "" || second[7] != "" {
			t.Errorf("empty moods = %q/%q", second[6], second[7])
		}
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		rec := serveAuthed(t, handler.Routes(), jsonRequest(t, http.MethodGet, "/sessions?format=xml", nil), userID)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want 400", rec.Code)
		}
	})

	t.Run("passes the date window through", func(t *testing.T) {
		var gotFrom, gotTo *time.Time
		h := NewExportHandler(&mockAnalyticsService{
			exportFunc: func(ctx context.Context, uid uuid.UUID, from, to *time.Time) ([]*models.SessionAnalytics, error) {
				gotFrom, gotTo = from, to
				return nil, nil
			},
		})

		rec := serveAuthed(t, h.Routes(),
			jsonRequest(t, http.MethodGet, "/sessions?from=2026-03-01T00:00:00Z&to=2026-04-01T00:00:00Z", nil), userID)
		if rec.Code != http.StatusOK {
			t.Fatalf("Status = %d, want 200. Body: %s", rec.Code, rec.Body.String())
		}
		if gotFrom == nil || !gotFrom.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("from = %v", gotFrom)
		}
		if gotTo == nil || !gotTo.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("to = %v", gotTo)
		}
	})

	t.Run("rejects malformed bounds", func(t *testing.T) {
		rec := serveAuthed(t, handler.Routes(), jsonRequest(t, http.MethodGet, "/sessions?from=last-tuesday", nil), userID)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want 400", rec.Code)
		}
	})
}
