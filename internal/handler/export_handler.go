package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stillwater-labs/stillwater/internal/middleware"
	"github.com/stillwater-labs/stillwater/internal/models"
	apierrors "github.com/stillwater-labs/stillwater/internal/pkg/errors"
	"github.com/stillwater-labs/stillwater/internal/pkg/response"
	"github.com/stillwater-labs/stillwater/internal/service"
)

// ExportHandler serves the caller's session history as a download.
type ExportHandler struct {
	analyticsService service.AnalyticsService
}

// NewExportHandler creates a new export handler.
func NewExportHandler(analyticsService service.AnalyticsService) *ExportHandler {
	return &ExportHandler{analyticsService: analyticsService}
}

// Routes returns a chi router with export routes.
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/sessions", h.Sessions)
	return r
}

// Sessions handles GET /v1/export/sessions
func (h *ExportHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	from, err := queryTime(r, "from")
	if err != nil {
		response.Error(w, err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		response.Error(w, err)
		return
	}

	records, err := h.analyticsService.Export(r.Context(), userID, from, to)
	if err != nil {
		response.Error(w, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		response.OK(w, records)
	case "csv":
		h.writeCSV(w, records)
	default:
		response.ValidationError(w, "format", "must be csv or json")
	}
}

var csvHeader = []string{
	"session_id", "meditation_id", "start_time", "end_time", "duration",
	"duration_completed", "mood_before", "mood_after", "interruptions",
	"focus_score", "maintained_streak",
}

func (h *ExportHandler) writeCSV(w http.ResponseWriter, records []*models.SessionAnalytics) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="sessions.csv"`)

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return
	}
	for _, rec := range records {
		row := []string{
			rec.SessionID.String(),
			rec.MeditationID.String(),
			rec.StartTime.UTC().Format(time.RFC3339),
			rec.EndTime.UTC().Format(time.RFC3339),
			strconv.Itoa(rec.Duration),
			strconv.Itoa(rec.DurationCompleted),
			moodLabel(rec.MoodBefore),
			moodLabel(rec.MoodAfter),
			strconv.Itoa(rec.Interruptions),
			strconv.Itoa(rec.FocusScore),
			fmt.Sprintf("%t", rec.MaintainedStreak),
		}
		if err := cw.Write(row); err != nil {
			return
		}
	}
	cw.Flush()
}

func moodLabel(m *models.Mood) string {
	if m == nil {
		return ""
	}
	return string(*m)
}
