package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stillwater-labs/stillwater/internal/middleware"
	apierrors "github.com/stillwater-labs/stillwater/internal/pkg/errors"
	"github.com/stillwater-labs/stillwater/internal/pkg/response"
	"github.com/stillwater-labs/stillwater/internal/service"
)

// SessionHandler handles solo meditation session HTTP requests.
type SessionHandler struct {
	sessionService   service.SessionService
	analyticsService service.AnalyticsService
	validate         *validator.Validate
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessionService service.SessionService, analyticsService service.AnalyticsService) *SessionHandler {
	return &SessionHandler{
		sessionService:   sessionService,
		analyticsService: analyticsService,
		validate:         validator.New(),
	}
}

// Routes returns a chi router with session routes.
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Start)
	r.Get("/", h.List)
	r.Get("/active", h.Active)
	r.Get("/history", h.History)
	r.Get("/stats", h.Stats)
	r.Get("/mood-stats", h.MoodStats)
	r.Post("/{id}/interrupt", h.Interrupt)
	r.Post("/{id}/complete", h.Complete)
	r.Post("/{id}/abandon", h.Abandon)

	return r
}

// Start handles POST /v1/sessions
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	var req service.StartSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	req.UserID = userID
	if err := validateStruct(h.validate, req); err != nil {
		response.Error(w, err)
		return
	}

	session, err := h.sessionService.Start(r.Context(), req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, session)
}

// List handles GET /v1/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)

	sessions, total, err := h.sessionService.List(r.Context(), userID, page, limit)
	if err != nil {
		response.Error(w, err)
		return
	}

	totalPages := (total + limit - 1) / limit
	response.JSONWithMeta(w, http.StatusOK, sessions, &response.Meta{
		Page:       page,
		PerPage:    limit,
		Total:      int64(total),
		TotalPages: totalPages,
	})
}

// Active handles GET /v1/sessions/active
func (h *SessionHandler) Active(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	session, err := h.sessionService.Active(r.Context(), userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, session)
}

// Interrupt handles POST /v1/sessions/{id}/interrupt
func (h *SessionHandler) Interrupt(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		response.Error(w, err)
		return
	}

	session, err := h.sessionService.RecordInterruption(r.Context(), id, userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, session)
}

// Complete handles POST /v1/sessions/{id}/complete
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		response.Error(w, err)
		return
	}

	var req service.CompleteSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := validateStruct(h.validate, req); err != nil {
		response.Error(w, err)
		return
	}

	session, err := h.sessionService.Complete(r.Context(), id, userID, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, session)
}

// Abandon handles POST /v1/sessions/{id}/abandon
func (h *SessionHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		response.Error(w, err)
		return
	}

	session, err := h.sessionService.Abandon(r.Context(), id, userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, session)
}

// History handles GET /v1/sessions/history
func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	history, err := h.analyticsService.History(r.Context(), userID,
		queryInt(r, "page", 1), queryInt(r, "limit", 20))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, history)
}

// Stats handles GET /v1/sessions/stats
func (h *SessionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	stats, err := h.analyticsService.Stats(r.Context(), userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, stats)
}

// MoodStats handles GET /v1/sessions/mood-stats
func (h *SessionHandler) MoodStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	// Default window is the last 30 days.
	since := time.Now().UTC().AddDate(0, 0, -30)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.ValidationError(w, "since", "must be RFC3339")
			return
		}
		since = parsed
	}

	stats, err := h.analyticsService.MoodImprovement(r.Context(), userID, since)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, stats)
}
