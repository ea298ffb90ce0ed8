package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stillwater-labs/stillwater/internal/middleware"
	apierrors "github.com/stillwater-labs/stillwater/internal/pkg/errors"
	"github.com/stillwater-labs/stillwater/internal/pkg/response"
	"github.com/stillwater-labs/stillwater/internal/service"
)

// AchievementHandler handles achievement HTTP requests.
type AchievementHandler struct {
	achievementService service.AchievementService
}

// NewAchievementHandler creates a new achievement handler.
func NewAchievementHandler(achievementService service.AchievementService) *AchievementHandler {
	return &AchievementHandler{achievementService: achievementService}
}

// Routes returns a chi router with achievement routes.
func (h *AchievementHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/points", h.Points)

	return r
}

// List handles GET /v1/achievements
func (h *AchievementHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	achievements, err := h.achievementService.List(r.Context(), userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, achievements)
}

// Points handles GET /v1/achievements/points
func (h *AchievementHandler) Points(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	points, err := h.achievementService.UserPoints(r.Context(), userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, map[string]int{"points": points})
}
