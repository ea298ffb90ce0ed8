package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stillwater-labs/stillwater/internal/models"
	"github.com/stillwater-labs/stillwater/internal/pkg/response"
	"github.com/stillwater-labs/stillwater/internal/service"
)

// MeditationHandler handles meditation catalogue HTTP requests.
type MeditationHandler struct {
	meditationService service.MeditationService
	validate          *validator.Validate
}

// NewMeditationHandler creates a new meditation handler.
func NewMeditationHandler(meditationService service.MeditationService) *MeditationHandler {
	return &MeditationHandler{
		meditationService: meditationService,
		validate:          validator.New(),
	}
}

// Routes returns a chi router with meditation routes.
func (h *MeditationHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

// List handles GET /v1/meditations
func (h *MeditationHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.MeditationFilter{
		Page:  queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", 20),
	}
	if v := r.URL.Query().Get("type"); v != "" {
		t := models.MeditationType(v)
		filter.Type = &t
	}
	if v := r.URL.Query().Get("category"); v != "" {
		c := models.MeditationCategory(v)
		filter.Category = &c
	}
	if v := r.URL.Query().Get("difficulty"); v != "" {
		d := models.Difficulty(v)
		filter.Difficulty = &d
	}

	meditations, total, err := h.meditationService.List(r.Context(), filter)
	if err != nil {
		response.Error(w, err)
		return
	}

	totalPages := (total + filter.Limit - 1) / filter.Limit
	response.JSONWithMeta(w, http.StatusOK, meditations, &response.Meta{
		Page:       filter.Page,
		PerPage:    filter.Limit,
		Total:      int64(total),
		TotalPages: totalPages,
	})
}

// Get handles GET /v1/meditations/{id}
func (h *MeditationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		response.Error(w, err)
		return
	}

	m, err := h.meditationService.Get(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, m)
}

// Create handles POST /v1/meditations
func (h *MeditationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateMeditationRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := validateStruct(h.validate, req); err != nil {
		response.Error(w, err)
		return
	}

	m, err := h.meditationService.Create(r.Context(), req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, m)
}

// Update handles PUT /v1/meditations/{id}
func (h *MeditationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		response.Error(w, err)
		return
	}

	var req service.UpdateMeditationRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := validateStruct(h.validate, req); err != nil {
		response.Error(w, err)
		return
	}

	m, err := h.meditationService.Update(r.Context(), id, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, m)
}

// Delete handles DELETE /v1/meditations/{id}
func (h *MeditationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		response.Error(w, err)
		return
	}

	if err := h.meditationService.Delete(r.Context(), id); err != nil {
		response.Error(w, err)
		return
	}
	response.NoContent(w)
}
