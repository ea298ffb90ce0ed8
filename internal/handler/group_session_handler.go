package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/stillwater-labs/stillwater/internal/middleware"
	"github.com/stillwater-labs/stillwater/internal/models"
	apierrors "github.com/stillwater-labs/stillwater/internal/pkg/errors"
	"github.com/stillwater-labs/stillwater/internal/pkg/response"
	"github.com/stillwater-labs/stillwater/internal/service"
)

// GroupSessionHandler handles group session HTTP requests, chat included.
type GroupSessionHandler struct {
	groupService service.GroupSessionService
	chatService  service.ChatService
	validate     *validator.Validate
}

// NewGroupSessionHandler creates a new group session handler.
func NewGroupSessionHandler(groupService service.GroupSessionService, chatService service.ChatService) *GroupSessionHandler {
	return &GroupSessionHandler{
		groupService: groupService,
		chatService:  chatService,
		validate:     validator.New(),
	}
}

// Routes returns a chi router with group session routes.
func (h *GroupSessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/upcoming", h.Upcoming)
	r.Get("/mine", h.Mine)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/join", h.Join)
	r.Post("/{id}/leave", h.Leave)
	r.Post("/{id}/start", h.Start)
	r.Post("/{id}/complete", h.Complete)
	r.Post("/{id}/cancel", h.Cancel)
	r.Get("/{id}/messages", h.Messages)
	r.Post("/{id}/messages", h.PostMessage)

	return r
}

// Create handles POST /v1/group-sessions
func (h *GroupSessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	var req service.CreateGroupSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	req.HostID = userID
	if err := validateStruct(h.validate, req); err != nil {
		response.Error(w, err)
		return
	}

	gs, err := h.groupService.Create(r.Context(), req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, gs)
}

// Upcoming handles GET /v1/group-sessions/upcoming
func (h *GroupSessionHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)

	sessions, total, err := h.groupService.Upcoming(r.Context(), userID, page, limit)
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

// Mine handles GET /v1/group-sessions/mine
func (h *GroupSessionHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	sessions, err := h.groupService.Mine(r.Context(), userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, sessions)
}

// Get handles GET /v1/group-sessions/{id}
func (h *GroupSessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		response.Error(w, err)
		return
	}

	gs, err := h.groupService.Get(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, gs)
}

// Join handles POST /v1/group-sessions/{id}/join
func (h *GroupSessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.groupService.Join)
}

// Leave handles POST /v1/group-sessions/{id}/leave
func (h *GroupSessionHandler) Leave(w http.ResponseWriter, r *http.Request) {
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

	if err := h.groupService.Leave(r.Context(), id, userID); err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, map[string]string{"status": "left"})
}

// Start handles POST /v1/group-sessions/{id}/start
func (h *GroupSessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.groupService.Start)
}

// Complete handles POST /v1/group-sessions/{id}/complete
func (h *GroupSessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
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

	var req service.CompleteParticipantRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := validateStruct(h.validate, req); err != nil {
		response.Error(w, err)
		return
	}

	gs, err := h.groupService.Complete(r.Context(), id, userID, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, gs)
}

// Cancel handles POST /v1/group-sessions/{id}/cancel
func (h *GroupSessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.groupService.Cancel)
}

// Messages handles GET /v1/group-sessions/{id}/messages
func (h *GroupSessionHandler) Messages(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		response.Error(w, err)
		return
	}

	messages, err := h.chatService.Messages(r.Context(), id,
		queryInt(r, "limit", 50), r.URL.Query().Get("before"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, messages)
}

// PostMessage handles POST /v1/group-sessions/{id}/messages
func (h *GroupSessionHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
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

	var req service.AddMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := validateStruct(h.validate, req); err != nil {
		response.Error(w, err)
		return
	}

	msg, err := h.chatService.AddMessage(r.Context(), id, userID, req.Content)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, msg)
}

// lifecycle runs one of the (sessionID, userID) transitions and writes the
// refreshed session.
func (h *GroupSessionHandler) lifecycle(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, sessionID, userID uuid.UUID) (*models.GroupSession, error),
) {
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

	gs, err := fn(r.Context(), id, userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, gs)
}
