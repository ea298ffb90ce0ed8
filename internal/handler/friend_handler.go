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

// FriendHandler handles social graph HTTP requests.
type FriendHandler struct {
	friendService service.FriendService
	validate      *validator.Validate
}

// NewFriendHandler creates a new friend handler.
func NewFriendHandler(friendService service.FriendService) *FriendHandler {
	return &FriendHandler{
		friendService: friendService,
		validate:      validator.New(),
	}
}

// Routes returns a chi router with friend routes.
func (h *FriendHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/requests", h.SendRequest)
	r.Get("/requests", h.ListPending)
	r.Post("/requests/{id}/accept", h.AcceptRequest)
	r.Delete("/{userId}", h.Remove)
	r.Post("/{userId}/block", h.Block)
	r.Delete("/{userId}/block", h.Unblock)

	return r
}

// List handles GET /v1/friends
func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	friends, err := h.friendService.ListFriends(r.Context(), userID)
	if err != nil {
		response.Error(w, err)
		return
	}

	out := make([]map[string]string, 0, len(friends))
	for _, f := range friends {
		out = append(out, publicUser(f))
	}
	response.OK(w, out)
}

// SendRequest handles POST /v1/friends/requests
func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	var req service.FriendRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := validateStruct(h.validate, req); err != nil {
		response.Error(w, err)
		return
	}

	friendship, err := h.friendService.SendRequest(r.Context(), userID, req.UserID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, friendship)
}

// ListPending handles GET /v1/friends/requests
func (h *FriendHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	pending, err := h.friendService.ListPending(r.Context(), userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, pending)
}

// AcceptRequest handles POST /v1/friends/requests/{id}/accept
func (h *FriendHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}
	requestID, err := pathUUID(r, "id")
	if err != nil {
		response.Error(w, err)
		return
	}

	friendship, err := h.friendService.AcceptRequest(r.Context(), requestID, userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, friendship)
}

// Remove handles DELETE /v1/friends/{userId}
func (h *FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.pairAction(w, r, h.friendService.Remove)
}

// Block handles POST /v1/friends/{userId}/block
func (h *FriendHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.pairAction(w, r, h.friendService.Block)
}

// Unblock handles DELETE /v1/friends/{userId}/block
func (h *FriendHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.pairAction(w, r, h.friendService.Unblock)
}

func (h *FriendHandler) pairAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID, otherID uuid.UUID) error) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}
	otherID, err := pathUUID(r, "userId")
	if err != nil {
		response.Error(w, err)
		return
	}

	if err := fn(r.Context(), userID, otherID); err != nil {
		response.Error(w, err)
		return
	}
	response.NoContent(w)
}

// publicUser strips credentials from a user record.
func publicUser(u *models.User) map[string]string {
	return map[string]string{
		"id":       u.ID.String(),
		"username": u.Username,
	}
}
