package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stillwater-labs/stillwater/internal/middleware"
	"github.com/stillwater-labs/stillwater/internal/models"
	apierrors "github.com/stillwater-labs/stillwater/internal/pkg/errors"
	"github.com/stillwater-labs/stillwater/internal/pkg/response"
	"github.com/stillwater-labs/stillwater/internal/service"
)

// AuthHandler handles account and token HTTP requests.
type AuthHandler struct {
	authService service.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// Routes returns a chi router with auth routes. Register and login are
// public; the rest require the auth middleware.
func (h *AuthHandler) Routes(auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
	})

	return r
}

// userResponse is the public view of an account.
type userResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Register handles POST /v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := validateStruct(h.validate, req); err != nil {
		response.Error(w, err)
		return
	}

	user, err := h.authService.Register(r.Context(), req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, toUserResponse(user))
}

// loginResponse carries the bearer token.
type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := validateStruct(h.validate, req); err != nil {
		response.Error(w, err)
		return
	}

	token, user, err := h.authService.Login(r.Context(), req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, loginResponse{Token: token, User: toUserResponse(user)})
}

// Logout handles POST /v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := middleware.GetTokenID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}
	expiry, ok := middleware.GetTokenExpiry(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	if err := h.authService.Logout(r.Context(), tokenID, expiry); err != nil {
		response.Error(w, err)
		return
	}
	response.NoContent(w)
}

// Me handles GET /v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	user, err := h.authService.GetUser(r.Context(), userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, toUserResponse(user))
}
