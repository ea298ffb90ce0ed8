package handler

import (
	"net/http"

	"github.com/stillwater-labs/stillwater/internal/middleware"
	apierrors "github.com/stillwater-labs/stillwater/internal/pkg/errors"
	"github.com/stillwater-labs/stillwater/internal/pkg/response"
	"github.com/stillwater-labs/stillwater/internal/realtime"
)

// WSHandler upgrades authenticated requests into hub connections.
type WSHandler struct {
	hub *realtime.Hub
}

// NewWSHandler creates a new websocket handler.
func NewWSHandler(hub *realtime.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Serve handles GET /ws. The auth middleware has already validated the
// token, which websocket clients pass as a query parameter.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}
	h.hub.ServeConn(w, r, userID)
}
