// AngelaMos | 2026
// handler.go

package notification

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/community-api/internal/core"
	"github.com/carterperez-dev/community-api/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
	}
}

// RegisterRoutes mounts the caller-scoped notification endpoints. Reads stay
// available to pending and blocked accounts so they can see why.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/notifications", h.List)
		r.Get("/notifications/unread-count", h.UnreadCount)
		r.Post("/notifications/mark-read", h.MarkRead)
		r.Get("/users/{userID}/notifications", h.ListForUser)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, middleware.GetUserID(r.Context()))
}

// ListForUser serves a user's notifications to that user only.
func (h *Handler) ListForUser(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	targetID := chi.URLParam(r, "userID")

	if callerID != targetID {
		core.Forbidden(w, "cannot read another user's notifications")
		return
	}

	h.list(w, r, targetID)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, userID string) {
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	items, err := h.service.List(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToResponseList(items))
}

func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	count, err := h.service.UnreadCount(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, UnreadCountResponse{Count: count})
}

// MarkRead accepts an empty body (mark everything) or {"ids": [...]}.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.ValidationFailed(w, err)
		return
	}

	updated, err := h.service.MarkRead(r.Context(), userID, req.IDs)
	if err != nil {
		if errors.Is(err, core.ErrUnauthorized) {
			core.Unauthorized(w, "")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, MarkReadResponse{Updated: updated})
}
