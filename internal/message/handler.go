// AngelaMos | 2026
// handler.go

package message

import (
	"encoding/json"
	"errors"
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

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, approved func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/messages/{userID}", h.Conversation)
		r.With(approved).Post("/messages", h.Send)
		r.Post("/messages/{messageID}/read", h.MarkRead)
	})
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.ValidationFailed(w, err)
		return
	}

	m, err := h.service.Send(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeError(w, err, "receiver")
		return
	}

	core.Created(w, ToMessageResponse(m))
}

func (h *Handler) Conversation(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.service.Conversation(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "userID"),
	)
	if err != nil {
		writeError(w, err, "user")
		return
	}

	core.OK(w, ToMessageResponseList(msgs))
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.MarkRead(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "messageID"),
	)
	if err != nil {
		writeError(w, err, "message")
		return
	}

	core.OK(w, ToMessageResponse(m))
}

func writeError(w http.ResponseWriter, err error, resource string) {
	switch {
	case errors.Is(err, ErrSelfMessage):
		core.BadRequest(w, ErrSelfMessage.Error())
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, "invalid "+resource)
	case core.IsNotFound(err):
		core.NotFound(w, resource)
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "only the receiver can mark a message as read")
	default:
		core.InternalServerError(w, err)
	}
}
