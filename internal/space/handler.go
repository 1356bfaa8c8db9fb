// AngelaMos | 2026
// handler.go

package space

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

		r.Get("/spaces", h.List)
		r.Get("/spaces/{spaceID}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(approved)
			r.With(middleware.RequireStaff).Post("/spaces", h.Create)
			r.Post("/spaces/{spaceID}/join", h.Join)
			r.Post("/spaces/{spaceID}/leave", h.Leave)
		})
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSpaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.ValidationFailed(w, err)
		return
	}

	sp, err := h.service.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, ToSpaceResponse(sp))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	spaces, err := h.service.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToSpaceResponseList(spaces))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sp, err := h.service.Get(
		r.Context(),
		chi.URLParam(r, "spaceID"),
		middleware.GetUserID(r.Context()),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToSpaceResponse(sp))
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	err := h.service.Join(
		r.Context(),
		chi.URLParam(r, "spaceID"),
		middleware.GetUserID(r.Context()),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	err := h.service.Leave(
		r.Context(),
		chi.URLParam(r, "spaceID"),
		middleware.GetUserID(r.Context()),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSlugTaken):
		core.JSONError(w, core.DuplicateError("slug"))
	case errors.Is(err, ErrNotMember) && errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "membership")
	case core.IsNotFound(err):
		core.NotFound(w, "space")
	case errors.Is(err, ErrNotJoinable):
		core.Forbidden(w, ErrNotJoinable.Error())
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, "invalid space name")
	default:
		core.InternalServerError(w, err)
	}
}
