// AngelaMos | 2026
// handler.go

package course

import (
	"encoding/json"
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

		r.Get("/courses", h.List)
		r.Get("/courses/{courseID}", h.Get)
		r.Get("/courses/{courseID}/progress", h.Progress)
		r.Get("/user/courses/progress", h.Overview)

		r.Group(func(r chi.Router) {
			r.Use(approved)
			r.With(middleware.RequireAdmin).Post("/courses", h.Create)
			r.Post("/courses/{courseID}/progress", h.UpdateProgress)
		})
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.ValidationFailed(w, err)
		return
	}

	tree, err := h.service.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, ToTreeResponse(tree))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	courses, err := h.service.List(r.Context(), middleware.IsStaff(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToCourseResponseList(courses))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tree, err := h.service.Get(
		r.Context(),
		chi.URLParam(r, "courseID"),
		middleware.IsStaff(r.Context()),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToTreeResponse(tree))
}

func (h *Handler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	var req UpdateProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.ValidationFailed(w, err)
		return
	}

	res, err := h.service.UpdateProgress(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "courseID"),
		req,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToUpdateProgressResponse(res))
}

func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Progress(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "courseID"),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToSummaryResponse(summary))
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.Overview(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToOverviewResponse(overview))
}

func writeError(w http.ResponseWriter, err error) {
	if core.IsNotFound(err) {
		core.NotFound(w, "course or lesson")
		return
	}
	core.InternalServerError(w, err)
}
