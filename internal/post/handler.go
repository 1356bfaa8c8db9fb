// AngelaMos | 2026
// handler.go

package post

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

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

		r.With(approved).Post("/posts", h.Create)
		r.Get("/posts/{postID}", h.Get)
		r.Get("/spaces/{spaceID}/posts", h.ListBySpace)
		r.Get("/hashtags/trending", h.Trending)
		r.Get("/hashtags/{name}/posts", h.ListByHashtag)
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.ValidationFailed(w, err)
		return
	}

	author := Author{ID: middleware.GetUserID(r.Context())}
	if claims := middleware.GetClaims(r.Context()); claims != nil {
		author.Username = claims.Username
	}

	p, ex, err := h.service.Create(r.Context(), author, req)
	if err != nil {
		writeError(w, err, "space", cannotPost)
		return
	}

	core.Created(w, ToPostResponse(p, ex))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(
		r.Context(),
		chi.URLParam(r, "postID"),
		middleware.GetUserID(r.Context()),
	)
	if err != nil {
		writeError(w, err, "post", cannotRead)
		return
	}

	core.OK(w, ToPostResponse(p, nil))
}

func (h *Handler) ListBySpace(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)

	posts, total, err := h.service.ListBySpace(
		r.Context(),
		chi.URLParam(r, "spaceID"),
		middleware.GetUserID(r.Context()),
		params,
	)
	if err != nil {
		writeError(w, err, "space", cannotRead)
		return
	}

	core.Paginated(w, ToPostResponseList(posts), params.Page, params.PageSize, total)
}

func (h *Handler) ListByHashtag(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)

	posts, total, err := h.service.ListByHashtag(
		r.Context(),
		chi.URLParam(r, "name"),
		middleware.GetUserID(r.Context()),
		params,
	)
	if err != nil {
		writeError(w, err, "hashtag", cannotRead)
		return
	}

	core.Paginated(w, ToPostResponseList(posts), params.Page, params.PageSize, total)
}

func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit")) //nolint:errcheck // zero falls back to default

	tags, err := h.service.Trending(r.Context(), limit)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToHashtagResponseList(tags))
}

func listParams(r *http.Request) ListParams {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))          //nolint:errcheck // normalized below
	pageSize, _ := strconv.Atoi(q.Get("page_size")) //nolint:errcheck // normalized below

	params := ListParams{Page: page, PageSize: pageSize}
	params.Normalize()
	return params
}

const (
	cannotPost = "you cannot post in this space"
	cannotRead = "only members can read this space"
)

func writeError(w http.ResponseWriter, err error, resource, forbidden string) {
	switch {
	case core.IsNotFound(err):
		core.NotFound(w, resource)
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, forbidden)
	default:
		core.InternalServerError(w, err)
	}
}
