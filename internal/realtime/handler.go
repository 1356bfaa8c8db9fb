// AngelaMos | 2026
// handler.go

package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/carterperez-dev/community-api/internal/config"
	"github.com/carterperez-dev/community-api/internal/core"
	"github.com/carterperez-dev/community-api/internal/middleware"
)

type Handler struct {
	hub      *Hub
	verifier middleware.TokenVerifier
	upgrader websocket.Upgrader
	cfg      config.RealtimeConfig
	logger   *slog.Logger
}

func NewHandler(
	hub *Hub,
	verifier middleware.TokenVerifier,
	cfg config.RealtimeConfig,
	logger *slog.Logger,
) *Handler {
	h := &Handler{
		hub:      hub,
		verifier: verifier,
		cfg:      cfg,
		logger:   logger.With("component", "realtime_handler"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.Serve)
}

// Serve authenticates the caller from the token query parameter (or the
// Authorization header) and only then upgrades the connection.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = middleware.ExtractToken(r)
	}
	if token == "" {
		core.JSONError(w, core.UnauthorizedError("missing authorization token"))
		return
	}

	claims, err := h.verifier.VerifyAccessToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, core.ErrTokenExpired) {
			core.JSONError(w, core.TokenExpiredError())
			return
		}
		core.JSONError(w, core.TokenInvalidError())
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	conn := newConn(h.hub, ws, claims.UserID, h.cfg)
	ctx := middleware.WithClaims(context.WithoutCancel(r.Context()), claims)
	conn.run(ctx)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(h.cfg.AllowedOrigins) == 0 {
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}

	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
