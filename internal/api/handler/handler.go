package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"globalchat/backend/internal/auth"
	"globalchat/backend/internal/chathub"
	"globalchat/backend/internal/config"
	"globalchat/backend/internal/localization"
	"globalchat/backend/internal/storage"
)

// Handler serves the HTTP and websocket surface of the chat core.
type Handler struct {
	Hub       *chathub.ManagerService
	Auth      *auth.Authenticator
	Store     storage.Storage
	Localizer *localization.Localizer

	cfg      config.Config
	origins  *OriginPolicy
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewHandler(
	hub *chathub.ManagerService,
	authenticator *auth.Authenticator,
	store storage.Storage,
	localizer *localization.Localizer,
	cfg config.Config,
	log *slog.Logger,
) *Handler {
	h := &Handler{
		Hub:       hub,
		Auth:      authenticator,
		Store:     store,
		Localizer: localizer,
		cfg:       cfg,
		origins:   NewOriginPolicy(cfg.Origins(), log),
		log:       log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.origins.Check,
	}
	return h
}

// RegisterRoutes attaches every endpoint to r.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/api", h.RequireIdentity)
	{
		api.GET("/me", h.Me)
		api.GET("/history/:handle", h.History)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": h.Hub.ConnectionCount(),
	})
}
