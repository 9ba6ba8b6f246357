package handler

import (
	"github.com/gin-gonic/gin"

	"globalchat/backend/internal/auth"
	"globalchat/backend/internal/chathub"
)

// ServeWebSocket upgrades the request and admits the connection under the
// identity carried by its token. Connections without a valid token are
// upgraded and then closed with a policy-violation frame.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	identity := h.Auth.IdentityFromToken(requestToken(c))
	language := h.Localizer.PreferredLanguage(c.GetHeader("Accept-Language"), h.cfg.DefaultLanguage)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written the HTTP error response.
		h.log.Debug("Websocket upgrade failed", "remote", c.ClientIP(), "error", err)
		return
	}

	client := chathub.NewWebSocketClient(conn, h.cfg.SendBufferSize, int64(h.cfg.MaxMessageSize), h.log)
	sess, err := h.Hub.Connect(client, identity, language)
	if err != nil {
		client.Reject("authentication required")
		return
	}

	client.Run(h.Hub.Context(), h.Hub, sess)
}

// requestToken reads the bearer token from the Authorization header, falling
// back to the token query parameter used by browsers.
func requestToken(c *gin.Context) string {
	if token := auth.BearerToken(c.GetHeader("Authorization")); token != "" {
		return token
	}
	return c.Query("token")
}
