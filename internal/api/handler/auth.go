package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"globalchat/backend/internal/models"
)

const identityKey = "identity"

// RequireIdentity aborts with 401 unless the request carries a valid token.
func (h *Handler) RequireIdentity(c *gin.Context) {
	identity := h.Auth.IdentityFromToken(requestToken(c))
	if identity.IsAnonymous() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	c.Set(identityKey, identity)
	c.Next()
}

func currentIdentity(c *gin.Context) models.Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(models.Identity); ok {
			return identity
		}
	}
	return models.Anonymous
}

// Me returns the handle of the authenticated caller.
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"username": currentIdentity(c).Handle})
}
