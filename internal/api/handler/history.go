package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"globalchat/backend/internal/config"
	"globalchat/backend/internal/models"
	"globalchat/backend/internal/storage"
)

type historyEntry struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	To        string    `json:"to"`
	Message   string    `json:"message"`
	ImageURL  *string   `json:"image_url"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// History returns the most recent private messages between the caller and
// the target handle, oldest first, and marks those addressed to the caller as read.
func (h *Handler) History(c *gin.Context) {
	me := currentIdentity(c)
	ctx := c.Request.Context()

	limit, err := historyLimit(c.Query("limit"), h.cfg.HistoryLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}

	other, err := h.Store.ResolveHandle(ctx, c.Param("handle"))
	if errors.Is(err, storage.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		h.log.Error("Failed to resolve handle", "handle", c.Param("handle"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}
	if other.Equal(me) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot load history with yourself"})
		return
	}

	messages, err := h.Store.GetPrivateHistory(ctx, me.ID, other.ID, limit)
	if err != nil {
		h.log.Error("Failed to load history", "user", me.Handle, "with", other.Handle, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}

	unread := lo.FilterMap(messages, func(m models.PrivateMessage, _ int) (uint, bool) {
		return m.ID, m.RecipientID == me.ID && !m.Read
	})
	if len(unread) > 0 {
		if err := h.Store.MarkRead(ctx, me.ID, unread); err != nil {
			h.log.Warn("Failed to mark messages read", "user", me.Handle, "error", err)
		} else {
			for i := range messages {
				if lo.Contains(unread, messages[i].ID) {
					messages[i].Read = true
				}
			}
		}
	}

	handles := map[uint]string{me.ID: me.Handle, other.ID: other.Handle}
	c.JSON(http.StatusOK, lo.Map(messages, func(m models.PrivateMessage, _ int) historyEntry {
		return historyEntry{
			ID:        m.ID,
			Username:  handles[m.SenderID],
			To:        handles[m.RecipientID],
			Message:   m.Content,
			ImageURL:  m.ImageURL,
			Timestamp: m.CreatedAt.UTC(),
			Read:      m.Read,
		}
	}))
}

// historyLimit parses the limit query value, applying the default when it is
// empty and capping it at the maximum.
func historyLimit(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return min(n, config.MaxHistoryLimit), nil
}
