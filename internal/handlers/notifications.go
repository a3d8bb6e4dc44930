package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/memora/backend/internal/logger"
	"github.com/memora/backend/internal/util"
	"go.uber.org/zap"
)

// GetNotifications returns the caller's inbox snapshot, newest first
// GET /api/v1/notifications
func (h *Handlers) GetNotifications(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	snapshot := h.notifications.Snapshot(userID)
	unread, err := h.notifications.UnreadCount(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": snapshot,
		"unread":        unread,
		"count":         len(snapshot),
	})
}

// GetUnreadCount returns just the unread count for badge display
// GET /api/v1/notifications/unread-count
func (h *Handlers) GetUnreadCount(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	unread, err := h.notifications.UnreadCount(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": unread})
}

// MarkNotificationRead marks one notification as read
// POST /api/v1/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(userID, c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

// MarkAllNotificationsRead marks the whole inbox as read
// POST /api/v1/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	touched, err := h.notifications.MarkAllRead(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "read",
		"touched": touched,
	})
}

// RemoveNotification deletes one notification
// DELETE /api/v1/notifications/:id
func (h *Handlers) RemoveNotification(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	if err := h.notifications.Remove(userID, c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

// RemoveAllNotifications clears the caller's inbox
// DELETE /api/v1/notifications
func (h *Handlers) RemoveAllNotifications(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	removed, err := h.notifications.RemoveAll(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "removed",
		"removed": removed,
	})
}

// SubscribeNotifications upgrades to a WebSocket and streams inbox
// snapshots: one immediately on connect, then one per change. The
// client token rides the query string since browsers cannot set
// headers on upgrade requests.
// GET /api/v1/notifications/subscribe
func (h *Handlers) SubscribeNotifications(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logger.WarnWithFields("websocket accept failed", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "subscription closed")

	sub := h.notifications.Subscribe(user.ID)
	defer sub.Cancel()

	logger.Log.Info("notification subscription connected", logger.WithUserID(user.ID))

	ctx := c.Request.Context()

	// The client never sends application messages; this read loop only
	// surfaces disconnects so the snapshot loop below can exit
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				sub.Cancel()
				return
			}
		}
	}()

	for snapshot := range sub.Updates() {
		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := wsjson.Write(writeCtx, conn, gin.H{
			"type":          "notifications",
			"notifications": snapshot,
		})
		cancel()
		if err != nil {
			logger.Log.Debug("subscription write failed, dropping client",
				logger.WithUserID(user.ID),
				zap.Error(err),
			)
			return
		}
	}

	conn.Close(websocket.StatusNormalClosure, "")
}
