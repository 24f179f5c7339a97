package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/yourorg/learning-platform/internal/middleware"
	"github.com/yourorg/learning-platform/internal/model"
	"github.com/yourorg/learning-platform/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationService *service.NotificationService
	logger              *zap.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		logger:              logger,
	}
}

// GetNotifications handles retrieving the caller's notifications
// GET /api/v1/notifications?is_read=&type=&page=&limit=
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	recipientID := middleware.UserID(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	filter := model.NotificationFilter{Kind: c.Query("type")}
	if raw := c.Query("is_read"); raw != "" {
		isRead := raw == "true"
		filter.IsRead = &isRead
	}

	resp, err := h.notificationService.List(c.Request.Context(), recipientID, filter, page, limit)
	if err != nil {
		h.logger.Error("failed to list notifications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get notifications"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetUnreadCount handles retrieving the caller's unread notification count
// GET /api/v1/notifications/count
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	recipientID := middleware.UserID(c)

	count, err := h.notificationService.UnreadCount(c.Request.Context(), recipientID)
	if err != nil {
		h.logger.Error("failed to get unread notification count", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get notification count"})
		return
	}

	c.JSON(http.StatusOK, model.NotificationCountResponse{UnreadCount: count})
}

// MarkNotificationAsRead handles marking one notification as read
// PATCH /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkNotificationAsRead(c *gin.Context) {
	recipientID := middleware.UserID(c)

	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}

	resp, err := h.notificationService.MarkRead(c.Request.Context(), recipientID, notificationID)
	if err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		h.logger.Error("failed to mark notification as read", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// MarkAllAsRead handles marking all of the caller's notifications as read
// PATCH /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	recipientID := middleware.UserID(c)

	resp, err := h.notificationService.MarkAllRead(c.Request.Context(), recipientID)
	if err != nil {
		h.logger.Error("failed to mark all notifications as read", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteNotification handles deleting one notification
// DELETE /api/v1/notifications/:id
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	recipientID := middleware.UserID(c)

	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}

	if err := h.notificationService.Delete(c.Request.Context(), recipientID, notificationID); err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		h.logger.Error("failed to delete notification", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete notification"})
		return
	}

	c.Status(http.StatusNoContent)
}
