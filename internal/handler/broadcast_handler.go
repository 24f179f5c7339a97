package handler

import (
	"errors"
	"net/http"

	"github.com/yourorg/learning-platform/internal/model"
	"github.com/yourorg/learning-platform/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BroadcastHandler handles admin broadcast requests
type BroadcastHandler struct {
	broadcastService *service.BroadcastService
	logger           *zap.Logger
}

// NewBroadcastHandler creates a new broadcast handler
func NewBroadcastHandler(broadcastService *service.BroadcastService, logger *zap.Logger) *BroadcastHandler {
	return &BroadcastHandler{
		broadcastService: broadcastService,
		logger:           logger,
	}
}

// Send handles an admin broadcast
// POST /api/v1/admin/notifications/send
func (h *BroadcastHandler) Send(c *gin.Context) {
	var req model.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.broadcastService.Send(c.Request.Context(), &req)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
			return
		}
		h.logger.Error("broadcast failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send notification"})
		return
	}

	c.JSON(http.StatusOK, result)
}
