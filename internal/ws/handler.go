package ws

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type tokenValidator interface {
	ValidateToken(tokenString string) (uuid.UUID, string, error)
}

// Handler upgrades authenticated clients onto the live channel
type Handler struct {
	hub      *Hub
	auth     tokenValidator
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler creates a new websocket handler
func NewHandler(hub *Hub, auth tokenValidator, logger *zap.Logger) *Handler {
	return &Handler{
		hub:  hub,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The token authenticates the connection; cross-origin pages
			// cannot mint one.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Serve handles GET /api/v1/ws. The client presents the same bearer token
// used for the REST API, either as an Authorization header or a token
// query parameter (browser WebSocket APIs cannot set headers). An invalid
// token closes the attempt before any registry entry is created.
func (h *Handler) Serve(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return
	}

	recipientID, _, err := h.auth.ValidateToken(token)
	if err != nil {
		h.logger.Debug("live connect rejected", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := newConn(h.hub, ws, recipientID)
	h.hub.register(conn)

	go conn.writePump()
	go conn.readPump()
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}
