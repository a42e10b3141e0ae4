package handlers

import (
	"net/http"

	"sweep-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// WebSocketHandler upgrades clients onto the push hub
type WebSocketHandler struct {
	pushService *services.WebSocketPushService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(pushService *services.WebSocketPushService) *WebSocketHandler {
	return &WebSocketHandler{pushService: pushService}
}

// HandleConnection handles GET /ws?userId=...
// Bridge lifecycle events for the user are pushed over the connection as
// they happen; no subscription handshake is needed.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId query parameter is required"})
		return
	}

	h.pushService.HandleWebSocket(c.Writer, c.Request, userID)
}

// StatsHandler handles GET /api/ws/stats
func (h *WebSocketHandler) StatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"active_connections": h.pushService.GetActiveConnections(),
	})
}
