// internal/handlers/websocket/websocket.go
package handlers

import (
	"net/http"
	"time"

	"taskhub-service/internal/pkg/response"
	ws "taskhub-service/internal/websocket"

	"github.com/gin-gonic/gin"
)

type WebSocketHandler struct {
	gateway *ws.Gateway
}

func NewWebSocketHandler(gateway *ws.Gateway) *WebSocketHandler {
	return &WebSocketHandler{gateway: gateway}
}

// HandleConnection upgrades the request. Authentication happens on the
// socket itself: the first frame must carry the access token.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	h.gateway.ServeHTTP(c.Writer, c.Request)
}

// GetStats returns WebSocket connection statistics (admin only)
func (h *WebSocketHandler) GetStats(c *gin.Context) {
	stats := h.gateway.Stats()
	response.Success(c, http.StatusOK, "WebSocket stats", gin.H{
		"connections": stats.Connections,
		"users":       stats.Users,
		"channels":    stats.Channels,
		"timestamp":   time.Now().UTC(),
	})
}
