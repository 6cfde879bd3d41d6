package routes

import (
	"github.com/gin-gonic/gin"

	"nigrani/internal/controllers"
)

// RegisterAuthRoutes registers the WebSocket stream and token status check.
// Token generation is CLI only (no HTTP endpoint).
func RegisterAuthRoutes(r *gin.Engine, connectLimit gin.HandlerFunc, wc *controllers.WebSocketController) {
	r.GET("/ws", connectLimit, wc.HandleWebSocket)
	r.GET("/api/auth/status", connectLimit, wc.HandleTokenStatus)
}
