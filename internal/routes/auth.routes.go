package routes

import (
	"github.com/gin-gonic/gin"

	"halmon/internal/controllers"
)

// RegisterAuthRoutes registers the websocket route only.
// Tokens are issued from the CLI (halmon token), never over HTTP.
func RegisterAuthRoutes(r gin.IRouter, wc *controllers.WebSocketController) {
	r.GET("/ws", wc.HandleWebSocket)
}
