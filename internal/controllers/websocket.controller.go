package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"halmon/internal/logger"
	"halmon/internal/middleware"
	"halmon/internal/services"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WebSocketController streams alarm notifications to authenticated clients
type WebSocketController struct {
	hub      *services.AlertHub
	auth     *services.AuthService
	monitor  *services.Monitor
	security *middleware.SecurityLogger
	upgrader websocket.Upgrader
}

func NewWebSocketController(hub *services.AlertHub, auth *services.AuthService, monitor *services.Monitor, security *middleware.SecurityLogger, allowedOrigins []string) *WebSocketController {
	return &WebSocketController{
		hub:      hub,
		auth:     auth,
		monitor:  monitor,
		security: security,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || middleware.OriginAllowed(origin, allowedOrigins)
			},
		},
	}
}

// HandleWebSocket authenticates the token query parameter and upgrades the connection
func (wc *WebSocketController) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		wc.security.LogFailedAuth(c.ClientIP(), "missing token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	if !middleware.NewInputValidator().ValidateToken(token) {
		wc.security.LogFailedAuth(c.ClientIP(), "malformed token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	claims, err := wc.auth.ValidateToken(token)
	if err != nil {
		wc.security.LogFailedAuth(c.ClientIP(), "invalid token: "+err.Error())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ws, err := wc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("[WS] upgrade error: %v", err)
		return
	}
	wc.security.LogWebSocketConnected(c.ClientIP(), claims.ServerName)

	client := &services.ClientConnection{
		ID:   c.ClientIP() + "-" + claims.ServerName + "-" + time.Now().Format("150405.000"),
		Conn: ws,
		Send: make(chan services.WebSocketMessage, 64),
	}
	wc.hub.Register(client)

	// greet with the current state so the client does not wait for the first alert
	trySend(client, wc.statusMessage())

	go wc.readPump(client, c.ClientIP())
	go wc.writePump(client)
}

func (wc *WebSocketController) statusMessage() services.WebSocketMessage {
	return services.WebSocketMessage{
		Type:      "status",
		Timestamp: time.Now(),
		Data:      wc.monitor.Snapshot(0),
	}
}

type clientMessage struct {
	Type string `json:"type"` // "ping", "status", "unsubscribe"
}

func (wc *WebSocketController) readPump(client *services.ClientConnection, ip string) {
	defer func() {
		wc.hub.Unregister(client.ID)
		client.Conn.Close()
		wc.security.LogWebSocketDisconnected(ip, client.ID)
	}()

	client.Conn.SetReadLimit(4096)
	_ = client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warnf("[WS] read error: %v", err)
			}
			return
		}

		var reply services.WebSocketMessage
		switch msg.Type {
		case "ping":
			reply = services.WebSocketMessage{Type: "pong", Timestamp: time.Now()}
		case "status":
			reply = wc.statusMessage()
		case "unsubscribe":
			return
		default:
			reply = services.WebSocketMessage{Type: "error", Timestamp: time.Now(), Error: "unknown message type"}
		}

		// Send may already be closed by the hub on shutdown
		if !trySend(client, reply) {
			return
		}
	}
}

func trySend(client *services.ClientConnection, msg services.WebSocketMessage) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case client.Send <- msg:
	default:
	}
	return true
}

func (wc *WebSocketController) writePump(client *services.ClientConnection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Send:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Warnf("[WS] write error: %v", err)
				}
				return
			}

		case <-ticker.C:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
