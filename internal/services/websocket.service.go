package services

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"halmon/internal/logger"
)

// WebSocketMessage is one frame exchanged with a websocket client
type WebSocketMessage struct {
	Type      string      `json:"type"` // "alert", "status", "pong", "error"
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// AlertPayload is the data of an "alert" message
type AlertPayload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ClientConnection represents a connected websocket client
type ClientConnection struct {
	ID   string
	Conn *websocket.Conn
	Send chan WebSocketMessage
}

// AlertHub broadcasts alarm notifications to every connected client.
// It is a Notifier, so it is wired next to the other delivery channels.
type AlertHub struct {
	clients    map[string]*ClientConnection
	broadcast  chan WebSocketMessage
	register   chan *ClientConnection
	unregister chan string
	mu         sync.RWMutex
	done       chan struct{}
	stopOnce   sync.Once
}

// NewAlertHub creates the hub and starts its event loop
func NewAlertHub() *AlertHub {
	h := &AlertHub{
		clients:    make(map[string]*ClientConnection),
		broadcast:  make(chan WebSocketMessage, 256),
		register:   make(chan *ClientConnection),
		unregister: make(chan string),
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *AlertHub) run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.Send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			total := len(h.clients)
			h.mu.Unlock()
			logger.Infof("[WS] client connected: %s (total: %d)", client.ID, total)

		case clientID := <-h.unregister:
			h.mu.Lock()
			if client, exists := h.clients[clientID]; exists {
				delete(h.clients, clientID)
				close(client.Send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			logger.Infof("[WS] client disconnected: %s (total: %d)", clientID, total)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.Send <- msg:
				default:
					// slow client, skip
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a client to the hub
func (h *AlertHub) Register(client *ClientConnection) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister removes a client and closes its send channel
func (h *AlertHub) Unregister(clientID string) {
	select {
	case h.unregister <- clientID:
	case <-h.done:
	}
}

// Clients returns the number of connected clients
func (h *AlertHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client; it never blocks
func (h *AlertHub) Broadcast(msg WebSocketMessage) bool {
	select {
	case h.broadcast <- msg:
		return true
	default:
		return false
	}
}

func (h *AlertHub) Name() string { return "websocket" }

// Notify broadcasts the alarm to connected clients
func (h *AlertHub) Notify(ctx context.Context, subject, body string) error {
	h.Broadcast(WebSocketMessage{
		Type:      "alert",
		Timestamp: time.Now(),
		Data:      AlertPayload{Subject: subject, Body: body},
	})
	return nil
}

// Stop disconnects every client and ends the event loop
func (h *AlertHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}
