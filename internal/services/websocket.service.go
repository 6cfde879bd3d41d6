package services

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nigrani/internal/models"
)

// WebSocketMessage is the envelope of every websocket frame.
type WebSocketMessage struct {
	Type      string      `json:"type"` // "snapshot", "ping", "pong", "error"
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// ClientConnection is one connected websocket client.
type ClientConnection struct {
	ID      string
	Subject string
	Conn    *websocket.Conn
	Send    chan WebSocketMessage
}

// NewClientConnection creates a client with a buffered send queue.
func NewClientConnection(id, subject string, conn *websocket.Conn) *ClientConnection {
	return &ClientConnection{
		ID:      id,
		Subject: subject,
		Conn:    conn,
		Send:    make(chan WebSocketMessage, 256),
	}
}

// WebSocketHub fans collected snapshots out to every connected client.
type WebSocketHub struct {
	clients    map[string]*ClientConnection
	broadcast  chan WebSocketMessage
	register   chan *ClientConnection
	unregister chan string
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewWebSocketHub creates a hub and starts its event loop.
func NewWebSocketHub(logger *zap.Logger) *WebSocketHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &WebSocketHub{
		clients:    make(map[string]*ClientConnection),
		broadcast:  make(chan WebSocketMessage, 256),
		register:   make(chan *ClientConnection),
		unregister: make(chan string),
		done:       make(chan struct{}),
		logger:     logger,
	}
	go h.run()
	return h
}

func (h *WebSocketHub) run() {
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
			if old, exists := h.clients[client.ID]; exists {
				close(old.Send)
			}
			h.clients[client.ID] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Client connected", zap.String("client", client.ID), zap.Int("total", total))

		case clientID := <-h.unregister:
			h.mu.Lock()
			if client, exists := h.clients[clientID]; exists {
				delete(h.clients, clientID)
				close(client.Send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Client disconnected", zap.String("client", clientID), zap.Int("total", total))

		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.Send <- msg:
				default:
					// Slow client, drop this frame.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a client to the hub.
func (h *WebSocketHub) Register(client *ClientConnection) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister removes a client and closes its send queue.
func (h *WebSocketHub) Unregister(clientID string) {
	select {
	case h.unregister <- clientID:
	case <-h.done:
	}
}

// Broadcast queues msg for every client. It never blocks; the message is
// dropped if the queue is full.
func (h *WebSocketHub) Broadcast(msg WebSocketMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("Broadcast queue full, dropping message", zap.String("type", msg.Type))
	}
}

// SendTo queues msg for a single client. It never blocks and reports
// whether the message was queued.
func (h *WebSocketHub) SendTo(clientID string, msg WebSocketMessage) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, exists := h.clients[clientID]
	if !exists {
		return false
	}
	select {
	case client.Send <- msg:
		return true
	default:
		return false
	}
}

// PublishSnapshot broadcasts a collected snapshot. It matches
// SnapshotListener so it can be passed to SnapshotCollector.OnSnapshot.
func (h *WebSocketHub) PublishSnapshot(s models.Snapshot) {
	h.Broadcast(WebSocketMessage{Type: "snapshot", Timestamp: s.Timestamp, Data: s})
}

// ClientCount returns how many clients are connected.
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop disconnects every client and ends the event loop.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}
