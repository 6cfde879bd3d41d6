package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nigrani/internal/middleware"
	"nigrani/internal/services"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type WebSocketController struct {
	hub      *services.WebSocketHub
	tokens   middleware.TokenValidator
	security *middleware.SecurityLogger
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWebSocketController(hub *services.WebSocketHub, tokens middleware.TokenValidator, security *middleware.SecurityLogger, allowedOrigins []string, logger *zap.Logger) *WebSocketController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketController{
		hub:      hub,
		tokens:   tokens,
		security: security,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Non-browser clients send no Origin.
				return origin == "" || middleware.OriginAllowed(origin, allowedOrigins)
			},
		},
	}
}

// HandleWebSocket upgrades an authenticated request and streams collected
// snapshots to it
func (wc *WebSocketController) HandleWebSocket(c *gin.Context) {
	token := middleware.BearerToken(c)
	if token == "" {
		wc.security.LogFailedAuth(c.ClientIP(), "missing token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := wc.tokens.Validate(token)
	if err != nil {
		wc.security.LogFailedAuth(c.ClientIP(), err.Error())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ws, err := wc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wc.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	wc.security.LogWebSocketConnected(c.ClientIP(), claims.Subject)

	client := services.NewClientConnection(uuid.NewString(), claims.Subject, ws)
	wc.hub.Register(client)

	go wc.writePump(client)
	go wc.readPump(client, c.ClientIP())
}

// readPump reads messages from the WebSocket client
func (wc *WebSocketController) readPump(client *services.ClientConnection, ip string) {
	defer func() {
		wc.hub.Unregister(client.ID)
		client.Conn.Close()
		wc.security.LogWebSocketDisconnected(ip, client.ID)
	}()

	client.Conn.SetReadLimit(4096)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg services.WebSocketMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				wc.logger.Warn("WebSocket read error", zap.String("client", client.ID), zap.Error(err))
			}
			return
		}
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case "ping":
			wc.hub.SendTo(client.ID, services.WebSocketMessage{Type: "pong", Timestamp: time.Now()})
		case "unsubscribe":
			return
		default:
			wc.logger.Debug("Unknown message type", zap.String("client", client.ID), zap.String("type", msg.Type))
		}
	}
}

// writePump writes queued messages and keeps the connection alive
func (wc *WebSocketController) writePump(client *services.ClientConnection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					wc.logger.Warn("WebSocket write error", zap.String("client", client.ID), zap.Error(err))
				}
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleTokenStatus checks the presented token
func (wc *WebSocketController) HandleTokenStatus(c *gin.Context) {
	token := middleware.BearerToken(c)
	if token == "" {
		wc.security.LogFailedAuth(c.ClientIP(), "missing token in header or query")
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required in Authorization header or query parameter"})
		return
	}

	claims, err := wc.tokens.Validate(token)
	if err != nil {
		wc.security.LogFailedAuth(c.ClientIP(), err.Error())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":      true,
		"name":       claims.Name,
		"expires_at": claims.ExpiresAt.Time,
		"issued_at":  claims.IssuedAt.Time,
	})
}
