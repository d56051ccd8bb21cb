package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/priyansh-dev/privacy-lens/server/processor"
)

// WebSocketHandler streams live frame analysis: clients push data-URL frames
// and receive findings plus the current risk assessment per frame.
type WebSocketHandler struct {
	pipeline *processor.Pipeline
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

type ClientMessage struct {
	Type      string `json:"type"`
	Data      string `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// wsConn serializes writes to one connection. gorilla/websocket permits a
// single writer at a time, and the per-frame analysis goroutines race both
// each other and the keepalive ticker.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ping(deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func NewWebSocketHandler(pipeline *processor.Pipeline, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		pipeline: pipeline,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket connection", zap.Error(err))
		return
	}
	defer raw.Close()

	clientIP := c.ClientIP()
	h.logger.Info("websocket client connected", zap.String("client_ip", clientIP))

	raw.SetReadLimit(10 * 1024 * 1024)
	raw.SetReadDeadline(time.Now().Add(60 * time.Second))
	raw.SetPongHandler(func(appData string) error {
		raw.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	conn := &wsConn{conn: raw}

	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	done := make(chan struct{})

	go h.pingRoutine(conn, ticker, done)

	for {
		select {
		case <-done:
			return
		default:
			var message ClientMessage
			err := raw.ReadJSON(&message)
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Error("websocket read error", zap.Error(err))
				}
				close(done)
				return
			}
			h.handleMessage(conn, &message)
		}
	}
}

func (h *WebSocketHandler) handleMessage(conn *wsConn, message *ClientMessage) {
	switch message.Type {
	case "frame":
		h.processFrame(conn, message)
	case "ping":
		h.sendMessage(conn, "pong", map[string]any{"timestamp": time.Now().Unix()})
	default:
		h.logger.Warn("unknown message type received", zap.String("type", message.Type))
		h.sendError(conn, "Unknown message type: "+message.Type)
	}
}

func (h *WebSocketHandler) processFrame(conn *wsConn, message *ClientMessage) {
	imageData, err := extractImageData(message.Data)
	if err != nil {
		h.logger.Error("failed to extract image data", zap.Error(err))
		h.sendError(conn, "invalid image data format")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		findings, assessment := h.pipeline.AnalyzeUnit(ctx, imageData)
		h.sendMessage(conn, "analysis", map[string]any{
			"timestamp":    message.Timestamp,
			"findings":     findings,
			"privacy_risk": assessment,
		})
	}()
}

func extractImageData(dataURL string) ([]byte, error) {
	parts := strings.Split(dataURL, ",")
	if len(parts) != 2 {
		return nil, errors.New("expected a base64 data URL")
	}
	return base64.StdEncoding.DecodeString(parts[1])
}

func (h *WebSocketHandler) sendMessage(conn *wsConn, messageType string, data any) {
	message := ServerMessage{
		Type: messageType,
		Data: data,
	}

	if err := conn.writeJSON(message); err != nil {
		h.logger.Error("failed to send websocket message", zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(conn *wsConn, errorMsg string) {
	h.sendMessage(conn, "error", map[string]any{
		"message":   errorMsg,
		"timestamp": time.Now().Unix(),
	})
}

func (h *WebSocketHandler) pingRoutine(conn *wsConn, ticker *time.Ticker, done chan struct{}) {
	for {
		select {
		case <-ticker.C:
			if err := conn.ping(time.Now().Add(10 * time.Second)); err != nil {
				h.logger.Error("failed to send ping", zap.Error(err))
				return
			}
		case <-done:
			return
		}
	}
}
