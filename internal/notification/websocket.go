package notification

import (
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// WebSocketChannel adapts a websocket connection to Channel.
type WebSocketChannel struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	mu           sync.Mutex // one writer at a time
	closeOnce    sync.Once
}

func NewWebSocketChannel(conn *websocket.Conn, writeTimeout time.Duration) *WebSocketChannel {
	return &WebSocketChannel{conn: conn, writeTimeout: writeTimeout}
}

func (c *WebSocketChannel) Send(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

func (c *WebSocketChannel) ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}

func (c *WebSocketChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

// Serve registers conn for the organisation and blocks until the client goes
// away. Clients only ever send pings; a text "ping" is answered with "pong".
func (h *Hub) Serve(organisationID string, conn *websocket.Conn, writeTimeout time.Duration) error {
	ch := NewWebSocketChannel(conn, writeTimeout)
	if err := h.Connect(organisationID, ch); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(writeTimeout))
		_ = ch.Close()
		return err
	}
	defer h.Disconnect(organisationID, ch)

	done := make(chan struct{})
	defer close(done)
	go h.keepAlive(organisationID, ch, done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warnf("Unexpected websocket close for organisation %s: %v", organisationID, err)
			}
			return nil
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if kind == websocket.TextMessage && strings.EqualFold(strings.TrimSpace(string(data)), "ping") {
			if err := ch.Send([]byte("pong")); err != nil {
				return nil
			}
		}
	}
}

func (h *Hub) keepAlive(organisationID string, ch *WebSocketChannel, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := ch.ping(); err != nil {
				h.logger.Debugf("Ping failed for organisation %s: %v", organisationID, err)
				h.registry.Remove(organisationID, ch)
				_ = ch.Close()
				return
			}
		}
	}
}
