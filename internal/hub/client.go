package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client is one websocket connection attached to the hub. A connection
// is usable for exactly one session at a time; sessionID and userName
// are empty until a create/join succeeds and are only touched on the
// hub's event loop.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// sendMu orders Send against closeSend: broadcasts may run on
	// other goroutines (the REST canvas-update path) while the hub
	// tears the client down.
	sendMu sync.Mutex
	closed bool

	sessionID string
	userName  string
}

// NewClient wraps an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// Send queues a message for delivery without blocking. Implements
// registry.Conn. After closeSend it reports false instead of writing
// to the closed queue.
func (c *Client) Send(message []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// closeSend closes the send queue exactly once. Messages already queued
// stay readable for the write pump; later Send calls return false.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// UserName implements registry.Conn.
func (c *Client) UserName() string { return c.userName }

// SessionID returns the session this connection is in, or "".
func (c *Client) SessionID() string { return c.sessionID }

// CloseConn closes the underlying websocket.
func (c *Client) CloseConn() { c.conn.Close() }

// ReadPump pumps raw frames from the websocket into the hub's event
// loop. Exiting the loop (close or read error) unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		unregister := HubMessage{Type: msgUnregister, Client: c}
		select {
		case c.hub.messageChan <- unregister:
		case <-time.After(1 * time.Second):
			logrus.WithField("user_name", c.userName).Warn("Timeout sending unregister message to hub channel")
		}
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"user_name": c.userName, "session_id": c.sessionID}).Debug("readPump exited")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithFields(logrus.Fields{"user_name": c.userName, "session_id": c.sessionID})
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed")
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		inbound := HubMessage{Type: msgInbound, Client: c, RawData: message}
		select {
		case c.hub.messageChan <- inbound:
		default:
			logrus.WithField("user_name", c.userName).Warn("Hub message channel full, dropping client message")
		}
	}
}

// WritePump pumps queued messages onto the websocket and keeps the
// connection alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"user_name": c.userName, "session_id": c.sessionID}).Debug("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithFields(logrus.Fields{"user_name": c.userName}).WithError(err).Warn("Failed to write message to websocket")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logrus.WithFields(logrus.Fields{"user_name": c.userName}).WithError(err).Warn("Failed to send ping message")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})
		}
	}
}
