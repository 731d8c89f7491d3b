// Package client implements the session controller driving one realtime
// connection: lifecycle, optimistic local strokes, full-state snapshot
// reconciliation, and countdown-based automatic rejoin after a dropped
// connection.
package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"collabcanvas/internal/domain"
	"collabcanvas/internal/protocol"
)

// State is the controller's connection state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected // connected, not in a room
	StateInRoom
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateInRoom:
		return "in_room"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// DefaultReconnectDelay is the countdown before an automatic rejoin.
const DefaultReconnectDelay = 5 * time.Second

// Callbacks are the rendering hooks the embedding UI provides. All are
// optional; nil callbacks are skipped. They fire from the controller's
// read loop.
type Callbacks struct {
	// OnStateChange fires on every controller state transition.
	OnStateChange func(state State)
	// OnSnapshot fires when the server replays full state on join; the
	// local rasters must be replaced wholesale, never merged.
	OnSnapshot func(canvas, drawing string, participants []domain.Participant)
	// OnLocalStroke fires before a self-originated stroke is sent, for
	// optimistic rendering. The server never echoes it back.
	OnLocalStroke func(stroke protocol.MouseDraw)
	// OnPeerStroke fires for strokes drawn by other participants.
	OnPeerStroke func(stroke protocol.MouseDraw)
	// OnCanvasUpdate fires when a new base-layer snapshot arrives.
	OnCanvasUpdate func(canvas string)
	// OnDrawingUpdate fires when a new overlay snapshot arrives.
	OnDrawingUpdate func(drawing string)
	// OnClearCanvas fires when a peer clears the overlay.
	OnClearCanvas func()
	// OnColorChanged fires when a peer changes pen color.
	OnColorChanged func(color string)
	// OnParticipants fires when the roster changes.
	OnParticipants func(participants []domain.Participant)
	// OnError fires for protocol errors addressed to this client.
	OnError func(code, message string)
	// OnReconnectScheduled fires when a countdown starts, with its length.
	OnReconnectScheduled func(delay time.Duration)
}

// Controller drives one connection to the realtime endpoint.
type Controller struct {
	url    string
	dialer *websocket.Dialer
	cb     Callbacks

	mu        sync.Mutex
	state     State
	conn      *websocket.Conn
	sessionID string
	userName  string
	canvas    string
	drawing   string
	closed    bool

	reconnectDelay time.Duration
	rejoinNow      chan struct{}
	done           chan struct{}

	writeMu sync.Mutex
}

// New creates a controller for the given websocket URL.
func New(url string, cb Callbacks) *Controller {
	return &Controller{
		url:            url,
		dialer:         websocket.DefaultDialer,
		cb:             cb,
		state:          StateDisconnected,
		reconnectDelay: DefaultReconnectDelay,
		rejoinNow:      make(chan struct{}, 1),
		done:           make(chan struct{}),
	}
}

// Connect dials the endpoint and starts the read loop.
func (c *Controller) Connect(ctx context.Context) error {
	c.setState(StateConnecting)

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.setState(StateDisconnected)
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(StateConnected)

	go c.readLoop(conn)
	return nil
}

// Close tears the controller down; no reconnect follows.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	close(c.done)
	if conn != nil {
		conn.Close()
	}
	c.setState(StateDisconnected)
}

// State returns the current controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Canvas returns the local base-layer raster.
func (c *Controller) Canvas() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canvas
}

// Drawing returns the local overlay raster.
func (c *Controller) Drawing() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drawing
}

// CreateSession registers a brand-new session on this connection.
func (c *Controller) CreateSession(sessionID, roomID, userName string) error {
	c.mu.Lock()
	c.sessionID = sessionID
	c.userName = userName
	c.mu.Unlock()
	return c.send(protocol.Marshal(protocol.CreateSession{
		Type:      protocol.TypeCreateSession,
		SessionID: sessionID,
		RoomID:    roomID,
		UserName:  userName,
	}))
}

// JoinSession joins an existing session on this connection.
func (c *Controller) JoinSession(sessionID, userName string) error {
	c.mu.Lock()
	c.sessionID = sessionID
	c.userName = userName
	c.mu.Unlock()
	return c.send(protocol.Marshal(protocol.JoinSession{
		Type:      protocol.TypeJoinSession,
		SessionID: sessionID,
		UserName:  userName,
	}))
}

// DrawStroke renders a stroke locally first, then transmits it so peers
// converge. The peer echo never comes back to us.
func (c *Controller) DrawStroke(start, end protocol.Point, color string) error {
	stroke := protocol.MouseDraw{
		Type:  protocol.TypeMouseDraw,
		Start: start,
		End:   end,
		Color: color,
	}
	if c.cb.OnLocalStroke != nil {
		c.cb.OnLocalStroke(stroke)
	}
	return c.send(protocol.Marshal(stroke))
}

// UpdateDrawing replaces the overlay snapshot locally and remotely.
func (c *Controller) UpdateDrawing(drawing string) error {
	c.mu.Lock()
	c.drawing = drawing
	c.mu.Unlock()
	return c.send(protocol.Marshal(protocol.DrawingUpdate{
		Type:    protocol.TypeDrawingUpdate,
		Drawing: drawing,
	}))
}

// ClearCanvas clears the overlay for everyone: the clear event, then an
// authoritative empty snapshot so every peer converges on an identical
// empty layer even if the clear itself was missed or duplicated.
func (c *Controller) ClearCanvas() error {
	c.mu.Lock()
	c.drawing = ""
	c.mu.Unlock()
	if err := c.send(protocol.Marshal(protocol.ClearCanvas{Type: protocol.TypeClearCanvas})); err != nil {
		return err
	}
	return c.send(protocol.Marshal(protocol.DrawingUpdate{
		Type:    protocol.TypeDrawingUpdate,
		Drawing: "",
	}))
}

// ChangeColor announces a new pen color to peers.
func (c *Controller) ChangeColor(color string) error {
	return c.send(protocol.Marshal(protocol.ChangeColor{
		Type:  protocol.TypeChangeColor,
		Color: color,
	}))
}

// SendFrame forwards one webcam frame to the gesture pipeline.
func (c *Controller) SendFrame(frame string) error {
	return c.send(protocol.Marshal(protocol.Frame{
		Type:  protocol.TypeFrame,
		Frame: frame,
	}))
}

// RejoinNow cancels a pending reconnect countdown and rejoins
// immediately. Safe to call at any time.
func (c *Controller) RejoinNow() {
	select {
	case c.rejoinNow <- struct{}{}:
	default:
	}
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	if c.cb.OnStateChange != nil {
		c.cb.OnStateChange(state)
	}
}

func (c *Controller) send(message []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("client: not connected")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, message)
}

func (c *Controller) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(err)
			return
		}
		c.handleMessage(message)
	}
}

func (c *Controller) handleMessage(raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		logrus.WithError(err).Warn("Client: dropping malformed server message")
		return
	}

	switch env.Type {
	case protocol.TypeSessionCreated:
		c.setState(StateInRoom)

	case protocol.TypeSessionJoined:
		var msg protocol.SessionJoined
		if err := env.Into(&msg); err != nil {
			logrus.WithError(err).Warn("Client: bad session_joined payload")
			return
		}
		// Full reconciliation: replace both rasters with the server's
		// snapshots so a late joiner is bit-identical to the room.
		c.mu.Lock()
		c.canvas = msg.Canvas
		c.drawing = msg.Drawing
		c.mu.Unlock()
		c.setState(StateInRoom)
		if c.cb.OnSnapshot != nil {
			c.cb.OnSnapshot(msg.Canvas, msg.Drawing, msg.Participants)
		}

	case protocol.TypeParticipantJoined:
		var msg protocol.ParticipantJoined
		if err := env.Into(&msg); err != nil {
			return
		}
		if c.cb.OnParticipants != nil {
			c.cb.OnParticipants(msg.Participants)
		}

	case protocol.TypeParticipantLeft:
		var msg protocol.ParticipantLeft
		if err := env.Into(&msg); err != nil {
			return
		}
		if c.cb.OnParticipants != nil {
			c.cb.OnParticipants(msg.Participants)
		}

	case protocol.TypeCanvasUpdate:
		var msg protocol.CanvasUpdate
		if err := env.Into(&msg); err != nil {
			return
		}
		c.mu.Lock()
		c.canvas = msg.Canvas
		c.mu.Unlock()
		if c.cb.OnCanvasUpdate != nil {
			c.cb.OnCanvasUpdate(msg.Canvas)
		}

	case protocol.TypeMouseDraw:
		var msg protocol.MouseDraw
		if err := env.Into(&msg); err != nil {
			return
		}
		if c.cb.OnPeerStroke != nil {
			c.cb.OnPeerStroke(msg)
		}

	case protocol.TypeDrawingUpdate:
		var msg protocol.DrawingUpdate
		if err := env.Into(&msg); err != nil {
			return
		}
		c.mu.Lock()
		c.drawing = msg.Drawing
		c.mu.Unlock()
		if c.cb.OnDrawingUpdate != nil {
			c.cb.OnDrawingUpdate(msg.Drawing)
		}

	case protocol.TypeClearCanvas:
		c.mu.Lock()
		c.drawing = ""
		c.mu.Unlock()
		if c.cb.OnClearCanvas != nil {
			c.cb.OnClearCanvas()
		}

	case protocol.TypeColorChanged:
		var msg protocol.ColorChanged
		if err := env.Into(&msg); err != nil {
			return
		}
		if c.cb.OnColorChanged != nil {
			c.cb.OnColorChanged(msg.Color)
		}

	case protocol.TypeError:
		var msg protocol.Error
		if err := env.Into(&msg); err != nil {
			return
		}
		c.handleServerError(msg)

	default:
		logrus.WithField("type", env.Type).Debug("Client: ignoring unknown server message")
	}
}

// handleServerError reacts to protocol errors. A missing or invalid
// session means we are not a member: forget the membership and fall back
// to the pre-join state instead of retrying.
func (c *Controller) handleServerError(msg protocol.Error) {
	if msg.ErrorCode == protocol.CodeSessionNotFound || msg.ErrorCode == protocol.CodeInvalidSession {
		c.mu.Lock()
		c.sessionID = ""
		c.userName = ""
		c.mu.Unlock()
		c.setState(StateConnected)
	}
	if c.cb.OnError != nil {
		c.cb.OnError(msg.ErrorCode, msg.Message)
	}
}

// handleDisconnect runs the reconnect countdown when the connection
// drops while in a room. The remembered sessionId/userName make the
// rejoin automatic; RejoinNow short-circuits the countdown.
func (c *Controller) handleDisconnect(cause error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	wasInRoom := c.state == StateInRoom
	sessionID, userName := c.sessionID, c.userName
	c.mu.Unlock()

	logrus.WithError(cause).WithField("session_id", sessionID).Warn("Client: connection lost")

	if !wasInRoom || sessionID == "" {
		c.setState(StateDisconnected)
		return
	}

	for {
		c.setState(StateReconnecting)
		if c.cb.OnReconnectScheduled != nil {
			c.cb.OnReconnectScheduled(c.reconnectDelay)
		}

		timer := time.NewTimer(c.reconnectDelay)
		select {
		case <-c.done:
			timer.Stop()
			return
		case <-c.rejoinNow:
			timer.Stop()
		case <-timer.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.Connect(ctx)
		cancel()
		if err != nil {
			logrus.WithError(err).Warn("Client: reconnect dial failed, scheduling another attempt")
			continue
		}
		if err := c.JoinSession(sessionID, userName); err != nil {
			logrus.WithError(err).Warn("Client: rejoin send failed")
		}
		return
	}
}
