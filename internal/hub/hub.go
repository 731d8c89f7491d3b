// Package hub runs the realtime coordinator: one event loop that owns
// every connection's protocol state machine and drives the session
// registry. Messages from a single sender are dispatched in arrival
// order; per-room serialization is the registry's room lock.
package hub

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"collabcanvas/internal/protocol"
	"collabcanvas/internal/registry"
	"collabcanvas/internal/repository"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Raster snapshots ride in
	// messages, so the limit is generous.
	maxMessageSize = 4 << 20
)

// Internal hub message kinds.
const (
	msgRegister   = "register"
	msgUnregister = "unregister"
	msgInbound    = "message"
)

// HubMessage is the unit of work on the hub's event loop.
type HubMessage struct {
	Type    string
	Client  *Client
	RawData []byte
}

// Hub coordinates all realtime connections.
type Hub struct {
	messageChan chan HubMessage

	registry  *registry.Registry
	stateRepo repository.StateRepository

	opTimeout time.Duration
}

// NewHub creates the hub. The registry handles room state; the state
// repository carries webcam frames upstream.
func NewHub(reg *registry.Registry, stateRepo repository.StateRepository) *Hub {
	if reg == nil {
		panic("Registry cannot be nil for Hub")
	}
	if stateRepo == nil {
		panic("StateRepository cannot be nil for Hub")
	}
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		registry:    reg,
		stateRepo:   stateRepo,
		opTimeout:   10 * time.Second,
	}
}

// QueueMessage puts a message on the hub's event loop without blocking.
// Returns false when the queue is full.
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

// Stop closes the event loop channel, ending Run.
func (h *Hub) Stop() {
	close(h.messageChan)
}

// Run drains the event loop. Protocol dispatch is synchronous so one
// sender's events are never reordered; only persistence leaves the loop.
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for msg := range h.messageChan {
		switch msg.Type {
		case msgRegister:
			log.WithField("remote", msg.Client != nil).Debug("Client registered to hub")
		case msgUnregister:
			h.unregisterClient(msg.Client)
		case msgInbound:
			h.dispatch(msg.Client, msg.RawData)
		default:
			log.Warnf("Hub: received unknown message type: %s", msg.Type)
		}
	}
	log.Info("Hub is shutting down...")
}

// unregisterClient tears one connection out of its room's fan-out set
// and tells the remaining members. Persisted session data is untouched.
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		return
	}
	if client.sessionID != "" {
		roster, remaining := h.registry.LeaveRoom(client.sessionID, client)
		if remaining > 0 {
			left := protocol.Marshal(protocol.ParticipantLeft{
				Type:         protocol.TypeParticipantLeft,
				Participants: roster,
			})
			h.registry.Broadcast(client.sessionID, left, client)
		}
		client.sessionID = ""
	}

	client.closeSend()
}

// dispatch runs one inbound protocol message through the state machine.
// Validation failures answer the sender only and change nothing.
func (h *Hub) dispatch(client *Client, raw []byte) {
	if client == nil {
		return
	}
	env, err := protocol.Decode(raw)
	if err != nil {
		client.Send(protocol.NewError(protocol.CodeInvalidMessage, "malformed message"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.opTimeout)
	defer cancel()

	switch env.Type {
	case protocol.TypeCreateSession:
		h.handleCreateSession(ctx, client, env)
	case protocol.TypeJoinSession:
		h.handleJoinSession(ctx, client, env)
	case protocol.TypeFrame:
		h.handleFrame(ctx, client, env)
	case protocol.TypeMouseDraw:
		h.handleMouseDraw(client, env)
	case protocol.TypeDrawingUpdate:
		h.handleDrawingUpdate(ctx, client, env)
	case protocol.TypeClearCanvas:
		h.handleClearCanvas(client, env)
	case protocol.TypeChangeColor:
		h.handleChangeColor(client, env)
	default:
		client.Send(protocol.NewError(protocol.CodeInvalidMessage, "unrecognized message type: "+env.Type))
	}
}

func (h *Hub) handleCreateSession(ctx context.Context, client *Client, env protocol.Envelope) {
	if client.sessionID != "" {
		client.Send(protocol.NewError(protocol.CodeAlreadyInSession, "connection already belongs to a session"))
		return
	}
	var req protocol.CreateSession
	if err := env.Into(&req); err != nil {
		client.Send(protocol.NewError(protocol.CodeInvalidMessage, "malformed create_session"))
		return
	}
	if req.SessionID == "" || req.RoomID == "" || req.UserName == "" {
		client.Send(protocol.NewError(protocol.CodeMissingFields, "session_id, room_id and user_name are required"))
		return
	}

	client.userName = req.UserName
	if _, err := h.registry.CreateRoom(ctx, req.SessionID, req.RoomID, req.UserName, client); err != nil {
		client.userName = ""
		client.Send(createErrorReply(err))
		return
	}
	client.sessionID = req.SessionID

	client.Send(protocol.Marshal(protocol.SessionCreated{
		Type:      protocol.TypeSessionCreated,
		SessionID: req.SessionID,
	}))
}

func (h *Hub) handleJoinSession(ctx context.Context, client *Client, env protocol.Envelope) {
	if client.sessionID != "" {
		client.Send(protocol.NewError(protocol.CodeAlreadyInSession, "connection already belongs to a session"))
		return
	}
	var req protocol.JoinSession
	if err := env.Into(&req); err != nil {
		client.Send(protocol.NewError(protocol.CodeInvalidMessage, "malformed join_session"))
		return
	}
	if req.SessionID == "" || req.UserName == "" {
		client.Send(protocol.NewError(protocol.CodeMissingFields, "session_id and user_name are required"))
		return
	}

	client.userName = req.UserName
	state, err := h.registry.JoinRoom(ctx, req.SessionID, req.UserName, client)
	if err != nil {
		client.userName = ""
		client.Send(joinErrorReply(err))
		return
	}
	client.sessionID = req.SessionID

	// Full-state replay to the joiner first, then the roster to peers.
	client.Send(protocol.Marshal(protocol.SessionJoined{
		Type:         protocol.TypeSessionJoined,
		SessionID:    req.SessionID,
		Participants: state.Participants,
		Canvas:       state.Canvas,
		Drawing:      state.Drawing,
	}))
	h.registry.Broadcast(req.SessionID, protocol.Marshal(protocol.ParticipantJoined{
		Type:         protocol.TypeParticipantJoined,
		Participants: state.Participants,
	}), client)
}

// handleFrame forwards one webcam frame upstream. Frames are a
// one-to-one channel to the gesture process and are never fanned out.
func (h *Hub) handleFrame(ctx context.Context, client *Client, env protocol.Envelope) {
	if client.sessionID == "" {
		client.Send(protocol.NewError(protocol.CodeNotInSession, "join a session before sending frames"))
		return
	}
	var req protocol.Frame
	if err := env.Into(&req); err != nil {
		client.Send(protocol.NewError(protocol.CodeInvalidMessage, "malformed frame"))
		return
	}
	if err := h.stateRepo.PublishFrame(ctx, client.sessionID, req.Frame); err != nil {
		logrus.WithError(err).WithField("session_id", client.sessionID).Error("Hub: failed to publish frame upstream")
	}
}

func (h *Hub) handleMouseDraw(client *Client, env protocol.Envelope) {
	if client.sessionID == "" {
		client.Send(protocol.NewError(protocol.CodeNotInSession, "join a session before drawing"))
		return
	}
	var req protocol.MouseDraw
	if err := env.Into(&req); err != nil {
		client.Send(protocol.NewError(protocol.CodeInvalidMessage, "malformed mouse_draw"))
		return
	}
	// Strokes are transient; the durable overlay arrives as a
	// drawing_update snapshot, so a stroke is fan-out only.
	h.registry.Broadcast(client.sessionID, env.Raw, client)
}

func (h *Hub) handleDrawingUpdate(ctx context.Context, client *Client, env protocol.Envelope) {
	if client.sessionID == "" {
		client.Send(protocol.NewError(protocol.CodeNotInSession, "join a session before updating the drawing layer"))
		return
	}
	var req protocol.DrawingUpdate
	if err := env.Into(&req); err != nil {
		client.Send(protocol.NewError(protocol.CodeInvalidMessage, "malformed drawing_update"))
		return
	}

	// Broadcast first for latency; persistence is best-effort behind it.
	h.registry.Broadcast(client.sessionID, env.Raw, client)
	if err := h.registry.UpdateCanvas(ctx, client.sessionID, req.Drawing, true); err != nil {
		logrus.WithError(err).WithField("session_id", client.sessionID).Error("Hub: drawing layer persistence failed")
	}
}

func (h *Hub) handleClearCanvas(client *Client, env protocol.Envelope) {
	if client.sessionID == "" {
		client.Send(protocol.NewError(protocol.CodeNotInSession, "join a session before clearing"))
		return
	}
	// The sender follows up with an authoritative empty drawing_update,
	// which is where persistence happens; the clear itself only fans out.
	h.registry.Broadcast(client.sessionID, env.Raw, client)
}

func (h *Hub) handleChangeColor(client *Client, env protocol.Envelope) {
	if client.sessionID == "" {
		client.Send(protocol.NewError(protocol.CodeNotInSession, "join a session before changing color"))
		return
	}
	var req protocol.ChangeColor
	if err := env.Into(&req); err != nil {
		client.Send(protocol.NewError(protocol.CodeInvalidMessage, "malformed change_color"))
		return
	}
	h.registry.Broadcast(client.sessionID, protocol.Marshal(protocol.ColorChanged{
		Type:  protocol.TypeColorChanged,
		Color: req.Color,
	}), client)
}

func createErrorReply(err error) []byte {
	if errors.Is(err, registry.ErrDuplicateSession) {
		return protocol.NewError(protocol.CodeDuplicateSession, "session or room id already taken")
	}
	return protocol.NewError(protocol.CodeInternalError, "failed to create session")
}

func joinErrorReply(err error) []byte {
	if errors.Is(err, registry.ErrSessionNotFound) {
		return protocol.NewError(protocol.CodeSessionNotFound, "session not found")
	}
	return protocol.NewError(protocol.CodeInternalError, "failed to join session")
}
