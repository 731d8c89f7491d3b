// Package protocol defines the JSON message contract spoken over the
// realtime websocket endpoint. Every message is a single JSON object with
// a "type" discriminator; the session id travels inside the message, not
// in the connection URL.
package protocol

import (
	"encoding/json"
	"fmt"

	"collabcanvas/internal/domain"
)

// Inbound message types (client -> coordinator).
const (
	TypeCreateSession = "create_session"
	TypeJoinSession   = "join_session"
	TypeFrame         = "frame"
	TypeMouseDraw     = "mouse_draw"
	TypeDrawingUpdate = "drawing_update"
	TypeClearCanvas   = "clear_canvas"
	TypeChangeColor   = "change_color"
)

// Outbound message types (coordinator -> client).
const (
	TypeSessionCreated    = "session_created"
	TypeSessionJoined     = "session_joined"
	TypeParticipantJoined = "participant_joined"
	TypeParticipantLeft   = "participant_left"
	TypeCanvasUpdate      = "canvas_update"
	TypeColorChanged      = "color_changed"
	TypeError             = "error"
)

// Error codes carried by error messages. The connection always stays
// open; the client decides whether to retry.
const (
	CodeInvalidMessage   = "invalid_message"
	CodeMissingFields    = "missing_fields"
	CodeDuplicateSession = "duplicate_session"
	CodeSessionNotFound  = "session_not_found"
	CodeInvalidSession   = "invalid_session"
	CodeNotInSession     = "not_in_session"
	CodeAlreadyInSession = "already_in_session"
	CodeInternalError    = "internal_error"
)

// Envelope is the first-pass decode of any inbound message: the type
// discriminator plus the raw bytes for a second, type-specific decode.
type Envelope struct {
	Type string `json:"type"`
	Raw  []byte `json:"-"`
}

// Decode reads the discriminator out of a raw frame.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("protocol: malformed message: %w", err)
	}
	if env.Type == "" {
		return env, fmt.Errorf("protocol: message missing type")
	}
	env.Raw = data
	return env, nil
}

// Into decodes the full message body into a type-specific payload.
func (e Envelope) Into(v interface{}) error {
	if err := json.Unmarshal(e.Raw, v); err != nil {
		return fmt.Errorf("protocol: decode %s payload: %w", e.Type, err)
	}
	return nil
}

// CreateSession asks the coordinator to register a brand new session.
type CreateSession struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	RoomID    string `json:"room_id"`
	UserName  string `json:"user_name"`
}

// JoinSession asks to join an existing session; idempotent per user name.
type JoinSession struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	UserName  string `json:"user_name"`
}

// Frame carries one encoded webcam raster for the upstream gesture
// producer. Frames are never fanned out to peers.
type Frame struct {
	Type  string `json:"type"`
	Frame string `json:"frame"`
}

// Point is one canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MouseDraw is a single stroke segment drawn on the overlay layer.
type MouseDraw struct {
	Type  string `json:"type"`
	Start Point  `json:"start"`
	End   Point  `json:"end"`
	Color string `json:"color"`
}

// DrawingUpdate replaces the whole drawing-layer snapshot. An empty
// Drawing is the authoritative "cleared" state sent after clear_canvas.
type DrawingUpdate struct {
	Type    string `json:"type"`
	Drawing string `json:"drawing"`
}

// ClearCanvas wipes the drawing layer for every room member.
type ClearCanvas struct {
	Type string `json:"type"`
}

// ChangeColor announces the sender's new pen color.
type ChangeColor struct {
	Type  string `json:"type"`
	Color string `json:"color"`
}

// SessionCreated confirms a create_session to its requester only.
type SessionCreated struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// SessionJoined is the full-state replay for a joining or rejoining
// client: roster plus the latest snapshots of both raster layers. The
// client replaces, never merges, its local state with these.
type SessionJoined struct {
	Type         string               `json:"type"`
	SessionID    string               `json:"session_id"`
	Participants []domain.Participant `json:"participants"`
	Canvas       string               `json:"canvas"`
	Drawing      string               `json:"drawing"`
}

// ParticipantJoined tells existing members the roster grew.
type ParticipantJoined struct {
	Type         string               `json:"type"`
	Participants []domain.Participant `json:"participants"`
}

// ParticipantLeft tells members a connection dropped out of the fan-out
// set. The persisted roster keeps the name.
type ParticipantLeft struct {
	Type         string               `json:"type"`
	Participants []domain.Participant `json:"participants"`
}

// CanvasUpdate pushes a new base-layer snapshot to peers.
type CanvasUpdate struct {
	Type   string `json:"type"`
	Canvas string `json:"canvas"`
}

// ColorChanged re-broadcasts a peer's color change.
type ColorChanged struct {
	Type  string `json:"type"`
	Color string `json:"color"`
}

// Error is the only negative reply; it goes to the sender alone and
// never tears down the connection.
type Error struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// Marshal encodes an outbound message, panicking only on programmer
// error (all payload types here are marshalable).
func Marshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("protocol: marshal outbound message: %v", err))
	}
	return data
}

// NewError builds an error reply.
func NewError(code, message string) []byte {
	return Marshal(Error{Type: TypeError, Message: message, ErrorCode: code})
}
