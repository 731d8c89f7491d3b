package protocol_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabcanvas/internal/protocol"
)

func TestDecode_ReadsDiscriminator(t *testing.T) {
	raw := []byte(`{"type":"mouse_draw","start":{"x":1,"y":2},"end":{"x":3,"y":4},"color":"#000"}`)

	env, err := protocol.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeMouseDraw, env.Type)

	var stroke protocol.MouseDraw
	require.NoError(t, env.Into(&stroke))
	assert.Equal(t, protocol.Point{X: 1, Y: 2}, stroke.Start)
	assert.Equal(t, protocol.Point{X: 3, Y: 4}, stroke.End)
	assert.Equal(t, "#000", stroke.Color)
}

func TestDecode_RejectsMalformedJSON(t *testing.T) {
	_, err := protocol.Decode([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestDecode_RejectsMissingType(t *testing.T) {
	_, err := protocol.Decode([]byte(`{"session_id":"sess-1"}`))
	assert.Error(t, err)
}

func TestDecode_KeepsRawForRelay(t *testing.T) {
	// Fan-out forwards env.Raw verbatim, so unknown fields must survive.
	raw := []byte(`{"type":"drawing_update","drawing":"abc","extra":"kept"}`)

	env, err := protocol.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, env.Raw)
}

func TestNewError_Shape(t *testing.T) {
	raw := protocol.NewError(protocol.CodeSessionNotFound, "session not found")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "error", decoded["type"])
	assert.Equal(t, "session_not_found", decoded["errorCode"])
	assert.Equal(t, "session not found", decoded["message"])
}

func TestSessionJoined_EmptySnapshotsStayPresent(t *testing.T) {
	// A fresh session replays empty strings, not absent keys; clients
	// replace their local state with whatever arrives.
	raw := protocol.Marshal(protocol.SessionJoined{
		Type:      protocol.TypeSessionJoined,
		SessionID: "sess-1",
	})

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "canvas")
	assert.Contains(t, decoded, "drawing")
	assert.Equal(t, "", decoded["canvas"])
}
