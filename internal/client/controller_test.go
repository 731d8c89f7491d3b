package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabcanvas/internal/client"
	"collabcanvas/internal/domain"
	"collabcanvas/internal/protocol"
)

// wsServer is a minimal coordinator stand-in: it accepts connections and
// hands them to the test for scripted exchanges.
type wsServer struct {
	srv   *httptest.Server
	conns chan *websocket.Conn
}

func startWSServer(t *testing.T) *wsServer {
	t.Helper()
	upgrader := websocket.Upgrader{}
	s := &wsServer{conns: make(chan *websocket.Conn, 4)}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		s.conns <- conn
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *wsServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-s.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("no connection arrived")
		return nil
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	env, err := protocol.Decode(raw)
	require.NoError(t, err)
	return env
}

func writeMessage(t *testing.T, conn *websocket.Conn, payload interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, protocol.Marshal(payload)))
}

func TestController_JoinReplacesLocalState(t *testing.T) {
	server := startWSServer(t)
	snapshots := make(chan protocol.SessionJoined, 1)
	ctrl := client.New(server.url(), client.Callbacks{
		OnSnapshot: func(canvas, drawing string, participants []domain.Participant) {
			snapshots <- protocol.SessionJoined{Canvas: canvas, Drawing: drawing, Participants: participants}
		},
	})
	t.Cleanup(ctrl.Close)

	require.NoError(t, ctrl.Connect(context.Background()))
	assert.Equal(t, client.StateConnected, ctrl.State())
	conn := server.accept(t)

	require.NoError(t, ctrl.JoinSession("sess-1", "bob"))
	env := readEnvelope(t, conn)
	require.Equal(t, protocol.TypeJoinSession, env.Type)

	writeMessage(t, conn, protocol.SessionJoined{
		Type:         protocol.TypeSessionJoined,
		SessionID:    "sess-1",
		Participants: []domain.Participant{{Name: "alice"}, {Name: "bob"}},
		Canvas:       "server-canvas",
		Drawing:      "server-drawing",
	})

	select {
	case snap := <-snapshots:
		assert.Equal(t, "server-canvas", snap.Canvas)
		assert.Equal(t, "server-drawing", snap.Drawing)
		assert.Len(t, snap.Participants, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot callback never fired")
	}

	assert.Equal(t, client.StateInRoom, ctrl.State())
	assert.Equal(t, "server-canvas", ctrl.Canvas(), "local state is replaced, not merged")
	assert.Equal(t, "server-drawing", ctrl.Drawing())
}

func TestController_DrawStroke_OptimisticThenSent(t *testing.T) {
	server := startWSServer(t)
	local := make(chan protocol.MouseDraw, 1)
	ctrl := client.New(server.url(), client.Callbacks{
		OnLocalStroke: func(stroke protocol.MouseDraw) { local <- stroke },
	})
	t.Cleanup(ctrl.Close)
	require.NoError(t, ctrl.Connect(context.Background()))
	conn := server.accept(t)

	require.NoError(t, ctrl.DrawStroke(protocol.Point{X: 1, Y: 2}, protocol.Point{X: 3, Y: 4}, "#f00"))

	// Local render fires before (or without) any server round trip.
	select {
	case stroke := <-local:
		assert.Equal(t, "#f00", stroke.Color)
	default:
		t.Fatal("optimistic local render did not happen")
	}

	env := readEnvelope(t, conn)
	require.Equal(t, protocol.TypeMouseDraw, env.Type)
	var sent protocol.MouseDraw
	require.NoError(t, env.Into(&sent))
	assert.Equal(t, protocol.Point{X: 3, Y: 4}, sent.End)
}

func TestController_ClearCanvas_SendsAuthoritativeEmptySnapshot(t *testing.T) {
	server := startWSServer(t)
	ctrl := client.New(server.url(), client.Callbacks{})
	t.Cleanup(ctrl.Close)
	require.NoError(t, ctrl.Connect(context.Background()))
	conn := server.accept(t)

	require.NoError(t, ctrl.ClearCanvas())

	first := readEnvelope(t, conn)
	assert.Equal(t, protocol.TypeClearCanvas, first.Type)

	second := readEnvelope(t, conn)
	require.Equal(t, protocol.TypeDrawingUpdate, second.Type)
	var update protocol.DrawingUpdate
	require.NoError(t, second.Into(&update))
	assert.Empty(t, update.Drawing, "the follow-up snapshot is the empty overlay")
	assert.Empty(t, ctrl.Drawing())
}

func TestController_PeerEventsUpdateLocalState(t *testing.T) {
	server := startWSServer(t)
	drawings := make(chan string, 1)
	cleared := make(chan struct{}, 1)
	ctrl := client.New(server.url(), client.Callbacks{
		OnDrawingUpdate: func(drawing string) { drawings <- drawing },
		OnClearCanvas:   func() { cleared <- struct{}{} },
	})
	t.Cleanup(ctrl.Close)
	require.NoError(t, ctrl.Connect(context.Background()))
	conn := server.accept(t)

	writeMessage(t, conn, protocol.DrawingUpdate{Type: protocol.TypeDrawingUpdate, Drawing: "peer-overlay"})
	select {
	case d := <-drawings:
		assert.Equal(t, "peer-overlay", d)
	case <-time.After(2 * time.Second):
		t.Fatal("drawing update never arrived")
	}
	assert.Equal(t, "peer-overlay", ctrl.Drawing())

	writeMessage(t, conn, protocol.ClearCanvas{Type: protocol.TypeClearCanvas})
	select {
	case <-cleared:
	case <-time.After(2 * time.Second):
		t.Fatal("clear never arrived")
	}
	assert.Empty(t, ctrl.Drawing())
}

func TestController_SessionNotFound_FallsBackToRoomless(t *testing.T) {
	server := startWSServer(t)
	errs := make(chan string, 1)
	ctrl := client.New(server.url(), client.Callbacks{
		OnError: func(code, message string) { errs <- code },
	})
	t.Cleanup(ctrl.Close)
	require.NoError(t, ctrl.Connect(context.Background()))
	conn := server.accept(t)

	require.NoError(t, ctrl.JoinSession("ghost", "bob"))
	readEnvelope(t, conn)
	writeMessage(t, conn, protocol.Error{
		Type:      protocol.TypeError,
		Message:   "session not found",
		ErrorCode: protocol.CodeSessionNotFound,
	})

	select {
	case code := <-errs:
		assert.Equal(t, protocol.CodeSessionNotFound, code)
	case <-time.After(2 * time.Second):
		t.Fatal("error callback never fired")
	}
	assert.Equal(t, client.StateConnected, ctrl.State(), "a missing session means roomless, not reconnecting")
}

func TestController_Reconnect_RejoinsWithRememberedSession(t *testing.T) {
	server := startWSServer(t)
	scheduled := make(chan time.Duration, 1)
	ctrl := client.New(server.url(), client.Callbacks{
		OnReconnectScheduled: func(delay time.Duration) { scheduled <- delay },
	})
	t.Cleanup(ctrl.Close)
	require.NoError(t, ctrl.Connect(context.Background()))
	conn := server.accept(t)

	require.NoError(t, ctrl.JoinSession("sess-1", "bob"))
	readEnvelope(t, conn)
	writeMessage(t, conn, protocol.SessionJoined{Type: protocol.TypeSessionJoined, SessionID: "sess-1"})
	require.Eventually(t, func() bool { return ctrl.State() == client.StateInRoom }, 2*time.Second, 10*time.Millisecond)

	// Kill the connection server-side; the controller schedules a rejoin.
	conn.Close()
	select {
	case delay := <-scheduled:
		assert.Equal(t, client.DefaultReconnectDelay, delay)
	case <-time.After(2 * time.Second):
		t.Fatal("reconnect was never scheduled")
	}
	assert.Equal(t, client.StateReconnecting, ctrl.State())

	// Manual rejoin skips the countdown.
	ctrl.RejoinNow()
	conn2 := server.accept(t)
	env := readEnvelope(t, conn2)
	require.Equal(t, protocol.TypeJoinSession, env.Type)
	var join protocol.JoinSession
	require.NoError(t, env.Into(&join))
	assert.Equal(t, "sess-1", join.SessionID, "rejoin reuses the remembered session id")
	assert.Equal(t, "bob", join.UserName)
}
