// Package websocket upgrades HTTP requests into hub clients.
package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"collabcanvas/internal/hub"
)

// WebSocketHandler upgrades connections onto the realtime endpoint.
// Session membership is negotiated in-band (create_session or
// join_session), so the URL carries no room identifier.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

// NewWebSocketHandler creates the handler.
func NewWebSocketHandler(h *hub.Hub) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// TODO: restrict to the configured frontend origin.
				return true
			},
		},
		hub: h,
	}
}

// HandleConnection handles GET /ws.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logrus.WithError(err).Error("WS Handler: failed to upgrade connection")
		return
	}

	client := hub.NewClient(h.hub, conn)
	if !h.hub.QueueMessage(hub.HubMessage{Type: "register", Client: client}) {
		logrus.Error("WS Handler: hub message channel full, dropping connection")
		client.CloseConn()
		return
	}
	client.Run()
}
