// Package http holds the gin handlers for the CRUD surface.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collabcanvas/internal/service"
)

// SessionHandler serves the session CRUD endpoints.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates the handler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// CreateSessionRequest is the body of POST /sessions/create.
type CreateSessionRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	RoomID    string `json:"roomId" binding:"required"`
	UserName  string `json:"userName" binding:"required"`
}

// Create handles POST /sessions/create.
func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.Create: invalid input")
		ErrorResponse(c, http.StatusBadRequest, "sessionId, roomId and userName are required")
		return
	}

	userID, err := h.sessionService.CreateSession(c.Request.Context(), req.SessionID, req.RoomID, req.UserName)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, gin.H{
		"success":   true,
		"sessionId": req.SessionID,
		"roomId":    req.RoomID,
		"userId":    userID,
	})
}

// ValidateSessionRequest is the body of POST /sessions/validate.
type ValidateSessionRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	UserName  string `json:"userName" binding:"required"`
}

// Validate handles POST /sessions/validate.
func (h *SessionHandler) Validate(c *gin.Context) {
	var req ValidateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.Validate: invalid input")
		ErrorResponse(c, http.StatusBadRequest, "sessionId and userName are required")
		return
	}

	result, err := h.sessionService.ValidateSession(c.Request.Context(), req.SessionID, req.UserName)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, result)
}

// Get handles GET /sessions/:sessionId. The id "active" is special-cased
// to list every session updated within the retention window, raster
// payloads omitted.
func (h *SessionHandler) Get(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "active" {
		active, err := h.sessionService.ListActive(c.Request.Context())
		if err != nil {
			HandleServiceError(c, err)
			return
		}
		SuccessResponse(c, http.StatusOK, gin.H{"success": true, "sessions": active})
		return
	}

	detail, err := h.sessionService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, detail)
}

// UpdateCanvasRequest is the body of POST /sessions/update-canvas.
// CanvasData may legitimately be empty (a cleared layer), so only the
// session id is required.
type UpdateCanvasRequest struct {
	SessionID      string `json:"sessionId" binding:"required"`
	CanvasData     string `json:"canvasData"`
	IsDrawingLayer bool   `json:"isDrawingLayer"`
}

// UpdateCanvas handles POST /sessions/update-canvas.
func (h *SessionHandler) UpdateCanvas(c *gin.Context) {
	var req UpdateCanvasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.UpdateCanvas: invalid input")
		ErrorResponse(c, http.StatusBadRequest, "sessionId is required")
		return
	}

	if err := h.sessionService.UpdateCanvas(c.Request.Context(), req.SessionID, req.CanvasData, req.IsDrawingLayer); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"success": true})
}

// CheckAvailabilityRequest is the body of POST /rooms/check-availability.
type CheckAvailabilityRequest struct {
	RoomID string `json:"roomId" binding:"required"`
}

// CheckAvailability handles POST /rooms/check-availability.
func (h *SessionHandler) CheckAvailability(c *gin.Context) {
	var req CheckAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CheckAvailability: invalid input")
		ErrorResponse(c, http.StatusBadRequest, "roomId is required")
		return
	}

	available, err := h.sessionService.CheckRoomAvailability(c.Request.Context(), req.RoomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"available": available})
}
