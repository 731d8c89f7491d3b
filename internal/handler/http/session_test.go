package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collabcanvas/internal/domain"
	httphandler "collabcanvas/internal/handler/http"
	"collabcanvas/internal/registry"
	"collabcanvas/internal/repository"
	"collabcanvas/internal/repository/mocks"
	"collabcanvas/internal/service"
)

type noopPersister struct{}

func (noopPersister) EnqueueCanvasPersist(sessionID, payload string, isDrawingLayer bool, updatedAt time.Time) error {
	return nil
}

type handlerEnv struct {
	router      *gin.Engine
	sessionRepo *mocks.SessionRepository
	userRepo    *mocks.UserRepository
	stateRepo   *mocks.StateRepository
}

func newHandlerEnv() *handlerEnv {
	gin.SetMode(gin.TestMode)
	sessionRepo := new(mocks.SessionRepository)
	userRepo := new(mocks.UserRepository)
	stateRepo := new(mocks.StateRepository)
	reg := registry.New(sessionRepo, userRepo, stateRepo, noopPersister{})
	svc := service.NewSessionService(sessionRepo, userRepo, stateRepo, reg)
	handler := httphandler.NewSessionHandler(svc)

	router := gin.New()
	api := router.Group("/api")
	sessions := api.Group("/sessions")
	{
		sessions.POST("/create", handler.Create)
		sessions.POST("/validate", handler.Validate)
		sessions.POST("/update-canvas", handler.UpdateCanvas)
		sessions.GET("/:sessionId", handler.Get)
	}
	api.POST("/rooms/check-availability", handler.CheckAvailability)

	return &handlerEnv{router: router, sessionRepo: sessionRepo, userRepo: userRepo, stateRepo: stateRepo}
}

func (e *handlerEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSessionHandler_Create_Success(t *testing.T) {
	env := newHandlerEnv()
	env.sessionRepo.On("ExistsByIDs", mock.Anything, "sess-1", "room-1").Return(false, nil).Once()
	env.sessionRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil).Once()
	env.userRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil).Once()

	rec := env.do(t, http.MethodPost, "/api/sessions/create", gin.H{
		"sessionId": "sess-1",
		"roomId":    "room-1",
		"userName":  "alice",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "sess-1", body["sessionId"])
	assert.NotEmpty(t, body["userId"])
}

func TestSessionHandler_Create_MissingFields(t *testing.T) {
	env := newHandlerEnv()

	rec := env.do(t, http.MethodPost, "/api/sessions/create", gin.H{"sessionId": "sess-1"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	env.sessionRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSessionHandler_Create_Duplicate(t *testing.T) {
	env := newHandlerEnv()
	env.sessionRepo.On("ExistsByIDs", mock.Anything, "sess-1", "room-1").Return(true, nil).Once()

	rec := env.do(t, http.MethodPost, "/api/sessions/create", gin.H{
		"sessionId": "sess-1",
		"roomId":    "room-1",
		"userName":  "alice",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHandler_Validate(t *testing.T) {
	env := newHandlerEnv()
	stored := &domain.Session{SessionID: "sess-1", RoomID: "room-1", CreatedBy: "alice", CreatedAt: time.Now().UTC()}
	require.NoError(t, stored.SetParticipants([]domain.Participant{{Name: "alice"}}))
	env.sessionRepo.On("FindBySessionID", mock.Anything, "sess-1").Return(stored, nil).Once()
	env.userRepo.On("FindByNameAndSession", mock.Anything, "bob", "sess-1").
		Return(nil, repository.ErrUserNotFound).Once()
	env.userRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil).Once()

	rec := env.do(t, http.MethodPost, "/api/sessions/validate", gin.H{
		"sessionId": "sess-1",
		"userName":  "bob",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "sess-1", body["sessionId"])
	assert.Equal(t, float64(1), body["participantCount"])
	assert.NotEmpty(t, body["userId"])
}

func TestSessionHandler_Validate_NotFound(t *testing.T) {
	env := newHandlerEnv()
	env.sessionRepo.On("FindBySessionID", mock.Anything, "ghost").
		Return(nil, repository.ErrSessionNotFound).Once()

	rec := env.do(t, http.MethodPost, "/api/sessions/validate", gin.H{
		"sessionId": "ghost",
		"userName":  "bob",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionHandler_Get(t *testing.T) {
	env := newHandlerEnv()
	stored := &domain.Session{
		SessionID:  "sess-1",
		RoomID:     "room-1",
		CanvasData: "abc123",
		CreatedAt:  time.Now().UTC(),
	}
	env.sessionRepo.On("FindBySessionID", mock.Anything, "sess-1").Return(stored, nil).Once()

	rec := env.do(t, http.MethodGet, "/api/sessions/sess-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "data:image/png;base64,abc123", body["canvasData"])
}

func TestSessionHandler_Get_ActiveListing(t *testing.T) {
	env := newHandlerEnv()
	fresh := domain.Session{SessionID: "sess-1", RoomID: "room-1", LastUpdated: time.Now().UTC(), CreatedAt: time.Now().UTC()}
	env.sessionRepo.On("FindActiveSince", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]domain.Session{fresh}, nil).Once()

	rec := env.do(t, http.MethodGet, "/api/sessions/active", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	sessions, ok := body["sessions"].([]interface{})
	require.True(t, ok)
	assert.Len(t, sessions, 1)
}

func TestSessionHandler_UpdateCanvas(t *testing.T) {
	env := newHandlerEnv()
	env.sessionRepo.On("UpdateCanvas", mock.Anything, "sess-1", "payload", true, mock.AnythingOfType("time.Time")).
		Return(nil).Once()
	env.stateRepo.On("UpdateSnapshotCache", mock.Anything, "sess-1", "payload", true, mock.AnythingOfType("time.Duration")).
		Return(nil).Once()

	rec := env.do(t, http.MethodPost, "/api/sessions/update-canvas", gin.H{
		"sessionId":      "sess-1",
		"canvasData":     "payload",
		"isDrawingLayer": true,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["success"])
}

func TestSessionHandler_UpdateCanvas_SessionGone(t *testing.T) {
	env := newHandlerEnv()
	env.sessionRepo.On("UpdateCanvas", mock.Anything, "ghost", "", false, mock.AnythingOfType("time.Time")).
		Return(repository.ErrSessionNotFound).Once()

	rec := env.do(t, http.MethodPost, "/api/sessions/update-canvas", gin.H{"sessionId": "ghost"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionHandler_CheckAvailability(t *testing.T) {
	env := newHandlerEnv()
	env.sessionRepo.On("ExistsByIDs", mock.Anything, "", "room-1").Return(false, nil).Once()

	rec := env.do(t, http.MethodPost, "/api/rooms/check-availability", gin.H{"roomId": "room-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["available"])
}
