package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collabcanvas/internal/repository"
	"collabcanvas/internal/repository/mocks"
	"collabcanvas/internal/tasks"
	"collabcanvas/internal/worker"
)

func TestCanvasPersistHandler_WritesSnapshot(t *testing.T) {
	sessionRepo := new(mocks.SessionRepository)
	handler := worker.NewCanvasPersistHandler(sessionRepo)
	updatedAt := time.Now().UTC().Truncate(time.Second)

	task, err := tasks.NewCanvasPersistTask("sess-1", "overlay-v3", true, updatedAt)
	require.NoError(t, err)

	sessionRepo.On("UpdateCanvas", mock.Anything, "sess-1", "overlay-v3", true, updatedAt).Return(nil).Once()

	assert.NoError(t, handler.ProcessTask(context.Background(), task))
	sessionRepo.AssertExpectations(t)
}

func TestCanvasPersistHandler_SessionGoneIsDropped(t *testing.T) {
	sessionRepo := new(mocks.SessionRepository)
	handler := worker.NewCanvasPersistHandler(sessionRepo)

	task, err := tasks.NewCanvasPersistTask("sess-gone", "x", false, time.Now().UTC())
	require.NoError(t, err)

	sessionRepo.On("UpdateCanvas", mock.Anything, "sess-gone", "x", false, mock.AnythingOfType("time.Time")).
		Return(repository.ErrSessionNotFound).Once()

	// An aged-out session is not worth retrying.
	assert.NoError(t, handler.ProcessTask(context.Background(), task))
}

func TestCanvasPersistHandler_StoreFailureRetries(t *testing.T) {
	sessionRepo := new(mocks.SessionRepository)
	handler := worker.NewCanvasPersistHandler(sessionRepo)

	task, err := tasks.NewCanvasPersistTask("sess-1", "x", false, time.Now().UTC())
	require.NoError(t, err)

	sessionRepo.On("UpdateCanvas", mock.Anything, "sess-1", "x", false, mock.AnythingOfType("time.Time")).
		Return(errors.New("connection refused")).Once()

	assert.Error(t, handler.ProcessTask(context.Background(), task))
}

func TestCanvasPersistHandler_BadPayloadSkipsRetry(t *testing.T) {
	sessionRepo := new(mocks.SessionRepository)
	handler := worker.NewCanvasPersistHandler(sessionRepo)

	task := asynq.NewTask(tasks.TypeCanvasPersist, []byte("{not json"))

	err := handler.ProcessTask(context.Background(), task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	sessionRepo.AssertNotCalled(t, "UpdateCanvas", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
