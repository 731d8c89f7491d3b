package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collabcanvas/internal/repository"
	"collabcanvas/internal/tasks"
)

// CanvasPersistHandler writes raster snapshots behind the broadcast.
// The fan-out already happened; a failure here is retried by asynq and
// never surfaces to room members.
type CanvasPersistHandler struct {
	sessionRepo repository.SessionRepository
}

// NewCanvasPersistHandler creates the handler.
func NewCanvasPersistHandler(sessionRepo repository.SessionRepository) *CanvasPersistHandler {
	if sessionRepo == nil {
		panic("SessionRepository cannot be nil for CanvasPersistHandler")
	}
	return &CanvasPersistHandler{sessionRepo: sessionRepo}
}

// ProcessTask implements asynq.Handler.
func (h *CanvasPersistHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.CanvasPersistPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// A payload we can't decode will never succeed; skip retries.
		return fmt.Errorf("canvas persist: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	logCtx := logrus.WithFields(logrus.Fields{
		"task_type":     t.Type(),
		"session_id":    payload.SessionID,
		"drawing_layer": payload.IsDrawingLayer,
	})

	err := h.sessionRepo.UpdateCanvas(ctx, payload.SessionID, payload.Payload, payload.IsDrawingLayer, payload.UpdatedAt)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			// The session aged out between broadcast and persist.
			logCtx.Warn("Canvas persist: session gone, dropping snapshot")
			return nil
		}
		logCtx.WithError(err).Error("Canvas persist: store write failed")
		return err
	}

	logCtx.Debug("Canvas persist: snapshot stored")
	return nil
}
