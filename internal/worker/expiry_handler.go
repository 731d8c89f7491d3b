package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collabcanvas/internal/domain"
	"collabcanvas/internal/repository"
)

// ExpiryHandler is the periodic sweep that removes sessions past the
// retention window, along with their participation records and cached
// state. Deletion only ever happens here; the application itself never
// deletes a session.
type ExpiryHandler struct {
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	stateRepo   repository.StateRepository
}

// NewExpiryHandler creates the handler.
func NewExpiryHandler(sessionRepo repository.SessionRepository, userRepo repository.UserRepository,
	stateRepo repository.StateRepository) *ExpiryHandler {
	if sessionRepo == nil || userRepo == nil || stateRepo == nil {
		panic("all repositories must be non-nil for ExpiryHandler")
	}
	return &ExpiryHandler{sessionRepo: sessionRepo, userRepo: userRepo, stateRepo: stateRepo}
}

// ProcessTask implements asynq.Handler.
func (h *ExpiryHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	cutoff := time.Now().UTC().Add(-domain.SessionRetention)
	logCtx := logrus.WithFields(logrus.Fields{"task_type": t.Type(), "cutoff": cutoff.Format(time.RFC3339)})

	expired, err := h.sessionRepo.FindCreatedBefore(ctx, cutoff)
	if err != nil {
		logCtx.WithError(err).Error("Expiry sweep: failed to list expired sessions")
		return err
	}
	if len(expired) == 0 {
		logCtx.Debug("Expiry sweep: nothing to remove")
		return nil
	}

	sessionIDs := make([]string, 0, len(expired))
	for i := range expired {
		sessionIDs = append(sessionIDs, expired[i].SessionID)
	}

	if err := h.userRepo.DeleteBySessionIDs(ctx, sessionIDs); err != nil {
		logCtx.WithError(err).Error("Expiry sweep: failed to delete participation records")
		return err
	}
	for _, id := range sessionIDs {
		if err := h.stateRepo.ClearSessionState(ctx, id); err != nil {
			// Cached keys carry their own TTL; losing this cleanup is benign.
			logCtx.WithError(err).WithField("session_id", id).Warn("Expiry sweep: failed to clear cached state")
		}
	}
	deleted, err := h.sessionRepo.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		logCtx.WithError(err).Error("Expiry sweep: failed to delete sessions")
		return err
	}

	logCtx.WithField("deleted", deleted).Info("Expiry sweep: removed expired sessions")
	return nil
}
