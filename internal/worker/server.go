// Package worker runs the asynq server: canvas write-behind persistence
// and the periodic session-expiry sweep.
package worker

import (
	"context"
	"errors"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collabcanvas/internal/repository"
	"collabcanvas/internal/tasks"
)

// WorkerServer wraps the asynq server lifecycle.
type WorkerServer struct {
	server      *asynq.Server
	log         *logrus.Entry
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	stateRepo   repository.StateRepository
}

// NewWorkerServer creates the server and its handler dependencies.
func NewWorkerServer(redisOpt asynq.RedisClientOpt, sessionRepo repository.SessionRepository,
	userRepo repository.UserRepository, stateRepo repository.StateRepository, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	return &WorkerServer{
		server:      server,
		log:         logEntry,
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		stateRepo:   stateRepo,
	}
}

// Start runs the worker server. Call from its own goroutine.
func (ws *WorkerServer) Start() {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeCanvasPersist, NewCanvasPersistHandler(ws.sessionRepo).ProcessTask)
	mux.HandleFunc(tasks.TypeSessionExpiry, NewExpiryHandler(ws.sessionRepo, ws.userRepo, ws.stateRepo).ProcessTask)

	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(mux); err != nil {
		if !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		} else {
			ws.log.Info("Worker server stopped.")
		}
	}
}

// Shutdown stops the worker server gracefully.
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
