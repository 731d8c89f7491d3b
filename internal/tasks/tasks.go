// Package tasks defines the asynq task types and payloads shared by the
// enqueueing side and the worker.
package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type names.
const (
	TypeCanvasPersist = "canvas:persist"
	TypeSessionExpiry = "session:expiry"
)

// CanvasPersistPayload carries one raster snapshot to the durable store.
type CanvasPersistPayload struct {
	SessionID      string    `json:"session_id"`
	Payload        string    `json:"payload"`
	IsDrawingLayer bool      `json:"is_drawing_layer"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewCanvasPersistTask builds the canvas persistence task.
func NewCanvasPersistTask(sessionID, payload string, isDrawingLayer bool, updatedAt time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(CanvasPersistPayload{
		SessionID:      sessionID,
		Payload:        payload,
		IsDrawingLayer: isDrawingLayer,
		UpdatedAt:      updatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("tasks: marshal canvas persist payload: %w", err)
	}
	return asynq.NewTask(TypeCanvasPersist, body), nil
}

// NewSessionExpiryTask builds the periodic expiry sweep task; it carries
// no payload, the cutoff is computed at execution time.
func NewSessionExpiryTask() *asynq.Task {
	return asynq.NewTask(TypeSessionExpiry, nil)
}

// Enqueuer is the asynq-backed implementation of the registry's
// CanvasPersister.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer wraps an asynq client.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	if client == nil {
		panic("asynq client cannot be nil for Enqueuer")
	}
	return &Enqueuer{client: client}
}

// EnqueueCanvasPersist queues one snapshot write-behind.
func (e *Enqueuer) EnqueueCanvasPersist(sessionID, payload string, isDrawingLayer bool, updatedAt time.Time) error {
	task, err := NewCanvasPersistTask(sessionID, payload, isDrawingLayer, updatedAt)
	if err != nil {
		return err
	}
	_, err = e.client.Enqueue(task, asynq.Queue("default"), asynq.MaxRetry(3))
	if err != nil {
		return fmt.Errorf("tasks: enqueue canvas persist for session '%s': %w", sessionID, err)
	}
	return nil
}
