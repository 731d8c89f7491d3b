package repository

import (
	"context"
	"time"

	"collabcanvas/internal/domain"
)

// SessionRepository defines durable storage for session records.
type SessionRepository interface {
	// FindBySessionID looks a session up by its routing key.
	// Returns ErrSessionNotFound when absent.
	FindBySessionID(ctx context.Context, sessionID string) (*domain.Session, error)

	// Save creates or updates a session record. A unique-constraint
	// violation (sessionId or roomId taken) maps to ErrDuplicateEntry.
	Save(ctx context.Context, session *domain.Session) error

	// ExistsByIDs reports whether any session already uses the given
	// sessionID or roomID. Either collision is unacceptable, so both
	// are checked in one query.
	ExistsByIDs(ctx context.Context, sessionID, roomID string) (bool, error)

	// UpdateCanvas overwrites one of the two raster columns and bumps
	// LastUpdated. isDrawingLayer selects the overlay column.
	UpdateCanvas(ctx context.Context, sessionID, payload string, isDrawingLayer bool, updatedAt time.Time) error

	// FindActiveSince returns sessions whose LastUpdated is at or after
	// the cutoff, newest first.
	FindActiveSince(ctx context.Context, cutoff time.Time) ([]domain.Session, error)

	// FindCreatedBefore returns sessions created before the cutoff.
	// Used by the expiry sweep to collect what to remove.
	FindCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.Session, error)

	// DeleteCreatedBefore removes sessions created before the cutoff and
	// returns how many were deleted. Used by the expiry sweep only.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
