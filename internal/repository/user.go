package repository

import (
	"context"
	"time"

	"collabcanvas/internal/domain"
)

// UserRepository defines storage for participation records.
type UserRepository interface {
	// FindByNameAndSession returns the participation record for one
	// (userName, sessionID) pair, or ErrUserNotFound.
	FindByNameAndSession(ctx context.Context, userName, sessionID string) (*domain.User, error)

	// Save creates or updates a participation record.
	Save(ctx context.Context, user *domain.User) error

	// TouchLastActive bumps the LastActive timestamp for a user id.
	TouchLastActive(ctx context.Context, userID string, at time.Time) error

	// DeleteBySessionIDs removes participation records for the given
	// sessions. Used by the expiry sweep alongside session deletion.
	DeleteBySessionIDs(ctx context.Context, sessionIDs []string) error
}
