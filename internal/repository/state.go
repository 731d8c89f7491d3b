package repository

import (
	"context"
	"time"
)

// StateRepository defines the fast-path state operations, implemented on
// Redis: snapshot caching for join replay, the one-to-one upstream frame
// channel, bearer-token revocation, and rate-limit counters.
type StateRepository interface {
	// === Snapshot cache ===

	// GetSnapshotCache returns the cached (canvas, drawingLayer) pair
	// for a session. A cache miss returns ErrNotFound.
	GetSnapshotCache(ctx context.Context, sessionID string) (canvas, drawing string, err error)

	// SetSnapshotCache stores both raster snapshots with a TTL.
	SetSnapshotCache(ctx context.Context, sessionID, canvas, drawing string, ttl time.Duration) error

	// UpdateSnapshotCache overwrites a single layer of the cached pair.
	UpdateSnapshotCache(ctx context.Context, sessionID, payload string, isDrawingLayer bool, ttl time.Duration) error

	// ClearSessionState removes all cached keys for a session.
	ClearSessionState(ctx context.Context, sessionID string) error

	// === Upstream frame channel ===

	// PublishFrame forwards one webcam frame to the per-session channel
	// consumed by the external gesture process. Never fanned out to peers.
	PublishFrame(ctx context.Context, sessionID string, frame string) error

	// === Token revocation ===

	// RevokeToken marks a token id invalid until its natural expiry.
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error

	// IsTokenRevoked reports whether a token id has been revoked.
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)

	// === Rate limiting ===

	// CheckRateLimit increments the counter for key and reports whether
	// the caller exceeded limit within the window.
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
