// Package redisstate implements the StateRepository on Redis: snapshot
// caching for join replay, the upstream frame channel, token revocation
// and rate limiting.
package redisstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"collabcanvas/internal/repository"
)

// RedisStateRepository is the Redis implementation of StateRepository.
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStateRepository creates the repository. keyPrefix namespaces
// all keys, e.g. "cc:".
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "cc:"
	}
	return &RedisStateRepository{client: client, keyPrefix: keyPrefix}
}

// --- Key helpers ---

func (r *RedisStateRepository) snapshotKey(sessionID string) string {
	return fmt.Sprintf("%ssession:%s:snapshot", r.keyPrefix, sessionID)
}

func (r *RedisStateRepository) frameChannel(sessionID string) string {
	return fmt.Sprintf("%ssession:%s:frames", r.keyPrefix, sessionID)
}

func (r *RedisStateRepository) revokedKey(jti string) string {
	return fmt.Sprintf("%srevoked:%s", r.keyPrefix, jti)
}

func (r *RedisStateRepository) rateLimitKey(key string) string {
	return fmt.Sprintf("%sratelimit:%s", r.keyPrefix, key)
}

const (
	fieldCanvas  = "canvas"
	fieldDrawing = "drawing"
)

// GetSnapshotCache returns both cached raster snapshots for a session.
func (r *RedisStateRepository) GetSnapshotCache(ctx context.Context, sessionID string) (string, string, error) {
	key := r.snapshotKey(sessionID)
	values, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return "", "", fmt.Errorf("redis: get snapshot cache for session '%s': %w", sessionID, err)
	}
	if len(values) == 0 {
		return "", "", repository.ErrNotFound
	}
	return values[fieldCanvas], values[fieldDrawing], nil
}

// SetSnapshotCache stores both raster snapshots with a TTL.
func (r *RedisStateRepository) SetSnapshotCache(ctx context.Context, sessionID, canvas, drawing string, ttl time.Duration) error {
	key := r.snapshotKey(sessionID)
	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, fieldCanvas, canvas, fieldDrawing, drawing)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set snapshot cache for session '%s': %w", sessionID, err)
	}
	return nil
}

// UpdateSnapshotCache overwrites a single layer of the cached pair.
func (r *RedisStateRepository) UpdateSnapshotCache(ctx context.Context, sessionID, payload string, isDrawingLayer bool, ttl time.Duration) error {
	key := r.snapshotKey(sessionID)
	field := fieldCanvas
	if isDrawingLayer {
		field = fieldDrawing
	}
	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, field, payload)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: update %s cache for session '%s': %w", field, sessionID, err)
	}
	return nil
}

// ClearSessionState removes all cached keys for a session.
func (r *RedisStateRepository) ClearSessionState(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.snapshotKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis: clear state for session '%s': %w", sessionID, err)
	}
	return nil
}

// PublishFrame forwards one frame to the per-session upstream channel.
func (r *RedisStateRepository) PublishFrame(ctx context.Context, sessionID string, frame string) error {
	if err := r.client.Publish(ctx, r.frameChannel(sessionID), frame).Err(); err != nil {
		return fmt.Errorf("redis: publish frame for session '%s': %w", sessionID, err)
	}
	return nil
}

// RevokeToken marks a token id invalid until its natural expiry.
func (r *RedisStateRepository) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Already past expiry, nothing to revoke.
		return nil
	}
	if err := r.client.Set(ctx, r.revokedKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis: revoke token '%s': %w", jti, err)
	}
	return nil
}

// IsTokenRevoked reports whether a token id has been revoked.
func (r *RedisStateRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	_, err := r.client.Get(ctx, r.revokedKey(jti)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis: check revoked token '%s': %w", jti, err)
	}
	return true, nil
}

// CheckRateLimit increments the counter for key and reports whether the
// caller exceeded limit within the window.
func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := r.rateLimitKey(key)
	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit check for '%s': %w", key, err)
	}
	return incr.Val() > int64(limit), nil
}
