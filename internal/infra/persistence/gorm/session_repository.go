// Package gormpersistence implements the durable repositories on GORM/MySQL.
package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"collabcanvas/internal/domain"
	"collabcanvas/internal/repository"
)

// GormSessionRepository is the GORM implementation of SessionRepository.
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates the repository.
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	if db == nil {
		panic("database connection cannot be nil for GormSessionRepository")
	}
	return &GormSessionRepository{db: db}
}

// FindBySessionID looks a session up by its routing key.
func (r *GormSessionRepository) FindBySessionID(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}
		return nil, fmt.Errorf("gorm: find session '%s': %w", sessionID, err)
	}
	return &session, nil
}

// Save creates or updates a session record.
func (r *GormSessionRepository) Save(ctx context.Context, session *domain.Session) error {
	err := r.db.WithContext(ctx).Save(session).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save session (session_id: %s, room_id: %s): %w", session.SessionID, session.RoomID, err)
	}
	return nil
}

// ExistsByIDs checks both unique identifiers in one query.
func (r *GormSessionRepository) ExistsByIDs(ctx context.Context, sessionID, roomID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("session_id = ? OR room_id = ?", sessionID, roomID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: count sessions by ids ('%s', '%s'): %w", sessionID, roomID, err)
	}
	return count > 0, nil
}

// UpdateCanvas overwrites one raster column and bumps last_updated.
func (r *GormSessionRepository) UpdateCanvas(ctx context.Context, sessionID, payload string, isDrawingLayer bool, updatedAt time.Time) error {
	column := "canvas_data"
	if isDrawingLayer {
		column = "drawing_layer_data"
	}
	result := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			column:         payload,
			"last_updated": updatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("gorm: update %s for session '%s': %w", column, sessionID, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}
	return nil
}

// FindActiveSince returns sessions updated at or after the cutoff, newest first.
func (r *GormSessionRepository) FindActiveSince(ctx context.Context, cutoff time.Time) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.WithContext(ctx).
		Where("last_updated >= ?", cutoff).
		Order("last_updated DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find active sessions since %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return sessions, nil
}

// FindCreatedBefore returns sessions created before the cutoff.
func (r *GormSessionRepository) FindCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find sessions created before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return sessions, nil
}

// DeleteCreatedBefore removes expired sessions.
func (r *GormSessionRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("gorm: delete sessions created before %s: %w", cutoff.Format(time.RFC3339), result.Error)
	}
	return result.RowsAffected, nil
}
