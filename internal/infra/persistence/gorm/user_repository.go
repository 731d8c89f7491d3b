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

// GormUserRepository is the GORM implementation of UserRepository.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates the repository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	if db == nil {
		panic("database connection cannot be nil for GormUserRepository")
	}
	return &GormUserRepository{db: db}
}

// FindByNameAndSession returns one participation record.
func (r *GormUserRepository) FindByNameAndSession(ctx context.Context, userName, sessionID string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("user_name = ? AND session_id = ?", userName, sessionID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("gorm: find user '%s' in session '%s': %w", userName, sessionID, err)
	}
	return &user, nil
}

// Save creates or updates a participation record.
func (r *GormUserRepository) Save(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Save(user).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save user (user_id: %s): %w", user.UserID, err)
	}
	return nil
}

// TouchLastActive bumps the LastActive timestamp.
func (r *GormUserRepository) TouchLastActive(ctx context.Context, userID string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("user_id = ?", userID).
		Update("last_active", at).Error
	if err != nil {
		return fmt.Errorf("gorm: touch last_active for user '%s': %w", userID, err)
	}
	return nil
}

// DeleteBySessionIDs removes participation records for expired sessions.
func (r *GormUserRepository) DeleteBySessionIDs(ctx context.Context, sessionIDs []string) error {
	if len(sessionIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Where("session_id IN ?", sessionIDs).
		Delete(&domain.User{}).Error
	if err != nil {
		return fmt.Errorf("gorm: delete users by session ids: %w", err)
	}
	return nil
}
