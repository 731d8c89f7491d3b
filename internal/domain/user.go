package domain

import "time"

// User is one participation record: a named user inside one session.
// Several User rows may reference the same session, one per participant.
// Uniqueness of (UserName, SessionID) is enforced at the application
// layer, not by a database constraint.
type User struct {
	ID         uint      `gorm:"primaryKey"`
	UserID     string    `gorm:"uniqueIndex;size:191;not null"` // server-generated uuid
	UserName   string    `gorm:"index;size:191;not null"`
	SessionID  string    `gorm:"index;size:191;not null"`
	RoomID     string    `gorm:"size:191;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	LastActive time.Time `gorm:"index"`
}
