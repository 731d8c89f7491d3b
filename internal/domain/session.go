// Package domain defines the persistent data models of the application.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// SessionRetention is how long a session stays valid after creation.
// Once CreatedAt is older than this, the session is no longer eligible
// for join/validate lookups and the expiry sweep may remove it.
const SessionRetention = 24 * time.Hour

// Session is the durable record of one collaborative drawing room.
type Session struct {
	ID               uint      `gorm:"primaryKey"`
	SessionID        string    `gorm:"uniqueIndex;size:191;not null"` // routing key for all protocol messages
	RoomID           string    `gorm:"uniqueIndex;size:191;not null"` // discovery identifier, 1:1 with SessionID
	CreatedBy        string    `gorm:"size:191;not null"`
	Participants     string    `gorm:"type:text"` // JSON array of Participant, append-only
	CanvasData       string    `gorm:"type:longtext"`
	DrawingLayerData string    `gorm:"type:longtext"`
	LastUpdated      time.Time `gorm:"index"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index"`
}

// Participant is one entry of a session's roster.
type Participant struct {
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

// ParseParticipants decodes the JSON roster column.
func (s *Session) ParseParticipants() ([]Participant, error) {
	if s.Participants == "" || s.Participants == "null" {
		return []Participant{}, nil
	}
	var list []Participant
	if err := json.Unmarshal([]byte(s.Participants), &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal participants: %w", err)
	}
	return list, nil
}

// SetParticipants encodes the roster back into the JSON column.
func (s *Session) SetParticipants(list []Participant) error {
	bytes, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to marshal participants: %w", err)
	}
	s.Participants = string(bytes)
	return nil
}

// AddParticipant appends a participant unless the name is already on the
// roster. Returns the updated roster and whether it grew.
func (s *Session) AddParticipant(name string, joinedAt time.Time) ([]Participant, bool, error) {
	list, err := s.ParseParticipants()
	if err != nil {
		return nil, false, err
	}
	for _, p := range list {
		if p.Name == name {
			return list, false, nil
		}
	}
	list = append(list, Participant{Name: name, JoinedAt: joinedAt})
	if err := s.SetParticipants(list); err != nil {
		return nil, false, err
	}
	return list, true, nil
}

// Expired reports whether the session has aged out of the retention window.
func (s *Session) Expired(now time.Time) bool {
	return now.Sub(s.CreatedAt) > SessionRetention
}
