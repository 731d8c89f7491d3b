package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"collabcanvas/internal/domain"
	"collabcanvas/internal/protocol"
	"collabcanvas/internal/registry"
	"collabcanvas/internal/repository"
)

// SessionService is the CRUD face of session management: the thin
// request/response surface the frontend and the gesture process use,
// sharing the store with the realtime registry.
type SessionService struct {
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	stateRepo   repository.StateRepository
	registry    *registry.Registry
}

// NewSessionService creates the service.
func NewSessionService(sessionRepo repository.SessionRepository, userRepo repository.UserRepository,
	stateRepo repository.StateRepository, reg *registry.Registry) *SessionService {
	if sessionRepo == nil || userRepo == nil || stateRepo == nil || reg == nil {
		panic("all dependencies must be non-nil for SessionService")
	}
	return &SessionService{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		stateRepo:   stateRepo,
		registry:    reg,
	}
}

// CreateSession registers a new session record and its creator, without
// opening a live room; the creator's websocket join brings it live.
func (s *SessionService) CreateSession(ctx context.Context, sessionID, roomID, userName string) (string, error) {
	logCtx := logrus.WithFields(logrus.Fields{"session_id": sessionID, "room_id": roomID, "user_name": userName})

	taken, err := s.sessionRepo.ExistsByIDs(ctx, sessionID, roomID)
	if err != nil {
		logCtx.WithError(err).Error("SessionService: failed to check id availability")
		return "", ErrInternalServer
	}
	if taken {
		return "", ErrDuplicateSession
	}

	now := time.Now().UTC()
	session := &domain.Session{
		SessionID:   sessionID,
		RoomID:      roomID,
		CreatedBy:   userName,
		LastUpdated: now,
	}
	if err := session.SetParticipants([]domain.Participant{{Name: userName, JoinedAt: now}}); err != nil {
		logCtx.WithError(err).Error("SessionService: failed to encode roster")
		return "", ErrInternalServer
	}
	if err := s.sessionRepo.Save(ctx, session); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return "", ErrDuplicateSession
		}
		logCtx.WithError(err).Error("SessionService: failed to persist session")
		return "", ErrInternalServer
	}

	userID := uuid.NewString()
	user := &domain.User{
		UserID:     userID,
		UserName:   userName,
		SessionID:  sessionID,
		RoomID:     roomID,
		LastActive: now,
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		logCtx.WithError(err).Error("SessionService: failed to persist creator record")
		return "", ErrInternalServer
	}

	logCtx.Info("SessionService: session created")
	return userID, nil
}

// ValidationResult is the reply to a validate call.
type ValidationResult struct {
	SessionID        string `json:"sessionId"`
	RoomID           string `json:"roomId"`
	CreatedBy        string `json:"createdBy"`
	ParticipantCount int    `json:"participantCount"`
	UserID           string `json:"userId"`
}

// ValidateSession confirms a session is joinable and hands the caller a
// user id, reusing the existing one for a returning name.
func (s *SessionService) ValidateSession(ctx context.Context, sessionID, userName string) (*ValidationResult, error) {
	session, err := s.findLiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	roster, err := session.ParseParticipants()
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("SessionService: corrupt roster")
		return nil, ErrInternalServer
	}

	now := time.Now().UTC()
	userID := ""
	existing, err := s.userRepo.FindByNameAndSession(ctx, userName, sessionID)
	switch {
	case err == nil:
		userID = existing.UserID
		if err := s.userRepo.TouchLastActive(ctx, userID, now); err != nil {
			logrus.WithError(err).WithField("user_id", userID).Warn("SessionService: failed to touch last_active")
		}
	case errors.Is(err, repository.ErrUserNotFound):
		userID = uuid.NewString()
		user := &domain.User{
			UserID:     userID,
			UserName:   userName,
			SessionID:  sessionID,
			RoomID:     session.RoomID,
			LastActive: now,
		}
		if err := s.userRepo.Save(ctx, user); err != nil {
			logrus.WithError(err).WithField("session_id", sessionID).Error("SessionService: failed to persist participation record")
			return nil, ErrInternalServer
		}
	default:
		logrus.WithError(err).WithField("session_id", sessionID).Error("SessionService: user lookup failed")
		return nil, ErrInternalServer
	}

	return &ValidationResult{
		SessionID:        session.SessionID,
		RoomID:           session.RoomID,
		CreatedBy:        session.CreatedBy,
		ParticipantCount: len(roster),
		UserID:           userID,
	}, nil
}

// SessionDetail is the full record returned by GetSession, rasters
// wrapped as data-URIs.
type SessionDetail struct {
	SessionID        string               `json:"sessionId"`
	RoomID           string               `json:"roomId"`
	CreatedBy        string               `json:"createdBy"`
	Participants     []domain.Participant `json:"participants"`
	CreatedAt        time.Time            `json:"createdAt"`
	CanvasData       string               `json:"canvasData"`
	DrawingLayerData string               `json:"drawingLayerData"`
}

// GetSession returns the full session record.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*SessionDetail, error) {
	session, err := s.findLiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	roster, err := session.ParseParticipants()
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("SessionService: corrupt roster")
		return nil, ErrInternalServer
	}
	return &SessionDetail{
		SessionID:        session.SessionID,
		RoomID:           session.RoomID,
		CreatedBy:        session.CreatedBy,
		Participants:     roster,
		CreatedAt:        session.CreatedAt,
		CanvasData:       wrapDataURI(session.CanvasData),
		DrawingLayerData: wrapDataURI(session.DrawingLayerData),
	}, nil
}

// ListActive returns all sessions updated within the retention window,
// raster payloads omitted.
func (s *SessionService) ListActive(ctx context.Context) ([]registry.ActiveSession, error) {
	active, err := s.registry.ListActive(ctx)
	if err != nil {
		logrus.WithError(err).Error("SessionService: active listing failed")
		return nil, ErrInternalServer
	}
	return active, nil
}

// UpdateCanvas overwrites one raster layer from the CRUD surface. This
// path persists synchronously (the caller gets the failure), then
// refreshes the live room and pushes the snapshot to connected members.
func (s *SessionService) UpdateCanvas(ctx context.Context, sessionID, payload string, isDrawingLayer bool) error {
	logCtx := logrus.WithFields(logrus.Fields{"session_id": sessionID, "drawing_layer": isDrawingLayer})

	now := time.Now().UTC()
	if err := s.sessionRepo.UpdateCanvas(ctx, sessionID, payload, isDrawingLayer, now); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		logCtx.WithError(err).Error("SessionService: canvas persistence failed")
		return ErrInternalServer
	}
	if err := s.stateRepo.UpdateSnapshotCache(ctx, sessionID, payload, isDrawingLayer, domain.SessionRetention); err != nil {
		logCtx.WithError(err).Warn("SessionService: failed to update snapshot cache")
	}

	if s.registry.ApplyExternalCanvas(sessionID, payload, isDrawingLayer) {
		var message []byte
		if isDrawingLayer {
			message = protocol.Marshal(protocol.DrawingUpdate{Type: protocol.TypeDrawingUpdate, Drawing: payload})
		} else {
			message = protocol.Marshal(protocol.CanvasUpdate{Type: protocol.TypeCanvasUpdate, Canvas: payload})
		}
		s.registry.Broadcast(sessionID, message, nil)
	}
	return nil
}

// CheckRoomAvailability reports whether a room id is free.
func (s *SessionService) CheckRoomAvailability(ctx context.Context, roomID string) (bool, error) {
	taken, err := s.sessionRepo.ExistsByIDs(ctx, "", roomID)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("SessionService: availability check failed")
		return false, ErrInternalServer
	}
	return !taken, nil
}

// findLiveSession loads a session and filters out expired ones, so a
// session stops resolving the moment it ages out, not only after the
// background sweep removes it.
func (s *SessionService) findLiveSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.sessionRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		logrus.WithError(err).WithField("session_id", sessionID).Error("SessionService: session lookup failed")
		return nil, ErrInternalServer
	}
	if session.Expired(time.Now().UTC()) {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// wrapDataURI ensures a stored raster reads back as a data-URI.
func wrapDataURI(payload string) string {
	if payload == "" || strings.HasPrefix(payload, "data:") {
		return payload
	}
	return "data:image/png;base64," + payload
}
