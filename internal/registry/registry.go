// Package registry owns the authoritative mapping from session id to live
// room state: the connected fan-out set, the roster, and the latest canvas
// and drawing-layer snapshots. The hub drives it for every realtime
// operation; the session store is the crash-durable mirror behind it.
package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"collabcanvas/internal/domain"
	"collabcanvas/internal/repository"
)

// Registry errors surfaced to the protocol layer.
var (
	ErrDuplicateSession = errors.New("registry: session or room id already taken")
	ErrSessionNotFound  = errors.New("registry: session not found")
)

// Conn is the handle the registry keeps per connected client. The hub's
// websocket client satisfies it; tests use channel doubles.
type Conn interface {
	// Send queues a message without blocking; false means the peer's
	// queue is full and the message was dropped.
	Send(message []byte) bool
	// UserName identifies the participant behind the connection.
	UserName() string
}

// CanvasPersister hands raster snapshots to the background persistence
// pipeline. Enqueue failures are logged, never surfaced to peers.
type CanvasPersister interface {
	EnqueueCanvasPersist(sessionID, payload string, isDrawingLayer bool, updatedAt time.Time) error
}

// room is the live state of one session. All mutation happens under its
// own mutex, so operations against one room are serialized while
// different rooms proceed in parallel.
type room struct {
	mu           sync.Mutex
	sessionID    string
	roomID       string
	createdBy    string
	participants []domain.Participant
	canvas       string
	drawing      string
	conns        map[Conn]struct{}
}

// JoinState is what a joining or rejoining client gets back: the roster
// and both snapshots for full-state replay.
type JoinState struct {
	Participants []domain.Participant
	Canvas       string
	Drawing      string
	Grew         bool // whether the roster gained a new name
}

// ActiveSession is one row of ListActive, raster payloads reduced to
// existence flags to bound response size.
type ActiveSession struct {
	SessionID     string    `json:"sessionId"`
	RoomID        string    `json:"roomId"`
	CreatedBy     string    `json:"createdBy"`
	Participants  int       `json:"participantCount"`
	HasCanvas     bool      `json:"hasCanvas"`
	HasDrawing    bool      `json:"hasDrawingLayer"`
	LastUpdated   time.Time `json:"lastUpdated"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Registry maps session ids to live rooms.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room

	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	stateRepo   repository.StateRepository
	persister   CanvasPersister

	snapshotTTL time.Duration
}

// New creates a Registry.
func New(sessionRepo repository.SessionRepository, userRepo repository.UserRepository,
	stateRepo repository.StateRepository, persister CanvasPersister) *Registry {
	if sessionRepo == nil || userRepo == nil || stateRepo == nil || persister == nil {
		panic("all dependencies must be non-nil for Registry")
	}
	return &Registry{
		rooms:       make(map[string]*room),
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		stateRepo:   stateRepo,
		persister:   persister,
		snapshotTTL: domain.SessionRetention,
	}
}

// CreateRoom registers a brand new session with its creator as the only
// participant. Either id colliding with an existing session fails the
// whole call with ErrDuplicateSession and no state change.
func (r *Registry) CreateRoom(ctx context.Context, sessionID, roomID, creatorName string, conn Conn) (int, error) {
	logCtx := logrus.WithFields(logrus.Fields{"session_id": sessionID, "room_id": roomID, "user_name": creatorName})

	r.mu.Lock()
	if _, live := r.rooms[sessionID]; live {
		r.mu.Unlock()
		return 0, ErrDuplicateSession
	}
	for _, existing := range r.rooms {
		if existing.roomID == roomID {
			r.mu.Unlock()
			return 0, ErrDuplicateSession
		}
	}
	r.mu.Unlock()

	taken, err := r.sessionRepo.ExistsByIDs(ctx, sessionID, roomID)
	if err != nil {
		logCtx.WithError(err).Error("Registry: failed to check id availability")
		return 0, err
	}
	if taken {
		return 0, ErrDuplicateSession
	}

	now := time.Now().UTC()
	session := &domain.Session{
		SessionID:   sessionID,
		RoomID:      roomID,
		CreatedBy:   creatorName,
		LastUpdated: now,
	}
	participants := []domain.Participant{{Name: creatorName, JoinedAt: now}}
	if err := session.SetParticipants(participants); err != nil {
		return 0, err
	}
	if err := r.sessionRepo.Save(ctx, session); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			// Lost a race against a concurrent create.
			return 0, ErrDuplicateSession
		}
		logCtx.WithError(err).Error("Registry: failed to persist new session")
		return 0, err
	}
	if err := r.saveUserRecord(ctx, creatorName, sessionID, roomID, now); err != nil {
		logCtx.WithError(err).Warn("Registry: failed to persist creator participation record")
	}

	newRoom := &room{
		sessionID:    sessionID,
		roomID:       roomID,
		createdBy:    creatorName,
		participants: participants,
		conns:        make(map[Conn]struct{}),
	}
	if conn != nil {
		newRoom.conns[conn] = struct{}{}
	}

	r.mu.Lock()
	r.rooms[sessionID] = newRoom
	r.mu.Unlock()

	logCtx.Info("Registry: room created")
	return len(participants), nil
}

// JoinRoom adds a participant to an existing session. A repeated name is
// an idempotent rejoin: the roster does not grow and the same snapshots
// come back. Returns ErrSessionNotFound when the session is neither live
// nor persisted within the retention window.
func (r *Registry) JoinRoom(ctx context.Context, sessionID, userName string, conn Conn) (*JoinState, error) {
	logCtx := logrus.WithFields(logrus.Fields{"session_id": sessionID, "user_name": userName})

	rm, err := r.getOrLoadRoom(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	grew := true
	for _, p := range rm.participants {
		if p.Name == userName {
			grew = false
			break
		}
	}

	now := time.Now().UTC()
	if grew {
		rm.participants = append(rm.participants, domain.Participant{Name: userName, JoinedAt: now})
		if err := r.persistRoster(ctx, sessionID, userName, now); err != nil {
			logCtx.WithError(err).Error("Registry: failed to persist roster growth")
			// The member is live either way; the store catches up on
			// the next successful write.
		}
		if err := r.saveUserRecord(ctx, userName, sessionID, rm.roomID, now); err != nil {
			logCtx.WithError(err).Warn("Registry: failed to persist participation record")
		}
	}

	if conn != nil {
		rm.conns[conn] = struct{}{}
	}

	roster := make([]domain.Participant, len(rm.participants))
	copy(roster, rm.participants)
	logCtx.WithField("participant_count", len(roster)).Info("Registry: participant joined")
	return &JoinState{
		Participants: roster,
		Canvas:       rm.canvas,
		Drawing:      rm.drawing,
		Grew:         grew,
	}, nil
}

// UpdateCanvas overwrites one raster layer wholesale. The in-memory copy
// and the Redis cache are written under the room lock; durable MySQL
// persistence is queued and never blocks or fails the caller.
func (r *Registry) UpdateCanvas(ctx context.Context, sessionID, payload string, isDrawingLayer bool) error {
	logCtx := logrus.WithFields(logrus.Fields{"session_id": sessionID, "drawing_layer": isDrawingLayer})

	rm, err := r.getOrLoadRoom(ctx, sessionID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	rm.mu.Lock()
	if isDrawingLayer {
		rm.drawing = payload
	} else {
		rm.canvas = payload
	}
	rm.mu.Unlock()

	if err := r.stateRepo.UpdateSnapshotCache(ctx, sessionID, payload, isDrawingLayer, r.snapshotTTL); err != nil {
		logCtx.WithError(err).Warn("Registry: failed to update snapshot cache")
	}
	if err := r.persister.EnqueueCanvasPersist(sessionID, payload, isDrawingLayer, now); err != nil {
		logCtx.WithError(err).Error("Registry: failed to enqueue canvas persistence")
	}
	return nil
}

// ApplyExternalCanvas overwrites the live in-memory copy of a raster
// layer when the write arrived over the CRUD surface (the gesture
// process posts canvas updates there). Reports whether the room was
// live; persistence is the caller's responsibility on that path.
func (r *Registry) ApplyExternalCanvas(sessionID, payload string, isDrawingLayer bool) bool {
	r.mu.RLock()
	rm, ok := r.rooms[sessionID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	rm.mu.Lock()
	if isDrawingLayer {
		rm.drawing = payload
	} else {
		rm.canvas = payload
	}
	rm.mu.Unlock()
	return true
}

// Broadcast fans a message out to every connection in the room except
// the sender. Slow peers are skipped rather than blocked on.
func (r *Registry) Broadcast(sessionID string, message []byte, sender Conn) {
	r.mu.RLock()
	rm, ok := r.rooms[sessionID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	rm.mu.Lock()
	targets := make([]Conn, 0, len(rm.conns))
	for c := range rm.conns {
		if c != sender {
			targets = append(targets, c)
		}
	}
	rm.mu.Unlock()

	for _, c := range targets {
		if !c.Send(message) {
			logrus.WithFields(logrus.Fields{
				"session_id": sessionID,
				"user_name":  c.UserName(),
			}).Warn("Registry: peer send queue full, message dropped")
		}
	}
}

// LeaveRoom removes a connection from the fan-out set. The persisted
// roster keeps the participant's name. Returns the roster and the number
// of connections still attached; an empty room is dropped from memory.
func (r *Registry) LeaveRoom(sessionID string, conn Conn) ([]domain.Participant, int) {
	r.mu.Lock()
	rm, ok := r.rooms[sessionID]
	if !ok {
		r.mu.Unlock()
		return nil, 0
	}

	rm.mu.Lock()
	delete(rm.conns, conn)
	remaining := len(rm.conns)
	roster := make([]domain.Participant, len(rm.participants))
	copy(roster, rm.participants)
	rm.mu.Unlock()

	if remaining == 0 {
		delete(r.rooms, sessionID)
	}
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{"session_id": sessionID, "remaining": remaining}).Info("Registry: connection left room")
	return roster, remaining
}

// ListActive returns all sessions updated within the retention window,
// newest first, with raster payloads reduced to existence flags.
func (r *Registry) ListActive(ctx context.Context) ([]ActiveSession, error) {
	cutoff := time.Now().UTC().Add(-domain.SessionRetention)
	sessions, err := r.sessionRepo.FindActiveSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	active := make([]ActiveSession, 0, len(sessions))
	for i := range sessions {
		s := &sessions[i]
		roster, err := s.ParseParticipants()
		if err != nil {
			logrus.WithError(err).WithField("session_id", s.SessionID).Warn("Registry: corrupt roster in active listing")
		}
		active = append(active, ActiveSession{
			SessionID:    s.SessionID,
			RoomID:       s.RoomID,
			CreatedBy:    s.CreatedBy,
			Participants: len(roster),
			HasCanvas:    s.CanvasData != "",
			HasDrawing:   s.DrawingLayerData != "",
			LastUpdated:  s.LastUpdated,
			CreatedAt:    s.CreatedAt,
		})
	}
	return active, nil
}

// LiveSessionIDs returns the ids of rooms with at least one connection.
func (r *Registry) LiveSessionIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	return ids
}

// getOrLoadRoom finds a live room or rehydrates one from the store, the
// path a reconnecting client takes after the coordinator dropped the
// empty room. Snapshots come from the Redis cache when warm, with the
// database as fallback and a cache backfill afterwards.
func (r *Registry) getOrLoadRoom(ctx context.Context, sessionID string) (*room, error) {
	r.mu.RLock()
	rm, ok := r.rooms[sessionID]
	r.mu.RUnlock()
	if ok {
		return rm, nil
	}

	session, err := r.sessionRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.Expired(time.Now().UTC()) {
		return nil, ErrSessionNotFound
	}

	participants, err := session.ParseParticipants()
	if err != nil {
		return nil, err
	}

	canvas, drawing := session.CanvasData, session.DrawingLayerData
	cachedCanvas, cachedDrawing, cacheErr := r.stateRepo.GetSnapshotCache(ctx, sessionID)
	if cacheErr == nil {
		canvas, drawing = cachedCanvas, cachedDrawing
	} else if !errors.Is(cacheErr, repository.ErrNotFound) {
		logrus.WithError(cacheErr).WithField("session_id", sessionID).Warn("Registry: snapshot cache read failed, using store values")
	} else {
		// Cache miss: warm it from the store so the next join skips the DB.
		go func(canvas, drawing string) {
			warmCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := r.stateRepo.SetSnapshotCache(warmCtx, sessionID, canvas, drawing, r.snapshotTTL); err != nil {
				logrus.WithError(err).WithField("session_id", sessionID).Warn("Registry: failed to warm snapshot cache")
			}
		}(canvas, drawing)
	}

	loaded := &room{
		sessionID:    session.SessionID,
		roomID:       session.RoomID,
		createdBy:    session.CreatedBy,
		participants: participants,
		canvas:       canvas,
		drawing:      drawing,
		conns:        make(map[Conn]struct{}),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.rooms[sessionID]; ok {
		// Another goroutine rehydrated it first.
		return existing, nil
	}
	r.rooms[sessionID] = loaded
	return loaded, nil
}

// persistRoster appends the new name to the stored roster. Appending
// against the stored record (rather than overwriting with the in-memory
// copy) keeps names the live room has not seen intact.
func (r *Registry) persistRoster(ctx context.Context, sessionID, userName string, joinedAt time.Time) error {
	session, err := r.sessionRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}
	if _, _, err := session.AddParticipant(userName, joinedAt); err != nil {
		return err
	}
	return r.sessionRepo.Save(ctx, session)
}

func (r *Registry) saveUserRecord(ctx context.Context, userName, sessionID, roomID string, now time.Time) error {
	existing, err := r.userRepo.FindByNameAndSession(ctx, userName, sessionID)
	if err == nil {
		return r.userRepo.TouchLastActive(ctx, existing.UserID, now)
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}
	return r.userRepo.Save(ctx, &domain.User{
		UserID:     uuid.NewString(),
		UserName:   userName,
		SessionID:  sessionID,
		RoomID:     roomID,
		LastActive: now,
	})
}
