package hub

import (
	"log/slog"
	"sync"
)

// Registry is the bidirectional connection index: conn id → session,
// user id → ordered session ids, and room → member users. Every mutation
// is atomic under one mutex, so no partial state (a record present but
// unindexed, or the reverse) is ever observable.
//
// The registry is an injectable service: construct one per hub, never a
// package-level singleton.
type Registry struct {
	mu        sync.RWMutex
	byConn    map[string]*Session
	byUser    map[int64][]string // registration order
	rooms     map[string]map[int64]struct{}
	userRooms map[int64]map[string]struct{}

	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byConn:    make(map[string]*Session),
		byUser:    make(map[int64][]string),
		rooms:     make(map[string]map[int64]struct{}),
		userRooms: make(map[int64]map[string]struct{}),
		logger:    logger,
	}
}

// Register indexes a session. Idempotent: re-registering a known conn id
// is a no-op.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byConn[s.ID]; exists {
		return
	}
	r.byConn[s.ID] = s
	r.byUser[s.UserID] = append(r.byUser[s.UserID], s.ID)
}

// Unregister removes a session and prunes every index that referenced it.
// When the user's last session goes, the user also leaves all joined rooms.
// Returns the removed session, or nil for an unknown id (no-op).
func (r *Registry) Unregister(connID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byConn[connID]
	if !ok {
		return nil
	}
	delete(r.byConn, connID)

	ids := r.byUser[s.UserID]
	for i, id := range ids {
		if id == connID {
			r.byUser[s.UserID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(r.byUser[s.UserID]) > 0 {
		return s
	}
	delete(r.byUser, s.UserID)

	// Last session gone: the user leaves every room they had joined.
	for roomID := range r.userRooms[s.UserID] {
		r.removeMemberLocked(roomID, s.UserID)
	}
	delete(r.userRooms, s.UserID)

	return s
}

// Lookup returns the session for a conn id.
func (r *Registry) Lookup(connID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byConn[connID]
	return s, ok
}

// LookupSessions returns the user's session ids in registration order.
func (r *Registry) LookupSessions(userID int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byUser[userID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// SessionsForUser returns the user's live sessions in registration order.
func (r *Registry) SessionsForUser(userID int64) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byUser[userID]
	out := make([]*Session, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.byConn[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// SessionsForFarm returns every session whose farm matches.
func (r *Registry) SessionsForFarm(farmID int64) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Session
	for _, s := range r.byConn {
		if s.FarmID == farmID {
			out = append(out, s)
		}
	}
	return out
}

// Sessions returns a snapshot of every registered session.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.byConn))
	for _, s := range r.byConn {
		out = append(out, s)
	}
	return out
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// JoinRoom adds a user to a room. Membership is user-level: delivery
// resolves through the session index, so a member with N live sessions
// receives N copies of a room broadcast.
func (r *Registry) JoinRoom(roomID string, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[int64]struct{})
	}
	r.rooms[roomID][userID] = struct{}{}

	if r.userRooms[userID] == nil {
		r.userRooms[userID] = make(map[string]struct{})
	}
	r.userRooms[userID][roomID] = struct{}{}
}

// LeaveRoom removes a user from a room; an empty room is deleted.
func (r *Registry) LeaveRoom(roomID string, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeMemberLocked(roomID, userID)
	if ur := r.userRooms[userID]; ur != nil {
		delete(ur, roomID)
		if len(ur) == 0 {
			delete(r.userRooms, userID)
		}
	}
}

// RoomMembers returns the member user ids of a room.
func (r *Registry) RoomMembers(roomID string) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[roomID]
	out := make([]int64, 0, len(members))
	for userID := range members {
		out = append(out, userID)
	}
	return out
}

func (r *Registry) removeMemberLocked(roomID string, userID int64) {
	members := r.rooms[roomID]
	if members == nil {
		return
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
}
