package hub

import (
	"log/slog"

	"github.com/nabekah/farmkonnect-production-sub012/internal/event"
)

// Broadcaster fans notifications out to sessions. Delivery is
// fire-and-forget, at-most-once: closed sockets and full queues are
// skipped silently.
type Broadcaster struct {
	reg    *Registry
	logger *slog.Logger
}

// NewBroadcaster creates a broadcaster over a registry.
func NewBroadcaster(reg *Registry, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{reg: reg, logger: logger}
}

// SendToUser delivers to every open session of a user, in registration
// order. Returns the number of sessions that accepted the frame.
func (b *Broadcaster) SendToUser(userID int64, env event.Envelope) int {
	data, err := env.Encode()
	if err != nil {
		b.logger.Error("encode frame", "type", env.Type, "error", err)
		return 0
	}

	delivered := 0
	for _, s := range b.reg.SessionsForUser(userID) {
		if s.enqueue(data) {
			delivered++
		} else {
			b.logger.Debug("skipping closed session", "conn_id", s.ID, "user_id", userID)
		}
	}
	return delivered
}

// BroadcastToFarm delivers to every session whose farm matches.
func (b *Broadcaster) BroadcastToFarm(farmID int64, env event.Envelope) int {
	data, err := env.Encode()
	if err != nil {
		b.logger.Error("encode frame", "type", env.Type, "error", err)
		return 0
	}

	delivered := 0
	for _, s := range b.reg.SessionsForFarm(farmID) {
		if s.enqueue(data) {
			delivered++
		}
	}
	return delivered
}

// BroadcastToRoom resolves room membership and delivers per member
// session: a member with two live sessions receives two copies.
func (b *Broadcaster) BroadcastToRoom(roomID string, env event.Envelope) int {
	delivered := 0
	for _, userID := range b.reg.RoomMembers(roomID) {
		delivered += b.SendToUser(userID, env)
	}
	return delivered
}

// JoinRoom adds a user to a room.
func (b *Broadcaster) JoinRoom(roomID string, userID int64) {
	b.reg.JoinRoom(roomID, userID)
}

// LeaveRoom removes a user from a room.
func (b *Broadcaster) LeaveRoom(roomID string, userID int64) {
	b.reg.LeaveRoom(roomID, userID)
}
