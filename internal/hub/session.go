package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Close codes beyond the RFC 6455 set.
const (
	// CloseAuthFailure rejects a handshake with a bad credential. No retry
	// hint is given to the peer.
	CloseAuthFailure = 4001
)

// Transport is the write side of a peer connection. *websocket.Conn
// satisfies it; tests substitute an in-memory recorder.
type Transport interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Session is the per-connection record: identity, liveness, and a
// single-writer send queue.
type Session struct {
	ID     string
	UserID int64
	FarmID int64

	transport Transport

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	alive bool
}

func newSession(id string, userID, farmID int64, t Transport, queueSize int) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		FarmID:    farmID,
		transport: t,
		send:      make(chan []byte, queueSize),
		done:      make(chan struct{}),
		alive:     true,
	}
}

// refresh marks the peer as alive. Called on pong and on inbound pings.
func (s *Session) refresh() {
	s.mu.Lock()
	s.alive = true
	s.mu.Unlock()
}

// probe clears the liveness flag and reports whether the peer answered
// since the previous probe.
func (s *Session) probe() (wasAlive bool) {
	s.mu.Lock()
	wasAlive = s.alive
	s.alive = false
	s.mu.Unlock()
	return wasAlive
}

// enqueue queues a frame for the write pump. Reports false when the
// session is closed or its queue is full; callers treat both as a skipped
// delivery, never an error.
func (s *Session) enqueue(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	case <-s.done:
		return false
	default:
		return false
	}
}

// writePump drains the send queue onto the transport. One pump per
// session keeps the websocket single-writer rule.
func (s *Session) writePump(writeTimeout time.Duration) {
	for {
		select {
		case <-s.done:
			return
		case data := <-s.send:
			s.transport.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.transport.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// ping sends a liveness probe control frame. Control writes are safe
// alongside the write pump.
func (s *Session) ping(writeTimeout time.Duration) error {
	return s.transport.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// close sends a close frame with the given code and tears down the
// transport. Idempotent.
func (s *Session) close(code int, reason string) {
	s.closeOnce.Do(func() {
		close(s.done)
		s.transport.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(time.Second),
		)
		s.transport.Close()
	})
}

// closed reports whether close has been called.
func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
