package client

import (
	"errors"
	"time"
)

// SocketConfig configures a single WebSocket connection.
type SocketConfig struct {
	// URL is the full dial URL including the credential query parameter.
	URL string

	// PingTimeout is how long the connection may go without any ping or
	// pong traffic before it is declared stale.
	PingTimeout time.Duration

	// WriteTimeout bounds each outbound write.
	WriteTimeout time.Duration

	// BufferSize is the inbound message channel capacity.
	BufferSize int
}

// TimestampedMessage is a raw inbound frame plus its local receive time.
type TimestampedMessage struct {
	Data       []byte
	ReceivedAt time.Time
}

var (
	// ErrNotConnected is returned by Send when no link is up.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyClosed is returned when reusing a closed socket.
	ErrAlreadyClosed = errors.New("connection already closed")

	// ErrStaleConnection is reported when heartbeat traffic stops.
	ErrStaleConnection = errors.New("connection stale: no ping received")

	// ErrPermanentFailure is returned once the reconnect budget is spent.
	ErrPermanentFailure = errors.New("connection failed permanently")
)
