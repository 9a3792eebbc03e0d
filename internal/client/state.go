package client

// State is the connection manager's lifecycle state.
type State int

const (
	// StateIdle is the initial state, before Start.
	StateIdle State = iota

	// StateConnecting means a dial attempt is in flight.
	StateConnecting

	// StateConnected means the realtime link is up.
	StateConnected

	// StateReconnectPending means the link dropped abnormally and a
	// backed-off reconnect attempt is scheduled.
	StateReconnectPending

	// StateDisconnectedClean means the link closed intentionally (local
	// Close or a normal-closure frame from the server). No reconnect.
	StateDisconnectedClean

	// StateFailedPermanent means the attempt budget is exhausted. The
	// manager stays here until Reset.
	StateFailedPermanent
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnectPending:
		return "reconnect_pending"
	case StateDisconnectedClean:
		return "disconnected_clean"
	case StateFailedPermanent:
		return "failed_permanent"
	default:
		return "unknown"
	}
}
