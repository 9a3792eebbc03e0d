// Package hub implements the server side of the realtime subsystem.
//
// The hub:
//   - Authenticates WebSocket handshakes and registers sessions
//   - Tracks user → session and room → user indexes (Registry)
//   - Fans out notifications per user, per farm, and per room (Broadcaster)
//   - Probes liveness on a fixed interval and reaps silent peers (HeartbeatMonitor)
//   - Dispatches inbound frames by type tag (Router)
//
// All delivery is local to one process; a horizontally scaled deployment
// needs an external fan-out layer in front of the hubs.
package hub
