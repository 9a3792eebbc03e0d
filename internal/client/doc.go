// Package client implements the device-side realtime connection: a
// WebSocket client with automatic reconnection, a small connection state
// machine, and typed event dispatch.
//
// The manager dials with a fresh credential on every attempt, backs off
// exponentially between attempts, and gives up for good after the
// configured attempt budget. Callers watch Available() (or state change
// callbacks) to decide when to fall back to polling.
package client
