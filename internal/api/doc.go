// Package api provides the REST client for the farm gateway, used by
// field devices and the polling fallback when no realtime connection is
// available.
//
// Endpoints:
//   - GET  /api/farms/{id}/tasks
//   - GET  /api/farms/{id}/activities
//   - GET  /api/farms/{id}/expenses
//   - GET  /api/farms/{id}/revenues
//   - POST /api/farms/{id}/alerts
package api
