// Package poller implements the polling fallback for devices without a
// realtime connection.
//
// The poller:
//   - Fetches tasks and activities over REST on a fixed interval
//   - Diffs each fetch against the previous snapshot byte-for-byte
//   - Invokes the change callback on first receipt and on changes only
//   - Skips a tick outright when the previous one is still in flight
package poller
