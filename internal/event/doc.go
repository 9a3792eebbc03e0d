// Package event defines the wire format for realtime notifications.
//
// Every frame is a JSON envelope with a string type tag, a type-specific
// payload, and (for server-originated frames) a millisecond epoch timestamp.
// The payload set is a closed union: each recognized type has exactly one
// payload struct, and Decode returns the statically-typed payload for a tag.
package event
