// Package nats reads a surface feed from a NATS subject.
//
// In core mode the source subscribes to the subject and feeds every message
// payload as one record, so it only sees messages published after it
// subscribed. When a JetStream stream name is configured the source instead
// creates an ordered consumer filtered on the subject and replays the stream
// from its first message, which lets a late viewer rebuild the full surface
// state.
//
// Both modes run until the context is cancelled. The NATS client handles
// reconnection; disconnects and reconnects are logged and counted in the
// source metrics.
package nats
