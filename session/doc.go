// Package session connects a JSON-Lines parser to a surface store.
//
// A Session is the unit a transport feeds: it implements input.Sink, so any
// input.Source can drive it through Consume. Decoded messages are applied to
// the store in arrival order. Every rejected line and every rejected message
// becomes a Diagnostic kept in a bounded ring; when the ring is full the
// oldest diagnostic is dropped and counted.
//
// Feed, FeedBytes and Close are serialized by the session, so a source may
// call them from its own goroutine while other goroutines read snapshots
// from Store().
package session
