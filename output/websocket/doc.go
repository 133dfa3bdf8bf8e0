// Package websocket pushes store snapshots to remote renderers over
// WebSocket.
//
// A Broadcaster is an http.Handler. Each client receives the current
// snapshot as soon as the handshake completes and then every later snapshot
// the store publishes, wrapped in an Envelope:
//
//	{"type":"snapshot","id":"7","timestamp":1767322800000,"version":12,"payload":{...}}
//
// Store notifications only enqueue the new version on a single-worker pool,
// so a slow client never blocks Apply. When several snapshots are published
// while a send is in flight, clients skip straight to the newest one: a
// client sees versions in increasing order but not necessarily every
// version.
//
// Clients are read-only. Anything they send is discarded; a read error or a
// missed pong disconnects them.
//
//	b := websocket.New(sess.Store(), websocket.WithLogger(logger))
//	if err := b.Start(ctx); err != nil {
//	    return err
//	}
//	defer b.Stop(5 * time.Second)
//	http.Handle("/surfaces", b)
package websocket
