// Package websocket reads a surface feed from a WebSocket server.
//
// The source dials the server as a client. Every text or binary frame is one
// record: a frame without a trailing newline is terminated before it reaches
// the sink, so servers may send either one message per frame or JSON-Lines
// batches.
//
// When the connection drops abnormally the source reconnects with
// exponential backoff (pkg/retry). A normal close from the server
// (1000 or 1001) ends the feed and Run returns nil. Handshake failures with a
// 4xx status are not retried.
//
// Reconnecting resumes the feed, not the parser state: the server is expected
// to resend beginRendering for surfaces it still wants shown.
package websocket
