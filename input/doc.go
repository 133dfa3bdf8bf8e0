// Package input defines the contract between ingress transports and the
// stream parser.
//
// A Source reads from a transport and hands raw bytes to a Sink without
// interpreting them. Byte-stream transports (files, HTTP bodies) pass chunks
// through as read. Message-oriented transports (WebSocket frames, NATS
// messages, UDP datagrams) treat each message as one record and wrap the sink
// with Records so every record ends with a newline.
//
// Implementations live in subpackages: file, httpstream, websocket, nats and
// udp.
package input
