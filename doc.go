// Package surfacestream is a runtime for a server-driven UI protocol.
//
// A backend emits newline-delimited JSON messages that describe trees of UI
// components (surfaces) and a shared data model. surfacestream parses that
// feed as it arrives and applies it to a store that renderers read from and
// subscribe to.
//
// # Architecture
//
//	transport bytes → stream.Parser → protocol.ParseMessage → store.Apply → snapshot → subscribers
//
// The packages, bottom up:
//
//   - datapath resolves dotted/indexed paths ("user.items[0].name") against
//     the data model and writes through them copy-on-write.
//   - protocol defines the message grammar (beginRendering, updateComponents,
//     updateDataModel, deleteSurface) and turns decoded JSON into typed
//     messages.
//   - stream splits a chunked byte feed into lines, parses each one and
//     reports bad lines without stopping.
//   - store holds surfaces and the data model, applies messages with merge
//     semantics and notifies subscribers synchronously with immutable
//     snapshots.
//   - session wires a parser to a store and keeps a bounded ring of
//     diagnostics.
//
// Around the core:
//
//   - input/file, input/httpstream, input/websocket, input/nats and
//     input/udp feed a session from the usual transports.
//   - output/websocket pushes snapshots to remote renderers.
//   - config, metric, health and errors carry configuration, Prometheus
//     metrics, readiness and classified errors.
//
// cmd/surfacestream ties it together as a command that replays or follows a
// feed and prints the resulting snapshot.
package surfacestream
