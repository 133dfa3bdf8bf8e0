// Package udp receives a surface feed as UDP datagrams.
//
// Every datagram is one record: a payload without a trailing newline is
// terminated before it reaches the sink, so a sender can emit one message per
// datagram without framing. A datagram may also carry several JSON-Lines.
//
// UDP gives no delivery or ordering guarantee and the protocol is order
// sensitive. Use this source on loopback or other links where loss is not a
// concern, for example a local agent pushing UI updates to a viewer.
//
// Binding the socket is retried (pkg/retry). Reads use short deadlines so the
// loop observes context cancellation; Run then returns ctx.Err(). Packet,
// byte and socket error counts are exported when a metrics registry is
// configured.
package udp
