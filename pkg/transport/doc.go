// Package transport implements the wire layer beneath the endpoint.
//
// A Transport moves opaque framed messages in both directions and knows
// nothing about JSON-RPC: it never inspects ids, methods, or progress
// tokens. The endpoint registers a receive handler, the transport delivers
// every complete inbound frame to it, and Send carries the endpoint's
// outbound frames to the peer.
//
// StdioTransport is the bundled implementation, framing messages as
// newline-delimited JSON over a stream pair (stdin/stdout by default). Its
// read loop survives panicking handlers and stops cleanly on context
// cancellation, Stop, or end of stream.
package transport
