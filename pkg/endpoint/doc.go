// Package endpoint implements the correlation core of a bidirectional
// JSON-RPC connection: matching responses to the requests that await them,
// routing progress notifications to their observers, and propagating
// cancellation in both directions.
//
// An Endpoint sits between a Transport and application handlers. Outbound
// requests suspend the caller until exactly one terminal outcome arrives: the
// correlated response, a send failure, or cancellation. Inbound requests are
// dispatched to registered handlers on their own goroutines, so a handler
// that issues requests of its own can never stall the message loop.
//
// Progress is correlated through opaque tokens rather than request ids.
// A request sent with WithProgress carries a generated token on the wire;
// progress notifications bearing that token reach the observer strictly
// before the request's terminal outcome. On the receiving side, handlers
// obtain a ProgressReporter from their context and report freely: reporting
// is fire-and-forget and becomes a silent no-op once the owning request
// resolves.
//
// The endpoint is tolerant by construction. Stray responses, progress for
// unknown tokens, and malformed messages are counted and dropped; none of
// them, and no panicking handler, ever terminates dispatch.
package endpoint
