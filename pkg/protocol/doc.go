// Package protocol defines the generic message envelope used by the endpoint
// core: JSON-RPC 2.0 requests, responses, and notifications, plus the
// progress and cancellation message shapes layered on top of them.
//
// The package is deliberately small. It knows nothing about any domain
// request catalog; payloads pass through as json.RawMessage and only the
// correlation-relevant fields (id, method, progress token) are typed.
//
// # Message Classification
//
// Inbound bytes are classified with ParseMessage, which returns exactly one
// of *Request, *Response, or *Notification. Bytes matching none of the three
// variants produce an error so the dispatch loop can report a protocol error
// and keep running.
//
// # Progress and Cancellation
//
// A Request may carry an opaque ProgressToken. While the request is
// outstanding, the receiver may emit MethodProgress notifications whose
// ProgressParams echo that token. A requester that gives up on a call emits a
// MethodCancelled notification carrying the abandoned request id; this is
// best-effort and never awaited.
package protocol
