package errors

import (
	"fmt"
)

// CorrelationErrorData contains structured data for correlation-related errors
type CorrelationErrorData struct {
	RequestID     string      `json:"request_id,omitempty"`
	ProgressToken interface{} `json:"progress_token,omitempty"`
	Method        string      `json:"method,omitempty"`
}

// DuplicateRequestID creates an error for a request id that collides with one
// still awaiting a response. This is a caller bug, never silently absorbed.
func DuplicateRequestID(id string) MCPError {
	return NewErrorf(
		CodeDuplicateRequestID,
		CategoryProtocol,
		SeverityError,
		"request id %q is already in flight", id,
	).WithData(&CorrelationErrorData{RequestID: id})
}

// UnknownResponseID creates an error for a response whose id matches no
// pending call. Stray late responses are expected under reordering; callers
// log this and continue.
func UnknownResponseID(id string) MCPError {
	return NewErrorf(
		CodeUnknownRequestID,
		CategoryProtocol,
		SeverityWarning,
		"response for unknown request id %q", id,
	).WithData(&CorrelationErrorData{RequestID: id})
}

// DuplicateProgressToken creates an error for a progress token that collides
// with one bound to an outstanding request.
func DuplicateProgressToken(token interface{}) MCPError {
	return NewErrorf(
		CodeDuplicateProgressToken,
		CategoryProtocol,
		SeverityError,
		"progress token %v is already in flight", token,
	).WithData(&CorrelationErrorData{ProgressToken: token})
}

// RequestCancelled creates the terminal outcome for a cancelled request.
// Cancellation is distinct from failure; use IsCancelled to test for it.
func RequestCancelled(id, method string) MCPError {
	return NewErrorf(
		CodeOperationCancelled,
		CategoryCancelled,
		SeverityInfo,
		"request %q (%s) was cancelled", id, method,
	).WithData(&CorrelationErrorData{RequestID: id, Method: method})
}

// MalformedMessage creates an error for inbound bytes that decode into none
// of the envelope variants.
func MalformedMessage(cause error) MCPError {
	return WrapError(
		cause,
		CodeMalformedMessage,
		fmt.Sprintf("malformed message: %v", cause),
		CategoryProtocol,
		SeverityWarning,
	)
}

// MethodNotFound creates an error for an inbound request naming a method with
// no registered handler.
func MethodNotFound(method string) MCPError {
	return NewErrorf(
		CodeMethodNotFound,
		CategoryProtocol,
		SeverityError,
		"no handler registered for method %q", method,
	).WithData(&CorrelationErrorData{Method: method})
}

// HandlerPanic creates an error for a dispatched handler that panicked. The
// panic value is captured as detail; the dispatch loop keeps running.
func HandlerPanic(method string, recovered interface{}) MCPError {
	return NewErrorf(
		CodeInternalError,
		CategoryInternal,
		SeverityCritical,
		"handler for %q panicked", method,
	).WithDetail(fmt.Sprintf("%v", recovered)).
		WithData(&CorrelationErrorData{Method: method})
}

// IsCancelled reports whether err represents a cancellation outcome rather
// than a success or failure.
func IsCancelled(err error) bool {
	return IsCategory(err, CategoryCancelled)
}
