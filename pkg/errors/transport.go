package errors

import (
	"fmt"
	"time"
)

// TransportErrorData contains structured data for transport-related errors
type TransportErrorData struct {
	Transport string        `json:"transport"`
	Operation string        `json:"operation,omitempty"`
	Retryable bool          `json:"retryable"`
	Timeout   time.Duration `json:"timeout,omitempty"`
	Reason    string        `json:"reason,omitempty"`
}

// TransportError creates a generic transport error
func TransportError(transport, operation string, cause error) MCPError {
	message := fmt.Sprintf("%s transport error", transport)
	if operation != "" {
		message = fmt.Sprintf("%s transport error during %s", transport, operation)
	}
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}

	return WrapError(
		cause,
		CodeTransportError,
		message,
		CategoryTransport,
		SeverityError,
	).WithData(&TransportErrorData{
		Transport: transport,
		Operation: operation,
		Retryable: true,
	})
}

// MessageSendError creates an error for a failed outbound write. The failure
// is scoped to the call that attempted the send; other pending calls are
// unaffected.
func MessageSendError(transport string, cause error) MCPError {
	return WrapError(
		cause,
		CodeMessageSendFailed,
		fmt.Sprintf("failed to send message via %s: %v", transport, cause),
		CategoryTransport,
		SeverityError,
	).WithData(&TransportErrorData{
		Transport: transport,
		Operation: "send",
		Retryable: true,
	})
}

// StdioTransportError creates an error specific to the stdio transport
func StdioTransportError(operation string, cause error) MCPError {
	return WrapError(
		cause,
		CodeTransportError,
		fmt.Sprintf("stdio transport error during %s: %v", operation, cause),
		CategoryTransport,
		SeverityError,
	).WithData(&TransportErrorData{
		Transport: "stdio",
		Operation: operation,
		Retryable: false,
	})
}

// TransportNotInitialized creates an error for using a transport before
// initialization
func TransportNotInitialized(transport string) MCPError {
	return NewErrorf(
		CodeNotInitialized,
		CategoryTransport,
		SeverityError,
		"%s transport not initialized", transport,
	).WithData(&TransportErrorData{
		Transport: transport,
		Retryable: false,
	})
}

// ResponseTimeout creates an error for a request that timed out waiting for
// its correlated response
func ResponseTimeout(transport, requestID string, timeout time.Duration) MCPError {
	return NewErrorf(
		CodeResponseTimeout,
		CategoryTimeout,
		SeverityError,
		"timed out after %s waiting for response to request %q", timeout, requestID,
	).WithData(&TransportErrorData{
		Transport: transport,
		Operation: "wait_response",
		Timeout:   timeout,
		Retryable: true,
	})
}
