package errors

// JSON-RPC 2.0 Standard Error Codes
// These map to the protocol package's wire-level error codes
const (
	// CodeParseError indicates invalid JSON was received
	CodeParseError int = -32700

	// CodeInvalidRequest indicates the JSON sent is not a valid Request object
	CodeInvalidRequest int = -32600

	// CodeMethodNotFound indicates the method does not exist / is not available
	CodeMethodNotFound int = -32601

	// CodeInvalidParams indicates invalid method parameter(s)
	CodeInvalidParams int = -32602

	// CodeInternalError indicates internal JSON-RPC error
	CodeInternalError int = -32603
)

// Endpoint-Specific Error Codes
const (
	// Correlation Errors (-32000 to -32099)
	CodeOperationCancelled     int = -32000 // Request cancelled before resolution
	CodeDuplicateRequestID     int = -32001 // Request id collides with an in-flight request
	CodeUnknownRequestID       int = -32002 // Response arrived for an id with no pending call
	CodeDuplicateProgressToken int = -32003 // Progress token collides with an in-flight token

	// Transport Errors (-32500 to -32599)
	CodeTransportError    int = -32500 // Generic transport error
	CodeConnectionLost    int = -32502 // Connection lost during operation
	CodeResponseTimeout   int = -32503 // Timed out waiting for a response
	CodeNotInitialized    int = -32504 // Transport used before initialization
	CodeMessageSendFailed int = -32505 // Outbound message could not be written

	// Protocol Errors (-32900 to -32999)
	CodeProtocolError    int = -32900 // Generic protocol error
	CodeMalformedMessage int = -32901 // Inbound bytes match no envelope variant
)

// ErrorCodeInfo provides human-readable information about error codes
type ErrorCodeInfo struct {
	Code        int
	Name        string
	Description string
	Category    Category
	Severity    Severity
}

// errorCodeRegistry maps error codes to their information
var errorCodeRegistry = map[int]ErrorCodeInfo{
	// JSON-RPC Standard Errors
	CodeParseError:     {CodeParseError, "ParseError", "Invalid JSON was received", CategoryProtocol, SeverityError},
	CodeInvalidRequest: {CodeInvalidRequest, "InvalidRequest", "Invalid Request object", CategoryProtocol, SeverityError},
	CodeMethodNotFound: {CodeMethodNotFound, "MethodNotFound", "Method does not exist", CategoryProtocol, SeverityError},
	CodeInvalidParams:  {CodeInvalidParams, "InvalidParams", "Invalid method parameters", CategoryValidation, SeverityError},
	CodeInternalError:  {CodeInternalError, "InternalError", "Internal JSON-RPC error", CategoryInternal, SeverityError},

	// Correlation Errors
	CodeOperationCancelled:     {CodeOperationCancelled, "OperationCancelled", "Request cancelled", CategoryCancelled, SeverityInfo},
	CodeDuplicateRequestID:     {CodeDuplicateRequestID, "DuplicateRequestID", "Request id already in flight", CategoryProtocol, SeverityError},
	CodeUnknownRequestID:       {CodeUnknownRequestID, "UnknownRequestID", "Response for unknown request id", CategoryProtocol, SeverityWarning},
	CodeDuplicateProgressToken: {CodeDuplicateProgressToken, "DuplicateProgressToken", "Progress token already in flight", CategoryProtocol, SeverityError},

	// Transport Errors
	CodeTransportError:    {CodeTransportError, "TransportError", "Transport error", CategoryTransport, SeverityError},
	CodeConnectionLost:    {CodeConnectionLost, "ConnectionLost", "Connection lost", CategoryTransport, SeverityError},
	CodeResponseTimeout:   {CodeResponseTimeout, "ResponseTimeout", "Timed out waiting for response", CategoryTimeout, SeverityError},
	CodeNotInitialized:    {CodeNotInitialized, "NotInitialized", "Transport not initialized", CategoryTransport, SeverityError},
	CodeMessageSendFailed: {CodeMessageSendFailed, "MessageSendFailed", "Failed to send message", CategoryTransport, SeverityError},

	// Protocol Errors
	CodeProtocolError:    {CodeProtocolError, "ProtocolError", "Protocol error", CategoryProtocol, SeverityError},
	CodeMalformedMessage: {CodeMalformedMessage, "MalformedMessage", "Message matches no envelope variant", CategoryProtocol, SeverityWarning},
}

// GetErrorCodeInfo returns information about an error code
func GetErrorCodeInfo(code int) (ErrorCodeInfo, bool) {
	info, exists := errorCodeRegistry[code]
	return info, exists
}

// GetErrorCodeName returns the name of an error code
func GetErrorCodeName(code int) string {
	if info, exists := errorCodeRegistry[code]; exists {
		return info.Name
	}
	return "UnknownError"
}

// GetErrorCodeCategory returns the category of an error code
func GetErrorCodeCategory(code int) Category {
	if info, exists := errorCodeRegistry[code]; exists {
		return info.Category
	}
	return CategoryInternal
}

// IsStandardJSONRPCCode checks if a code is a standard JSON-RPC error code
func IsStandardJSONRPCCode(code int) bool {
	return code >= -32768 && code <= -32000
}
