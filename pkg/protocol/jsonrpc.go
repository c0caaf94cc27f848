package protocol

import (
	"encoding/json"
	"fmt"
)

const (
	// JSONRPCVersion is the supported JSON-RPC version
	JSONRPCVersion = "2.0"
)

// ErrorCode represents standard JSON-RPC 2.0 error codes
type ErrorCode int

// Standard error codes as per JSON-RPC 2.0 specification
const (
	ParseError     ErrorCode = -32700
	InvalidRequest ErrorCode = -32600
	MethodNotFound ErrorCode = -32601
	InvalidParams  ErrorCode = -32602
	InternalError  ErrorCode = -32603
)

// Endpoint-specific error codes
const (
	// OperationCancelled indicates an operation was cancelled before completion
	OperationCancelled ErrorCode = -32000
	// DuplicateRequestID indicates a request id collided with one still in flight
	DuplicateRequestID ErrorCode = -32001
	// UnknownRequestID indicates a response arrived for an id with no pending call
	UnknownRequestID ErrorCode = -32002
)

// JSONRPCMessage represents a JSON-RPC 2.0 message
type JSONRPCMessage struct {
	JSONRPC string `json:"jsonrpc"`
}

// ProgressToken is an opaque correlation value (string or integer) linking
// progress notifications to the request they report on. It carries no
// semantics beyond correlation.
type ProgressToken interface{}

// Request represents a JSON-RPC 2.0 request. A request may carry an optional
// progress token; the receiver uses it to stream incremental progress back to
// the sender while the request is outstanding.
type Request struct {
	JSONRPCMessage
	ID            interface{}     `json:"id"`
	Method        string          `json:"method"`
	Params        json.RawMessage `json:"params,omitempty"`
	ProgressToken ProgressToken   `json:"progressToken,omitempty"`
}

// NewRequest creates a new JSON-RPC 2.0 request
func NewRequest(id interface{}, method string, params interface{}) (*Request, error) {
	paramsJSON, err := marshalField(params, "params")
	if err != nil {
		return nil, err
	}

	return &Request{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: JSONRPCVersion},
		ID:             id,
		Method:         method,
		Params:         paramsJSON,
	}, nil
}

// Response represents a JSON-RPC 2.0 response
type Response struct {
	JSONRPCMessage
	ID     interface{}     `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// NewResponse creates a new JSON-RPC 2.0 success response
func NewResponse(id interface{}, result interface{}) (*Response, error) {
	resultJSON, err := marshalField(result, "result")
	if err != nil {
		return nil, err
	}

	return &Response{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: JSONRPCVersion},
		ID:             id,
		Result:         resultJSON,
	}, nil
}

// NewErrorResponse creates a new JSON-RPC 2.0 error response
func NewErrorResponse(id interface{}, code ErrorCode, message string, data interface{}) (*Response, error) {
	var dataJSON interface{}
	if data != nil {
		dataBytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal error data: %w", err)
		}
		dataJSON = json.RawMessage(dataBytes)
	}

	return &Response{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: JSONRPCVersion},
		ID:             id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    dataJSON,
		},
	}, nil
}

// Notification represents a JSON-RPC 2.0 notification. Notifications carry no
// correlation id and are fire-and-forget; progress notifications correlate
// through the progress token inside their params instead.
type Notification struct {
	JSONRPCMessage
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// NewNotification creates a new JSON-RPC 2.0 notification
func NewNotification(method string, params interface{}) (*Notification, error) {
	paramsJSON, err := marshalField(params, "params")
	if err != nil {
		return nil, err
	}

	return &Notification{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: JSONRPCVersion},
		Method:         method,
		Params:         paramsJSON,
	}, nil
}

// Error represents a JSON-RPC 2.0 error object
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements the error interface so a JSON-RPC error object can travel
// up a Go error chain unchanged.
func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

func marshalField(v interface{}, name string) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	return data, nil
}

// ParseMessage decodes raw bytes into exactly one of *Request, *Response, or
// *Notification. Input that matches none of the variants yields an error; the
// caller treats it as a protocol error and keeps its dispatch loop running.
func ParseMessage(data []byte) (interface{}, error) {
	var probe struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      interface{}     `json:"id"`
		Method  string          `json:"method"`
		Result  json.RawMessage `json:"result"`
		Error   *Error          `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}
	if probe.JSONRPC != JSONRPCVersion {
		return nil, fmt.Errorf("unsupported jsonrpc version %q", probe.JSONRPC)
	}

	switch {
	case probe.ID != nil && (probe.Result != nil || probe.Error != nil):
		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("malformed response: %w", err)
		}
		return &resp, nil
	case probe.ID != nil && probe.Method != "":
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("malformed request: %w", err)
		}
		return &req, nil
	case probe.ID == nil && probe.Method != "":
		var notif Notification
		if err := json.Unmarshal(data, &notif); err != nil {
			return nil, fmt.Errorf("malformed notification: %w", err)
		}
		return &notif, nil
	default:
		return nil, fmt.Errorf("message matches no JSON-RPC variant")
	}
}

// IsRequest checks if a raw JSON message is a JSON-RPC 2.0 request
func IsRequest(data []byte) bool {
	msg, err := ParseMessage(data)
	if err != nil {
		return false
	}
	_, ok := msg.(*Request)
	return ok
}

// IsResponse checks if a raw JSON message is a JSON-RPC 2.0 response
func IsResponse(data []byte) bool {
	msg, err := ParseMessage(data)
	if err != nil {
		return false
	}
	_, ok := msg.(*Response)
	return ok
}

// IsNotification checks if a raw JSON message is a JSON-RPC 2.0 notification
func IsNotification(data []byte) bool {
	msg, err := ParseMessage(data)
	if err != nil {
		return false
	}
	_, ok := msg.(*Notification)
	return ok
}
