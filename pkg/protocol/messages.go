package protocol

import "encoding/json"

const (
	// Methods for utilities handled by the endpoint core
	MethodPing      = "ping"
	MethodCancelled = "notifications/cancelled"
	MethodProgress  = "notifications/progress"
)

// ProgressParams defines parameters for the progress notification. The token
// correlates the notification with the request it reports on; everything else
// is best-effort telemetry.
type ProgressParams struct {
	ProgressToken ProgressToken `json:"progressToken"`
	Progress      float64       `json:"progress"`
	Total         float64       `json:"total,omitempty"`
	Message       string        `json:"message,omitempty"`
}

// CancelledParams defines parameters for the cancelled notification sent when
// a requester abandons an in-flight request.
type CancelledParams struct {
	ID     interface{} `json:"requestId"`
	Reason string      `json:"reason,omitempty"`
}

// PingParams defines parameters for the ping request
type PingParams struct {
	// Optional timestamp from sender
	Timestamp int64 `json:"timestamp,omitempty"`
}

// PingResult is the response for ping
type PingResult struct {
	// The original timestamp if provided, otherwise the receiver's current timestamp
	Timestamp int64 `json:"timestamp"`
}

// EmptyResult is the single shared success payload for responses that signal
// completion without content. Constructed once, never mutated.
var EmptyResult = json.RawMessage(`{}`)
