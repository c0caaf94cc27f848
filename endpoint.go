package endpointgo

import (
	"github.com/mcpwire/endpoint-go/pkg/endpoint"
	"github.com/mcpwire/endpoint-go/pkg/transport"
)

// Version is the current version of the module
const Version = "1.0.0"

// These exports provide direct access to the core components
var (
	// New creates a new endpoint bound to a transport
	New = endpoint.New

	// NewStdioTransport creates a new stdio transport
	NewStdioTransport = transport.NewStdioTransport
)

// Endpoint options
var (
	WithLogger          = endpoint.WithLogger
	WithMetrics         = endpoint.WithMetrics
	WithTracing         = endpoint.WithTracing
	WithRequestIDPrefix = endpoint.WithRequestIDPrefix
)

// Request options
var (
	WithProgress      = endpoint.WithProgress
	WithProgressToken = endpoint.WithProgressToken
)
