// Package endpointgo provides the correlation layer of a bidirectional
// JSON-RPC connection: pending-call tracking, progress streaming, and
// cooperative cancellation, independent of any particular transport.
//
// This package is the root of the module, providing convenient exports of
// the core components from the sub-packages.
//
// # Overview
//
// The module consists of several sub-packages:
//
//   - pkg/endpoint: The correlation core: pending calls, dispatch, progress
//   - pkg/protocol: JSON-RPC 2.0 envelope types and message classification
//   - pkg/transport: Wire transports (newline-delimited stdio bundled)
//   - pkg/errors: Structured errors with categories and correlation context
//   - pkg/logging: Structured leveled logging
//   - pkg/observability: Prometheus metrics and OpenTelemetry tracing
//
// # Connecting an Endpoint
//
// To wire an endpoint over stdio:
//
//	import (
//	    "context"
//	    endpointgo "github.com/mcpwire/endpoint-go"
//	    "github.com/mcpwire/endpoint-go/pkg/transport"
//	)
//
//	func main() {
//	    tr := endpointgo.NewStdioTransport(transport.Config{})
//	    ep := endpointgo.New(tr)
//
//	    ctx := context.Background()
//	    go tr.Start(ctx)
//	    defer tr.Stop(ctx)
//
//	    result, err := ep.SendRequest(ctx, "ping", nil)
//	    _ = result
//	    _ = err
//	}
//
// Handlers for inbound traffic are registered on the endpoint; see
// pkg/endpoint for the dispatch and progress-reporting model.
package endpointgo
