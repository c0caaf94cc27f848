// Package transport provides wire transports for endpoint communication.
// Transports deal only in framed byte messages; classification and
// correlation belong to the endpoint layer above.
package transport

import (
	"context"
	"io"

	"github.com/mcpwire/endpoint-go/pkg/logging"
)

// ReceiveHandler is invoked with each complete inbound message.
type ReceiveHandler = func(data []byte)

// ErrorHandler is invoked with low-level transport errors that have no
// message to attach to.
type ErrorHandler = func(err error)

// Transport moves framed messages between this process and its peer.
type Transport interface {
	// Initialize prepares the transport for use.
	Initialize(ctx context.Context) error

	// Send transmits one message. Safe for concurrent use.
	Send(data []byte) error

	// SetReceiveHandler registers the callback for inbound messages. Must be
	// called before Start.
	SetReceiveHandler(handler func(data []byte))

	// SetErrorHandler registers the callback for transport-level errors.
	SetErrorHandler(handler func(err error))

	// Start runs the receive loop. It blocks until the context is cancelled,
	// the peer closes the connection, or an unrecoverable read error occurs.
	Start(ctx context.Context) error

	// Stop halts the transport and flushes any buffered output.
	Stop(ctx context.Context) error
}

// Config carries the knobs shared by transport implementations.
type Config struct {
	// Reader overrides the input stream, mainly for tests.
	Reader io.Reader
	// Writer overrides the output stream, mainly for tests.
	Writer io.Writer
	// Logger receives transport diagnostics. Defaults to a no-op logger.
	Logger logging.Logger
	// BufferSize caps the size of a single inbound message in bytes.
	// Defaults to 1 MiB.
	BufferSize int
}

const defaultBufferSize = 1 << 20
