package transport

import (
	"bufio"
	"context"
	"io"
	"os"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"

	mcperrors "github.com/mcpwire/endpoint-go/pkg/errors"
	"github.com/mcpwire/endpoint-go/pkg/logging"
)

// StdioTransport moves newline-delimited messages over a byte stream pair,
// by default the process's stdin and stdout. It is the transport of choice
// when the two endpoints are connected through pipes.
type StdioTransport struct {
	reader io.Reader
	writer *bufio.Writer
	logger logging.Logger

	bufferSize int

	mu             sync.Mutex // guards writer
	handlerMu      sync.RWMutex
	receiveHandler ReceiveHandler
	errorHandler   ErrorHandler

	done     chan struct{}
	stopOnce sync.Once
}

// NewStdioTransport creates a stdio transport. Zero-value config means
// stdin/stdout and a no-op logger.
func NewStdioTransport(config Config) *StdioTransport {
	reader := config.Reader
	writer := config.Writer
	logger := config.Logger
	bufferSize := config.BufferSize

	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	return &StdioTransport{
		reader:     reader,
		writer:     bufio.NewWriter(writer),
		logger:     logger.WithFields(logging.String("component", "stdio_transport")),
		bufferSize: bufferSize,
		done:       make(chan struct{}),
	}
}

// Initialize prepares the transport. Stdio streams are already open, so this
// is a no-op.
func (t *StdioTransport) Initialize(ctx context.Context) error {
	return nil
}

// SetReceiveHandler registers the callback for inbound messages.
func (t *StdioTransport) SetReceiveHandler(handler func(data []byte)) {
	t.handlerMu.Lock()
	defer t.handlerMu.Unlock()
	t.receiveHandler = handler
}

// SetErrorHandler registers the callback for transport-level errors.
func (t *StdioTransport) SetErrorHandler(handler func(err error)) {
	t.handlerMu.Lock()
	defer t.handlerMu.Unlock()
	t.errorHandler = handler
}

// Start reads newline-delimited messages from the input stream and delivers
// each one to the receive handler. It blocks until the context is cancelled,
// Stop is called, or the stream ends.
func (t *StdioTransport) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	scanner := bufio.NewScanner(t.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), t.bufferSize)

	scannerDone := make(chan struct{})

	g.Go(func() error {
		defer close(scannerDone)

		for scanner.Scan() {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-t.done:
				return nil
			default:
			}

			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			// Copy before the next Scan overwrites the buffer.
			data := make([]byte, len(line))
			copy(data, line)
			t.deliver(data)
		}

		if err := scanner.Err(); err != nil && err != io.EOF {
			// A read failure provoked by our own shutdown is not an error.
			select {
			case <-t.done:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			readErr := mcperrors.StdioTransportError("read_input", err).
				WithContext(&mcperrors.Context{
					Component: "stdio_transport",
					Operation: "scan_input",
				})
			t.reportError(readErr)
			return readErr
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			t.closeReader()
			return gctx.Err()
		case <-t.done:
			t.closeReader()
			return nil
		case <-scannerDone:
			return nil
		}
	})

	return g.Wait()
}

// deliver hands one message to the receive handler, recovering panics so a
// misbehaving handler cannot end the read loop.
func (t *StdioTransport) deliver(data []byte) {
	t.handlerMu.RLock()
	handler := t.receiveHandler
	t.handlerMu.RUnlock()

	if handler == nil {
		t.logger.Warn("dropping inbound message: no receive handler registered")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic in receive handler",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())))
		}
	}()
	handler(data)
}

// closeReader unblocks a Scan stuck on a read by closing the underlying
// stream when it supports that.
func (t *StdioTransport) closeReader() {
	if closer, ok := t.reader.(io.Closer); ok {
		_ = closer.Close()
	}
}

// Send writes one message followed by a newline and flushes. Safe for
// concurrent use.
func (t *StdioTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.writer.Write(data); err != nil {
		return mcperrors.StdioTransportError("send_message", err).
			WithContext(&mcperrors.Context{
				Component: "stdio_transport",
				Operation: "write_data",
			})
	}
	if err := t.writer.WriteByte('\n'); err != nil {
		return mcperrors.StdioTransportError("send_message", err).
			WithContext(&mcperrors.Context{
				Component: "stdio_transport",
				Operation: "write_newline",
			})
	}
	if err := t.writer.Flush(); err != nil {
		return mcperrors.StdioTransportError("send_message", err).
			WithContext(&mcperrors.Context{
				Component: "stdio_transport",
				Operation: "flush_output",
			})
	}
	return nil
}

// Stop halts the read loop and flushes buffered output. Idempotent.
func (t *StdioTransport) Stop(ctx context.Context) error {
	var flushErr error

	t.stopOnce.Do(func() {
		close(t.done)

		t.mu.Lock()
		flushErr = t.writer.Flush()
		t.mu.Unlock()
	})

	if flushErr != nil {
		return mcperrors.StdioTransportError("stop", flushErr).
			WithContext(&mcperrors.Context{
				Component: "stdio_transport",
				Operation: "flush_on_stop",
			})
	}
	return nil
}

// reportError passes an error to the error handler when one is registered.
func (t *StdioTransport) reportError(err error) {
	t.handlerMu.RLock()
	handler := t.errorHandler
	t.handlerMu.RUnlock()

	if handler != nil {
		handler(err)
	}
}
