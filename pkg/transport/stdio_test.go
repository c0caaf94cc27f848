package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpwire/endpoint-go/pkg/utils"
)

// syncBuffer is a goroutine-safe output sink for tests.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStdioTransportSendFraming(t *testing.T) {
	out := &syncBuffer{}
	tr := NewStdioTransport(Config{Reader: strings.NewReader(""), Writer: out})

	require.NoError(t, tr.Send([]byte(`{"jsonrpc":"2.0","method":"ping"}`)))
	require.NoError(t, tr.Send([]byte(`{"jsonrpc":"2.0","method":"pong"}`)))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "ping")
	assert.Contains(t, lines[1], "pong")
}

func TestStdioTransportReceivesLines(t *testing.T) {
	detector := utils.NewGoroutineLeakDetector(t)
	detector.Start()

	pr, pw := io.Pipe()
	tr := NewStdioTransport(Config{Reader: pr, Writer: &syncBuffer{}})

	received := make(chan string, 10)
	tr.SetReceiveHandler(func(data []byte) {
		received <- string(data)
	})

	started := make(chan error, 1)
	go func() {
		started <- tr.Start(context.Background())
	}()

	_, err := fmt.Fprintln(pw, `{"jsonrpc":"2.0","method":"first"}`)
	require.NoError(t, err)
	_, err = fmt.Fprintln(pw, `{"jsonrpc":"2.0","method":"second"}`)
	require.NoError(t, err)

	assert.Contains(t, <-received, "first")
	assert.Contains(t, <-received, "second")

	// End of input stops the loop cleanly.
	require.NoError(t, pw.Close())
	select {
	case err := <-started:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after end of input")
	}

	detector.Check()
}

func TestStdioTransportSkipsEmptyLines(t *testing.T) {
	input := "\n" + `{"jsonrpc":"2.0","method":"only"}` + "\n\n"
	tr := NewStdioTransport(Config{Reader: strings.NewReader(input), Writer: &syncBuffer{}})

	var got []string
	tr.SetReceiveHandler(func(data []byte) {
		got = append(got, string(data))
	})

	require.NoError(t, tr.Start(context.Background()))
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "only")
}

func TestStdioTransportStopUnblocksStart(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	tr := NewStdioTransport(Config{Reader: pr, Writer: &syncBuffer{}})
	tr.SetReceiveHandler(func([]byte) {})

	started := make(chan error, 1)
	go func() {
		started <- tr.Start(context.Background())
	}()

	// Give the scanner a moment to block on the empty pipe.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, tr.Stop(context.Background()))

	select {
	case err := <-started:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}

	// Stop is idempotent.
	assert.NoError(t, tr.Stop(context.Background()))
}

func TestStdioTransportContextCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	tr := NewStdioTransport(Config{Reader: pr, Writer: &syncBuffer{}})
	tr.SetReceiveHandler(func([]byte) {})

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan error, 1)
	go func() {
		started <- tr.Start(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-started:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}

func TestStdioTransportSurvivesPanickingHandler(t *testing.T) {
	input := `{"jsonrpc":"2.0","method":"boom"}` + "\n" + `{"jsonrpc":"2.0","method":"after"}` + "\n"
	tr := NewStdioTransport(Config{Reader: strings.NewReader(input), Writer: &syncBuffer{}})

	var got []string
	tr.SetReceiveHandler(func(data []byte) {
		if strings.Contains(string(data), "boom") {
			panic("handler exploded")
		}
		got = append(got, string(data))
	})

	require.NoError(t, tr.Start(context.Background()))
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "after")
}

func TestStdioTransportNoHandlerDropsQuietly(t *testing.T) {
	input := `{"jsonrpc":"2.0","method":"unheard"}` + "\n"
	tr := NewStdioTransport(Config{Reader: strings.NewReader(input), Writer: &syncBuffer{}})

	assert.NoError(t, tr.Start(context.Background()))
}
