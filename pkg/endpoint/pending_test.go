package endpoint

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/mcpwire/endpoint-go/pkg/errors"
	"github.com/mcpwire/endpoint-go/pkg/observability"
	"github.com/mcpwire/endpoint-go/pkg/protocol"
)

func TestRegisterAndResolve(t *testing.T) {
	p := newPendingCalls(observability.NewNoopMetrics())

	call, err := p.register("req_1", "ping")
	require.NoError(t, err)
	require.NotNil(t, call)
	assert.Equal(t, 1, p.size())

	resp, err := protocol.NewResponse("req_1", map[string]string{"pong": "yes"})
	require.NoError(t, err)

	_, err = p.resolve("req_1", resp)
	require.NoError(t, err)
	assert.Equal(t, 0, p.size())

	select {
	case out := <-call.done:
		require.NoError(t, out.err)
		assert.Equal(t, resp, out.resp)
	default:
		t.Fatal("Expected resolution to be delivered without blocking")
	}
}

func TestDuplicateRequestIDFailsFast(t *testing.T) {
	p := newPendingCalls(observability.NewNoopMetrics())

	_, err := p.register("req_1", "ping")
	require.NoError(t, err)

	_, err = p.register("req_1", "ping")
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeDuplicateRequestID))

	// The original entry survives the failed registration.
	assert.Equal(t, 1, p.size())
}

func TestResolveUnknownIDReportsStray(t *testing.T) {
	p := newPendingCalls(observability.NewNoopMetrics())

	resp, err := protocol.NewResponse("req_404", nil)
	require.NoError(t, err)

	_, err = p.resolve("req_404", resp)
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeUnknownRequestID))
	assert.Equal(t, 0, p.size())
}

func TestCancelDeliversCancellationOutcome(t *testing.T) {
	p := newPendingCalls(observability.NewNoopMetrics())

	call, err := p.register("req_1", "tools/call")
	require.NoError(t, err)

	p.cancel("req_1")
	assert.Equal(t, 0, p.size())

	select {
	case out := <-call.done:
		require.Error(t, out.err)
		assert.True(t, mcperrors.IsCancelled(out.err))
		assert.Nil(t, out.resp)
	default:
		t.Fatal("Expected cancellation outcome to be delivered without blocking")
	}
}

func TestCancelAfterResolveIsNoop(t *testing.T) {
	p := newPendingCalls(observability.NewNoopMetrics())

	call, err := p.register("req_1", "ping")
	require.NoError(t, err)

	resp, err := protocol.NewResponse("req_1", nil)
	require.NoError(t, err)
	_, err = p.resolve("req_1", resp)
	require.NoError(t, err)

	p.cancel("req_1")

	out := <-call.done
	require.NoError(t, out.err)

	// Exactly one outcome; the cancel produced nothing.
	select {
	case <-call.done:
		t.Fatal("Expected exactly one outcome on the completion channel")
	default:
	}
}

func TestBindProgressDuplicateToken(t *testing.T) {
	p := newPendingCalls(observability.NewNoopMetrics())

	_, err := p.register("req_1", "a")
	require.NoError(t, err)
	_, err = p.register("req_2", "b")
	require.NoError(t, err)

	require.NoError(t, p.bindProgress("req_1", "tok", func(protocol.ProgressParams) {}))

	err = p.bindProgress("req_2", "tok", func(protocol.ProgressParams) {})
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeDuplicateProgressToken))
}

func TestBindProgressUnknownID(t *testing.T) {
	p := newPendingCalls(observability.NewNoopMetrics())

	err := p.bindProgress("req_404", "tok", func(protocol.ProgressParams) {})
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeUnknownRequestID))
}

func TestObserveProgressLifecycle(t *testing.T) {
	p := newPendingCalls(observability.NewNoopMetrics())

	_, err := p.register("req_1", "tools/call")
	require.NoError(t, err)

	var got []float64
	require.NoError(t, p.bindProgress("req_1", "tok", func(params protocol.ProgressParams) {
		got = append(got, params.Progress)
	}))

	assert.True(t, p.observeProgress("tok", protocol.ProgressParams{ProgressToken: "tok", Progress: 0.5}))
	assert.True(t, p.observeProgress("tok", protocol.ProgressParams{ProgressToken: "tok", Progress: 1.0}))
	assert.Equal(t, []float64{0.5, 1.0}, got)

	resp, err := protocol.NewResponse("req_1", nil)
	require.NoError(t, err)
	_, err = p.resolve("req_1", resp)
	require.NoError(t, err)

	// Progress after resolution is dropped, not delivered.
	assert.False(t, p.observeProgress("tok", protocol.ProgressParams{ProgressToken: "tok", Progress: 1.0}))
	assert.Equal(t, []float64{0.5, 1.0}, got)
}

func TestObserveProgressNumericTokenAcrossWireTypes(t *testing.T) {
	p := newPendingCalls(observability.NewNoopMetrics())

	_, err := p.register("req_1", "tools/call")
	require.NoError(t, err)

	var got []float64
	require.NoError(t, p.bindProgress("req_1", 7, func(params protocol.ProgressParams) {
		got = append(got, params.Progress)
	}))

	// JSON decoding turns the integer token 7 into float64(7); the bound
	// handler must still be found.
	assert.True(t, p.observeProgress(float64(7), protocol.ProgressParams{ProgressToken: float64(7), Progress: 0.4}))
	assert.Equal(t, []float64{0.4}, got)

	// The duplicate check sees both forms as the same token.
	_, err = p.register("req_2", "tools/call")
	require.NoError(t, err)
	err = p.bindProgress("req_2", float64(7), func(protocol.ProgressParams) {})
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeDuplicateProgressToken))
}

func TestObserveProgressUnknownToken(t *testing.T) {
	p := newPendingCalls(observability.NewNoopMetrics())
	assert.False(t, p.observeProgress("tok_404", protocol.ProgressParams{ProgressToken: "tok_404"}))
}

func TestConcurrentRegisterResolve(t *testing.T) {
	p := newPendingCalls(observability.NewNoopMetrics())

	const n = 100
	var wg sync.WaitGroup
	outcomes := make([]outcome, n)

	for i := 0; i < n; i++ {
		i := i
		id := fmt.Sprintf("req_%d", i)
		call, err := p.register(id, "ping")
		require.NoError(t, err)

		wg.Add(2)
		go func() {
			defer wg.Done()
			select {
			case out := <-call.done:
				outcomes[i] = out
			case <-time.After(2 * time.Second):
				t.Errorf("timed out waiting for resolution of %s", id)
			}
		}()
		go func() {
			defer wg.Done()
			resp, err := protocol.NewResponse(id, nil)
			if err != nil {
				t.Errorf("failed to build response: %v", err)
				return
			}
			if _, err := p.resolve(id, resp); err != nil {
				t.Errorf("failed to resolve %s: %v", id, err)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 0, p.size())
	for i, out := range outcomes {
		assert.NoError(t, out.err, "call %d", i)
		require.NotNil(t, out.resp, "call %d", i)
		assert.Equal(t, fmt.Sprintf("req_%d", i), out.resp.ID)
	}
}

func TestConcurrentResolveAndCancelSingleOutcome(t *testing.T) {
	p := newPendingCalls(observability.NewNoopMetrics())

	const n = 100
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("req_%d", i)
		call, err := p.register(id, "ping")
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			resp, _ := protocol.NewResponse(id, nil)
			_, _ = p.resolve(id, resp)
		}()
		go func() {
			defer wg.Done()
			p.cancel(id)
		}()
		wg.Wait()

		// Whichever side won, there is exactly one outcome.
		select {
		case <-call.done:
		case <-time.After(time.Second):
			t.Fatalf("no outcome delivered for %s", id)
		}
		select {
		case <-call.done:
			t.Fatalf("second outcome delivered for %s", id)
		default:
		}
	}

	assert.Equal(t, 0, p.size())
}
