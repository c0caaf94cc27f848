package endpoint

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpwire/endpoint-go/pkg/protocol"
)

func TestReporterStreamsProgressBeforeResponse(t *testing.T) {
	tr := newFakeTransport()
	e := New(tr)

	e.RegisterRequestHandler("tools/call", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		reporter := e.Reporter(ctx)
		reporter.Report(0.5, 1.0, "halfway")
		reporter.Report(1.0, 1.0, "done")
		return map[string]string{"status": "ok"}, nil
	})

	req, err := protocol.NewRequest("peer_1", "tools/call", nil)
	require.NoError(t, err)
	req.ProgressToken = "tok_1"
	data, err := json.Marshal(req)
	require.NoError(t, err)
	tr.deliver(data)

	// Two progress notifications, then the response, in that order.
	waitForSent(t, tr, 3)

	for i, wantProgress := range []float64{0.5, 1.0} {
		notif := sentNotification(t, tr, i)
		assert.Equal(t, protocol.MethodProgress, notif.Method)

		var params protocol.ProgressParams
		require.NoError(t, json.Unmarshal(notif.Params, &params))
		assert.Equal(t, "tok_1", params.ProgressToken)
		assert.Equal(t, wantProgress, params.Progress)
	}

	resp := sentResponse(t, tr, 2)
	assert.Equal(t, "peer_1", resp.ID)
	assert.Nil(t, resp.Error)
}

func TestReporterInertWithoutToken(t *testing.T) {
	tr := newFakeTransport()
	e := New(tr)

	e.RegisterRequestHandler("tools/call", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		e.Reporter(ctx).Report(0.5, 1.0, "nobody asked")
		return nil, nil
	})

	deliverRequest(t, tr, "peer_2", "tools/call", nil)

	// Only the response goes out; the report was a silent no-op.
	waitForSent(t, tr, 1)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, tr.sentCount())
	assert.Nil(t, sentResponse(t, tr, 0).Error)
}

func TestReporterInertAfterResolution(t *testing.T) {
	tr := newFakeTransport()
	e := New(tr)

	reporters := make(chan *ProgressReporter, 1)
	e.RegisterRequestHandler("tools/call", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		reporters <- e.Reporter(ctx)
		return nil, nil
	})

	req, err := protocol.NewRequest("peer_3", "tools/call", nil)
	require.NoError(t, err)
	req.ProgressToken = "tok_3"
	data, err := json.Marshal(req)
	require.NoError(t, err)
	tr.deliver(data)

	waitForSent(t, tr, 1)
	reporter := <-reporters

	// The request has resolved; the escaped reporter is inert now.
	deadline := time.Now().Add(time.Second)
	for e.tokenActive("tok_3") && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	reporter.Report(1.0, 1.0, "too late")

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, tr.sentCount())
}

func TestNotifyProgressOutbound(t *testing.T) {
	tr := newFakeTransport()
	e := New(tr)

	err := e.NotifyProgress(context.Background(), protocol.ProgressParams{
		ProgressToken: "tok_9",
		Progress:      0.25,
		Total:         1.0,
	})
	require.NoError(t, err)

	waitForSent(t, tr, 1)
	notif := sentNotification(t, tr, 0)
	assert.Equal(t, protocol.MethodProgress, notif.Method)

	var params protocol.ProgressParams
	require.NoError(t, json.Unmarshal(notif.Params, &params))
	assert.Equal(t, "tok_9", params.ProgressToken)
	assert.Equal(t, 0.25, params.Progress)
}
