package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsProviderDefaults(t *testing.T) {
	p, err := NewMetricsProvider(MetricsConfig{})
	require.NoError(t, err)

	assert.Equal(t, "mcp_endpoint", p.config.Namespace)
	assert.Equal(t, "/metrics", p.config.MetricsPath)
	assert.Equal(t, 9090, p.config.MetricsPort)
}

func TestPendingCallsGauge(t *testing.T) {
	p, err := NewMetricsProvider(MetricsConfig{})
	require.NoError(t, err)

	p.PendingCallsInc()
	p.PendingCallsInc()
	p.PendingCallsDec()

	assert.Equal(t, 1.0, testutil.ToFloat64(p.pendingCalls))
}

func TestRequestCounters(t *testing.T) {
	p, err := NewMetricsProvider(MetricsConfig{})
	require.NoError(t, err)

	p.RecordRequest("ping", OutcomeSuccess, 5*time.Millisecond)
	p.RecordRequest("ping", OutcomeSuccess, 7*time.Millisecond)
	p.RecordRequest("ping", OutcomeCancelled, time.Millisecond)

	success := p.requestTotal.WithLabelValues("ping", OutcomeSuccess)
	cancelled := p.requestTotal.WithLabelValues("ping", OutcomeCancelled)
	assert.Equal(t, 2.0, testutil.ToFloat64(success))
	assert.Equal(t, 1.0, testutil.ToFloat64(cancelled))
}

func TestAnomalyCounters(t *testing.T) {
	p, err := NewMetricsProvider(MetricsConfig{})
	require.NoError(t, err)

	p.RecordStrayResponse()
	p.RecordStrayResponse()
	p.RecordDroppedProgress()
	p.RecordProtocolError("malformed")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.strayResponseTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.droppedProgressTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.protocolErrorTotal.WithLabelValues("malformed")))
}

func TestProgressDirections(t *testing.T) {
	p, err := NewMetricsProvider(MetricsConfig{})
	require.NoError(t, err)

	p.RecordProgress(DirectionInbound)
	p.RecordProgress(DirectionInbound)
	p.RecordProgress(DirectionOutbound)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.progressTotal.WithLabelValues(DirectionInbound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.progressTotal.WithLabelValues(DirectionOutbound)))
}

func TestNoopMetricsImplementsProvider(t *testing.T) {
	var provider MetricsProvider = NewNoopMetrics()

	// Must all be safe no-ops.
	provider.RecordRequest("x", OutcomeError, time.Second)
	provider.PendingCallsInc()
	provider.PendingCallsDec()
	provider.RecordStrayResponse()
	assert.NoError(t, provider.Start(context.Background()))
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestTracingProviderNoopExporter(t *testing.T) {
	tp, err := NewTracingProvider(TracingConfig{
		ServiceName:  "endpoint-test",
		ExporterType: ExporterTypeNoop,
	})
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, tp.Shutdown(ctx))
	}()

	ctx, span := tp.StartRequestSpan(context.Background(), "ping", "req_1")
	require.NotNil(t, span)
	span.End()

	_, dispatchSpan := tp.StartDispatchSpan(ctx, "ping")
	require.NotNil(t, dispatchSpan)
	dispatchSpan.End()
}

func TestTracingProviderRejectsUnknownExporter(t *testing.T) {
	_, err := NewTracingProvider(TracingConfig{ExporterType: "carrier-pigeon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported exporter type")
}
