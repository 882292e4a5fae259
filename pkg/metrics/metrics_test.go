package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRecorder_RecordsCounters(t *testing.T) {
	ctx := t.Context()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	rec, err := New(provider.Meter("test"))
	require.NoError(t, err)

	rec.ConnectionOpened(ctx)
	rec.ConnectionOpened(ctx)
	rec.ProbeFailed(ctx)
	rec.Resubscribed(ctx, 2, 1)
	rec.MessageReceived(ctx, false)
	rec.MessageReceived(ctx, true)
	rec.PollTimedOut(ctx)
	rec.CommandFailed(ctx, "protocol")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", m.Name)
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}

	assert.Equal(t, int64(2), totals["steadyredis_connection_opens_total"])
	assert.Equal(t, int64(1), totals["steadyredis_probe_failures_total"])
	assert.Equal(t, int64(1), totals["steadyredis_resubscriptions_total"])
	assert.Equal(t, int64(3), totals["steadyredis_subscribe_requests_total"])
	assert.Equal(t, int64(2), totals["steadyredis_messages_received_total"])
	assert.Equal(t, int64(1), totals["steadyredis_poll_timeouts_total"])
	assert.Equal(t, int64(1), totals["steadyredis_command_errors_total"])
}

func TestNop(t *testing.T) {
	rec := Nop()
	rec.ConnectionOpened(t.Context())
	rec.ConnectionFailed(t.Context())
	rec.MessageReceived(t.Context(), true)
}
