package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("endpoint", "primary"),
		attribute.String("user_id", "456"),
		attribute.String("reason", "empty"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "endpoint" && attrs[1].Key != "endpoint" {
		t.Fatalf("expected endpoint to be retained")
	}
	if attrs[0].Key != "reason" && attrs[1].Key != "reason" {
		t.Fatalf("expected reason to be retained")
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.RecordUpstreamRequest(context.Background(), "primary", 200)
	m.RecordFallbackUsed(context.Background())
	m.RecordUniverseOutcome(context.Background(), "success")
}

func TestRecordUniverseOutcome(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := New(Config{ServiceName: "test"}, provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordUniverseOutcome(ctx, "empty")
	m.RecordUniverseOutcome(ctx, "empty")
	m.RecordUniverseOutcome(ctx, "success")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	var found bool
	for _, scope := range rm.ScopeMetrics {
		for _, md := range scope.Metrics {
			if md.Name != "gamepasses_universe_outcomes_total" {
				continue
			}
			found = true
			sum, ok := md.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			assert.Equal(t, int64(3), total)
			assert.Len(t, sum.DataPoints, 2)
		}
	}
	assert.True(t, found)
}
