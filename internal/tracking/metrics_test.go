package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMeterProvider(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	ResetForTesting()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
		otel.SetMeterProvider(prev)
		ResetForTesting()
	})

	return reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != meterName {
			continue
		}
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m.Data
			}
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func attrValue(t *testing.T, set attribute.Set, key string) attribute.Value {
	t.Helper()
	v, ok := set.Value(attribute.Key(key))
	require.True(t, ok, "attribute %s missing", key)
	return v
}

func TestRecordAttempt(t *testing.T) {
	reader := setupTestMeterProvider(t)

	RecordAttempt(context.Background(), Attempt{
		Domain: "billing", Method: "GET", Number: 2, StatusCode: 503,
		ErrorType: "serverError", Duration: 40 * time.Millisecond,
	})

	hist, ok := collect(t, reader, metricAttemptDuration).(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	dp := hist.DataPoints[0]
	assert.Equal(t, uint64(1), dp.Count)
	assert.Equal(t, "billing", attrValue(t, dp.Attributes, attrDomain).AsString())
	assert.Equal(t, int64(503), attrValue(t, dp.Attributes, attrStatusCode).AsInt64())
	assert.Equal(t, "serverError", attrValue(t, dp.Attributes, attrErrorType).AsString())
	assert.Equal(t, int64(2), attrValue(t, dp.Attributes, attrAttempt).AsInt64())
}

func TestRecordAttemptOmitsEmptyOptionalAttributes(t *testing.T) {
	reader := setupTestMeterProvider(t)

	RecordAttempt(context.Background(), Attempt{Domain: "billing", Method: "GET", Number: 1, Duration: time.Millisecond})

	hist := collect(t, reader, metricAttemptDuration).(metricdata.Histogram[float64])
	_, hasStatus := hist.DataPoints[0].Attributes.Value(attrStatusCode)
	_, hasErr := hist.DataPoints[0].Attributes.Value(attrErrorType)
	assert.False(t, hasStatus)
	assert.False(t, hasErr)
}

func TestRecordRetry(t *testing.T) {
	reader := setupTestMeterProvider(t)

	RecordRetry(context.Background(), "billing", "timeout")
	RecordRetry(context.Background(), "billing", "timeout")

	sum, ok := collect(t, reader, metricRetries).(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
}

func TestRecordRefreshOutcomes(t *testing.T) {
	reader := setupTestMeterProvider(t)

	RecordRefresh(context.Background(), 5*time.Millisecond, nil)
	RecordRefresh(context.Background(), 5*time.Millisecond, errors.New("denied"))
	RecordRefresh(context.Background(), 5*time.Millisecond, nil)

	sum := collect(t, reader, metricRefreshes).(metricdata.Sum[int64])
	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		counts[attrValue(t, dp.Attributes, attrOutcome).AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{OutcomeSuccess: 2, OutcomeFailure: 1}, counts)
}

func TestRecordStoreOperation(t *testing.T) {
	reader := setupTestMeterProvider(t)

	RecordStoreOperation(context.Background(), "redis", "get", time.Millisecond, "not_found")

	hist := collect(t, reader, metricStoreDuration).(metricdata.Histogram[float64])
	require.Len(t, hist.DataPoints, 1)
	attrs := hist.DataPoints[0].Attributes
	assert.Equal(t, "redis", attrValue(t, attrs, attrDBSystem).AsString())
	assert.Equal(t, "get", attrValue(t, attrs, attrDBOperation).AsString())
	assert.Equal(t, "not_found", attrValue(t, attrs, attrErrorType).AsString())
}
