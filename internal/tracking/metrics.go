// Package tracking owns the OpenTelemetry instruments recorded by the request
// pipeline, the auth refresh coordinator and the key-value stores.
package tracking

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "routekit"

	metricAttemptDuration = "http.client.request.duration" // Histogram in seconds, one point per attempt
	metricRetries         = "routekit.client.retries"
	metricRefreshes       = "routekit.auth.refreshes"
	metricRefreshDuration = "routekit.auth.refresh.duration"
	metricStoreDuration   = "db.client.operation.duration"

	attrMethod      = "http.request.method"
	attrStatusCode  = "http.response.status_code"
	attrErrorType   = "error.type"
	attrDomain      = "routekit.domain"
	attrAttempt     = "routekit.attempt"
	attrOutcome     = "routekit.outcome"
	attrDBSystem    = "db.system.name"
	attrDBOperation = "db.operation.name"
)

// Refresh outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	meter       metric.Meter
	meterOnce   sync.Once
	meterInitMu sync.Mutex

	attemptDuration metric.Float64Histogram
	retryCounter    metric.Int64Counter
	refreshCounter  metric.Int64Counter
	refreshDuration metric.Float64Histogram
	storeDuration   metric.Float64Histogram
)

func logMetricError(name string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize routekit metric %s: %v\n", name, err)
	}
}

func initMeter() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	if meter != nil {
		return
	}
	meter = otel.Meter(meterName)

	var err error
	attemptDuration, err = meter.Float64Histogram(metricAttemptDuration,
		metric.WithDescription("Duration of a single outbound request attempt"),
		metric.WithUnit("s"))
	logMetricError(metricAttemptDuration, err)

	retryCounter, err = meter.Int64Counter(metricRetries,
		metric.WithDescription("Number of retries authorized by the interceptor chain"),
		metric.WithUnit("{retry}"))
	logMetricError(metricRetries, err)

	refreshCounter, err = meter.Int64Counter(metricRefreshes,
		metric.WithDescription("Number of token refresh operations actually executed"),
		metric.WithUnit("{refresh}"))
	logMetricError(metricRefreshes, err)

	refreshDuration, err = meter.Float64Histogram(metricRefreshDuration,
		metric.WithDescription("Duration of token refresh operations"),
		metric.WithUnit("s"))
	logMetricError(metricRefreshDuration, err)

	storeDuration, err = meter.Float64Histogram(metricStoreDuration,
		metric.WithDescription("Duration of key-value store operations"),
		metric.WithUnit("s"))
	logMetricError(metricStoreDuration, err)
}

func ensureInitialized() {
	meterOnce.Do(initMeter)
}

// Attempt describes one transport attempt.
type Attempt struct {
	Domain     string
	Method     string
	Number     int
	StatusCode int
	// ErrorType is the classified error kind; empty on success.
	ErrorType string
	Duration  time.Duration
}

// RecordAttempt records the duration of a single attempt.
func RecordAttempt(ctx context.Context, a Attempt) {
	ensureInitialized()
	if attemptDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrDomain, a.Domain),
		attribute.String(attrMethod, a.Method),
		attribute.Int(attrAttempt, a.Number),
	}
	if a.StatusCode > 0 {
		attrs = append(attrs, attribute.Int(attrStatusCode, a.StatusCode))
	}
	if a.ErrorType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, a.ErrorType))
	}
	attemptDuration.Record(ctx, a.Duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRetry counts a retry authorized for domain after an error of errorType.
func RecordRetry(ctx context.Context, domain, errorType string) {
	ensureInitialized()
	if retryCounter == nil {
		return
	}
	retryCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrDomain, domain),
		attribute.String(attrErrorType, errorType),
	))
}

// RecordRefresh records one executed token refresh. Callers that joined an
// in-flight refresh must not record.
func RecordRefresh(ctx context.Context, duration time.Duration, err error) {
	ensureInitialized()

	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	attrs := metric.WithAttributes(attribute.String(attrOutcome, outcome))

	if refreshCounter != nil {
		refreshCounter.Add(ctx, 1, attrs)
	}
	if refreshDuration != nil {
		refreshDuration.Record(ctx, duration.Seconds(), attrs)
	}
}

// RecordStoreOperation records a key-value store operation.
// errorType is empty for successful operations.
func RecordStoreOperation(ctx context.Context, system, operation string, duration time.Duration, errorType string) {
	ensureInitialized()
	if storeDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrDBSystem, system),
		attribute.String(attrDBOperation, operation),
	}
	if errorType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, errorType))
	}
	storeDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// ResetForTesting drops the cached meter so a test MeterProvider is picked up.
func ResetForTesting() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	meter = nil
	attemptDuration = nil
	retryCounter = nil
	refreshCounter = nil
	refreshDuration = nil
	storeDuration = nil
	meterOnce = sync.Once{}
}
