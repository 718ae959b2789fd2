// Package observability provides metrics for pattern runs.
package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Attribute keys
const (
	attrPattern = "pattern"
	attrOutcome = "outcome"
)

// Metrics holds the pattern-run instruments:
// - Latency: full run duration per pattern
// - Traffic: runs, deploys, status polls
// - Errors: non-successful runs and cleanup failures
// - Saturation: concurrently active runs (parallel batch mode)
type Metrics struct {
	meter metric.Meter

	RunDuration     metric.Float64Histogram
	RunsTotal       metric.Int64Counter
	RunErrorsTotal  metric.Int64Counter
	RunsActive      metric.Int64UpDownCounter
	DeploysTotal    metric.Int64Counter
	StatusPolls     metric.Int64Counter
	CleanupFailures metric.Int64Counter
}

// NewMetrics creates and registers all metrics with a Prometheus exporter.
func NewMetrics(ctx context.Context) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("ogctester")
	m := &Metrics{meter: meter}

	m.RunDuration, err = meter.Float64Histogram(
		"pattern_run_duration_seconds",
		metric.WithDescription("Full pattern run duration (deploy through cleanup) in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 600, 900, 1800),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RunsTotal, err = meter.Int64Counter(
		"pattern_runs_total",
		metric.WithDescription("Total number of pattern runs attempted"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RunErrorsTotal, err = meter.Int64Counter(
		"pattern_run_errors_total",
		metric.WithDescription("Total number of non-successful pattern runs"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RunsActive, err = meter.Int64UpDownCounter(
		"pattern_runs_active",
		metric.WithDescription("Number of currently active pattern runs (saturation)"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.DeploysTotal, err = meter.Int64Counter(
		"pattern_deploys_total",
		metric.WithDescription("Total number of successful process deployments"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.StatusPolls, err = meter.Int64Counter(
		"pattern_status_polls_total",
		metric.WithDescription("Total number of job status polls"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.CleanupFailures, err = meter.Int64Counter(
		"pattern_cleanup_failures_total",
		metric.WithDescription("Total number of failed cleanup attempts"),
	)
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.Handler(), nil
}

// RecordRunStarted records a pattern run entering the state machine.
func (m *Metrics) RecordRunStarted(ctx context.Context, patternID string) {
	attrs := metric.WithAttributes(patternAttr(patternID))
	m.RunsTotal.Add(ctx, 1, attrs)
	m.RunsActive.Add(ctx, 1, attrs)
}

// RecordRunFinished records a pattern run reaching Done.
func (m *Metrics) RecordRunFinished(ctx context.Context, patternID, outcome string, success bool, durationSeconds float64) {
	attrs := metric.WithAttributes(patternAttr(patternID), outcomeAttr(outcome))
	m.RunDuration.Record(ctx, durationSeconds, attrs)
	m.RunsActive.Add(ctx, -1, metric.WithAttributes(patternAttr(patternID)))

	if !success {
		m.RunErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordDeploy records a successful deployment.
func (m *Metrics) RecordDeploy(ctx context.Context, patternID string) {
	m.DeploysTotal.Add(ctx, 1, metric.WithAttributes(patternAttr(patternID)))
}

// RecordStatusPoll records one job status query.
func (m *Metrics) RecordStatusPoll(ctx context.Context, patternID string) {
	m.StatusPolls.Add(ctx, 1, metric.WithAttributes(patternAttr(patternID)))
}

// RecordCleanupFailure records a failed cleanup attempt.
func (m *Metrics) RecordCleanupFailure(ctx context.Context, patternID string) {
	m.CleanupFailures.Add(ctx, 1, metric.WithAttributes(patternAttr(patternID)))
}

func patternAttr(patternID string) attribute.KeyValue {
	return attribute.String(attrPattern, patternID)
}

func outcomeAttr(outcome string) attribute.KeyValue {
	return attribute.String(attrOutcome, outcome)
}
