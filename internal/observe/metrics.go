// Package observe provides application-wide observability primitives for
// parlo: OpenTelemetry metrics and the HTTP middleware that records them for
// the operational endpoints.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all parlo metrics.
const meterName = "github.com/sprachpilot/parlo"

// Attempt outcome values for [Metrics.RecordAttempt].
const (
	OutcomePass        = "pass"
	OutcomeFail        = "fail"
	OutcomeEmpty       = "empty"
	OutcomeGated       = "gated"
	OutcomeUnavailable = "unavailable"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ListenDuration tracks speech capture latency.
	ListenDuration metric.Float64Histogram

	// SpeakDuration tracks audio prompt playback latency.
	SpeakDuration metric.Float64Histogram

	// --- Histograms ---

	// JudgeScore tracks the judged score of scored attempts, 0-100.
	// Use with attribute.String("mode", ...).
	JudgeScore metric.Float64Histogram

	// --- Counters ---

	// Attempts counts drill attempts. Use with attributes:
	//   attribute.String("mode", ...), attribute.String("outcome", ...)
	Attempts metric.Int64Counter

	// Hints counts hint playbacks triggered by production fail streaks.
	Hints metric.Int64Counter

	// Restarts counts full session restarts.
	Restarts metric.Int64Counter

	// --- Gauges ---

	// DeferredItems tracks the current size of the deferred review set.
	DeferredItems metric.Int64UpDownCounter

	// ActiveSessions tracks the number of drill sessions currently running.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// capture and playback operations.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 1.5, 2, 2.5, 3.5, 5, 10,
}

// scoreBuckets defines histogram bucket boundaries for the 0-100 judge score.
var scoreBuckets = []float64{
	0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ListenDuration, err = m.Float64Histogram("parlo.listen.duration",
		metric.WithDescription("Latency of speech capture."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SpeakDuration, err = m.Float64Histogram("parlo.speak.duration",
		metric.WithDescription("Latency of audio prompt playback."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.JudgeScore, err = m.Float64Histogram("parlo.judge.score",
		metric.WithDescription("Judged score of scored attempts, 0-100, by mode."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Attempts, err = m.Int64Counter("parlo.attempts",
		metric.WithDescription("Total drill attempts by mode and outcome."),
	); err != nil {
		return nil, err
	}
	if met.Hints, err = m.Int64Counter("parlo.hints",
		metric.WithDescription("Total hint playbacks triggered by fail streaks."),
	); err != nil {
		return nil, err
	}
	if met.Restarts, err = m.Int64Counter("parlo.restarts",
		metric.WithDescription("Total full session restarts."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.DeferredItems, err = m.Int64UpDownCounter("parlo.deferred_items",
		metric.WithDescription("Current size of the deferred review set."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("parlo.active_sessions",
		metric.WithDescription("Number of drill sessions currently running."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("parlo.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordAttempt records one drill attempt with the standard attribute set.
func (m *Metrics) RecordAttempt(ctx context.Context, mode, outcome string) {
	m.Attempts.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("mode", mode),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordJudgeScore records the judged score of one scored attempt.
func (m *Metrics) RecordJudgeScore(ctx context.Context, mode string, percent int) {
	m.JudgeScore.Record(ctx, float64(percent),
		metric.WithAttributes(attribute.String("mode", mode)),
	)
}
