package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestLatencyHistograms(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	tests := []struct {
		name string
		hist metric.Float64Histogram
	}{
		{"parlo.listen.duration", m.ListenDuration},
		{"parlo.speak.duration", m.SpeakDuration},
	}
	for _, tt := range tests {
		tt.hist.Record(ctx, 0.42)
	}

	rm := collect(t, reader)
	for _, tt := range tests {
		met := findMetric(rm, tt.name)
		if met == nil {
			t.Errorf("metric %q not found after recording", tt.name)
			continue
		}
		hist, ok := met.Data.(metricdata.Histogram[float64])
		if !ok {
			t.Errorf("metric %q: data type = %T, want Histogram[float64]", tt.name, met.Data)
			continue
		}
		if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
			t.Errorf("metric %q: data points = %+v, want one point with count 1", tt.name, hist.DataPoints)
		}
	}
}

func TestRecordAttempt(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAttempt(ctx, "learn", OutcomePass)
	m.RecordAttempt(ctx, "learn", OutcomePass)
	m.RecordAttempt(ctx, "learn", OutcomeEmpty)
	m.RecordAttempt(ctx, "test_c", OutcomeFail)

	rm := collect(t, reader)
	met := findMetric(rm, "parlo.attempts")
	if met == nil {
		t.Fatal("parlo.attempts not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("data type = %T, want Sum[int64]", met.Data)
	}
	if len(sum.DataPoints) != 3 {
		t.Fatalf("data points = %d, want 3 distinct attribute sets", len(sum.DataPoints))
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 4 {
		t.Errorf("total attempts = %d, want 4", total)
	}
}

func TestRecordJudgeScore(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordJudgeScore(ctx, "learn", 86)
	m.RecordJudgeScore(ctx, "learn", 100)

	rm := collect(t, reader)
	met := findMetric(rm, "parlo.judge.score")
	if met == nil {
		t.Fatal("parlo.judge.score not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("data type = %T, want Histogram[float64]", met.Data)
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 2 {
		t.Errorf("data points = %+v, want one series with count 2", hist.DataPoints)
	}
	if got := hist.DataPoints[0].Sum; got != 186 {
		t.Errorf("score sum = %v, want 186", got)
	}
}

func TestDeferredItemsGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.DeferredItems.Add(ctx, 2)
	m.DeferredItems.Add(ctx, -1)

	rm := collect(t, reader)
	met := findMetric(rm, "parlo.deferred_items")
	if met == nil {
		t.Fatal("parlo.deferred_items not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("data type = %T, want Sum[int64]", met.Data)
	}
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
		t.Errorf("data points = %+v, want single value 1", sum.DataPoints)
	}
}

func TestCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.Hints.Add(ctx, 1)
	m.Restarts.Add(ctx, 1)

	rm := collect(t, reader)
	for _, name := range []string{"parlo.hints", "parlo.restarts"} {
		met := findMetric(rm, name)
		if met == nil {
			t.Errorf("metric %q not found", name)
			continue
		}
		sum, ok := met.Data.(metricdata.Sum[int64])
		if !ok || len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
			t.Errorf("metric %q = %+v, want single count 1", name, met.Data)
		}
	}
}

func TestDefaultMetricsIsSingleton(t *testing.T) {
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different instances")
	}
}
