package observe

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// probeMux builds the operational surface the middleware wraps in cmd/parlo.
func probeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	return mux
}

func TestMiddleware_RecordsDurationWithAttributes(t *testing.T) {
	m, reader := newTestMetrics(t)
	handler := Middleware(m)(probeMux())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	rm := collect(t, reader)
	met := findMetric(rm, "parlo.http.request.duration")
	if met == nil {
		t.Fatal("parlo.http.request.duration not recorded")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("metric data is %T, want histogram", met.Data)
	}
	if len(hist.DataPoints) != 1 {
		t.Fatalf("data points = %d, want 1", len(hist.DataPoints))
	}

	dp := hist.DataPoints[0]
	if dp.Count != 1 {
		t.Errorf("sample count = %d, want 1", dp.Count)
	}
	want := map[string]string{"method": "GET", "path": "/healthz", "status": "200"}
	for _, kv := range dp.Attributes.ToSlice() {
		if v, ok := want[string(kv.Key)]; ok && kv.Value.Emit() == v {
			delete(want, string(kv.Key))
		}
	}
	for k, v := range want {
		t.Errorf("missing attribute %s=%s", k, v)
	}
}

func TestMiddleware_PassesThroughHandlerStatus(t *testing.T) {
	m, reader := newTestMetrics(t)
	handler := Middleware(m)(probeMux())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("response status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	rm := collect(t, reader)
	met := findMetric(rm, "parlo.http.request.duration")
	if met == nil {
		t.Fatal("parlo.http.request.duration not recorded")
	}
	dp := met.Data.(metricdata.Histogram[float64]).DataPoints[0]
	found := false
	for _, kv := range dp.Attributes.ToSlice() {
		if string(kv.Key) == "status" && kv.Value.AsInt64() == 503 {
			found = true
		}
	}
	if !found {
		t.Error("missing status=503 attribute on duration metric")
	}
}

func TestMiddleware_DefaultsToStatus200(t *testing.T) {
	m, reader := newTestMetrics(t)
	// A handler that writes a body without calling WriteHeader.
	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	rm := collect(t, reader)
	dp := findMetric(rm, "parlo.http.request.duration").Data.(metricdata.Histogram[float64]).DataPoints[0]
	found := false
	for _, kv := range dp.Attributes.ToSlice() {
		if string(kv.Key) == "status" && kv.Value.AsInt64() == 200 {
			found = true
		}
	}
	if !found {
		t.Error("missing status=200 attribute for implicit WriteHeader")
	}
}

func TestMiddleware_LogsAtDebug(t *testing.T) {
	m, _ := newTestMetrics(t)

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	handler := Middleware(m)(probeMux())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	logged := buf.String()
	if !bytes.Contains([]byte(logged), []byte("http request")) {
		t.Errorf("access log line missing, got: %s", logged)
	}
	if !bytes.Contains([]byte(logged), []byte("path=/healthz")) {
		t.Errorf("access log missing path, got: %s", logged)
	}
	if !bytes.Contains([]byte(logged), []byte("level=DEBUG")) {
		t.Errorf("access log not at debug level, got: %s", logged)
	}
}
