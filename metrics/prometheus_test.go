package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPrometheusExporterServesCounterAndGauge(t *testing.T) {
	r := NewRegistry()
	r.Counter("discover.requests_sent").Add(3)
	r.Gauge("discover.table_size").Set(42)

	exp := NewPrometheusExporter(r, PrometheusConfig{Namespace: "discv5"})
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	exp.Handler().ServeHTTP(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "discv5_discover_requests_sent 3") {
		t.Errorf("missing counter line, got:\n%s", body)
	}
	if !strings.Contains(body, "discv5_discover_table_size 42") {
		t.Errorf("missing gauge line, got:\n%s", body)
	}
}

func TestPrometheusExporterServesHistogram(t *testing.T) {
	r := NewRegistry()
	h := r.Histogram("lookup.duration_ms")
	h.Observe(10)
	h.Observe(20)

	exp := NewPrometheusExporter(r, PrometheusConfig{})
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	exp.Handler().ServeHTTP(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "lookup_duration_ms_count 2") {
		t.Errorf("missing histogram count line, got:\n%s", body)
	}
	if !strings.Contains(body, "lookup_duration_ms_mean 15") {
		t.Errorf("missing histogram mean line, got:\n%s", body)
	}
}

func TestPrometheusExporterCustomPath(t *testing.T) {
	r := NewRegistry()
	exp := NewPrometheusExporter(r, PrometheusConfig{Path: "/custom"})

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	exp.Handler().ServeHTTP(w, req)
	if w.Code != 404 {
		t.Errorf("default path should 404 when custom path is configured, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/custom", nil)
	w = httptest.NewRecorder()
	exp.Handler().ServeHTTP(w, req)
	if w.Code != 200 {
		t.Errorf("custom path: want 200, got %d", w.Code)
	}
}

func TestPrometheusExporterRejectsPost(t *testing.T) {
	r := NewRegistry()
	exp := NewPrometheusExporter(r, PrometheusConfig{})

	req := httptest.NewRequest("POST", "/metrics", nil)
	w := httptest.NewRecorder()
	exp.Handler().ServeHTTP(w, req)
	if w.Code != 405 {
		t.Errorf("POST should be rejected: want 405, got %d", w.Code)
	}
}

func TestPrometheusExporterRuntimeMetrics(t *testing.T) {
	r := NewRegistry()
	exp := NewPrometheusExporter(r, PrometheusConfig{EnableRuntime: true})

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	exp.Handler().ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("expected runtime metrics when EnableRuntime is set")
	}
}
