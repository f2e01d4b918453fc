package metrics

import (
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// PrometheusExporter serves a Registry's metrics in Prometheus text
// exposition format over HTTP.
type PrometheusExporter struct {
	mu            sync.RWMutex
	namespace     string
	path          string
	enableRuntime bool
	registry      *Registry
}

// PrometheusConfig configures a PrometheusExporter.
type PrometheusConfig struct {
	// Namespace is prepended to every metric name (e.g. "discv5" turns
	// "lookup.started" into "discv5_lookup_started").
	Namespace string
	// Path is the HTTP path metrics are served on (default "/metrics").
	Path string
	// EnableRuntime includes Go runtime metrics (goroutines, heap bytes and
	// objects) and the process uptime.
	EnableRuntime bool
}

// NewPrometheusExporter creates an exporter reading from registry.
func NewPrometheusExporter(registry *Registry, config PrometheusConfig) *PrometheusExporter {
	if config.Path == "" {
		config.Path = "/metrics"
	}
	return &PrometheusExporter{
		namespace:     config.Namespace,
		path:          config.Path,
		enableRuntime: config.EnableRuntime,
		registry:      registry,
	}
}

// Handler returns an http.Handler serving the configured metrics path.
func (pe *PrometheusExporter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(pe.path, pe.handleMetrics)
	return mux
}

func (pe *PrometheusExporter) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	var b strings.Builder
	pe.writeRegistryMetrics(&b)
	if pe.enableRuntime {
		pe.writeRuntimeMetrics(&b)
	}
	w.Write([]byte(b.String()))
}

func (pe *PrometheusExporter) writeRegistryMetrics(b *strings.Builder) {
	pe.registry.mu.RLock()
	defer pe.registry.mu.RUnlock()

	for _, name := range sortedKeys(pe.registry.counters) {
		c := pe.registry.counters[name]
		promName := pe.promName(name)
		writeType(b, promName, "counter")
		fmt.Fprintf(b, "%s %d\n", promName, c.Value())
	}
	for _, name := range sortedKeys(pe.registry.gauges) {
		g := pe.registry.gauges[name]
		promName := pe.promName(name)
		writeType(b, promName, "gauge")
		fmt.Fprintf(b, "%s %d\n", promName, g.Value())
	}
	for _, name := range sortedKeys(pe.registry.histograms) {
		h := pe.registry.histograms[name]
		promName := pe.promName(name)
		writeType(b, promName, "summary")
		fmt.Fprintf(b, "%s_count %d\n", promName, h.Count())
		fmt.Fprintf(b, "%s_sum %g\n", promName, h.Sum())
		if h.Count() > 0 {
			fmt.Fprintf(b, "%s_min %g\n", promName, h.Min())
			fmt.Fprintf(b, "%s_max %g\n", promName, h.Max())
			fmt.Fprintf(b, "%s_mean %g\n", promName, h.Mean())
		}
	}
}

func (pe *PrometheusExporter) writeRuntimeMetrics(b *strings.Builder) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	prefix := pe.namespace
	if prefix != "" {
		prefix += "_"
	}

	writeType(b, prefix+"go_goroutines", "gauge")
	fmt.Fprintf(b, "%sgo_goroutines %d\n", prefix, runtime.NumGoroutine())

	writeType(b, prefix+"go_memstats_heap_alloc_bytes", "gauge")
	fmt.Fprintf(b, "%sgo_memstats_heap_alloc_bytes %d\n", prefix, m.HeapAlloc)

	writeType(b, prefix+"go_memstats_heap_objects", "gauge")
	fmt.Fprintf(b, "%sgo_memstats_heap_objects %d\n", prefix, m.HeapObjects)

	writeType(b, prefix+"process_uptime_seconds", "gauge")
	fmt.Fprintf(b, "%sprocess_uptime_seconds %g\n", prefix, time.Since(processStartTime).Seconds())
}

func (pe *PrometheusExporter) promName(name string) string {
	sanitized := strings.ReplaceAll(name, ".", "_")
	sanitized = strings.ReplaceAll(sanitized, "-", "_")
	if pe.namespace != "" {
		return pe.namespace + "_" + sanitized
	}
	return sanitized
}

func writeType(b *strings.Builder, name, metricType string) {
	fmt.Fprintf(b, "# TYPE %s %s\n", name, metricType)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var processStartTime = time.Now()
