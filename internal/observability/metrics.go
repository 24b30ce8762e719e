package observability

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MetricsRegistry holds all registered metrics.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
	gauges   map[string]*Gauge
	histos   map[string]*Histogram
}

// Counter is a monotonically increasing metric.
type Counter struct {
	name  string
	help  string
	value float64
	mu    sync.Mutex
}

// Gauge is a metric that can go up or down.
type Gauge struct {
	name  string
	help  string
	value float64
	mu    sync.Mutex
}

// Histogram tracks distribution of values.
type Histogram struct {
	name    string
	help    string
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
	mu      sync.Mutex
}

// NewMetricsRegistry creates a new metrics registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters: make(map[string]*Counter),
		gauges:   make(map[string]*Gauge),
		histos:   make(map[string]*Histogram),
	}
}

func (r *MetricsRegistry) NewCounter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := &Counter{name: name, help: help}
	r.counters[name] = c
	return c
}

func (r *MetricsRegistry) NewGauge(name, help string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := &Gauge{name: name, help: help}
	r.gauges[name] = g
	return g
}

// NewHistogram registers a histogram. Nil buckets means DefaultBuckets.
func (r *MetricsRegistry) NewHistogram(name, help string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	if buckets == nil {
		buckets = DefaultBuckets()
	}
	h := &Histogram{
		name:    name,
		help:    help,
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
	r.histos[name] = h
	return h
}

// DefaultBuckets returns default histogram buckets for latency in seconds.
func DefaultBuckets() []float64 {
	return []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
}

func (c *Counter) Inc() { c.Add(1) }

func (c *Counter) Add(v float64) {
	c.mu.Lock()
	c.value += v
	c.mu.Unlock()
}

func (c *Counter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func (g *Gauge) Set(v float64) {
	g.mu.Lock()
	g.value = v
	g.mu.Unlock()
}

func (g *Gauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Observe records a value in the histogram.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	for i, bound := range h.buckets {
		if v <= bound {
			h.counts[i]++
		}
	}
}

// Count returns the number of observations.
func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Handler returns an HTTP handler serving the Prometheus text format.
func (r *MetricsRegistry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		r.WritePrometheus(w)
	})
}

// WritePrometheus writes all metrics in Prometheus text format, sorted by name.
func (r *MetricsRegistry) WritePrometheus(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedNames(r.counters) {
		c := r.counters[name]
		writeMetric(w, c.name, "counter", c.help, c.Value())
	}
	for _, name := range sortedNames(r.gauges) {
		g := r.gauges[name]
		writeMetric(w, g.name, "gauge", g.help, g.Value())
	}
	for _, name := range sortedNames(r.histos) {
		h := r.histos[name]
		h.mu.Lock()
		writeHistogram(w, h)
		h.mu.Unlock()
	}
}

func writeMetric(w io.Writer, name, metricType, help string, value float64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, metricType)
	fmt.Fprintf(w, "%s %s\n", name, formatFloat(value))
}

func writeHistogram(w io.Writer, h *Histogram) {
	fmt.Fprintf(w, "# HELP %s %s\n", h.name, h.help)
	fmt.Fprintf(w, "# TYPE %s histogram\n", h.name)
	for i, bound := range h.buckets {
		fmt.Fprintf(w, "%s_bucket{le=\"%s\"} %d\n", h.name, formatFloat(bound), h.counts[i])
	}
	fmt.Fprintf(w, "%s_bucket{le=\"+Inf\"} %d\n", h.name, h.count)
	fmt.Fprintf(w, "%s_sum %s\n", h.name, formatFloat(h.sum))
	fmt.Fprintf(w, "%s_count %d\n", h.name, h.count)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func sortedNames[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AnalysisMetrics are the process-wide counters of analysis runs.
type AnalysisMetrics struct {
	Registry *MetricsRegistry

	RunsTotal       *Counter
	RunErrorsTotal  *Counter
	RunDuration     *Histogram
	FilesTotal      *Counter
	CyclesTotal     *Counter
	ViolationsTotal *Counter
	LastModules     *Gauge
	LastEdges       *Gauge
}

// NewAnalysisMetrics creates the analysis metrics on a fresh registry.
func NewAnalysisMetrics() *AnalysisMetrics {
	r := NewMetricsRegistry()
	return &AnalysisMetrics{
		Registry:        r,
		RunsTotal:       r.NewCounter("modgraph_runs_total", "Total analysis runs"),
		RunErrorsTotal:  r.NewCounter("modgraph_run_errors_total", "Analysis runs that failed"),
		RunDuration:     r.NewHistogram("modgraph_run_duration_seconds", "Analysis run duration", nil),
		FilesTotal:      r.NewCounter("modgraph_files_total", "Source files analyzed"),
		CyclesTotal:     r.NewCounter("modgraph_cycles_total", "Cyclic dependencies detected"),
		ViolationsTotal: r.NewCounter("modgraph_violations_total", "Architecture violations reported"),
		LastModules:     r.NewGauge("modgraph_last_modules", "Modules in the most recent graph"),
		LastEdges:       r.NewGauge("modgraph_last_edges", "Edges in the most recent graph"),
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *AnalysisMetrics) Handler() http.Handler {
	return m.Registry.Handler()
}

// RunStats summarizes one finished run.
type RunStats struct {
	Duration   time.Duration
	Files      int
	Modules    int
	Edges      int
	Cycles     int
	Violations int
}

// RecordRun records a finished analysis run.
func (m *AnalysisMetrics) RecordRun(s RunStats, err error) {
	m.RunsTotal.Inc()
	m.RunDuration.Observe(s.Duration.Seconds())
	if err != nil {
		m.RunErrorsTotal.Inc()
		return
	}
	m.FilesTotal.Add(float64(s.Files))
	m.CyclesTotal.Add(float64(s.Cycles))
	m.ViolationsTotal.Add(float64(s.Violations))
	m.LastModules.Set(float64(s.Modules))
	m.LastEdges.Set(float64(s.Edges))
}

var (
	globalMetrics *AnalysisMetrics
	metricsOnce   sync.Once
)

// Metrics returns the global metrics instance.
func Metrics() *AnalysisMetrics {
	metricsOnce.Do(func() {
		globalMetrics = NewAnalysisMetrics()
	})
	return globalMetrics
}

// String renders the registry, mainly for debugging.
func (r *MetricsRegistry) String() string {
	var b strings.Builder
	r.WritePrometheus(&b)
	return b.String()
}
