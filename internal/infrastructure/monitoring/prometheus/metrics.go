package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds the service-level metrics.  Model-layer metrics (inference,
// model cache, model loads) live in the intelligence package and register on
// the same registry through MetricsCollector.Registerer.
type AppMetrics struct {
	// HTTP Layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPRequestSize     HistogramVec
	HTTPResponseSize    HistogramVec
	HTTPActiveRequests  GaugeVec

	// Auth Layer
	AuthAttemptsTotal CounterVec

	// History store
	HistoryAppendsTotal  CounterVec
	HistoryReadsTotal    CounterVec
	HistoryReadRecords   HistogramVec
	HistoryCorruptTotal  CounterVec
	HistoryBackendStatus GaugeVec

	// Metric sink
	SinkEmitTotal    CounterVec
	SinkEmitDuration HistogramVec

	// System Health
	ServiceInfo GaugeVec
	ErrorsTotal CounterVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	DefaultSizeBuckets         = []float64{100, 1000, 10000, 100000, 1000000}
	DefaultRecordCountBuckets  = []float64{0, 1, 5, 10, 50, 100, 500, 1000}
	DefaultSinkDurationBuckets = []float64{.001, .005, .01, .05, .1, .5, 1, 5}
)

// NewAppMetrics registers all metrics and returns AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPRequestSize = collector.RegisterHistogram("http_request_size_bytes", "HTTP request size", DefaultSizeBuckets, "method", "path")
	m.HTTPResponseSize = collector.RegisterHistogram("http_response_size_bytes", "HTTP response size", DefaultSizeBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")

	// Auth
	m.AuthAttemptsTotal = collector.RegisterCounter("auth_attempts_total", "API key checks", "result", "failure_reason")

	// History
	m.HistoryAppendsTotal = collector.RegisterCounter("history_appends_total", "Request log appends", "status")
	m.HistoryReadsTotal = collector.RegisterCounter("history_reads_total", "Request log reads", "status")
	m.HistoryReadRecords = collector.RegisterHistogram("history_read_records", "Records returned per request log read", DefaultRecordCountBuckets)
	m.HistoryCorruptTotal = collector.RegisterCounter("history_corrupt_entries_total", "Request log entries skipped because they did not decode")
	m.HistoryBackendStatus = collector.RegisterGauge("history_backend_up", "Request log backend reachability (1=up, 0=down)")

	// Sink
	m.SinkEmitTotal = collector.RegisterCounter("sink_emit_total", "Metric sink emissions", "driver", "status")
	m.SinkEmitDuration = collector.RegisterHistogram("sink_emit_duration_seconds", "Metric sink emission duration", DefaultSinkDurationBuckets, "driver")

	// System Health
	m.ServiceInfo = collector.RegisterGauge("service_info", "Static service information", "version", "sink_driver")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_code")

	return m
}

// Helpers

func statusLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration, reqSize, respSize int64) {
	status := strconv.Itoa(statusCode)
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	if reqSize >= 0 {
		metrics.HTTPRequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	}
	if respSize >= 0 {
		metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
	}
}

func RecordAuthAttempt(metrics *AppMetrics, success bool, failureReason string) {
	metrics.AuthAttemptsTotal.WithLabelValues(statusLabel(success), failureReason).Inc()
}

func RecordError(metrics *AppMetrics, component, errorCode string) {
	metrics.ErrorsTotal.WithLabelValues(component, errorCode).Inc()
}

// ─────────────────────────────────────────────────────────────────────────────
// Adapters
// ─────────────────────────────────────────────────────────────────────────────

// HistoryMetrics adapts AppMetrics to the history store's Metrics interface.
type HistoryMetrics struct{ m *AppMetrics }

// NewHistoryMetrics returns the history store adapter.
func NewHistoryMetrics(m *AppMetrics) *HistoryMetrics { return &HistoryMetrics{m: m} }

func (h *HistoryMetrics) ObserveAppend(ok bool) {
	h.m.HistoryAppendsTotal.WithLabelValues(statusLabel(ok)).Inc()
}

func (h *HistoryMetrics) ObserveRead(ok bool, records int) {
	h.m.HistoryReadsTotal.WithLabelValues(statusLabel(ok)).Inc()
	if ok {
		h.m.HistoryReadRecords.WithLabelValues().Observe(float64(records))
	}
}

func (h *HistoryMetrics) IncCorruptEntries() {
	h.m.HistoryCorruptTotal.WithLabelValues().Inc()
}

// SetBackendUp records the latest backend ping result.
func (h *HistoryMetrics) SetBackendUp(up bool) {
	v := 0.0
	if up {
		v = 1
	}
	h.m.HistoryBackendStatus.WithLabelValues().Set(v)
}

// SinkMetrics adapts AppMetrics to the metric sink reporter.
type SinkMetrics struct{ m *AppMetrics }

// NewSinkMetrics returns the sink reporter adapter.
func NewSinkMetrics(m *AppMetrics) *SinkMetrics { return &SinkMetrics{m: m} }

func (s *SinkMetrics) ObserveEmit(driver string, ok bool, d time.Duration) {
	s.m.SinkEmitTotal.WithLabelValues(driver, statusLabel(ok)).Inc()
	s.m.SinkEmitDuration.WithLabelValues(driver).Observe(d.Seconds())
}

//Personal.AI order the ending
