package common

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ---------------------------------------------------------------------------
// Interfaces
// ---------------------------------------------------------------------------

// Metrics is the telemetry API of the model layer.  The implementation
// (Prometheus, in-memory, noop) can be swapped without touching callers.
type Metrics interface {
	// RecordInference records a single inference call.
	RecordInference(ctx context.Context, params *InferenceMetricParams)

	// RecordCacheAccess records a model cache hit or miss.
	RecordCacheAccess(ctx context.Context, hit bool, key string)

	// RecordModelLoad records one loader execution.
	RecordModelLoad(ctx context.Context, key, modelID string, durationMs float64, success bool)

	// SetInflight reports the number of inference calls holding a worker slot.
	SetInflight(n int)
}

// InferenceMetricParams carries the data for a single inference event.
type InferenceMetricParams struct {
	ModelName  string  `json:"model_name"`
	TaskType   string  `json:"task_type"`
	DurationMs float64 `json:"duration_ms"`
	Success    bool    `json:"success"`
	InputChars int     `json:"input_chars"`
}

// ---------------------------------------------------------------------------
// Prometheus implementation
// ---------------------------------------------------------------------------

const metricsPrefix = "nlp_model_"

var defaultLatencyBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

var defaultLoadBuckets = []float64{100, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000}

type prometheusMetrics struct {
	inferenceTotal    *prometheus.CounterVec
	inferenceDuration *prometheus.HistogramVec
	cacheAccessTotal  *prometheus.CounterVec
	loadTotal         *prometheus.CounterVec
	loadDuration      *prometheus.HistogramVec
	inflight          prometheus.Gauge
}

// NewPrometheusMetrics registers the model-layer metrics on registerer.
func NewPrometheusMetrics(registerer prometheus.Registerer) (Metrics, error) {
	m := &prometheusMetrics{
		inferenceTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "inference_total",
			Help: "Inference calls by model, task and outcome.",
		}, []string{"model", "task", "status"}),
		inferenceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricsPrefix + "inference_duration_ms",
			Help:    "Inference latency in milliseconds.",
			Buckets: defaultLatencyBuckets,
		}, []string{"model", "task"}),
		cacheAccessTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "cache_access_total",
			Help: "Model cache lookups by key and result.",
		}, []string{"key", "result"}),
		loadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "load_total",
			Help: "Model loader executions by key and outcome.",
		}, []string{"key", "model", "status"}),
		loadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricsPrefix + "load_duration_ms",
			Help:    "Model load latency in milliseconds.",
			Buckets: defaultLoadBuckets,
		}, []string{"key"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricsPrefix + "inflight",
			Help: "Inference calls currently holding a worker slot.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.inferenceTotal, m.inferenceDuration, m.cacheAccessTotal,
		m.loadTotal, m.loadDuration, m.inflight,
	} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func statusLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func (m *prometheusMetrics) RecordInference(_ context.Context, p *InferenceMetricParams) {
	if p == nil {
		return
	}
	m.inferenceTotal.WithLabelValues(p.ModelName, p.TaskType, statusLabel(p.Success)).Inc()
	m.inferenceDuration.WithLabelValues(p.ModelName, p.TaskType).Observe(p.DurationMs)
}

func (m *prometheusMetrics) RecordCacheAccess(_ context.Context, hit bool, key string) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheAccessTotal.WithLabelValues(key, result).Inc()
}

func (m *prometheusMetrics) RecordModelLoad(_ context.Context, key, modelID string, durationMs float64, success bool) {
	m.loadTotal.WithLabelValues(key, modelID, statusLabel(success)).Inc()
	m.loadDuration.WithLabelValues(key).Observe(durationMs)
}

func (m *prometheusMetrics) SetInflight(n int) { m.inflight.Set(float64(n)) }

// ---------------------------------------------------------------------------
// Noop implementation
// ---------------------------------------------------------------------------

type noopMetrics struct{}

// NewNoopMetrics returns a Metrics that records nothing.
func NewNoopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordInference(context.Context, *InferenceMetricParams)        {}
func (noopMetrics) RecordCacheAccess(context.Context, bool, string)                {}
func (noopMetrics) RecordModelLoad(context.Context, string, string, float64, bool) {}
func (noopMetrics) SetInflight(int)                                                {}

// ---------------------------------------------------------------------------
// In-memory implementation (tests, debugging)
// ---------------------------------------------------------------------------

// InMemoryMetrics keeps counters in memory.  Safe for concurrent use.
type InMemoryMetrics struct {
	mu           sync.Mutex
	inferences   []InferenceMetricParams
	hits, misses int
	loads        map[string]int
	failedLoads  map[string]int
	inflight     int
	maxInflight  int
}

// NewInMemoryMetrics returns an empty InMemoryMetrics.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{loads: map[string]int{}, failedLoads: map[string]int{}}
}

func (m *InMemoryMetrics) RecordInference(_ context.Context, p *InferenceMetricParams) {
	if p == nil {
		return
	}
	m.mu.Lock()
	m.inferences = append(m.inferences, *p)
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordCacheAccess(_ context.Context, hit bool, _ string) {
	m.mu.Lock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordModelLoad(_ context.Context, key, _ string, _ float64, success bool) {
	m.mu.Lock()
	if success {
		m.loads[key]++
	} else {
		m.failedLoads[key]++
	}
	m.mu.Unlock()
}

func (m *InMemoryMetrics) SetInflight(n int) {
	m.mu.Lock()
	m.inflight = n
	if n > m.maxInflight {
		m.maxInflight = n
	}
	m.mu.Unlock()
}

// Inferences returns a copy of the recorded inference events.
func (m *InMemoryMetrics) Inferences() []InferenceMetricParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]InferenceMetricParams(nil), m.inferences...)
}

// CacheAccess returns hit and miss counts.
func (m *InMemoryMetrics) CacheAccess() (hits, misses int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}

// Loads returns successful and failed load counts for key.
func (m *InMemoryMetrics) Loads(key string) (ok, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads[key], m.failedLoads[key]
}

// MaxInflight returns the highest inflight value reported.
func (m *InMemoryMetrics) MaxInflight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInflight
}

//Personal.AI order the ending
