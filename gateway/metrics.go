package gateway

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Call outcomes recorded in odoo_gateway_calls_total.
const (
	OutcomeOK       = "ok"
	OutcomeCacheHit = "cache_hit"
	OutcomeError    = "error"
)

// OtherLabel replaces a model or method label that would grow the label set
// past its bound.
const OtherLabel = "other"

// DefaultMaxModelLabels bounds the distinct model labels a Metrics records.
const DefaultMaxModelLabels = 200

// Metrics are the gateway's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	calls    *prometheus.CounterVec
	lookups  *prometheus.CounterVec
	retries  prometheus.Counter
	duration *prometheus.HistogramVec

	mu        sync.Mutex
	models    map[string]struct{}
	maxModels int
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odoo_gateway_calls_total",
			Help: "Gateway calls by model, method and outcome.",
		}, []string{"model", "method", "outcome"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odoo_gateway_cache_lookups_total",
			Help: "Result cache lookups by result (hit or miss).",
		}, []string{"result"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "odoo_gateway_retries_total",
			Help: "Backend invocations repeated after a failure.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "odoo_gateway_call_duration_seconds",
			Help:    "Gateway call latency including retries and cache lookups.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		models:    make(map[string]struct{}),
		maxModels: DefaultMaxModelLabels,
	}

	for _, c := range []prometheus.Collector{m.calls, m.lookups, m.retries, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("gateway: register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) observeCall(model, method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(m.modelLabel(model), method, outcome).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// modelLabel admits the first maxModels distinct models and folds the rest
// into OtherLabel.
func (m *Metrics) modelLabel(model string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.models[model]; ok {
		return model
	}
	if len(m.models) >= m.maxModels {
		return OtherLabel
	}
	m.models[model] = struct{}{}
	return model
}

func (m *Metrics) observeLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.WithLabelValues(result).Inc()
}

func (m *Metrics) observeRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}
