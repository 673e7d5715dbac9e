package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "salesorders"

// EngineMetrics records resolver tiers and pricing operation outcomes.
type EngineMetrics struct {
	resolutions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	success     *prometheus.CounterVec
	failure     *prometheus.CounterVec
	lockWait    prometheus.Histogram
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "product_resolutions_total",
		Help:      "Product reference resolutions by matching tier.",
	}, []string{"tier"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pricing_operation_duration_seconds",
		Help:      "Duration of order pricing operations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pricing_operation_success_total",
		Help:      "Successful order pricing operations.",
	}, []string{"op"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pricing_operation_failure_total",
		Help:      "Failed order pricing operations.",
	}, []string{"op"})
	lockWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "order_lock_wait_seconds",
		Help:      "Time spent waiting for the per-order lock.",
		Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
	})
	reg.MustRegister(resolutions, duration, success, failure, lockWait)
	return &EngineMetrics{
		resolutions: resolutions,
		duration:    duration,
		success:     success,
		failure:     failure,
		lockWait:    lockWait,
	}
}

// IncResolution counts one resolution answered by tier.
func (m *EngineMetrics) IncResolution(tier string) {
	if m == nil || m.resolutions == nil {
		return
	}
	m.resolutions.WithLabelValues(normalizeLabel(tier)).Inc()
}

// ObserveDuration records the duration for the named operation.
func (m *EngineMetrics) ObserveDuration(op string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (m *EngineMetrics) IncSuccess(op string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncFailure increments the failure counter for the named operation.
func (m *EngineMetrics) IncFailure(op string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(op)).Inc()
}

// ObserveLockWait records how long a caller waited for an order lock.
func (m *EngineMetrics) ObserveLockWait(wait time.Duration) {
	if m == nil || m.lockWait == nil {
		return
	}
	m.lockWait.Observe(wait.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
