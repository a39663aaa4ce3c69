package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pomelocare/dagster/types"
)

// DefaultNamespace is the metric namespace used when none is given.
const DefaultNamespace = "partitions"

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Metrics are created and registered on first use, so constructing a collector that
// is never used leaves the registry untouched.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	partitionsResolved *prometheus.HistogramVec
	definitionEvals    *prometheus.CounterVec
	scheduleTicks      *prometheus.CounterVec
	userCodeErrors     *prometheus.CounterVec
	subsetDecodes      *prometheus.CounterVec
	storeLatency       *prometheus.HistogramVec
	storeOps           *prometheus.CounterVec
}

var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer (prometheus.DefaultRegisterer if nil)
//   - namespace: Metrics namespace (DefaultNamespace if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.definitionEvals = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "definition",
			Name:      "evaluations_total",
			Help:      "Total partitions definition evaluations by kind.",
		}, []string{"kind"})
		p.partitionsResolved = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "definition",
			Name:      "partitions",
			Help:      "Number of partitions produced per evaluation by kind.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8), // 1 .. 16384
		}, []string{"kind"})

		p.scheduleTicks = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "schedule",
			Name:      "ticks_total",
			Help:      "Total partition schedule ticks by outcome (requested, skipped, failed).",
		}, []string{"schedule", "outcome"})
		p.userCodeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "schedule",
			Name:      "user_code_errors_total",
			Help:      "Total failures raised by user-supplied hooks by phase.",
		}, []string{"schedule", "phase"})

		p.subsetDecodes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "subset",
			Name:      "deserialize_total",
			Help:      "Total subset decode attempts by result.",
		}, []string{"result"})

		p.storeLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Latency of dynamic partitions store calls in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms .. ~1s
		}, []string{"backend", "operation"})
		p.storeOps = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total dynamic partitions store calls by backend, operation and success.",
		}, []string{"backend", "operation", "success"})

		p.reg.MustRegister(p.definitionEvals)
		p.reg.MustRegister(p.partitionsResolved)
		p.reg.MustRegister(p.scheduleTicks)
		p.reg.MustRegister(p.userCodeErrors)
		p.reg.MustRegister(p.subsetDecodes)
		p.reg.MustRegister(p.storeLatency)
		p.reg.MustRegister(p.storeOps)
	})
}

// RecordPartitionsResolved records one definition evaluation.
func (p *PrometheusCollector) RecordPartitionsResolved(kind string, count int) {
	p.ensureRegistered()
	p.definitionEvals.WithLabelValues(kind).Inc()
	p.partitionsResolved.WithLabelValues(kind).Observe(float64(count))
}

// RecordScheduleTick records one schedule tick outcome.
func (p *PrometheusCollector) RecordScheduleTick(schedule string, outcome string) {
	p.ensureRegistered()
	p.scheduleTicks.WithLabelValues(schedule, outcome).Inc()
}

// RecordUserCodeError records a failing user hook.
func (p *PrometheusCollector) RecordUserCodeError(schedule string, phase string) {
	p.ensureRegistered()
	p.userCodeErrors.WithLabelValues(schedule, phase).Inc()
}

// RecordSubsetDeserialize records one subset decode attempt.
func (p *PrometheusCollector) RecordSubsetDeserialize(result string) {
	p.ensureRegistered()
	p.subsetDecodes.WithLabelValues(result).Inc()
}

// RecordStoreOperation records one store call.
func (p *PrometheusCollector) RecordStoreOperation(backend string, operation string, duration float64, success bool) {
	p.ensureRegistered()
	p.storeLatency.WithLabelValues(backend, operation).Observe(duration)
	p.storeOps.WithLabelValues(backend, operation, strconv.FormatBool(success)).Inc()
}
