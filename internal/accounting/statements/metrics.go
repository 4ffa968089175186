package statements

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/statements/internal/accounting/shared"
)

const unknownLabel = "unknown"

// Metrics exposes Prometheus collectors for statement generation.
type Metrics struct {
	generated *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	warnings  *prometheus.CounterVec
}

var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *Metrics
)

// NewMetrics registers the statement collectors. A nil registerer uses the
// Prometheus default registerer, registered once per process.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultMetricsOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	generated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "statements_generated_total",
		Help: "Statement generations partitioned by statement type, standard and outcome.",
	}, []string{"statement", "standard", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statements_generation_duration_seconds",
		Help:    "Duration in seconds of statement generation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"statement"})
	warnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "statements_consistency_warnings_total",
		Help: "Consistency warnings attached to generated statements.",
	}, []string{"statement", "check"})
	registerer.MustRegister(generated, duration, warnings)
	return &Metrics{generated: generated, duration: duration, warnings: warnings}
}

func (m *Metrics) observe(statement StatementType, std Standard, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.generated.WithLabelValues(string(statement), string(std), outcome(err)).Inc()
	m.duration.WithLabelValues(string(statement)).Observe(elapsed.Seconds())
}

func (m *Metrics) warn(statement StatementType, check string) {
	if m == nil {
		return
	}
	m.warnings.WithLabelValues(string(statement), check).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case shared.IsNotFound(err):
		return "not_found"
	case shared.IsInvalidInput(err):
		return "invalid_input"
	case shared.IsConfigurationFault(err):
		return "configuration_fault"
	default:
		return "error"
	}
}
