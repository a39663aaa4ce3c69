package dagster

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pomelocare/dagster/internal/logging"
	"github.com/pomelocare/dagster/internal/metrics"
)

// NewSlogLogger adapts a slog.Logger. A nil logger uses slog.Default().
func NewSlogLogger(logger *slog.Logger) Logger {
	return logging.NewSlog(logger)
}

// NewZapLogger adapts a sugared zap logger. A nil logger discards everything.
func NewZapLogger(logger *zap.SugaredLogger) Logger {
	return logging.NewZap(logger)
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return logging.NewNop()
}

// NewPrometheusMetrics returns a collector that registers its metrics with reg on first
// use.
//
// Parameters:
//   - reg: Registerer (nil means prometheus.DefaultRegisterer)
//   - namespace: Metric namespace ("" means "partitions")
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	set, err := dagster.NewPartitionSet("regions", "sync_job",
//	    dagster.WithPartitionsDefinition(def),
//	    dagster.WithMetrics(dagster.NewPrometheusMetrics(reg, "")),
//	)
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) MetricsCollector {
	return metrics.NewPrometheus(reg, namespace)
}

// NewNopMetrics returns a collector that records nothing.
func NewNopMetrics() MetricsCollector {
	return metrics.NewNop()
}
