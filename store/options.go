package store

import (
	"time"

	"github.com/pomelocare/dagster/internal/logging"
	"github.com/pomelocare/dagster/internal/metrics"
	"github.com/pomelocare/dagster/types"
)

// Option configures a store.
type Option func(*options)

type options struct {
	logger     types.Logger
	metrics    types.MetricsCollector
	maxRetries int
	keyPrefix  string
}

func defaultOptions() options {
	return options{
		logger:    logging.NewNop(),
		metrics:   metrics.NewNop(),
		keyPrefix: DefaultRedisKeyPrefix,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// WithLogger sets the logger (default: no-op).
func WithLogger(logger types.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector (default: no-op).
func WithMetrics(m types.MetricsCollector) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithMaxRetries bounds the compare-and-swap attempts of NATSKV writes.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		o.maxRetries = n
	}
}

// WithKeyPrefix sets the Redis key prefix (default "dagster:dynamic_partitions").
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.keyPrefix = prefix
		}
	}
}

// observe records one store call.
func (o *options) observe(backend, op string, start time.Time, err error) {
	o.metrics.RecordStoreOperation(backend, op, time.Since(start).Seconds(), err == nil)
	if err != nil {
		o.logger.Warn("dynamic partitions store call failed", "backend", backend, "operation", op, "error", err)
	}
}

func appendMissing(existing []string, keys []string) ([]string, bool) {
	seen := make(map[string]struct{}, len(existing)+len(keys))
	for _, k := range existing {
		seen[k] = struct{}{}
	}

	out := existing
	changed := false
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		if !changed {
			out = make([]string, len(existing), len(existing)+len(keys))
			copy(out, existing)
			changed = true
		}
		out = append(out, k)
	}

	return out, changed
}
