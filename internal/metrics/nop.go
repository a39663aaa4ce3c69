// Package metrics provides types.MetricsCollector implementations.
package metrics

import "github.com/pomelocare/dagster/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when metrics are collected elsewhere.
type NopMetrics struct{}

var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordPartitionsResolved discards the metric.
func (n *NopMetrics) RecordPartitionsResolved(_ /* kind */ string, _ /* count */ int) {}

// RecordScheduleTick discards the metric.
func (n *NopMetrics) RecordScheduleTick(_ /* schedule */, _ /* outcome */ string) {}

// RecordUserCodeError discards the metric.
func (n *NopMetrics) RecordUserCodeError(_ /* schedule */, _ /* phase */ string) {}

// RecordSubsetDeserialize discards the metric.
func (n *NopMetrics) RecordSubsetDeserialize(_ /* result */ string) {}

// RecordStoreOperation discards the metric.
func (n *NopMetrics) RecordStoreOperation(_ /* backend */, _ /* operation */ string, _ /* duration */ float64, _ /* success */ bool) {
}
