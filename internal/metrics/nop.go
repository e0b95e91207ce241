// Package metrics provides internal metrics utilities for cqlguard.
package metrics

import "github.com/arloliu/cqlguard/types"

// NopMetrics is a no-op metrics collector that discards all metrics.
//
// This is used as the default metrics collector when no collector is configured,
// avoiding nil checks throughout the codebase.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements types.MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNopMetrics creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: A collector that discards all metrics
func NewNopMetrics() *NopMetrics {
	return &NopMetrics{}
}

// ----------------------
// Lifecycle
// ----------------------

// IncConnectTotal discards the metric.
func (m *NopMetrics) IncConnectTotal() {}

// IncConnectError discards the metric.
func (m *NopMetrics) IncConnectError() {}

// ObserveConnectDuration discards the metric.
func (m *NopMetrics) ObserveConnectDuration(_ float64) {}

// SetConnectionState discards the metric.
func (m *NopMetrics) SetConnectionState(_ types.ConnectionState) {}

// IncWarmupError discards the metric.
func (m *NopMetrics) IncWarmupError() {}

// SetHostsUp discards the metric.
func (m *NopMetrics) SetHostsUp(_ int) {}

// ----------------------
// Execution
// ----------------------

// IncExecuteTotal discards the metric.
func (m *NopMetrics) IncExecuteTotal(_ string) {}

// IncExecuteError discards the metric.
func (m *NopMetrics) IncExecuteError(_ string) {}

// ObserveExecuteDuration discards the metric.
func (m *NopMetrics) ObserveExecuteDuration(_ string, _ float64) {}

// ----------------------
// Retry
// ----------------------

// IncRetry discards the metric.
func (m *NopMetrics) IncRetry(_ string) {}

// IncRethrow discards the metric.
func (m *NopMetrics) IncRethrow(_ string) {}

// IncSpeculativeExecution discards the metric.
func (m *NopMetrics) IncSpeculativeExecution() {}

// ----------------------
// Schema
// ----------------------

// IncSchemaAgreement discards the metric.
func (m *NopMetrics) IncSchemaAgreement(_ bool) {}

// ObserveSchemaAgreementDuration discards the metric.
func (m *NopMetrics) ObserveSchemaAgreementDuration(_ float64) {}

// IncSchemaRefreshError discards the metric.
func (m *NopMetrics) IncSchemaRefreshError() {}
