package testutil

import (
	"sync"
	"sync/atomic"

	"github.com/arloliu/cqlguard/types"
)

// TestMetricsCollector is a test implementation of types.MetricsCollector
// that tracks method calls for assertion in tests.
type TestMetricsCollector struct {
	mu sync.RWMutex

	// Lifecycle
	States  []types.ConnectionState
	HostsUp int

	// Execution
	ExecuteTotal    map[string]int64
	ExecuteErrors   map[string]int64
	ExecuteDuration map[string][]float64

	// Retry
	Retries  map[string]int64
	Rethrows map[string]int64

	// Schema
	SchemaAgreed    int64
	SchemaDisagreed int64

	// Atomic counters for quick access
	connectTotal       atomic.Int64
	connectErrors      atomic.Int64
	warmupErrors       atomic.Int64
	speculative        atomic.Int64
	schemaRefreshError atomic.Int64
}

// Compile-time assertion that TestMetricsCollector implements types.MetricsCollector.
var _ types.MetricsCollector = (*TestMetricsCollector)(nil)

// NewTestMetricsCollector creates a new test metrics collector.
func NewTestMetricsCollector() *TestMetricsCollector {
	return &TestMetricsCollector{
		ExecuteTotal:    make(map[string]int64),
		ExecuteErrors:   make(map[string]int64),
		ExecuteDuration: make(map[string][]float64),
		Retries:         make(map[string]int64),
		Rethrows:        make(map[string]int64),
	}
}

// ----------------------
// Lifecycle
// ----------------------

// IncConnectTotal increments the connect attempt counter.
func (m *TestMetricsCollector) IncConnectTotal() { m.connectTotal.Add(1) }

// IncConnectError increments the failed connect counter.
func (m *TestMetricsCollector) IncConnectError() { m.connectErrors.Add(1) }

// ObserveConnectDuration discards the duration.
func (m *TestMetricsCollector) ObserveConnectDuration(_ float64) {}

// SetConnectionState records the state transition.
func (m *TestMetricsCollector) SetConnectionState(state types.ConnectionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.States = append(m.States, state)
}

// IncWarmupError increments the warmup failure counter.
func (m *TestMetricsCollector) IncWarmupError() { m.warmupErrors.Add(1) }

// SetHostsUp records the number of hosts up.
func (m *TestMetricsCollector) SetHostsUp(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HostsUp = count
}

// ----------------------
// Execution
// ----------------------

// IncExecuteTotal increments the execution counter.
func (m *TestMetricsCollector) IncExecuteTotal(profile string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExecuteTotal[profile]++
}

// IncExecuteError increments the execution error counter.
func (m *TestMetricsCollector) IncExecuteError(profile string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExecuteErrors[profile]++
}

// ObserveExecuteDuration records the duration.
func (m *TestMetricsCollector) ObserveExecuteDuration(profile string, seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExecuteDuration[profile] = append(m.ExecuteDuration[profile], seconds)
}

// ----------------------
// Retry
// ----------------------

// IncRetry increments the retry counter for a category.
func (m *TestMetricsCollector) IncRetry(category string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Retries[category]++
}

// IncRethrow increments the rethrow counter for a category.
func (m *TestMetricsCollector) IncRethrow(category string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rethrows[category]++
}

// IncSpeculativeExecution increments the speculative execution counter.
func (m *TestMetricsCollector) IncSpeculativeExecution() { m.speculative.Add(1) }

// ----------------------
// Schema
// ----------------------

// IncSchemaAgreement records an agreement outcome.
func (m *TestMetricsCollector) IncSchemaAgreement(agreed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if agreed {
		m.SchemaAgreed++
	} else {
		m.SchemaDisagreed++
	}
}

// ObserveSchemaAgreementDuration discards the duration.
func (m *TestMetricsCollector) ObserveSchemaAgreementDuration(_ float64) {}

// IncSchemaRefreshError increments the refresh failure counter.
func (m *TestMetricsCollector) IncSchemaRefreshError() { m.schemaRefreshError.Add(1) }

// ----------------------
// Accessors
// ----------------------

// ConnectTotal returns the number of connect attempts.
func (m *TestMetricsCollector) ConnectTotal() int64 { return m.connectTotal.Load() }

// ConnectErrors returns the number of failed connect attempts.
func (m *TestMetricsCollector) ConnectErrors() int64 { return m.connectErrors.Load() }

// WarmupErrors returns the number of failed warmups.
func (m *TestMetricsCollector) WarmupErrors() int64 { return m.warmupErrors.Load() }

// SpeculativeExecutions returns the number of speculative executions.
func (m *TestMetricsCollector) SpeculativeExecutions() int64 { return m.speculative.Load() }

// SchemaRefreshErrors returns the number of failed schema refreshes.
func (m *TestMetricsCollector) SchemaRefreshErrors() int64 { return m.schemaRefreshError.Load() }

// RetryCount returns the retries recorded for a category.
func (m *TestMetricsCollector) RetryCount(category string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Retries[category]
}

// RethrowCount returns the rethrows recorded for a category.
func (m *TestMetricsCollector) RethrowCount(category string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Rethrows[category]
}

// LastState returns the last recorded connection state.
func (m *TestMetricsCollector) LastState() types.ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.States) == 0 {
		return types.StateDisconnected
	}
	return m.States[len(m.States)-1]
}

// Reset clears all recorded metrics.
func (m *TestMetricsCollector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.States = nil
	m.HostsUp = 0
	m.ExecuteTotal = make(map[string]int64)
	m.ExecuteErrors = make(map[string]int64)
	m.ExecuteDuration = make(map[string][]float64)
	m.Retries = make(map[string]int64)
	m.Rethrows = make(map[string]int64)
	m.SchemaAgreed = 0
	m.SchemaDisagreed = 0
	m.connectTotal.Store(0)
	m.connectErrors.Store(0)
	m.warmupErrors.Store(0)
	m.speculative.Store(0)
	m.schemaRefreshError.Store(0)
}
