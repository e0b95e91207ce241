package vm

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"

	"github.com/arloliu/cqlguard/types"
)

// retryCategories are the error categories reported by the client.
var retryCategories = []string{"unavailable", "read_timeout", "write_timeout", "request_error"}

// Option configures a Collector.
type Option func(*Collector)

// WithPrefix sets the metric name prefix.
//
// Default: "cqlguard"
//
// Parameters:
//   - prefix: The prefix to use for all metric names
//
// Returns:
//   - Option: A configuration option
func WithPrefix(prefix string) Option {
	return func(c *Collector) {
		c.prefix = prefix
	}
}

// WithMetricsSet sets the metrics set to use.
//
// If provided, the collector will register metrics with this set instead of
// creating a new one. The caller is responsible for exposing this set
// (e.g., via metrics.WritePrometheus or a custom handler).
//
// Parameters:
//   - set: The metrics set to use
//
// Returns:
//   - Option: A configuration option
func WithMetricsSet(set *metrics.Set) Option {
	return func(c *Collector) {
		c.set = set
	}
}

// Collector implements types.MetricsCollector using VictoriaMetrics.
type Collector struct {
	set    *metrics.Set
	prefix string

	// Lifecycle metrics
	connectTotal    *metrics.Counter
	connectErrors   *metrics.Counter
	connectDuration *metrics.Histogram
	warmupErrors    *metrics.Counter
	connectionState atomic.Int64
	hostsUp         atomic.Int64

	// Retry metrics, keyed by error category
	retries  map[string]*metrics.Counter
	rethrows map[string]*metrics.Counter

	speculative *metrics.Counter

	// Schema metrics
	schemaAgreed        *metrics.Counter
	schemaDisagreed     *metrics.Counter
	schemaWaitDuration  *metrics.Histogram
	schemaRefreshErrors *metrics.Counter
}

// Compile-time assertion that Collector implements types.MetricsCollector.
var _ types.MetricsCollector = (*Collector)(nil)

// New creates a new VictoriaMetrics-based metrics collector.
//
// The collector creates its own metrics.Set and registers it globally.
// Metrics without a profile label are pre-created at initialization.
//
// Parameters:
//   - opts: Configuration options (e.g., WithPrefix)
//
// Returns:
//   - *Collector: A new metrics collector ready for use
//
// Example:
//
//	collector := vm.New(vm.WithPrefix("myapp"))
//	client, _ := cqlguard.NewClient(control, hosts, pools, dispatcher, metadata,
//	    cqlguard.WithMetrics(collector),
//	)
func New(opts ...Option) *Collector {
	c := &Collector{prefix: "cqlguard"}

	for _, opt := range opts {
		opt(c)
	}

	// If no set is provided, create a new one and register it globally.
	// If a set is provided, we assume the caller manages it.
	if c.set == nil {
		c.set = metrics.NewSet()
		metrics.RegisterSet(c.set)
	}

	c.initMetrics()

	return c
}

// initMetrics pre-creates the fixed metrics with the configured prefix.
func (c *Collector) initMetrics() {
	p := c.prefix

	c.connectTotal = c.set.NewCounter(p + "_connect_total")
	c.connectErrors = c.set.NewCounter(p + "_connect_errors_total")
	c.connectDuration = c.set.NewHistogram(p + "_connect_duration_seconds")
	c.warmupErrors = c.set.NewCounter(p + "_warmup_errors_total")
	c.set.NewGauge(p+"_connection_state", func() float64 {
		return float64(c.connectionState.Load())
	})
	c.set.NewGauge(p+"_hosts_up", func() float64 {
		return float64(c.hostsUp.Load())
	})

	c.retries = make(map[string]*metrics.Counter, len(retryCategories))
	c.rethrows = make(map[string]*metrics.Counter, len(retryCategories))
	for _, category := range retryCategories {
		c.retries[category] = c.set.NewCounter(fmt.Sprintf(`%s_retries_total{category=%q}`, p, category))
		c.rethrows[category] = c.set.NewCounter(fmt.Sprintf(`%s_rethrows_total{category=%q}`, p, category))
	}
	c.speculative = c.set.NewCounter(p + "_speculative_executions_total")

	c.schemaAgreed = c.set.NewCounter(fmt.Sprintf(`%s_schema_agreement_total{agreed="true"}`, p))
	c.schemaDisagreed = c.set.NewCounter(fmt.Sprintf(`%s_schema_agreement_total{agreed="false"}`, p))
	c.schemaWaitDuration = c.set.NewHistogram(p + "_schema_agreement_duration_seconds")
	c.schemaRefreshErrors = c.set.NewCounter(p + "_schema_refresh_errors_total")
}

// Set returns the metrics set the collector registers with.
func (c *Collector) Set() *metrics.Set {
	return c.set
}

// Handler returns an HTTP handler that exposes metrics in Prometheus format.
//
// Example:
//
//	http.HandleFunc("/metrics", collector.Handler)
func (c *Collector) Handler(w http.ResponseWriter, _ *http.Request) {
	c.set.WritePrometheus(w)
}

// WritePrometheus writes all metrics in Prometheus format to the given writer.
//
// Parameters:
//   - w: The writer to write metrics to
func (c *Collector) WritePrometheus(w io.Writer) {
	c.set.WritePrometheus(w)
}

// ----------------------
// Lifecycle
// ----------------------

// IncConnectTotal increments the connect attempt counter.
func (c *Collector) IncConnectTotal() { c.connectTotal.Inc() }

// IncConnectError increments the failed connect counter.
func (c *Collector) IncConnectError() { c.connectErrors.Inc() }

// ObserveConnectDuration records a connect duration in seconds.
func (c *Collector) ObserveConnectDuration(seconds float64) { c.connectDuration.Update(seconds) }

// SetConnectionState sets the connection state gauge.
func (c *Collector) SetConnectionState(state types.ConnectionState) {
	c.connectionState.Store(int64(state))
}

// IncWarmupError increments the warmup failure counter.
func (c *Collector) IncWarmupError() { c.warmupErrors.Inc() }

// SetHostsUp sets the gauge of hosts up.
func (c *Collector) SetHostsUp(count int) { c.hostsUp.Store(int64(count)) }

// ----------------------
// Execution
// ----------------------

// IncExecuteTotal increments the execution counter of a profile.
func (c *Collector) IncExecuteTotal(profile string) {
	c.set.GetOrCreateCounter(fmt.Sprintf(`%s_execute_total{profile=%q}`, c.prefix, profile)).Inc()
}

// IncExecuteError increments the failed execution counter of a profile.
func (c *Collector) IncExecuteError(profile string) {
	c.set.GetOrCreateCounter(fmt.Sprintf(`%s_execute_errors_total{profile=%q}`, c.prefix, profile)).Inc()
}

// ObserveExecuteDuration records an execution duration in seconds.
func (c *Collector) ObserveExecuteDuration(profile string, seconds float64) {
	c.set.GetOrCreateHistogram(fmt.Sprintf(`%s_execute_duration_seconds{profile=%q}`, c.prefix, profile)).Update(seconds)
}

// ----------------------
// Retry
// ----------------------

// IncRetry increments the retry counter of an error category.
func (c *Collector) IncRetry(category string) {
	if counter, ok := c.retries[category]; ok {
		counter.Inc()
	}
}

// IncRethrow increments the rethrow counter of an error category.
func (c *Collector) IncRethrow(category string) {
	if counter, ok := c.rethrows[category]; ok {
		counter.Inc()
	}
}

// IncSpeculativeExecution increments the speculative execution counter.
func (c *Collector) IncSpeculativeExecution() { c.speculative.Inc() }

// ----------------------
// Schema
// ----------------------

// IncSchemaAgreement records the outcome of a schema agreement wait.
func (c *Collector) IncSchemaAgreement(agreed bool) {
	if agreed {
		c.schemaAgreed.Inc()
	} else {
		c.schemaDisagreed.Inc()
	}
}

// ObserveSchemaAgreementDuration records a schema agreement wait in seconds.
func (c *Collector) ObserveSchemaAgreementDuration(seconds float64) {
	c.schemaWaitDuration.Update(seconds)
}

// IncSchemaRefreshError increments the failed schema refresh counter.
func (c *Collector) IncSchemaRefreshError() { c.schemaRefreshErrors.Inc() }
