// Package prom provides a Prometheus client_golang implementation of the
// MetricsCollector interface.
//
// Metrics are registered to the prometheus.Registerer passed to New:
//
//	reg := prometheus.NewRegistry()
//	collector := prom.New(reg, prom.WithNamespace("myapp"))
//	client, _ := cqlguard.NewClient(control, hosts, pools, dispatcher, metadata,
//	    cqlguard.WithMetrics(collector),
//	)
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// Metric names match those of contrib/metrics/vm.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/cqlguard/types"
)

// Option configures a Collector.
type Option func(*Collector)

// WithNamespace sets the metric namespace.
//
// Default: "cqlguard"
func WithNamespace(namespace string) Option {
	return func(c *Collector) {
		c.namespace = namespace
	}
}

// WithConstLabels attaches constant labels to every metric, for example to
// tell several clients apart.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Collector) {
		c.constLabels = labels
	}
}

// Collector implements types.MetricsCollector with client_golang metrics.
type Collector struct {
	namespace   string
	constLabels prometheus.Labels

	connectTotal    prometheus.Counter
	connectErrors   prometheus.Counter
	connectDuration prometheus.Histogram
	connectionState prometheus.Gauge
	warmupErrors    prometheus.Counter
	hostsUp         prometheus.Gauge

	executeTotal    *prometheus.CounterVec
	executeErrors   *prometheus.CounterVec
	executeDuration *prometheus.HistogramVec

	retries     *prometheus.CounterVec
	rethrows    *prometheus.CounterVec
	speculative prometheus.Counter

	schemaAgreement     *prometheus.CounterVec
	schemaWaitDuration  prometheus.Histogram
	schemaRefreshErrors prometheus.Counter
}

// Compile-time assertion that Collector implements types.MetricsCollector.
var _ types.MetricsCollector = (*Collector)(nil)

// New creates a collector and registers its metrics to reg.
//
// Parameters:
//   - reg: Registerer the metrics are registered to
//   - opts: Configuration options
//
// Returns:
//   - *Collector: A new metrics collector ready for use
func New(reg prometheus.Registerer, opts ...Option) *Collector {
	c := &Collector{namespace: "cqlguard"}
	for _, opt := range opts {
		opt(c)
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: c.namespace, Name: name, Help: help, ConstLabels: c.constLabels,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.namespace, Name: name, Help: help, ConstLabels: c.constLabels,
		}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: c.namespace, Name: name, Help: help, ConstLabels: c.constLabels,
		})
	}

	c.connectTotal = counter("connect_total", "Total number of connect attempts.")
	c.connectErrors = counter("connect_errors_total", "Total number of failed connect attempts.")
	c.connectDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   c.namespace,
		Name:        "connect_duration_seconds",
		Help:        "Time spent connecting, including pool warmup.",
		ConstLabels: c.constLabels,
		Buckets:     prometheus.ExponentialBuckets(0.01, 2, 12),
	})
	c.connectionState = gauge("connection_state", "Connection state (0=disconnected, 1=connecting, 2=connected, 3=shutting down).")
	c.warmupErrors = counter("warmup_errors_total", "Total number of hosts whose pool failed to warm up.")
	c.hostsUp = gauge("hosts_up", "Number of hosts considered up.")

	c.executeTotal = counterVec("execute_total", "Total number of executions.", "profile")
	c.executeErrors = counterVec("execute_errors_total", "Total number of failed executions.", "profile")
	c.executeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   c.namespace,
		Name:        "execute_duration_seconds",
		Help:        "Time spent executing operations, including retries.",
		ConstLabels: c.constLabels,
		Buckets:     prometheus.DefBuckets,
	}, []string{"profile"})

	c.retries = counterVec("retries_total", "Total number of retries by error category.", "category")
	c.rethrows = counterVec("rethrows_total", "Total number of rethrown errors by error category.", "category")
	c.speculative = counter("speculative_executions_total", "Total number of speculative executions started.")

	c.schemaAgreement = counterVec("schema_agreement_total", "Total number of schema agreement waits by outcome.", "agreed")
	c.schemaWaitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   c.namespace,
		Name:        "schema_agreement_duration_seconds",
		Help:        "Time spent waiting for schema agreement.",
		ConstLabels: c.constLabels,
		Buckets:     prometheus.ExponentialBuckets(0.05, 2, 10),
	})
	c.schemaRefreshErrors = counter("schema_refresh_errors_total", "Total number of failed schema metadata refreshes.")

	reg.MustRegister(
		c.connectTotal, c.connectErrors, c.connectDuration, c.connectionState, c.warmupErrors, c.hostsUp,
		c.executeTotal, c.executeErrors, c.executeDuration,
		c.retries, c.rethrows, c.speculative,
		c.schemaAgreement, c.schemaWaitDuration, c.schemaRefreshErrors,
	)

	return c
}

// IncConnectTotal increments the connect attempt counter.
func (c *Collector) IncConnectTotal() { c.connectTotal.Inc() }

// IncConnectError increments the failed connect counter.
func (c *Collector) IncConnectError() { c.connectErrors.Inc() }

// ObserveConnectDuration records a connect duration in seconds.
func (c *Collector) ObserveConnectDuration(seconds float64) { c.connectDuration.Observe(seconds) }

// SetConnectionState sets the connection state gauge.
func (c *Collector) SetConnectionState(state types.ConnectionState) {
	c.connectionState.Set(float64(state))
}

// IncWarmupError increments the warmup failure counter.
func (c *Collector) IncWarmupError() { c.warmupErrors.Inc() }

// SetHostsUp sets the gauge of hosts up.
func (c *Collector) SetHostsUp(count int) { c.hostsUp.Set(float64(count)) }

// IncExecuteTotal increments the execution counter of a profile.
func (c *Collector) IncExecuteTotal(profile string) {
	c.executeTotal.WithLabelValues(profile).Inc()
}

// IncExecuteError increments the failed execution counter of a profile.
func (c *Collector) IncExecuteError(profile string) {
	c.executeErrors.WithLabelValues(profile).Inc()
}

// ObserveExecuteDuration records an execution duration in seconds.
func (c *Collector) ObserveExecuteDuration(profile string, seconds float64) {
	c.executeDuration.WithLabelValues(profile).Observe(seconds)
}

// IncRetry increments the retry counter of an error category.
func (c *Collector) IncRetry(category string) {
	c.retries.WithLabelValues(category).Inc()
}

// IncRethrow increments the rethrow counter of an error category.
func (c *Collector) IncRethrow(category string) {
	c.rethrows.WithLabelValues(category).Inc()
}

// IncSpeculativeExecution increments the speculative execution counter.
func (c *Collector) IncSpeculativeExecution() { c.speculative.Inc() }

// IncSchemaAgreement records the outcome of a schema agreement wait.
func (c *Collector) IncSchemaAgreement(agreed bool) {
	if agreed {
		c.schemaAgreement.WithLabelValues("true").Inc()
	} else {
		c.schemaAgreement.WithLabelValues("false").Inc()
	}
}

// ObserveSchemaAgreementDuration records a schema agreement wait in seconds.
func (c *Collector) ObserveSchemaAgreementDuration(seconds float64) {
	c.schemaWaitDuration.Observe(seconds)
}

// IncSchemaRefreshError increments the failed schema refresh counter.
func (c *Collector) IncSchemaRefreshError() { c.schemaRefreshErrors.Inc() }
