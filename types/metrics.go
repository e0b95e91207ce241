package types

// MetricsCollector defines methods for collecting operational metrics.
//
// Implementations should be thread-safe as methods may be called concurrently.
//
// Example usage with VictoriaMetrics (via contrib/metrics/vm):
//
//	import vmmetrics "github.com/arloliu/cqlguard/contrib/metrics/vm"
//
//	collector := vmmetrics.New(vmmetrics.WithPrefix("myapp"))
//	client, _ := cqlguard.NewClient(control, hosts, pools, dispatcher, metadata,
//	    cqlguard.WithMetrics(collector),
//	)
//
//	// Expose metrics via HTTP
//	http.HandleFunc("/metrics", collector.Handler)
type MetricsCollector interface {
	// ----------------------
	// Lifecycle
	// ----------------------

	// IncConnectTotal increments the connect attempt counter.
	IncConnectTotal()

	// IncConnectError increments the failed connect attempt counter.
	IncConnectError()

	// ObserveConnectDuration records the duration of a connect attempt in seconds.
	ObserveConnectDuration(seconds float64)

	// SetConnectionState sets the connection state gauge (see ConnectionState).
	SetConnectionState(state ConnectionState)

	// IncWarmupError increments the counter of hosts whose pool failed to warm up.
	IncWarmupError()

	// SetHostsUp sets the gauge of hosts currently considered up.
	SetHostsUp(count int)

	// ----------------------
	// Execution
	// ----------------------

	// IncExecuteTotal increments the execution counter for a profile.
	IncExecuteTotal(profile string)

	// IncExecuteError increments the failed execution counter for a profile.
	IncExecuteError(profile string)

	// ObserveExecuteDuration records an execution duration in seconds.
	ObserveExecuteDuration(profile string, seconds float64)

	// ----------------------
	// Retry
	// ----------------------

	// IncRetry increments the retry counter for an error category
	// ("unavailable", "read_timeout", "write_timeout", "request_error").
	IncRetry(category string)

	// IncRethrow increments the rethrow counter for an error category.
	IncRethrow(category string)

	// IncSpeculativeExecution increments the counter of speculative executions launched.
	IncSpeculativeExecution()

	// ----------------------
	// Schema
	// ----------------------

	// IncSchemaAgreement increments the schema agreement counter.
	// agreed is false when the wait timed out or failed.
	IncSchemaAgreement(agreed bool)

	// ObserveSchemaAgreementDuration records how long a schema agreement wait took in seconds.
	ObserveSchemaAgreementDuration(seconds float64)

	// IncSchemaRefreshError increments the counter of failed schema metadata refreshes.
	IncSchemaRefreshError()
}
