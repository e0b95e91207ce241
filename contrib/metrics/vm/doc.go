// Package vm provides a VictoriaMetrics-based implementation of the MetricsCollector interface.
//
// This package uses github.com/VictoriaMetrics/metrics for lightweight,
// high-performance Prometheus-compatible metrics collection.
//
// # Basic Usage
//
// Create a collector with default prefix "cqlguard":
//
//	collector := vm.New()
//	client, _ := cqlguard.NewClient(control, hosts, pools, dispatcher, metadata,
//	    cqlguard.WithMetrics(collector),
//	)
//
// # Custom Prefix
//
// Use WithPrefix to customize the metric name prefix:
//
//	collector := vm.New(vm.WithPrefix("myapp"))
//
// This produces metrics like:
//   - myapp_execute_total{profile="default"}
//   - myapp_retries_total{category="unavailable"}
//
// # Exposing Metrics
//
// Use the Handler method to expose metrics via HTTP:
//
//	http.HandleFunc("/metrics", collector.Handler)
//	http.ListenAndServe(":8080", nil)
//
// # Metrics Provided
//
// Lifecycle:
//   - {prefix}_connect_total, {prefix}_connect_errors_total - Connect attempts and failures
//   - {prefix}_connect_duration_seconds - Histogram of connect latencies
//   - {prefix}_connection_state - Gauge (0=disconnected, 1=connecting, 2=connected, 3=shutting down)
//   - {prefix}_warmup_errors_total - Counter of hosts whose pool failed to warm up
//   - {prefix}_hosts_up - Gauge of hosts considered up
//
// Execution:
//   - {prefix}_execute_total{profile}
//   - {prefix}_execute_errors_total{profile}
//   - {prefix}_execute_duration_seconds{profile}
//
// Retry:
//   - {prefix}_retries_total{category}
//   - {prefix}_rethrows_total{category}
//   - {prefix}_speculative_executions_total
//
// Schema:
//   - {prefix}_schema_agreement_total{agreed}
//   - {prefix}_schema_agreement_duration_seconds
//   - {prefix}_schema_refresh_errors_total
//
// # Performance Notes
//
// Metrics without a profile label are pre-created at initialization time
// using the NewXXX pattern. Profile-labelled metrics are created on first
// use with GetOrCreateXXX, since profile names are only known at runtime.
package vm
