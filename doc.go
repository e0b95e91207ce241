// Package cqlguard provides the resilience layer of a Cassandra (CQL) client:
// retry decisions, speculative execution, execution profiles, connection
// lifecycle and schema agreement.
//
// The client does not speak the wire protocol itself. It drives five
// collaborators, so any driver can sit underneath it:
//
//   - ControlConnection: The connection used for cluster metadata
//   - HostProvider: The cluster topology and its changes
//   - PoolProvider: Per-host connection pools
//   - Dispatcher: Sends one attempt of an operation to one host
//   - MetadataProvider: Schema versions and schema metadata refresh
//
// The adapter/cql/v1 package implements all five on top of gocql, and
// adapter/cql/v2 on top of the Apache Cassandra Go driver.
//
// # Key Features
//
//   - Retry Policies: Unavailable, read timeout, write timeout and request
//     errors are classified and handed to a RetryPolicy that retries (on the
//     same or the next host, optionally at another consistency) or rethrows
//   - Speculative Execution: Idempotent operations can start extra executions
//     on the next hosts of the query plan; the first success wins
//   - Execution Profiles: Named bundles of consistency, timeout and policies,
//     inheriting unset fields from the default profile
//   - Host Distances: Local hosts get eagerly warmed pools, remote hosts
//     lazily initialized pools, ignored hosts none
//   - Single-Flight Connect: Concurrent Connect calls share one attempt
//   - Schema Agreement: DDL statements wait until every node reports the same
//     schema version
//
// # Basic Usage
//
//	session, _ := v1.NewSession(gocql.NewCluster("10.0.0.1"))
//
//	client, err := cqlguard.NewClient(session, session, session, session, session,
//	    cqlguard.WithConsistency(cqlguard.LocalQuorum),
//	    cqlguard.WithProfiles(
//	        cqlguard.NewExecutionProfile("analytics",
//	            cqlguard.WithProfileConsistency(cqlguard.LocalOne),
//	            cqlguard.WithProfileReadTimeout(30*time.Second),
//	        ),
//	    ),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Shutdown(context.Background())
//
//	rs, err := client.Execute(ctx, "SELECT * FROM users WHERE id = ?", []any{id},
//	    cqlguard.WithProfile("analytics"),
//	    cqlguard.WithIdempotent(true),
//	)
//
// Execute connects on first use; calling Connect up front surfaces
// configuration and connectivity problems early.
//
// # Error Handling
//
// Errors that retry policies do not classify (syntax errors, authorization
// failures, invalid requests) are returned unchanged on the first attempt.
// Classified errors reach the caller in one of two shapes:
//
//   - *types.ExecutionError: The retry policy rethrew; Cause is the last error
//   - *types.NoHostAvailableError: Every host of the query plan failed or was
//     skipped; Errors holds the last error per host
//
// Both unwrap, so errors.As finds the underlying classified error:
//
//	var unavailable *types.UnavailableError
//	if errors.As(err, &unavailable) {
//	    log.Printf("only %d of %d replicas alive", unavailable.Alive, unavailable.Required)
//	}
//
// # Sentinel Errors
//
//   - types.ErrNoHostAvailable: No host could serve the request
//   - types.ErrClientShutdown: The client was shut down (matches ErrNoHostAvailable)
//   - types.ErrInvalidConfig: Parent of every configuration error
//   - types.ErrUnknownProfile: Execute named an unregistered profile
//
// # Observability
//
// WithLogger, WithMetrics and WithTracer plug in a types.Logger (see
// contrib/logging/kitlog), a types.MetricsCollector (see contrib/metrics/vm
// and contrib/metrics/prom) and an OpenTelemetry tracer. All default to
// no-ops.
package cqlguard
