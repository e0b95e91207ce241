// Package policy provides retry, load-balancing and speculative execution
// policies for the cqlguard client.
//
// A policy instance may be shared by several execution profiles and is used
// concurrently by every operation of those profiles, so implementations keep
// per-operation state out of the policy.
//
// # Retry Policies
//
// Retry policies decide what happens after a classified failure. All
// policies implement the RetryPolicy interface:
//
//	type RetryPolicy interface {
//	    OnUnavailable(info types.OperationInfo, cl types.Consistency, required, alive int) types.Decision
//	    OnReadTimeout(info types.OperationInfo, cl types.Consistency, received, blockFor int, dataPresent bool) types.Decision
//	    OnWriteTimeout(info types.OperationInfo, cl types.Consistency, received, blockFor int, wt types.WriteType) types.Decision
//	    OnRequestError(info types.OperationInfo, cl types.Consistency, err error) types.Decision
//	}
//
// Available policies:
//
//   - [DefaultRetryPolicy]: Retries each failure kind at most once where a
//     second try is likely to help; request errors always move to the next host
//   - [FallthroughRetryPolicy]: Never retries
//   - [IdempotenceAwareRetryPolicy]: Rethrows write timeouts and request
//     errors of non-idempotent operations, delegating everything else
//
// The default policy's OnRequestError does not look at the attempt count.
// The number of such retries is bounded by the length of the query plan.
//
// Example:
//
//	client, _ := cqlguard.NewClient(control, hosts, pools, dispatcher, metadata,
//	    cqlguard.WithRetryPolicy(policy.NewIdempotenceAwareRetryPolicy(policy.NewDefaultRetryPolicy())),
//	)
//
// # Load-Balancing Policies
//
// Load-balancing policies rate hosts with a distance and order them into
// query plans:
//
//   - [RoundRobin]: Every host is local; plans rotate over all hosts
//   - [DCAwareRoundRobin]: Hosts of the local data center are local, a
//     configurable number of hosts per remote data center are remote
//   - [AllowList]: Wraps another policy and ignores hosts not on the list
//
// Example:
//
//	lb := policy.NewDCAwareRoundRobin("dc1", policy.WithUsedHostsPerRemoteDC(2))
//
// # Speculative Execution Policies
//
// Speculative execution policies create a plan per operation that says when
// the next execution starts:
//
//   - [NoSpeculativeExecution]: Never starts extra executions (default)
//   - [ConstantSpeculativeExecution]: Starts up to N extra executions, each
//     after a fixed delay
//
// Only operations marked idempotent are executed speculatively.
//
// Example:
//
//	spec, err := policy.NewConstantSpeculativeExecution(50*time.Millisecond, 2)
package policy
