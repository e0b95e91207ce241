package policy

import "github.com/arloliu/cqlguard/types"

// RetryPolicy decides, for one failed attempt, whether the operation is
// retried and how.
//
// Implementations must be safe for concurrent use: the same policy serves
// every execution of every profile that references it. Per-operation state
// lives in types.OperationInfo, never in the policy.
type RetryPolicy interface {
	// OnUnavailable is called when the coordinator knew too few replicas were
	// alive to satisfy consistency.
	OnUnavailable(info types.OperationInfo, consistency types.Consistency, required, alive int) types.Decision

	// OnReadTimeout is called when replicas did not answer a read in time.
	OnReadTimeout(info types.OperationInfo, consistency types.Consistency, received, blockFor int, isDataPresent bool) types.Decision

	// OnWriteTimeout is called when replicas did not acknowledge a write in time.
	OnWriteTimeout(info types.OperationInfo, consistency types.Consistency, received, blockFor int, writeType types.WriteType) types.Decision

	// OnRequestError is called for client timeouts, broken connections and
	// coordinator-side errors (overloaded, bootstrapping, server error).
	OnRequestError(info types.OperationInfo, consistency types.Consistency, err error) types.Decision
}

// DefaultRetryPolicy retries at most once for the failures that are likely to
// succeed on a second try, and always moves on to the next host for request
// errors.
//
//   - Unavailable: retry once on the next host.
//   - Read timeout: retry once on the same host when enough replicas answered
//     but the data itself was missing.
//   - Write timeout: retry once on the same host when the batch log write timed out.
//   - Request error: retry on the next host, regardless of attempt count and
//     idempotence. The number of such retries is bounded by the query plan.
type DefaultRetryPolicy struct{}

// Compile-time assertion that DefaultRetryPolicy implements RetryPolicy.
var _ RetryPolicy = (*DefaultRetryPolicy)(nil)

// NewDefaultRetryPolicy creates a new DefaultRetryPolicy.
//
// Returns:
//   - *DefaultRetryPolicy: The default retry policy
func NewDefaultRetryPolicy() *DefaultRetryPolicy {
	return &DefaultRetryPolicy{}
}

// OnUnavailable retries once on the next host.
//
// Parameters:
//   - info: Operation being executed
//   - consistency: Consistency level of the failed attempt (unused)
//   - required: Replicas required (unused)
//   - alive: Replicas alive (unused)
//
// Returns:
//   - types.Decision: Retry on the next host for the first attempt, otherwise rethrow
func (p *DefaultRetryPolicy) OnUnavailable(info types.OperationInfo, _ types.Consistency, _, _ int) types.Decision {
	if info.AttemptCount > 0 {
		return types.RethrowDecision()
	}

	return types.RetryDecision(nil, false)
}

// OnReadTimeout retries once on the same host when enough replicas answered
// but none of them returned the data.
//
// Parameters:
//   - info: Operation being executed
//   - consistency: Consistency level of the failed attempt (unused)
//   - received: Replicas that answered
//   - blockFor: Replicas required
//   - isDataPresent: Whether the data replica answered
//
// Returns:
//   - types.Decision: Retry on the same host or rethrow
func (p *DefaultRetryPolicy) OnReadTimeout(info types.OperationInfo, _ types.Consistency, received, blockFor int, isDataPresent bool) types.Decision {
	if info.AttemptCount > 0 {
		return types.RethrowDecision()
	}
	if received >= blockFor && !isDataPresent {
		return types.RetryDecision(nil, true)
	}

	return types.RethrowDecision()
}

// OnWriteTimeout retries once on the same host when the batch log write timed out.
//
// Parameters:
//   - info: Operation being executed
//   - consistency: Consistency level of the failed attempt (unused)
//   - received: Replicas that acknowledged (unused)
//   - blockFor: Replicas required (unused)
//   - writeType: Kind of write that timed out
//
// Returns:
//   - types.Decision: Retry on the same host or rethrow
func (p *DefaultRetryPolicy) OnWriteTimeout(info types.OperationInfo, _ types.Consistency, _, _ int, writeType types.WriteType) types.Decision {
	if info.AttemptCount > 0 {
		return types.RethrowDecision()
	}
	if writeType == types.WriteTypeBatchLog {
		return types.RetryDecision(nil, true)
	}

	return types.RethrowDecision()
}

// OnRequestError always retries on the next host.
//
// The attempt count and idempotence are not consulted. Retries stop when the
// query plan runs out of hosts.
//
// Parameters:
//   - info: Operation being executed (unused)
//   - consistency: Consistency level of the failed attempt (unused)
//   - err: The request error (unused)
//
// Returns:
//   - types.Decision: Retry on the next host
func (p *DefaultRetryPolicy) OnRequestError(_ types.OperationInfo, _ types.Consistency, _ error) types.Decision {
	return types.RetryDecision(nil, false)
}

// FallthroughRetryPolicy never retries.
type FallthroughRetryPolicy struct{}

// Compile-time assertion that FallthroughRetryPolicy implements RetryPolicy.
var _ RetryPolicy = (*FallthroughRetryPolicy)(nil)

// NewFallthroughRetryPolicy creates a new FallthroughRetryPolicy.
func NewFallthroughRetryPolicy() *FallthroughRetryPolicy {
	return &FallthroughRetryPolicy{}
}

// OnUnavailable rethrows.
func (p *FallthroughRetryPolicy) OnUnavailable(types.OperationInfo, types.Consistency, int, int) types.Decision {
	return types.RethrowDecision()
}

// OnReadTimeout rethrows.
func (p *FallthroughRetryPolicy) OnReadTimeout(types.OperationInfo, types.Consistency, int, int, bool) types.Decision {
	return types.RethrowDecision()
}

// OnWriteTimeout rethrows.
func (p *FallthroughRetryPolicy) OnWriteTimeout(types.OperationInfo, types.Consistency, int, int, types.WriteType) types.Decision {
	return types.RethrowDecision()
}

// OnRequestError rethrows.
func (p *FallthroughRetryPolicy) OnRequestError(types.OperationInfo, types.Consistency, error) types.Decision {
	return types.RethrowDecision()
}

// IdempotenceAwareRetryPolicy rethrows write timeouts and request errors of
// non-idempotent operations, and delegates everything else to a child policy.
//
// Unavailable and read timeout errors are always delegated: the coordinator
// never applied the mutation in those cases.
type IdempotenceAwareRetryPolicy struct {
	child RetryPolicy
}

// Compile-time assertion that IdempotenceAwareRetryPolicy implements RetryPolicy.
var _ RetryPolicy = (*IdempotenceAwareRetryPolicy)(nil)

// NewIdempotenceAwareRetryPolicy wraps child.
//
// Parameters:
//   - child: Policy consulted for idempotent operations; nil uses DefaultRetryPolicy
//
// Returns:
//   - *IdempotenceAwareRetryPolicy: The wrapping policy
func NewIdempotenceAwareRetryPolicy(child RetryPolicy) *IdempotenceAwareRetryPolicy {
	if child == nil {
		child = NewDefaultRetryPolicy()
	}

	return &IdempotenceAwareRetryPolicy{child: child}
}

// OnUnavailable delegates to the child policy.
func (p *IdempotenceAwareRetryPolicy) OnUnavailable(info types.OperationInfo, consistency types.Consistency, required, alive int) types.Decision {
	return p.child.OnUnavailable(info, consistency, required, alive)
}

// OnReadTimeout delegates to the child policy.
func (p *IdempotenceAwareRetryPolicy) OnReadTimeout(info types.OperationInfo, consistency types.Consistency, received, blockFor int, isDataPresent bool) types.Decision {
	return p.child.OnReadTimeout(info, consistency, received, blockFor, isDataPresent)
}

// OnWriteTimeout rethrows for non-idempotent operations.
func (p *IdempotenceAwareRetryPolicy) OnWriteTimeout(info types.OperationInfo, consistency types.Consistency, received, blockFor int, writeType types.WriteType) types.Decision {
	if !info.Options.IsIdempotent {
		return types.RethrowDecision()
	}

	return p.child.OnWriteTimeout(info, consistency, received, blockFor, writeType)
}

// OnRequestError rethrows for non-idempotent operations.
func (p *IdempotenceAwareRetryPolicy) OnRequestError(info types.OperationInfo, consistency types.Consistency, err error) types.Decision {
	if !info.Options.IsIdempotent {
		return types.RethrowDecision()
	}

	return p.child.OnRequestError(info, consistency, err)
}
