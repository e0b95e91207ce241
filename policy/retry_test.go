package policy

import (
	"errors"
	"testing"

	"github.com/arloliu/cqlguard/types"
	"github.com/stretchr/testify/require"
)

func opInfo(attempt int, idempotent bool) types.OperationInfo {
	return types.OperationInfo{
		Query:        "SELECT * FROM ks.tbl",
		Options:      types.ExecutionOptions{IsIdempotent: idempotent},
		AttemptCount: attempt,
	}
}

func TestDefaultRetryPolicyRethrowsAfterFirstAttempt(t *testing.T) {
	p := NewDefaultRetryPolicy()

	for attempt := 1; attempt <= 5; attempt++ {
		info := opInfo(attempt, true)

		require.Equal(t, types.DecisionRethrow, p.OnUnavailable(info, types.Quorum, 3, 1).Type)
		require.Equal(t, types.DecisionRethrow, p.OnReadTimeout(info, types.Quorum, 2, 2, false).Type)
		require.Equal(t, types.DecisionRethrow, p.OnWriteTimeout(info, types.Quorum, 0, 1, types.WriteTypeBatchLog).Type)

		// Request errors are bounded by the query plan, not by the policy.
		d := p.OnRequestError(info, types.Quorum, errors.New("overloaded"))
		require.Equal(t, types.DecisionRetry, d.Type)
		require.False(t, d.UseCurrentHost)
	}
}

func TestDefaultRetryPolicyUnavailable(t *testing.T) {
	p := NewDefaultRetryPolicy()
	info := opInfo(0, false)

	d := p.OnUnavailable(info, types.Quorum, 3, 1)
	require.Equal(t, types.DecisionRetry, d.Type)
	require.False(t, d.UseCurrentHost)
	require.Nil(t, d.Consistency)

	info.AttemptCount = 1
	require.Equal(t, types.DecisionRethrow, p.OnUnavailable(info, types.Quorum, 3, 1).Type)
}

func TestDefaultRetryPolicyReadTimeout(t *testing.T) {
	p := NewDefaultRetryPolicy()

	d := p.OnReadTimeout(opInfo(0, false), types.Quorum, 2, 2, false)
	require.Equal(t, types.DecisionRetry, d.Type)
	require.True(t, d.UseCurrentHost)

	require.Equal(t, types.DecisionRethrow, p.OnReadTimeout(opInfo(0, false), types.Quorum, 1, 2, false).Type)
	require.Equal(t, types.DecisionRethrow, p.OnReadTimeout(opInfo(0, false), types.Quorum, 2, 2, true).Type)
}

func TestDefaultRetryPolicyWriteTimeout(t *testing.T) {
	p := NewDefaultRetryPolicy()

	d := p.OnWriteTimeout(opInfo(0, false), types.Quorum, 0, 1, types.WriteTypeBatchLog)
	require.Equal(t, types.DecisionRetry, d.Type)
	require.True(t, d.UseCurrentHost)

	for _, wt := range []types.WriteType{
		types.WriteTypeSimple,
		types.WriteTypeBatch,
		types.WriteTypeUnloggedBatch,
		types.WriteTypeCounter,
		types.WriteTypeCAS,
	} {
		require.Equal(t, types.DecisionRethrow, p.OnWriteTimeout(opInfo(0, true), types.Quorum, 0, 1, wt).Type, wt)
	}
}

func TestDefaultRetryPolicyRequestErrorIgnoresIdempotence(t *testing.T) {
	p := NewDefaultRetryPolicy()

	require.Equal(t, types.DecisionRetry, p.OnRequestError(opInfo(0, false), types.One, errors.New("x")).Type)
	require.Equal(t, types.DecisionRetry, p.OnRequestError(opInfo(0, true), types.One, errors.New("x")).Type)
}

func TestFallthroughRetryPolicy(t *testing.T) {
	p := NewFallthroughRetryPolicy()
	info := opInfo(0, true)

	require.Equal(t, types.DecisionRethrow, p.OnUnavailable(info, types.One, 1, 0).Type)
	require.Equal(t, types.DecisionRethrow, p.OnReadTimeout(info, types.One, 1, 1, false).Type)
	require.Equal(t, types.DecisionRethrow, p.OnWriteTimeout(info, types.One, 0, 1, types.WriteTypeBatchLog).Type)
	require.Equal(t, types.DecisionRethrow, p.OnRequestError(info, types.One, errors.New("x")).Type)
}

func TestIdempotenceAwareRetryPolicy(t *testing.T) {
	p := NewIdempotenceAwareRetryPolicy(nil)

	// Non-idempotent writes and request errors are never retried.
	require.Equal(t, types.DecisionRethrow, p.OnRequestError(opInfo(0, false), types.One, errors.New("x")).Type)
	require.Equal(t, types.DecisionRethrow, p.OnWriteTimeout(opInfo(0, false), types.One, 0, 1, types.WriteTypeBatchLog).Type)

	// Idempotent ones fall through to the default policy.
	require.Equal(t, types.DecisionRetry, p.OnRequestError(opInfo(0, true), types.One, errors.New("x")).Type)
	require.Equal(t, types.DecisionRetry, p.OnWriteTimeout(opInfo(0, true), types.One, 0, 1, types.WriteTypeBatchLog).Type)

	// Reads and unavailable errors ignore idempotence.
	require.Equal(t, types.DecisionRetry, p.OnUnavailable(opInfo(0, false), types.One, 1, 0).Type)
	require.Equal(t, types.DecisionRetry, p.OnReadTimeout(opInfo(0, false), types.One, 1, 1, false).Type)
}
