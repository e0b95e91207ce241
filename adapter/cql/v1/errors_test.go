package v1_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/require"

	v1 "github.com/arloliu/cqlguard/adapter/cql/v1" //nolint:revive // required for v1_test package
	"github.com/arloliu/cqlguard/types"
)

// coordinatorError is a server error frame carrying only a code.
type coordinatorError struct {
	code int
	msg  string
}

func (e coordinatorError) Code() int       { return e.code }
func (e coordinatorError) Message() string { return e.msg }
func (e coordinatorError) Error() string   { return e.msg }

func TestClassifyUnavailable(t *testing.T) {
	err := v1.Classify(&gocql.RequestErrUnavailable{Consistency: gocql.Quorum, Required: 2, Alive: 1})

	var unavailable *types.UnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Equal(t, types.Quorum, unavailable.Consistency)
	require.Equal(t, 2, unavailable.Required)
	require.Equal(t, 1, unavailable.Alive)
	require.Equal(t, "unavailable", types.ErrorCategory(err))
}

func TestClassifyReadTimeout(t *testing.T) {
	for _, tc := range []struct {
		name        string
		dataPresent byte
		want        bool
	}{
		{"without data", 0, false},
		{"with data", 1, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := v1.Classify(&gocql.RequestErrReadTimeout{
				Consistency: gocql.LocalQuorum,
				Received:    1,
				BlockFor:    2,
				DataPresent: tc.dataPresent,
			})

			var readTimeout *types.ReadTimeoutError
			require.ErrorAs(t, err, &readTimeout)
			require.Equal(t, types.LocalQuorum, readTimeout.Consistency)
			require.Equal(t, 1, readTimeout.Received)
			require.Equal(t, 2, readTimeout.BlockFor)
			require.Equal(t, tc.want, readTimeout.DataPresent)
		})
	}
}

func TestClassifyWriteTimeout(t *testing.T) {
	err := v1.Classify(&gocql.RequestErrWriteTimeout{
		Consistency: gocql.All,
		Received:    2,
		BlockFor:    3,
		WriteType:   "BATCH_LOG",
	})

	var writeTimeout *types.WriteTimeoutError
	require.ErrorAs(t, err, &writeTimeout)
	require.Equal(t, types.All, writeTimeout.Consistency)
	require.Equal(t, types.WriteTypeBatchLog, writeTimeout.WriteType)
}

func TestClassifyWrappedDriverError(t *testing.T) {
	wrapped := fmt.Errorf("query failed: %w", &gocql.RequestErrUnavailable{Consistency: gocql.One, Required: 1})
	require.Equal(t, "unavailable", types.ErrorCategory(v1.Classify(wrapped)))
}

func TestClassifyRequestErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
		want types.RequestErrorKind
	}{
		{"overloaded", coordinatorError{code: gocql.ErrCodeOverloaded, msg: "overloaded"}, types.KindOverloaded},
		{"bootstrapping", coordinatorError{code: gocql.ErrCodeBootstrapping, msg: "bootstrapping"}, types.KindBootstrapping},
		{"server", coordinatorError{code: gocql.ErrCodeServer, msg: "server error"}, types.KindServer},
		{"truncate", coordinatorError{code: gocql.ErrCodeTruncate, msg: "truncate"}, types.KindTruncate},
		{"driver timeout", gocql.ErrTimeoutNoResponse, types.KindClientTimeout},
		{"connection closed", gocql.ErrConnectionClosed, types.KindConnection},
		{"no connections", gocql.ErrNoConnections, types.KindConnection},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := v1.Classify(tc.err)

			var reqErr *types.RequestError
			require.ErrorAs(t, err, &reqErr)
			require.Equal(t, tc.want, reqErr.Kind)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestClassifyLeavesOtherErrorsUnchanged(t *testing.T) {
	syntax := coordinatorError{code: gocql.ErrCodeSyntax, msg: "line 1:0 no viable alternative"}
	plain := errors.New("boom")

	for _, err := range []error{syntax, plain, context.Canceled, context.DeadlineExceeded, gocql.ErrNotFound} {
		require.Equal(t, err, v1.Classify(err))
		require.Empty(t, types.ErrorCategory(v1.Classify(err)))
	}

	require.NoError(t, v1.Classify(nil))
}
