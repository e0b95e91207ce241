package v2_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	gocql "github.com/apache/cassandra-gocql-driver/v2"
	"github.com/stretchr/testify/require"

	v2 "github.com/arloliu/cqlguard/adapter/cql/v2" //nolint:revive // required for v2_test package
	"github.com/arloliu/cqlguard/types"
)

// serverError is a coordinator error frame carrying only a code.
type serverError struct {
	code int
	msg  string
}

func (e serverError) Code() int       { return e.code }
func (e serverError) Message() string { return e.msg }
func (e serverError) Error() string   { return e.msg }

func TestClassifyTimeoutsAndUnavailable(t *testing.T) {
	var unavailable *types.UnavailableError
	err := v2.Classify(&gocql.RequestErrUnavailable{Consistency: gocql.LocalQuorum, Required: 2, Alive: 1})
	require.ErrorAs(t, err, &unavailable)
	require.Equal(t, types.LocalQuorum, unavailable.Consistency)
	require.Equal(t, 2, unavailable.Required)
	require.Equal(t, 1, unavailable.Alive)

	var readTimeout *types.ReadTimeoutError
	err = v2.Classify(&gocql.RequestErrReadTimeout{Consistency: gocql.Quorum, Received: 2, BlockFor: 2, DataPresent: 1})
	require.ErrorAs(t, err, &readTimeout)
	require.Equal(t, types.Quorum, readTimeout.Consistency)
	require.True(t, readTimeout.DataPresent)

	var writeTimeout *types.WriteTimeoutError
	err = v2.Classify(fmt.Errorf("insert: %w", &gocql.RequestErrWriteTimeout{
		Consistency: gocql.One, Received: 0, BlockFor: 1, WriteType: "BATCH_LOG",
	}))
	require.ErrorAs(t, err, &writeTimeout)
	require.Equal(t, types.WriteTypeBatchLog, writeTimeout.WriteType)
}

func TestClassifyRequestErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want types.RequestErrorKind
	}{
		{"overloaded", serverError{code: gocql.ErrCodeOverloaded, msg: "overloaded"}, types.KindOverloaded},
		{"bootstrapping", serverError{code: gocql.ErrCodeBootstrapping, msg: "bootstrapping"}, types.KindBootstrapping},
		{"server", serverError{code: gocql.ErrCodeServer, msg: "server error"}, types.KindServer},
		{"truncate", serverError{code: gocql.ErrCodeTruncate, msg: "truncate"}, types.KindTruncate},
		{"no response", gocql.ErrTimeoutNoResponse, types.KindClientTimeout},
		{"connection closed", gocql.ErrConnectionClosed, types.KindConnection},
		{"no connections", gocql.ErrNoConnections, types.KindConnection},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var reqErr *types.RequestError
			require.ErrorAs(t, v2.Classify(tc.err), &reqErr)
			require.Equal(t, tc.want, reqErr.Kind)
			require.ErrorIs(t, reqErr, tc.err)
		})
	}
}

func TestClassifyLeavesOtherErrors(t *testing.T) {
	for _, err := range []error{
		serverError{code: gocql.ErrCodeSyntax, msg: "line 1:0 no viable alternative"},
		errors.New("boom"),
		context.Canceled,
		context.DeadlineExceeded,
	} {
		require.Equal(t, err, v2.Classify(err))
	}
	require.NoError(t, v2.Classify(nil))
}
