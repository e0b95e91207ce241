package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionError(t *testing.T) {
	cause := &UnavailableError{Consistency: Quorum, Required: 2, Alive: 1}
	err := &ExecutionError{Cause: cause, Attempts: 2, Host: "10.0.0.1:9042"}

	assert.Contains(t, err.Error(), "10.0.0.1:9042")
	assert.Contains(t, err.Error(), "2 attempt(s)")
	assert.Contains(t, err.Error(), "QUORUM")

	var unavailable *UnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, 1, unavailable.Alive)
}

func TestHostError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &HostError{Host: "10.0.0.2:9042", Operation: "warmup", Cause: cause}

	assert.Contains(t, err.Error(), "host 10.0.0.2:9042")
	assert.Contains(t, err.Error(), "warmup failed")
	assert.True(t, errors.Is(err, cause))
}

func TestNoHostAvailableError(t *testing.T) {
	errA := errors.New("down")
	errB := &RequestError{Kind: KindOverloaded}

	err := &NoHostAvailableError{Errors: map[string]error{
		"10.0.0.2:9042": errB,
		"10.0.0.1:9042": errA,
	}}

	require.True(t, errors.Is(err, ErrNoHostAvailable))
	require.True(t, errors.Is(err, errA))

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, KindOverloaded, reqErr.Kind)

	// Hosts are listed in a stable order.
	msg := err.Error()
	assert.Less(t, indexOf(msg, "10.0.0.1"), indexOf(msg, "10.0.0.2"))

	empty := &NoHostAvailableError{}
	assert.Contains(t, empty.Error(), "no host was tried")
}

func TestClientShutdownMatchesNoHostAvailable(t *testing.T) {
	assert.True(t, errors.Is(ErrClientShutdown, ErrNoHostAvailable))
	assert.True(t, errors.Is(fmt.Errorf("connect: %w", ErrClientShutdown), ErrNoHostAvailable))
}

func TestConfigErrors(t *testing.T) {
	for _, err := range []error{
		ErrUnknownProfile,
		ErrDuplicateProfile,
		ErrInvalidSpeculativeDelay,
		ErrInvalidSpeculativeMax,
		ErrNilCollaborator,
	} {
		assert.True(t, errors.Is(err, ErrInvalidConfig), err.Error())
	}
}

func TestErrorCategory(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unavailable", &UnavailableError{}, "unavailable"},
		{"read timeout", &ReadTimeoutError{}, "read_timeout"},
		{"write timeout", &WriteTimeoutError{WriteType: WriteTypeSimple}, "write_timeout"},
		{"request error", &RequestError{Kind: KindConnection}, "request_error"},
		{"wrapped", fmt.Errorf("attempt: %w", &ReadTimeoutError{}), "read_timeout"},
		{"unclassified", errors.New("syntax error"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCategory(tt.err))
		})
	}
}

func TestRequestErrorUnwrap(t *testing.T) {
	cause := errors.New("broken pipe")
	err := &RequestError{Kind: KindConnection, Cause: cause}

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection")
	assert.Contains(t, (&RequestError{Kind: KindServer}).Error(), "server")
}

func TestConsistencyString(t *testing.T) {
	assert.Equal(t, "LOCAL_QUORUM", LocalQuorum.String())
	assert.Equal(t, "LOCAL_ONE", LocalOne.String())
	assert.Equal(t, "UNKNOWN_CONS_0x20", Consistency(0x20).String())
	assert.True(t, LocalSerial.IsSerial())
	assert.False(t, Quorum.IsSerial())
}

func TestDistanceOrdering(t *testing.T) {
	assert.Less(t, DistanceLocal, DistanceRemote)
	assert.Less(t, DistanceRemote, DistanceIgnored)
	assert.Equal(t, "ignored", DistanceIgnored.String())
}

func TestDecisionConstructors(t *testing.T) {
	rethrow := RethrowDecision()
	assert.Equal(t, DecisionRethrow, rethrow.Type)
	assert.Nil(t, rethrow.Consistency)

	cl := One
	retry := RetryDecision(&cl, true)
	assert.Equal(t, DecisionRetry, retry.Type)
	require.NotNil(t, retry.Consistency)
	assert.Equal(t, One, *retry.Consistency)
	assert.True(t, retry.UseCurrentHost)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}

	return -1
}
