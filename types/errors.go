package types

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Sentinel errors for common failure scenarios.
var (
	// ErrNoHostAvailable indicates that no host could serve the request.
	ErrNoHostAvailable = errors.New("cqlguard: no host available")

	// ErrClientShutdown indicates an operation was attempted on a client that
	// has been shut down. It matches ErrNoHostAvailable with errors.Is.
	ErrClientShutdown = fmt.Errorf("%w: client has been shut down", ErrNoHostAvailable)

	// ErrInvalidConfig is the parent of every configuration error.
	ErrInvalidConfig = errors.New("cqlguard: invalid configuration")

	// ErrUnknownProfile indicates an execution referenced a profile that was never registered.
	ErrUnknownProfile = fmt.Errorf("%w: unknown execution profile", ErrInvalidConfig)

	// ErrDuplicateProfile indicates two profiles were registered under the same name.
	ErrDuplicateProfile = fmt.Errorf("%w: duplicate execution profile", ErrInvalidConfig)

	// ErrInvalidSpeculativeDelay indicates a negative speculative execution delay.
	ErrInvalidSpeculativeDelay = fmt.Errorf("%w: speculative execution delay must not be negative", ErrInvalidConfig)

	// ErrInvalidSpeculativeMax indicates a non-positive speculative execution count.
	ErrInvalidSpeculativeMax = fmt.Errorf("%w: speculative execution count must be positive", ErrInvalidConfig)

	// ErrNilCollaborator indicates a required collaborator was nil.
	ErrNilCollaborator = fmt.Errorf("%w: collaborator cannot be nil", ErrInvalidConfig)

	// ErrEmptyQueryPlan indicates the load-balancing policy produced no usable host.
	ErrEmptyQueryPlan = errors.New("cqlguard: query plan is empty")
)

// UnavailableError reports that the coordinator knew too few replicas were
// alive to satisfy the consistency level.
type UnavailableError struct {
	Consistency Consistency
	Required    int
	Alive       int
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	return "cqlguard: unavailable - consistency " + e.Consistency.String() +
		" requires " + strconv.Itoa(e.Required) + " replicas, " + strconv.Itoa(e.Alive) + " alive"
}

// ReadTimeoutError reports that replicas did not answer a read in time.
type ReadTimeoutError struct {
	Consistency Consistency
	Received    int
	BlockFor    int
	DataPresent bool
}

// Error implements the error interface.
func (e *ReadTimeoutError) Error() string {
	return "cqlguard: read timeout - consistency " + e.Consistency.String() +
		", received " + strconv.Itoa(e.Received) + "/" + strconv.Itoa(e.BlockFor) +
		", data present " + strconv.FormatBool(e.DataPresent)
}

// WriteTimeoutError reports that replicas did not acknowledge a write in time.
type WriteTimeoutError struct {
	Consistency Consistency
	Received    int
	BlockFor    int
	WriteType   WriteType
}

// Error implements the error interface.
func (e *WriteTimeoutError) Error() string {
	return "cqlguard: write timeout - consistency " + e.Consistency.String() +
		", received " + strconv.Itoa(e.Received) + "/" + strconv.Itoa(e.BlockFor) +
		", write type " + string(e.WriteType)
}

// RequestErrorKind classifies a RequestError.
type RequestErrorKind int

const (
	// KindClientTimeout means the client gave up waiting for a response.
	KindClientTimeout RequestErrorKind = iota
	// KindConnection means the connection broke while the request was in flight.
	KindConnection
	// KindOverloaded means the coordinator rejected the request as overloaded.
	KindOverloaded
	// KindBootstrapping means the coordinator is still joining the ring.
	KindBootstrapping
	// KindServer means the coordinator hit an internal error.
	KindServer
	// KindTruncate means a TRUNCATE failed on the server.
	KindTruncate
)

// String returns the name of the kind.
func (k RequestErrorKind) String() string {
	switch k {
	case KindClientTimeout:
		return "client_timeout"
	case KindConnection:
		return "connection"
	case KindOverloaded:
		return "overloaded"
	case KindBootstrapping:
		return "bootstrapping"
	case KindServer:
		return "server"
	case KindTruncate:
		return "truncate"
	default:
		return "unknown"
	}
}

// RequestError is a failure in which the outcome of the request on the
// server is unknown or the coordinator refused it.
type RequestError struct {
	Kind  RequestErrorKind
	Cause error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Cause == nil {
		return "cqlguard: request error (" + e.Kind.String() + ")"
	}

	return "cqlguard: request error (" + e.Kind.String() + "): " + e.Cause.Error()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *RequestError) Unwrap() error {
	return e.Cause
}

// ErrorCategory returns the retry category of err ("unavailable",
// "read_timeout", "write_timeout", "request_error"), or "" when err is not
// a retryable-classified error.
func ErrorCategory(err error) string {
	var (
		unavailable  *UnavailableError
		readTimeout  *ReadTimeoutError
		writeTimeout *WriteTimeoutError
		requestErr   *RequestError
	)

	switch {
	case errors.As(err, &unavailable):
		return "unavailable"
	case errors.As(err, &readTimeout):
		return "read_timeout"
	case errors.As(err, &writeTimeout):
		return "write_timeout"
	case errors.As(err, &requestErr):
		return "request_error"
	default:
		return ""
	}
}

// ExecutionError is returned when a retry policy decided to rethrow.
type ExecutionError struct {
	// Cause is the error of the last attempt.
	Cause error

	// Attempts is the number of attempts made by the execution that gave up.
	Attempts int

	// Host is the address of the host that produced Cause.
	Host string
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return "cqlguard: execution failed on " + e.Host + " after " +
		strconv.Itoa(e.Attempts) + " attempt(s): " + e.Cause.Error()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// NoHostAvailableError is returned when every host of the query plan was
// tried (or skipped) without success.
type NoHostAvailableError struct {
	// Errors maps host address to the last error seen on that host.
	Errors map[string]error
}

// Error implements the error interface.
func (e *NoHostAvailableError) Error() string {
	if len(e.Errors) == 0 {
		return ErrNoHostAvailable.Error() + " (no host was tried)"
	}

	addrs := make([]string, 0, len(e.Errors))
	for addr := range e.Errors {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	var b strings.Builder
	b.WriteString(ErrNoHostAvailable.Error())
	b.WriteString(" (tried: ")
	for i, addr := range addrs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(addr)
		b.WriteString(": ")
		b.WriteString(e.Errors[addr].Error())
	}
	b.WriteString(")")

	return b.String()
}

// Unwrap returns ErrNoHostAvailable followed by the per-host errors.
func (e *NoHostAvailableError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errors)+1)
	errs = append(errs, ErrNoHostAvailable)
	for _, err := range e.Errors {
		errs = append(errs, err)
	}

	return errs
}

// HostError wraps an error from a specific host.
type HostError struct {
	// Host is the address of the host.
	Host string

	// Operation describes what operation failed.
	Operation string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *HostError) Error() string {
	return "cqlguard: host " + e.Host + " " + e.Operation + " failed: " + e.Cause.Error()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *HostError) Unwrap() error {
	return e.Cause
}
