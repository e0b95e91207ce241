package v2

import (
	"errors"
	"net"

	gocql "github.com/apache/cassandra-gocql-driver/v2"

	"github.com/arloliu/cqlguard/types"
)

// Classify maps an error of the Apache driver onto the error kinds
// understood by retry policies.
//
// Errors that are not retryable (syntax errors, authorization failures,
// context cancellation, ...) are returned unchanged.
//
// Parameters:
//   - err: An error returned by the driver
//
// Returns:
//   - error: *types.UnavailableError, *types.ReadTimeoutError,
//     *types.WriteTimeoutError, *types.RequestError, or err itself
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var (
		unavailable  *gocql.RequestErrUnavailable
		readTimeout  *gocql.RequestErrReadTimeout
		writeTimeout *gocql.RequestErrWriteTimeout
		reqErr       gocql.RequestError
		netErr       net.Error
	)

	switch {
	case errors.As(err, &unavailable):
		return &types.UnavailableError{
			Consistency: types.Consistency(unavailable.Consistency),
			Required:    unavailable.Required,
			Alive:       unavailable.Alive,
		}

	case errors.As(err, &readTimeout):
		return &types.ReadTimeoutError{
			Consistency: types.Consistency(readTimeout.Consistency),
			Received:    readTimeout.Received,
			BlockFor:    readTimeout.BlockFor,
			DataPresent: readTimeout.DataPresent != 0,
		}

	case errors.As(err, &writeTimeout):
		return &types.WriteTimeoutError{
			Consistency: types.Consistency(writeTimeout.Consistency),
			Received:    writeTimeout.Received,
			BlockFor:    writeTimeout.BlockFor,
			WriteType:   types.WriteType(writeTimeout.WriteType),
		}

	case errors.As(err, &reqErr):
		if kind, ok := requestErrorKinds[reqErr.Code()]; ok {
			return &types.RequestError{Kind: kind, Cause: err}
		}

		return err

	case errors.Is(err, gocql.ErrTimeoutNoResponse):
		return &types.RequestError{Kind: types.KindClientTimeout, Cause: err}

	case errors.Is(err, gocql.ErrConnectionClosed),
		errors.Is(err, gocql.ErrNoConnections),
		errors.As(err, &netErr):
		return &types.RequestError{Kind: types.KindConnection, Cause: err}

	default:
		return err
	}
}

// requestErrorKinds lists the coordinator error codes worth another host.
var requestErrorKinds = map[int]types.RequestErrorKind{
	gocql.ErrCodeOverloaded:    types.KindOverloaded,
	gocql.ErrCodeBootstrapping: types.KindBootstrapping,
	gocql.ErrCodeServer:        types.KindServer,
	gocql.ErrCodeTruncate:      types.KindTruncate,
}
