package v1

import (
	"errors"
	"net"

	"github.com/gocql/gocql"

	"github.com/arloliu/cqlguard/types"
)

// Classify maps a gocql error onto the error kinds understood by retry
// policies.
//
// Errors that are not retryable (syntax errors, authorization failures,
// context cancellation, ...) are returned unchanged.
//
// Parameters:
//   - err: An error returned by gocql
//
// Returns:
//   - error: *types.UnavailableError, *types.ReadTimeoutError,
//     *types.WriteTimeoutError, *types.RequestError, or err itself
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var unavailable *gocql.RequestErrUnavailable
	if errors.As(err, &unavailable) {
		return &types.UnavailableError{
			Consistency: types.Consistency(unavailable.Consistency),
			Required:    unavailable.Required,
			Alive:       unavailable.Alive,
		}
	}

	var readTimeout *gocql.RequestErrReadTimeout
	if errors.As(err, &readTimeout) {
		return &types.ReadTimeoutError{
			Consistency: types.Consistency(readTimeout.Consistency),
			Received:    readTimeout.Received,
			BlockFor:    readTimeout.BlockFor,
			DataPresent: readTimeout.DataPresent != 0,
		}
	}

	var writeTimeout *gocql.RequestErrWriteTimeout
	if errors.As(err, &writeTimeout) {
		return &types.WriteTimeoutError{
			Consistency: types.Consistency(writeTimeout.Consistency),
			Received:    writeTimeout.Received,
			BlockFor:    writeTimeout.BlockFor,
			WriteType:   types.WriteType(writeTimeout.WriteType),
		}
	}

	var reqErr gocql.RequestError
	if errors.As(err, &reqErr) {
		if kind, ok := kindForCode(reqErr.Code()); ok {
			return &types.RequestError{Kind: kind, Cause: err}
		}

		return err
	}

	switch {
	case errors.Is(err, gocql.ErrTimeoutNoResponse):
		return &types.RequestError{Kind: types.KindClientTimeout, Cause: err}
	case errors.Is(err, gocql.ErrConnectionClosed), errors.Is(err, gocql.ErrNoConnections):
		return &types.RequestError{Kind: types.KindConnection, Cause: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &types.RequestError{Kind: types.KindConnection, Cause: err}
	}

	return err
}

func kindForCode(code int) (types.RequestErrorKind, bool) {
	switch code {
	case gocql.ErrCodeOverloaded:
		return types.KindOverloaded, true
	case gocql.ErrCodeBootstrapping:
		return types.KindBootstrapping, true
	case gocql.ErrCodeServer:
		return types.KindServer, true
	case gocql.ErrCodeTruncate:
		return types.KindTruncate, true
	default:
		return 0, false
	}
}
