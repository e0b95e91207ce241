// Package types provides shared types and error definitions for the cqlguard library.
//
// This is a leaf package with zero cqlguard imports to prevent import cycles.
// All packages in cqlguard can safely import this package.
//
// # Types
//
// Distance classifies hosts for pooling and query planning; the order
// matters when several policies rate the same host:
//
//	const (
//	    DistanceLocal   Distance = 0
//	    DistanceRemote  Distance = 1
//	    DistanceIgnored Distance = 2
//	)
//
// Decision is what a retry policy answers for a failed attempt:
//
//	type Decision struct {
//	    Type           DecisionType // DecisionRetry or DecisionRethrow
//	    Consistency    *Consistency // nil keeps the current level
//	    UseCurrentHost bool
//	}
//
// # Errors
//
// Retryable failures are classified into UnavailableError, ReadTimeoutError,
// WriteTimeoutError and RequestError. They only reach the caller wrapped in
// ExecutionError once a retry policy decided to rethrow.
//
// Sentinel errors:
//
//   - ErrNoHostAvailable: No host could serve the request
//   - ErrClientShutdown: The client was shut down (matches ErrNoHostAvailable)
//   - ErrInvalidConfig: Parent of every configuration error
//   - ErrUnknownProfile: An execution named an unregistered profile
package types
