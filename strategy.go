package cqlguard

import (
	"context"

	"github.com/arloliu/cqlguard/types"
)

// ControlConnection is the single connection used for cluster metadata.
type ControlConnection interface {
	// Connect opens the control connection and returns the host it landed on.
	Connect(ctx context.Context) (types.Host, error)

	// Close releases the control connection. It is safe to call on a
	// connection that never opened.
	Close() error
}

// HostProvider is the source of cluster topology.
//
// Implementations are provided in the topology package (in-memory and
// NATS-backed) and by the gocql adapter.
type HostProvider interface {
	// Hosts returns every host currently known to the provider.
	Hosts() []types.Host

	// Watch returns a channel of topology changes. The channel is closed
	// when ctx is cancelled.
	Watch(ctx context.Context) <-chan types.HostEvent
}

// PoolProvider hands out the connection pool of a host.
type PoolProvider interface {
	// Pool returns the pool for host, creating it on first use.
	Pool(host types.Host) HostPool
}

// HostPool is the connection pool of a single host.
type HostPool interface {
	// Warmup opens the pool's connections and blocks until they are ready.
	// keyspace is selected on every connection when non-empty.
	Warmup(ctx context.Context, keyspace string) error

	// Initialize starts opening connections in the background without blocking.
	Initialize()

	// Shutdown closes every connection of the pool.
	Shutdown(ctx context.Context) error
}

// Request is what the client hands to a Dispatcher for one attempt.
type Request struct {
	// Query is the CQL statement.
	Query string

	// Params are the bound values.
	Params []any

	// Options are the resolved options of the operation. Consistency
	// reflects any override chosen by the retry policy.
	Options types.ExecutionOptions
}

// Dispatcher sends one attempt of an operation to a specific host.
type Dispatcher interface {
	// Send executes req on host. Retryable failures must be reported as
	// *types.UnavailableError, *types.ReadTimeoutError,
	// *types.WriteTimeoutError or *types.RequestError; any other error is
	// returned to the caller unchanged.
	Send(ctx context.Context, host types.Host, req *Request) (*types.Result, error)
}

// MetadataProvider exposes the cluster schema metadata.
type MetadataProvider interface {
	// CompareSchemaVersions reports whether every node, as seen from host,
	// is on the same schema version.
	CompareSchemaVersions(ctx context.Context, host types.Host) (bool, error)

	// RefreshSchema reloads the local metadata affected by change.
	RefreshSchema(ctx context.Context, change types.SchemaChange) error
}
