// Package types provides shared types and errors for the cqlguard library.
//
// This is a "leaf" package with no imports from other cqlguard packages,
// allowing it to be imported by any package without causing import cycles.
package types

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Consistency represents the Cassandra consistency level.
type Consistency uint16

// Common consistency levels matching gocql.
const (
	Any         Consistency = 0x00
	One         Consistency = 0x01
	Two         Consistency = 0x02
	Three       Consistency = 0x03
	Quorum      Consistency = 0x04
	All         Consistency = 0x05
	LocalQuorum Consistency = 0x06
	EachQuorum  Consistency = 0x07
	Serial      Consistency = 0x08
	LocalSerial Consistency = 0x09
	LocalOne    Consistency = 0x0A
)

var consistencyNames = map[Consistency]string{
	Any:         "ANY",
	One:         "ONE",
	Two:         "TWO",
	Three:       "THREE",
	Quorum:      "QUORUM",
	All:         "ALL",
	LocalQuorum: "LOCAL_QUORUM",
	EachQuorum:  "EACH_QUORUM",
	Serial:      "SERIAL",
	LocalSerial: "LOCAL_SERIAL",
	LocalOne:    "LOCAL_ONE",
}

// String returns the CQL name of the consistency level.
func (c Consistency) String() string {
	if name, ok := consistencyNames[c]; ok {
		return name
	}

	return "UNKNOWN_CONS_0x" + strconv.FormatUint(uint64(c), 16)
}

// IsSerial reports whether c is one of the serial consistency levels used
// for lightweight transactions.
func (c Consistency) IsSerial() bool {
	return c == Serial || c == LocalSerial
}

// Distance classifies a host relative to the client.
//
// The numeric order is meaningful: Local < Remote < Ignored. When several
// load-balancing policies rate the same host, the smallest value wins.
type Distance int

const (
	// DistanceLocal hosts get eagerly warmed pools and are preferred in query plans.
	DistanceLocal Distance = iota
	// DistanceRemote hosts get lazily initialized pools.
	DistanceRemote
	// DistanceIgnored hosts never get a pool and never appear in query plans.
	DistanceIgnored
)

// String returns the lowercase name of the distance.
func (d Distance) String() string {
	switch d {
	case DistanceLocal:
		return "local"
	case DistanceRemote:
		return "remote"
	case DistanceIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// ConnectionState is the lifecycle state of a client.
type ConnectionState int32

const (
	// StateDisconnected is the initial state, and the terminal state after shutdown.
	StateDisconnected ConnectionState = iota
	// StateConnecting means a connect attempt is in flight.
	StateConnecting
	// StateConnected means the control connection is open and pools are warmed.
	StateConnected
	// StateShuttingDown means pools and the control connection are being closed.
	StateShuttingDown
)

// String returns the name of the state.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// Host describes a cluster node.
type Host struct {
	// ID is the node's host_id as reported by system.local / system.peers.
	ID uuid.UUID `json:"id"`

	// Address is the node's RPC address, "ip:port".
	Address string `json:"address"`

	// Datacenter is the node's data center name.
	Datacenter string `json:"datacenter"`

	// Rack is the node's rack name.
	Rack string `json:"rack,omitempty"`
}

// String returns a compact description of the host for logs.
func (h Host) String() string {
	if h.Datacenter == "" {
		return h.Address
	}

	return h.Address + "@" + h.Datacenter
}

// HostEventType is the kind of topology change carried by a HostEvent.
type HostEventType int

const (
	// HostAdded means a node joined the cluster.
	HostAdded HostEventType = iota
	// HostRemoved means a node left the cluster.
	HostRemoved
	// HostUp means a known node became reachable.
	HostUp
	// HostDown means a known node became unreachable.
	HostDown
)

// String returns the name of the event type.
func (t HostEventType) String() string {
	switch t {
	case HostAdded:
		return "added"
	case HostRemoved:
		return "removed"
	case HostUp:
		return "up"
	case HostDown:
		return "down"
	default:
		return "unknown"
	}
}

// HostEvent is a single topology change.
type HostEvent struct {
	Type HostEventType
	Host Host
}

// WriteType is the server-reported kind of write that timed out.
type WriteType string

// Write types reported in WRITE_TIMEOUT errors.
const (
	WriteTypeSimple        WriteType = "SIMPLE"
	WriteTypeBatch         WriteType = "BATCH"
	WriteTypeUnloggedBatch WriteType = "UNLOGGED_BATCH"
	WriteTypeCounter       WriteType = "COUNTER"
	WriteTypeBatchLog      WriteType = "BATCH_LOG"
	WriteTypeCAS           WriteType = "CAS"
	WriteTypeView          WriteType = "VIEW"
	WriteTypeCDC           WriteType = "CDC"
)

// DecisionType says whether a failed attempt is retried.
type DecisionType int

const (
	// DecisionRethrow surfaces the error to the caller.
	DecisionRethrow DecisionType = iota
	// DecisionRetry sends the operation again.
	DecisionRetry
)

// String returns the name of the decision type.
func (t DecisionType) String() string {
	if t == DecisionRetry {
		return "retry"
	}

	return "rethrow"
}

// Decision is the outcome of consulting a retry policy about one failure.
//
// A fresh value is produced for every failure; it is never shared between
// attempts.
type Decision struct {
	// Type is retry or rethrow.
	Type DecisionType

	// Consistency overrides the consistency level of the next attempt.
	// nil keeps the current level.
	Consistency *Consistency

	// UseCurrentHost retries on the host that just failed instead of
	// advancing the query plan.
	UseCurrentHost bool
}

// RethrowDecision returns a decision that surfaces the error.
func RethrowDecision() Decision {
	return Decision{Type: DecisionRethrow}
}

// RetryDecision returns a decision that retries the operation.
//
// Parameters:
//   - consistency: Consistency for the next attempt, or nil to keep the current one
//   - useCurrentHost: Whether to retry on the same host
//
// Returns:
//   - Decision: A retry decision
func RetryDecision(consistency *Consistency, useCurrentHost bool) Decision {
	return Decision{Type: DecisionRetry, Consistency: consistency, UseCurrentHost: useCurrentHost}
}

// ExecutionOptions are the resolved settings of one operation.
type ExecutionOptions struct {
	// Profile is the name of the execution profile the options came from.
	Profile string

	// Keyspace the operation runs against. Used for routing and for plans.
	Keyspace string

	// Consistency level of the first attempt.
	Consistency Consistency

	// SerialConsistency used for conditional updates.
	SerialConsistency Consistency

	// ReadTimeout bounds a single attempt. Zero disables the per-attempt timeout.
	ReadTimeout time.Duration

	// IsIdempotent marks the operation safe to send more than once.
	IsIdempotent bool

	// PageSize is the requested number of rows per page; zero uses the driver default.
	PageSize int

	// PageState resumes paging from a previous result.
	PageState []byte
}

// OperationInfo describes an operation to retry policies.
//
// AttemptCount is 0 for the first try and grows by one for every retry of
// the same execution.
type OperationInfo struct {
	Query        string
	Options      ExecutionOptions
	AttemptCount int
}

// SchemaChange describes a schema mutation reported by the server.
type SchemaChange struct {
	// Change is CREATED, UPDATED or DROPPED.
	Change string

	// Target is KEYSPACE, TABLE, TYPE, FUNCTION or AGGREGATE.
	Target string

	// Keyspace is the affected keyspace.
	Keyspace string

	// Name is the affected object inside the keyspace; empty for keyspace targets.
	Name string
}

// Result is the raw outcome of one successful attempt, as returned by a dispatcher.
type Result struct {
	// Rows holds the returned rows, one map per row.
	Rows []map[string]any

	// PageState is the paging state for the next page, nil on the last page.
	PageState []byte

	// Warnings are server-side warnings attached to the response.
	Warnings []string

	// SchemaChange is set when the statement altered the schema.
	SchemaChange *SchemaChange
}
