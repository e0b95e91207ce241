package cqlguard

import (
	"github.com/arloliu/cqlguard/policy"
	"github.com/arloliu/cqlguard/types"
)

// Type aliases for convenience - re-export from types and policy packages.
type (
	Consistency      = types.Consistency
	Distance         = types.Distance
	ConnectionState  = types.ConnectionState
	Host             = types.Host
	HostEvent        = types.HostEvent
	Decision         = types.Decision
	OperationInfo    = types.OperationInfo
	ExecutionOptions = types.ExecutionOptions
	SchemaChange     = types.SchemaChange
	Result           = types.Result
	Logger           = types.Logger
	MetricsCollector = types.MetricsCollector

	RetryPolicy                = policy.RetryPolicy
	SpeculativeExecutionPolicy = policy.SpeculativeExecutionPolicy
	SpeculativePlan            = policy.SpeculativePlan
	LoadBalancingPolicy        = policy.LoadBalancingPolicy
	HostLister                 = policy.HostLister
)

// Re-export consistency level constants for convenience.
const (
	Any         = types.Any
	One         = types.One
	Two         = types.Two
	Three       = types.Three
	Quorum      = types.Quorum
	All         = types.All
	LocalQuorum = types.LocalQuorum
	EachQuorum  = types.EachQuorum
	Serial      = types.Serial
	LocalSerial = types.LocalSerial
	LocalOne    = types.LocalOne
)

// Re-export distance constants for convenience.
const (
	DistanceLocal   = types.DistanceLocal
	DistanceRemote  = types.DistanceRemote
	DistanceIgnored = types.DistanceIgnored
)

// Re-export connection state constants for convenience.
const (
	StateDisconnected = types.StateDisconnected
	StateConnecting   = types.StateConnecting
	StateConnected    = types.StateConnected
	StateShuttingDown = types.StateShuttingDown
)
