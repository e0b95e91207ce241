package topology

import (
	"time"

	"github.com/google/uuid"

	"github.com/arloliu/cqlguard/internal/logging"
	"github.com/arloliu/cqlguard/types"
)

// HostList is the cluster membership document stored in NATS KV.
//
// This is the JSON structure that operations teams or a discovery agent PUT
// to the KV store:
//
//	{
//	    "hosts": [
//	        {"id": "4d3c...", "address": "10.0.0.1:9042", "datacenter": "dc1", "rack": "r1"}
//	    ],
//	    "down": ["4d3c..."]
//	}
type HostList struct {
	// Hosts lists every member of the cluster.
	Hosts []types.Host `json:"hosts"`

	// Down lists the IDs of members currently known to be down.
	Down []uuid.UUID `json:"down,omitempty"`
}

// IsDown returns true if the host with the given ID is marked down.
//
// Parameters:
//   - id: The host ID to check
//
// Returns:
//   - bool: true if the host is in the down list
func (l *HostList) IsDown(id uuid.UUID) bool {
	for _, d := range l.Down {
		if d == id {
			return true
		}
	}
	return false
}

// WatcherConfig holds configuration for topology watchers.
type WatcherConfig struct {
	// Key is the NATS KV key holding the host list.
	// Default: "cqlguard.topology.hosts"
	Key string

	// PollInterval is the fallback polling interval if watch fails.
	// Default: 5 seconds
	PollInterval time.Duration

	// InitialFetchTimeout is the timeout for the initial KV fetch.
	// Default: 10 seconds
	InitialFetchTimeout time.Duration

	// Logger receives watch failures and rejected host lists.
	// Default: no-op
	Logger types.Logger
}

// DefaultWatcherConfig returns a WatcherConfig with sensible defaults.
//
// Returns:
//   - WatcherConfig: Default configuration
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		Key:                 "cqlguard.topology.hosts",
		PollInterval:        5 * time.Second,
		InitialFetchTimeout: 10 * time.Second,
		Logger:              logging.NewNopLogger(),
	}
}

// WatcherOption configures a topology watcher.
type WatcherOption func(*WatcherConfig)

// WithKey sets the NATS KV key to watch.
//
// Parameters:
//   - key: The key name (e.g., "cassandra.prod.hosts")
//
// Returns:
//   - WatcherOption: Configuration option
func WithKey(key string) WatcherOption {
	return func(c *WatcherConfig) {
		c.Key = key
	}
}

// WithPollInterval sets the fallback polling interval.
//
// If the NATS watch fails or disconnects, the watcher falls back to
// polling at this interval.
//
// Parameters:
//   - d: Polling interval duration
//
// Returns:
//   - WatcherOption: Configuration option
func WithPollInterval(d time.Duration) WatcherOption {
	return func(c *WatcherConfig) {
		c.PollInterval = d
	}
}

// WithInitialFetchTimeout sets the timeout for the initial KV fetch.
//
// Parameters:
//   - d: Timeout duration
//
// Returns:
//   - WatcherOption: Configuration option
func WithInitialFetchTimeout(d time.Duration) WatcherOption {
	return func(c *WatcherConfig) {
		c.InitialFetchTimeout = d
	}
}

// WithLogger sets the logger of the watcher. nil is ignored.
func WithLogger(logger types.Logger) WatcherOption {
	return func(c *WatcherConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}
