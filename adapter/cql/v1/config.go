package v1

import (
	"time"

	"github.com/arloliu/cqlguard/internal/logging"
	"github.com/arloliu/cqlguard/types"
)

const (
	// DefaultPeerRefreshInterval is how often system.peers is re-read.
	DefaultPeerRefreshInterval = 30 * time.Second

	// DefaultInitializeTimeout bounds a background pool initialization.
	DefaultInitializeTimeout = 10 * time.Second

	// DefaultWarmupQuery is the statement pinned to a host to open its pool.
	DefaultWarmupQuery = "SELECT now() FROM system.local"
)

// Config holds the adapter settings that gocql.ClusterConfig does not cover.
type Config struct {
	// PeerRefreshInterval is how often the peer list is re-read after connect.
	// Zero disables periodic refresh.
	PeerRefreshInterval time.Duration

	// InitializeTimeout bounds a pool initialization started in the background.
	InitializeTimeout time.Duration

	// WarmupQuery is sent to a host to make gocql open its connections.
	WarmupQuery string

	// Logger receives adapter diagnostics.
	Logger types.Logger
}

// Option configures a Session.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		PeerRefreshInterval: DefaultPeerRefreshInterval,
		InitializeTimeout:   DefaultInitializeTimeout,
		WarmupQuery:         DefaultWarmupQuery,
		Logger:              logging.NewNopLogger(),
	}
}

// WithPeerRefreshInterval sets how often system.peers is polled.
//
// Parameters:
//   - d: Refresh interval, zero disables polling
//
// Returns:
//   - Option: Configuration option
func WithPeerRefreshInterval(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.PeerRefreshInterval = d
		}
	}
}

// WithInitializeTimeout sets the timeout of background pool initialization.
//
// Parameters:
//   - d: Timeout (must be positive)
//
// Returns:
//   - Option: Configuration option
func WithInitializeTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.InitializeTimeout = d
		}
	}
}

// WithWarmupQuery overrides the statement used to open a host's pool.
//
// Parameters:
//   - stmt: A cheap CQL statement
//
// Returns:
//   - Option: Configuration option
func WithWarmupQuery(stmt string) Option {
	return func(c *Config) {
		if stmt != "" {
			c.WarmupQuery = stmt
		}
	}
}

// WithLogger sets the adapter logger.
//
// Parameters:
//   - logger: A types.Logger implementation
//
// Returns:
//   - Option: Configuration option
func WithLogger(logger types.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}
