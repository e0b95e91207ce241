package cqlguard

import (
	"time"

	"github.com/grafana/dskit/backoff"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/arloliu/cqlguard/internal/logging"
	"github.com/arloliu/cqlguard/internal/metrics"
	"github.com/arloliu/cqlguard/policy"
	"github.com/arloliu/cqlguard/types"
)

// Default values for ClientConfig.
const (
	DefaultReadTimeout             = 12 * time.Second
	DefaultConnectTimeout          = 5 * time.Second
	DefaultMaxSchemaAgreementWait  = 10 * time.Second
	DefaultSchemaAgreementInterval = 500 * time.Millisecond

	// MaxConcurrentWarmups caps the number of pools warmed up at once.
	MaxConcurrentWarmups = 32
)

// ClientConfig holds configuration for cqlguard clients.
//
// The top-level execution settings (Consistency, SerialConsistency,
// ReadTimeout and the policies) define the default profile unless a profile
// named "default" is supplied, and fill any setting a supplied profile leaves
// unset.
type ClientConfig struct {
	Profiles []*ExecutionProfile

	Consistency                Consistency
	SerialConsistency          Consistency
	ReadTimeout                time.Duration
	RetryPolicy                RetryPolicy
	LoadBalancingPolicy        LoadBalancingPolicy
	SpeculativeExecutionPolicy SpeculativeExecutionPolicy

	Keyspace       string
	EagerWarmup    bool
	ConnectTimeout time.Duration

	MaxSchemaAgreementWait  time.Duration
	SchemaAgreementInterval time.Duration
	SchemaMetadataSync      bool

	// RetryBackoff paces retries of one execution. nil retries immediately.
	RetryBackoff *backoff.Config

	Metrics MetricsCollector
	Logger  types.Logger
	Tracer  trace.Tracer
}

// DefaultConfig returns a ClientConfig with sensible defaults.
//
// Defaults:
//   - Consistency: LOCAL_ONE, SerialConsistency: SERIAL, ReadTimeout: 12s
//   - RetryPolicy: policy.DefaultRetryPolicy
//   - LoadBalancingPolicy: policy.RoundRobin
//   - SpeculativeExecutionPolicy: policy.NoSpeculativeExecution
//   - EagerWarmup: true, ConnectTimeout: 5s
//   - MaxSchemaAgreementWait: 10s, SchemaAgreementInterval: 500ms, SchemaMetadataSync: true
//
// Returns:
//   - *ClientConfig: Configuration with default settings
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Consistency:                types.LocalOne,
		SerialConsistency:          types.Serial,
		ReadTimeout:                DefaultReadTimeout,
		RetryPolicy:                policy.NewDefaultRetryPolicy(),
		LoadBalancingPolicy:        policy.NewRoundRobin(),
		SpeculativeExecutionPolicy: policy.NewNoSpeculativeExecution(),
		EagerWarmup:                true,
		ConnectTimeout:             DefaultConnectTimeout,
		MaxSchemaAgreementWait:     DefaultMaxSchemaAgreementWait,
		SchemaAgreementInterval:    DefaultSchemaAgreementInterval,
		SchemaMetadataSync:         true,
		Metrics:                    metrics.NewNopMetrics(),
		Logger:                     logging.NewNopLogger(),
		Tracer:                     noop.NewTracerProvider().Tracer("cqlguard"),
	}
}

// Option configures a ClientConfig.
type Option func(*ClientConfig)

// WithProfiles registers execution profiles.
//
// A profile named "default" replaces the one synthesized from the top-level
// settings. Names must be unique; NewClient fails with
// types.ErrDuplicateProfile otherwise.
//
// Parameters:
//   - profiles: Profiles built with NewExecutionProfile
//
// Returns:
//   - Option: Configuration option
func WithProfiles(profiles ...*ExecutionProfile) Option {
	return func(c *ClientConfig) {
		c.Profiles = append(c.Profiles, profiles...)
	}
}

// WithConsistency sets the default consistency level.
//
// Parameters:
//   - consistency: Consistency level of the default profile
//
// Returns:
//   - Option: Configuration option
func WithConsistency(consistency Consistency) Option {
	return func(c *ClientConfig) {
		c.Consistency = consistency
	}
}

// WithSerialConsistency sets the default serial consistency level.
//
// Parameters:
//   - consistency: SERIAL or LOCAL_SERIAL
//
// Returns:
//   - Option: Configuration option
func WithSerialConsistency(consistency Consistency) Option {
	return func(c *ClientConfig) {
		c.SerialConsistency = consistency
	}
}

// WithReadTimeout sets the default per-attempt timeout.
//
// Parameters:
//   - d: Timeout of a single attempt, zero disables it
//
// Returns:
//   - Option: Configuration option
func WithReadTimeout(d time.Duration) Option {
	return func(c *ClientConfig) {
		c.ReadTimeout = d
	}
}

// WithRetryPolicy sets the default retry policy.
//
// Parameters:
//   - p: The retry policy (e.g., policy.NewIdempotenceAwareRetryPolicy(nil))
//
// Returns:
//   - Option: Configuration option
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *ClientConfig) {
		c.RetryPolicy = p
	}
}

// WithLoadBalancingPolicy sets the default load-balancing policy.
//
// Parameters:
//   - p: The load-balancing policy (e.g., policy.NewDCAwareRoundRobin("dc1"))
//
// Returns:
//   - Option: Configuration option
func WithLoadBalancingPolicy(p LoadBalancingPolicy) Option {
	return func(c *ClientConfig) {
		c.LoadBalancingPolicy = p
	}
}

// WithSpeculativeExecutionPolicy sets the default speculative execution policy.
//
// Speculative executions are only started for idempotent operations.
//
// Parameters:
//   - p: The speculative execution policy
//
// Returns:
//   - Option: Configuration option
func WithSpeculativeExecutionPolicy(p SpeculativeExecutionPolicy) Option {
	return func(c *ClientConfig) {
		c.SpeculativeExecutionPolicy = p
	}
}

// WithKeyspace sets the keyspace selected on warmed-up connections and used
// by operations that don't name one.
//
// Parameters:
//   - keyspace: Keyspace name
//
// Returns:
//   - Option: Configuration option
func WithKeyspace(keyspace string) Option {
	return func(c *ClientConfig) {
		c.Keyspace = keyspace
	}
}

// WithEagerWarmup controls whether pools of local hosts are fully opened
// before Connect returns.
//
// Parameters:
//   - enabled: true to warm up local pools during Connect (default), false to
//     open them in the background
//
// Returns:
//   - Option: Configuration option
func WithEagerWarmup(enabled bool) Option {
	return func(c *ClientConfig) {
		c.EagerWarmup = enabled
	}
}

// WithConnectTimeout bounds a connect attempt.
//
// Parameters:
//   - d: Connect timeout (default: 5s), zero disables it
//
// Returns:
//   - Option: Configuration option
func WithConnectTimeout(d time.Duration) Option {
	return func(c *ClientConfig) {
		c.ConnectTimeout = d
	}
}

// WithMaxSchemaAgreementWait sets how long to wait for schema agreement after
// a schema change.
//
// Parameters:
//   - d: Maximum wait (default: 10s)
//
// Returns:
//   - Option: Configuration option
func WithMaxSchemaAgreementWait(d time.Duration) Option {
	return func(c *ClientConfig) {
		c.MaxSchemaAgreementWait = d
	}
}

// WithSchemaAgreementInterval sets the schema version polling interval.
//
// Parameters:
//   - d: Polling interval (default: 500ms)
//
// Returns:
//   - Option: Configuration option
func WithSchemaAgreementInterval(d time.Duration) Option {
	return func(c *ClientConfig) {
		c.SchemaAgreementInterval = d
	}
}

// WithSchemaMetadataSync controls whether local schema metadata is refreshed
// after a schema change.
//
// Parameters:
//   - enabled: true to refresh (default)
//
// Returns:
//   - Option: Configuration option
func WithSchemaMetadataSync(enabled bool) Option {
	return func(c *ClientConfig) {
		c.SchemaMetadataSync = enabled
	}
}

// WithRetryBackoff paces the retries of a single execution.
//
// By default retries are sent immediately. MaxRetries in cfg only limits the
// number of waits; whether to retry is still decided by the retry policy.
//
// Parameters:
//   - cfg: Backoff configuration
//
// Returns:
//   - Option: Configuration option
//
// Example:
//
//	cqlguard.WithRetryBackoff(backoff.Config{
//	    MinBackoff: 10 * time.Millisecond,
//	    MaxBackoff: 200 * time.Millisecond,
//	})
func WithRetryBackoff(cfg backoff.Config) Option {
	return func(c *ClientConfig) {
		c.RetryBackoff = &cfg
	}
}

// WithMetrics sets the metrics collector.
//
// If not set, a no-op collector is used that discards all metrics.
// Use contrib/metrics/vm.New() for VictoriaMetrics or contrib/metrics/prom.New()
// for Prometheus.
//
// Parameters:
//   - collector: The metrics collector implementation
//
// Returns:
//   - Option: Configuration option
func WithMetrics(collector MetricsCollector) Option {
	return func(c *ClientConfig) {
		c.Metrics = collector
	}
}

// WithLogger sets the structured logger.
//
// If not set, a no-op logger is used that discards all messages.
// The logger interface is compatible with zap.SugaredLogger; use
// contrib/logging/kitlog for go-kit loggers.
//
// Parameters:
//   - logger: The logger implementation
//
// Returns:
//   - Option: Configuration option
func WithLogger(logger types.Logger) Option {
	return func(c *ClientConfig) {
		c.Logger = logger
	}
}

// WithTracer sets the OpenTelemetry tracer used for execution spans.
//
// Parameters:
//   - tracer: The tracer, e.g. otel.Tracer("myapp/cqlguard")
//
// Returns:
//   - Option: Configuration option
func WithTracer(tracer trace.Tracer) Option {
	return func(c *ClientConfig) {
		c.Tracer = tracer
	}
}

// normalize replaces nil collaborators with working defaults.
func (c *ClientConfig) normalize() {
	// Ensure metrics is never nil
	if c.Metrics == nil {
		c.Metrics = metrics.NewNopMetrics()
	}

	// Ensure logger is never nil
	if c.Logger == nil {
		c.Logger = logging.NewNopLogger()
	}

	if c.Tracer == nil {
		c.Tracer = noop.NewTracerProvider().Tracer("cqlguard")
	}
	if c.RetryPolicy == nil {
		c.RetryPolicy = policy.NewDefaultRetryPolicy()
	}
	if c.LoadBalancingPolicy == nil {
		c.LoadBalancingPolicy = policy.NewRoundRobin()
	}
	if c.SpeculativeExecutionPolicy == nil {
		c.SpeculativeExecutionPolicy = policy.NewNoSpeculativeExecution()
	}
	if c.SchemaAgreementInterval <= 0 {
		c.SchemaAgreementInterval = DefaultSchemaAgreementInterval
	}
}
