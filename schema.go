package cqlguard

import (
	"context"
	"time"

	"github.com/arloliu/cqlguard/types"
)

// SchemaAgreementWaiter polls the cluster until every node reports the same
// schema version, or until a deadline passes.
type SchemaAgreementWaiter struct {
	metadata  MetadataProvider
	hostCount func() int
	maxWait   time.Duration
	interval  time.Duration
}

// AgreementOption configures a SchemaAgreementWaiter.
type AgreementOption func(*SchemaAgreementWaiter)

// WithAgreementMaxWait sets the overall deadline of a wait.
//
// Parameters:
//   - d: Maximum wait (default: 10s)
//
// Returns:
//   - AgreementOption: Configuration option
func WithAgreementMaxWait(d time.Duration) AgreementOption {
	return func(w *SchemaAgreementWaiter) {
		w.maxWait = d
	}
}

// WithAgreementInterval sets the polling interval.
//
// Parameters:
//   - d: Interval between version comparisons (default: 500ms)
//
// Returns:
//   - AgreementOption: Configuration option
func WithAgreementInterval(d time.Duration) AgreementOption {
	return func(w *SchemaAgreementWaiter) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewSchemaAgreementWaiter creates a waiter.
//
// Parameters:
//   - metadata: Compares schema versions across nodes
//   - hostCount: Returns the number of known hosts
//   - opts: Optional configuration options
//
// Returns:
//   - *SchemaAgreementWaiter: A new waiter
func NewSchemaAgreementWaiter(metadata MetadataProvider, hostCount func() int, opts ...AgreementOption) *SchemaAgreementWaiter {
	w := &SchemaAgreementWaiter{
		metadata:  metadata,
		hostCount: hostCount,
		maxWait:   DefaultMaxSchemaAgreementWait,
		interval:  DefaultSchemaAgreementInterval,
	}
	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Wait blocks until schema versions converge, the deadline passes or ctx ends.
//
// With a single known host there is nothing to agree on and Wait returns true
// without polling. The deadline is checked against the wall clock after every
// comparison, so a wait never outlives it by more than one interval.
//
// Parameters:
//   - ctx: Context for the comparisons and the sleeps between them
//   - host: Host whose view of the cluster is used for comparisons
//
// Returns:
//   - bool: true if versions converged
//   - error: A comparison failure or ctx.Err()
func (w *SchemaAgreementWaiter) Wait(ctx context.Context, host types.Host) (bool, error) {
	if w.hostCount() <= 1 {
		return true, nil
	}

	start := time.Now()
	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for {
		agreed, err := w.metadata.CompareSchemaVersions(ctx, host)
		if err != nil {
			return false, err
		}
		if agreed {
			return true, nil
		}
		if time.Since(start) >= w.maxWait {
			return false, nil
		}

		timer.Reset(w.interval)
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}
}

// handleSchemaChange runs the best-effort follow-up of a schema-altering
// statement: wait for agreement, then refresh local metadata. Failures are
// logged and never reach the caller.
//
// Returns whether the schema reached agreement.
func (c *Client) handleSchemaChange(ctx context.Context, host types.Host, change types.SchemaChange) bool {
	start := time.Now()
	agreed, err := c.schema.Wait(ctx, host)
	c.config.Metrics.ObserveSchemaAgreementDuration(time.Since(start).Seconds())

	switch {
	case err != nil:
		agreed = false
		c.config.Logger.Warn("schema agreement check failed",
			"host", host.String(),
			"keyspace", change.Keyspace,
			"error", err.Error(),
		)
	case !agreed:
		c.config.Logger.Warn("schema agreement not reached",
			"host", host.String(),
			"keyspace", change.Keyspace,
			"maxWait", c.config.MaxSchemaAgreementWait.String(),
		)
	}
	c.config.Metrics.IncSchemaAgreement(agreed)

	if c.config.SchemaMetadataSync {
		if err := c.metadata.RefreshSchema(ctx, change); err != nil {
			c.config.Metrics.IncSchemaRefreshError()
			c.config.Logger.Warn("schema metadata refresh failed",
				"change", change.Change,
				"target", change.Target,
				"keyspace", change.Keyspace,
				"name", change.Name,
				"error", err.Error(),
			)
		}
	}

	return agreed
}

// CheckSchemaAgreement compares schema versions once, as seen from the
// control host.
//
// Parameters:
//   - ctx: Context for the comparison
//
// Returns:
//   - bool: true if every node is on the same schema version
//   - error: Connect or comparison failure
func (c *Client) CheckSchemaAgreement(ctx context.Context) (bool, error) {
	if err := c.Connect(ctx); err != nil {
		return false, err
	}

	host, _, ok := c.ControlHost()
	if !ok {
		return false, types.ErrClientShutdown
	}

	return c.metadata.CompareSchemaVersions(ctx, host)
}
