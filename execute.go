package cqlguard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/grafana/dskit/backoff"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/arloliu/cqlguard/types"
)

// ExecOption configures a single Execute call.
type ExecOption func(*execOptions)

type execOptions struct {
	profile     string
	keyspace    string
	consistency *types.Consistency
	serial      *types.Consistency
	readTimeout *time.Duration
	idempotent  bool
	pageSize    int
	pageState   []byte
}

// WithProfile selects the execution profile. Unknown names fail the call
// with types.ErrUnknownProfile.
func WithProfile(name string) ExecOption {
	return func(o *execOptions) { o.profile = name }
}

// WithExecKeyspace sets the keyspace used for routing the operation.
func WithExecKeyspace(keyspace string) ExecOption {
	return func(o *execOptions) { o.keyspace = keyspace }
}

// WithExecConsistency overrides the profile's consistency level.
func WithExecConsistency(consistency Consistency) ExecOption {
	return func(o *execOptions) { o.consistency = &consistency }
}

// WithExecSerialConsistency overrides the profile's serial consistency level.
func WithExecSerialConsistency(consistency Consistency) ExecOption {
	return func(o *execOptions) { o.serial = &consistency }
}

// WithExecReadTimeout overrides the profile's per-attempt timeout.
func WithExecReadTimeout(d time.Duration) ExecOption {
	return func(o *execOptions) { o.readTimeout = &d }
}

// WithIdempotent marks the operation safe to send more than once. Only
// idempotent operations are executed speculatively.
func WithIdempotent(idempotent bool) ExecOption {
	return func(o *execOptions) { o.idempotent = idempotent }
}

// WithPageSize sets the number of rows per page.
func WithPageSize(n int) ExecOption {
	return func(o *execOptions) { o.pageSize = n }
}

// WithPageState resumes paging from a previous ResultSet.
func WithPageState(state []byte) ExecOption {
	return func(o *execOptions) { o.pageState = state }
}

// ExecutionInfo describes how an operation was executed.
type ExecutionInfo struct {
	// QueriedHost is the host that produced the result.
	QueriedHost Host

	// TriedHosts maps the address of every host that failed an attempt to
	// its last error.
	TriedHosts map[string]error

	// Attempts is the number of attempts of the execution that succeeded.
	Attempts int

	// SpeculativeExecutions is the number of speculative executions started.
	SpeculativeExecutions int

	// AchievedConsistency is the consistency level of the successful attempt.
	AchievedConsistency Consistency

	// SchemaInAgreement is false when a schema change did not reach agreement
	// in time. It is true for statements that did not change the schema.
	SchemaInAgreement bool
}

// ResultSet is the outcome of Execute.
type ResultSet struct {
	*types.Result
	Info ExecutionInfo
}

// Execute runs query with the retry, speculative execution and
// load-balancing policies of the selected profile.
//
// The client connects first if needed. Errors that retry policies do not
// classify (syntax, authorization, invalid requests) are returned unchanged.
// Classified errors are returned as *types.ExecutionError once the retry
// policy rethrows, and *types.NoHostAvailableError is returned when the query
// plan is exhausted.
//
// Parameters:
//   - ctx: Context for the whole operation, including retries
//   - query: CQL statement
//   - params: Bound values
//   - opts: Per-call options
//
// Returns:
//   - *ResultSet: Rows and execution details
//   - error: See above
func (c *Client) Execute(ctx context.Context, query string, params []any, opts ...ExecOption) (*ResultSet, error) {
	var eo execOptions
	for _, opt := range opts {
		opt(&eo)
	}

	profile, ok := c.profiles.Profile(eo.profile)
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownProfile, eo.profile)
	}

	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	options := c.resolveOptions(profile, &eo)

	ctx, span := c.config.Tracer.Start(ctx, "cqlguard.Execute",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "cassandra"),
			attribute.String("db.statement", query),
			attribute.String("db.cassandra.keyspace", options.Keyspace),
			attribute.String("db.cassandra.consistency_level", options.Consistency.String()),
			attribute.String("cqlguard.profile", profile.Name()),
			attribute.Bool("cqlguard.idempotent", options.IsIdempotent),
		),
	)
	defer span.End()

	start := time.Now()
	c.config.Metrics.IncExecuteTotal(profile.Name())

	op := &operation{
		client:  c,
		profile: profile,
		request: Request{Query: query, Params: params, Options: options},
		span:    span,
		tried:   make(map[string]error),
	}
	info := types.OperationInfo{Query: query, Options: options}
	op.plan = newQueryPlan(profile.LoadBalancingPolicy().NewQueryPlan(options.Keyspace, info), c.isUsable)

	rs, err := op.run(ctx)
	c.config.Metrics.ObserveExecuteDuration(profile.Name(), time.Since(start).Seconds())
	if err != nil {
		c.config.Metrics.IncExecuteError(profile.Name())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	span.SetAttributes(
		attribute.String("cqlguard.host", rs.Info.QueriedHost.Address),
		attribute.Int("cqlguard.attempts", rs.Info.Attempts),
	)

	return rs, nil
}

func (c *Client) resolveOptions(profile *ExecutionProfile, eo *execOptions) types.ExecutionOptions {
	options := types.ExecutionOptions{
		Profile:           profile.Name(),
		Keyspace:          c.config.Keyspace,
		Consistency:       profile.Consistency(),
		SerialConsistency: profile.SerialConsistency(),
		ReadTimeout:       profile.ReadTimeout(),
		IsIdempotent:      eo.idempotent,
		PageSize:          eo.pageSize,
		PageState:         eo.pageState,
	}
	if eo.keyspace != "" {
		options.Keyspace = eo.keyspace
	}
	if eo.consistency != nil {
		options.Consistency = *eo.consistency
	}
	if eo.serial != nil {
		options.SerialConsistency = *eo.serial
	}
	if eo.readTimeout != nil {
		options.ReadTimeout = *eo.readTimeout
	}

	return options
}

// isUsable reports whether a host from a query plan may receive attempts.
func (c *Client) isUsable(host types.Host) bool {
	if !c.IsHostUp(host.ID) {
		return false
	}

	d, ok := c.profiles.CachedDistance(host.ID)
	if !ok {
		d = c.profiles.Rate(host)
	}

	return d != types.DistanceIgnored
}

// queryPlan is the host iterator shared by every execution of an operation.
type queryPlan struct {
	mu     sync.Mutex
	hosts  []types.Host
	next   int
	usable func(types.Host) bool
}

func newQueryPlan(hosts []types.Host, usable func(types.Host) bool) *queryPlan {
	return &queryPlan{hosts: hosts, usable: usable}
}

// Next returns the next usable host, or false once the plan is exhausted.
func (p *queryPlan) Next() (types.Host, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.next < len(p.hosts) {
		h := p.hosts[p.next]
		p.next++
		if p.usable(h) {
			return h, true
		}
	}

	return types.Host{}, false
}

// operation is one Execute call: a set of executions sharing a query plan.
type operation struct {
	client  *Client
	profile *ExecutionProfile
	request Request
	plan    *queryPlan
	span    trace.Span

	mu    sync.Mutex
	tried map[string]error
}

type executionOutcome int

const (
	outcomeSuccess executionOutcome = iota
	// outcomeFailed ends the whole operation with err.
	outcomeFailed
	// outcomeExhausted means the execution ran out of hosts.
	outcomeExhausted
)

type executionResult struct {
	outcome executionOutcome
	rs      *ResultSet
	err     error
}

func (op *operation) recordTried(host types.Host, err error) {
	op.mu.Lock()
	op.tried[host.Address] = err
	op.mu.Unlock()
}

func (op *operation) triedHosts() map[string]error {
	op.mu.Lock()
	defer op.mu.Unlock()

	out := make(map[string]error, len(op.tried))
	for k, v := range op.tried {
		out[k] = v
	}

	return out
}

// run executes the operation. Non-idempotent operations use a single
// execution; idempotent ones may start speculative executions, and the first
// success wins.
func (op *operation) run(ctx context.Context) (*ResultSet, error) {
	if !op.request.Options.IsIdempotent {
		return op.finish(op.execute(ctx), 0)
	}

	specPlan := op.profile.SpeculativeExecutionPolicy().NewPlan(op.request.Options.Keyspace, op.request.Query)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan executionResult)
	launch := func() {
		go func() {
			r := op.execute(ctx)
			select {
			case results <- r:
			case <-ctx.Done():
			}
		}()
	}

	var (
		timer    *time.Timer
		timerC   <-chan time.Time
		inFlight int
		started  int
	)
	schedule := func() {
		timerC = nil
		delay, ok := specPlan.NextExecution()
		if !ok {
			return
		}
		if timer == nil {
			timer = time.NewTimer(delay)
		} else {
			timer.Reset(delay)
		}
		timerC = timer.C
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	launch()
	inFlight++
	schedule()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timerC:
			started++
			inFlight++
			op.client.config.Metrics.IncSpeculativeExecution()
			op.span.AddEvent("speculative execution", trace.WithAttributes(attribute.Int("cqlguard.execution", started)))
			op.client.config.Logger.Debug("starting speculative execution",
				"query", op.request.Query,
				"execution", started,
			)
			launch()
			schedule()

		case r := <-results:
			inFlight--
			switch r.outcome {
			case outcomeSuccess, outcomeFailed:
				return op.finish(r, started)
			case outcomeExhausted:
				// Other executions may still succeed on the hosts they hold.
				if inFlight == 0 {
					return op.finish(r, started)
				}
			}
		}
	}
}

func (op *operation) finish(r executionResult, speculative int) (*ResultSet, error) {
	switch r.outcome {
	case outcomeSuccess:
		r.rs.Info.SpeculativeExecutions = speculative
		r.rs.Info.TriedHosts = op.triedHosts()
		return r.rs, nil
	case outcomeExhausted:
		return nil, &types.NoHostAvailableError{Errors: op.triedHosts()}
	default:
		return nil, r.err
	}
}

// execute runs one execution: attempts on successive hosts of the shared
// plan, strictly one after another, for as long as the retry policy says so.
func (op *operation) execute(ctx context.Context) executionResult {
	c := op.client
	info := types.OperationInfo{Query: op.request.Query, Options: op.request.Options}
	consistency := op.request.Options.Consistency

	var bk *backoff.Backoff
	if c.config.RetryBackoff != nil {
		bk = backoff.New(ctx, *c.config.RetryBackoff)
	}

	var (
		host    types.Host
		hasHost bool
	)
	for {
		if err := ctx.Err(); err != nil {
			return executionResult{outcome: outcomeFailed, err: err}
		}
		if !hasHost {
			host, hasHost = op.plan.Next()
			if !hasHost {
				return executionResult{outcome: outcomeExhausted}
			}
		}

		req := op.request
		req.Options.Consistency = consistency
		res, err := op.attempt(ctx, host, &req)
		if err == nil {
			return op.succeed(ctx, host, res, info.AttemptCount+1, consistency)
		}
		if ctx.Err() != nil {
			return executionResult{outcome: outcomeFailed, err: ctx.Err()}
		}

		op.recordTried(host, err)

		category := types.ErrorCategory(err)
		if category == "" {
			return executionResult{outcome: outcomeFailed, err: err}
		}

		decision := decide(op.profile.RetryPolicy(), info, consistency, err)
		if decision.Type == types.DecisionRethrow {
			c.config.Metrics.IncRethrow(category)
			c.config.Logger.Debug("rethrowing error",
				"host", host.String(),
				"category", category,
				"attempt", info.AttemptCount,
				"error", err.Error(),
			)

			return executionResult{
				outcome: outcomeFailed,
				err:     &types.ExecutionError{Cause: err, Attempts: info.AttemptCount + 1, Host: host.Address},
			}
		}

		c.config.Metrics.IncRetry(category)
		c.config.Logger.Debug("retrying",
			"host", host.String(),
			"category", category,
			"attempt", info.AttemptCount,
			"sameHost", decision.UseCurrentHost,
			"error", err.Error(),
		)
		op.span.AddEvent("retry", trace.WithAttributes(
			attribute.String("cqlguard.host", host.Address),
			attribute.String("cqlguard.error_category", category),
			attribute.Bool("cqlguard.same_host", decision.UseCurrentHost),
		))

		if decision.Consistency != nil {
			consistency = *decision.Consistency
		}
		if !decision.UseCurrentHost {
			hasHost = false
		}
		info.AttemptCount++

		if bk != nil {
			bk.Wait()
		}
	}
}

// attempt sends one request, bounding it by the read timeout. A read timeout
// hit on the client side is reported as a client-timeout request error.
func (op *operation) attempt(ctx context.Context, host types.Host, req *Request) (*types.Result, error) {
	attemptCtx := ctx
	if req.Options.ReadTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, req.Options.ReadTimeout)
		defer cancel()
	}

	res, err := op.client.dispatcher.Send(attemptCtx, host, req)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return nil, &types.RequestError{Kind: types.KindClientTimeout, Cause: err}
	}
	if err == nil && res == nil {
		res = &types.Result{}
	}

	return res, err
}

func (op *operation) succeed(
	ctx context.Context,
	host types.Host,
	res *types.Result,
	attempts int,
	consistency types.Consistency,
) executionResult {
	rs := &ResultSet{
		Result: res,
		Info: ExecutionInfo{
			QueriedHost:         host,
			Attempts:            attempts,
			AchievedConsistency: consistency,
			SchemaInAgreement:   true,
		},
	}
	if res.SchemaChange != nil {
		rs.Info.SchemaInAgreement = op.client.handleSchemaChange(ctx, host, *res.SchemaChange)
	}

	return executionResult{outcome: outcomeSuccess, rs: rs}
}

// decide consults the retry policy for a classified error.
func decide(rp RetryPolicy, info types.OperationInfo, consistency types.Consistency, err error) types.Decision {
	var (
		unavailable  *types.UnavailableError
		readTimeout  *types.ReadTimeoutError
		writeTimeout *types.WriteTimeoutError
	)

	switch {
	case errors.As(err, &unavailable):
		return rp.OnUnavailable(info, unavailable.Consistency, unavailable.Required, unavailable.Alive)
	case errors.As(err, &readTimeout):
		return rp.OnReadTimeout(info, readTimeout.Consistency, readTimeout.Received, readTimeout.BlockFor, readTimeout.DataPresent)
	case errors.As(err, &writeTimeout):
		return rp.OnWriteTimeout(info, writeTimeout.Consistency, writeTimeout.Received, writeTimeout.BlockFor, writeTimeout.WriteType)
	default:
		return rp.OnRequestError(info, consistency, err)
	}
}
