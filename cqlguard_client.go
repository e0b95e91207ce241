package cqlguard

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/arloliu/cqlguard/types"
)

// Client executes CQL operations with retries, speculative executions and
// execution profiles, on top of pluggable transport collaborators.
//
// # Thread Safety
//
// Client is safe for concurrent use. Lifecycle transitions (connect and
// shutdown) are serialized; executions run concurrently.
//
// # Lifecycle
//
// The client connects lazily on the first Execute, or explicitly with
// Connect. Concurrent Connect calls share one attempt. Release resources with
// Shutdown:
//
//	client, err := cqlguard.NewClient(control, hosts, pools, dispatcher, metadata, opts...)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Shutdown(context.Background())
//
// After Shutdown is called:
//   - An in-flight connect finishes first, pools are never closed mid-warmup
//   - The topology watch stops
//   - Every host pool and the control connection are closed
//   - Connect and Execute return types.ErrClientShutdown
type Client struct {
	config     *ClientConfig
	control    ControlConnection
	hostSource HostProvider
	pools      PoolProvider
	dispatcher Dispatcher
	metadata   MetadataProvider

	profiles *ProfileManager
	schema   *SchemaAgreementWaiter
	registry *hostRegistry

	// lifecycle serializes connect and shutdown. state is only written
	// while it is held.
	lifecycle    sync.Mutex
	connectGroup singleflight.Group
	state        atomic.Int32
	shutdown     atomic.Bool
	closed       bool // guarded by lifecycle

	controlState atomic.Pointer[controlInfo]
	warmupErr    error // guarded by lifecycle
	watchCancel  context.CancelFunc
	watchDone    chan struct{}
}

type controlInfo struct {
	host     types.Host
	distance types.Distance
}

// Compile-time assertion that Client can be handed to load-balancing policies.
var _ HostLister = (*Client)(nil)

// NewClient creates a client. It does not connect.
//
// Parameters:
//   - control: Control connection used for metadata
//   - hosts: Source of cluster topology
//   - pools: Provider of per-host connection pools
//   - dispatcher: Sends single attempts to a host
//   - metadata: Schema metadata access
//   - opts: Optional configuration options
//
// Returns:
//   - *Client: A new client
//   - error: types.ErrNilCollaborator if a collaborator is nil, or a profile
//     configuration error
func NewClient(
	control ControlConnection,
	hosts HostProvider,
	pools PoolProvider,
	dispatcher Dispatcher,
	metadata MetadataProvider,
	opts ...Option,
) (*Client, error) {
	if control == nil || hosts == nil || pools == nil || dispatcher == nil || metadata == nil {
		return nil, types.ErrNilCollaborator
	}

	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	config.normalize()

	profiles, err := NewProfileManager(config)
	if err != nil {
		return nil, err
	}

	c := &Client{
		config:     config,
		control:    control,
		hostSource: hosts,
		pools:      pools,
		dispatcher: dispatcher,
		metadata:   metadata,
		profiles:   profiles,
		registry:   newHostRegistry(),
	}
	c.schema = NewSchemaAgreementWaiter(metadata, c.registry.size,
		WithAgreementMaxWait(config.MaxSchemaAgreementWait),
		WithAgreementInterval(config.SchemaAgreementInterval),
	)
	c.config.Metrics.SetConnectionState(types.StateDisconnected)

	return c, nil
}

// State returns a snapshot of the connection state.
func (c *Client) State() ConnectionState {
	return types.ConnectionState(c.state.Load())
}

func (c *Client) setState(s types.ConnectionState) {
	c.state.Store(int32(s))
	c.config.Metrics.SetConnectionState(s)
}

// Profiles returns the profile manager.
func (c *Client) Profiles() *ProfileManager {
	return c.profiles
}

// Config returns the client configuration.
//
// The returned config should not be modified after client creation.
func (c *Client) Config() *ClientConfig {
	return c.config
}

// Hosts returns the known hosts that are currently up.
func (c *Client) Hosts() []Host {
	return c.registry.upHosts()
}

// IsHostUp reports whether a known host is up.
func (c *Client) IsHostUp(id uuid.UUID) bool {
	e, ok := c.registry.get(id)
	return ok && e.up.Load()
}

// ControlHost returns the host the control connection landed on and its
// distance.
//
// Returns:
//   - types.Host: The control host
//   - types.Distance: Its distance, computed when the client connected
//   - bool: false when the client is not connected
func (c *Client) ControlHost() (Host, Distance, bool) {
	info := c.controlState.Load()
	if info == nil {
		return types.Host{}, types.DistanceIgnored, false
	}

	return info.host, info.distance, true
}

// WarmupErrors returns the combined per-host warmup failures of the last
// successful connect, or nil.
func (c *Client) WarmupErrors() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	return c.warmupErr
}

// Connect opens the control connection and warms up host pools.
//
// Calling Connect on a connected client is a no-op. Concurrent calls share a
// single attempt and all observe its outcome. A caller whose ctx ends first
// returns ctx.Err() while the attempt continues for the others.
//
// Parameters:
//   - ctx: Context bounding how long this caller waits
//
// Returns:
//   - error: types.ErrClientShutdown after Shutdown, or the connect failure
func (c *Client) Connect(ctx context.Context) error {
	if c.shutdown.Load() {
		return types.ErrClientShutdown
	}
	if c.State() == types.StateConnected {
		return nil
	}

	ch := c.connectGroup.DoChan("connect", func() (any, error) {
		return nil, c.connect()
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// connect runs one connect attempt under the lifecycle lock.
func (c *Client) connect() (err error) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.shutdown.Load() {
		return types.ErrClientShutdown
	}
	if c.State() == types.StateConnected {
		return nil
	}

	c.setState(types.StateConnecting)
	c.config.Metrics.IncConnectTotal()
	c.config.Logger.Info("connecting")
	start := time.Now()

	ctx := context.Background()
	if c.config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	defer func() {
		c.config.Metrics.ObserveConnectDuration(time.Since(start).Seconds())
		if err != nil {
			c.config.Metrics.IncConnectError()
			c.config.Logger.Error("connect failed", "error", err.Error())
			c.resetAfterFailedConnect()
			c.setState(types.StateDisconnected)
		}
	}()

	controlHost, err := c.control.Connect(ctx)
	if err != nil {
		return fmt.Errorf("cqlguard: control connection: %w", err)
	}

	c.registry.add(controlHost)
	for _, h := range c.hostSource.Hosts() {
		c.registry.add(h)
	}

	if err := c.profiles.Init(c); err != nil {
		return err
	}

	c.warmupErr = c.warmup(ctx)

	c.controlState.Store(&controlInfo{host: controlHost, distance: c.profiles.Distance(controlHost)})
	c.startWatch()

	c.config.Metrics.SetHostsUp(len(c.registry.upHosts()))
	c.setState(types.StateConnected)
	c.config.Logger.Info("connected",
		"controlHost", controlHost.String(),
		"hosts", c.registry.size(),
		"duration", time.Since(start).String(),
	)

	return nil
}

// warmup prepares the pool of every host that is not ignored.
//
// Local hosts are warmed up eagerly when enabled, at most
// MaxConcurrentWarmups at a time; other hosts get their pools initialized in
// the background. Per-host failures are logged and combined in the returned
// error but never fail the connect.
func (c *Client) warmup(ctx context.Context) error {
	var (
		g      errgroup.Group
		mu     sync.Mutex
		result *multierror.Error
	)
	g.SetLimit(MaxConcurrentWarmups)

	for _, e := range c.registry.all() {
		distance := c.profiles.Distance(e.host)
		if distance == types.DistanceIgnored {
			continue
		}

		pool, _ := c.registry.ensurePool(e, c.pools)
		if distance != types.DistanceLocal || !c.config.EagerWarmup {
			pool.Initialize()
			continue
		}

		host := e.host
		g.Go(func() error {
			if err := pool.Warmup(ctx, c.config.Keyspace); err != nil {
				c.config.Metrics.IncWarmupError()
				c.config.Logger.Warn("pool warmup failed",
					"host", host.String(),
					"error", err.Error(),
				)
				mu.Lock()
				result = multierror.Append(result, &types.HostError{Host: host.Address, Operation: "warmup", Cause: err})
				mu.Unlock()
			}

			return nil
		})
	}
	_ = g.Wait()

	return result.ErrorOrNil()
}

// resetAfterFailedConnect releases whatever a failed attempt created.
// Callers hold the lifecycle lock.
func (c *Client) resetAfterFailedConnect() {
	c.stopWatch()

	ctx, cancel := context.WithTimeout(context.Background(), c.config.ConnectTimeout+time.Second)
	defer cancel()

	for host, pool := range c.registry.takePools() {
		if err := pool.Shutdown(ctx); err != nil {
			c.config.Logger.Warn("pool shutdown after failed connect", "host", host.String(), "error", err.Error())
		}
	}
	if err := c.control.Close(); err != nil {
		c.config.Logger.Warn("control connection close after failed connect", "error", err.Error())
	}

	c.registry.reset()
	c.profiles.InvalidateAll()
	c.controlState.Store(nil)
	c.warmupErr = nil
}

// startWatch subscribes to topology changes. Callers hold the lifecycle lock.
func (c *Client) startWatch() {
	ctx, cancel := context.WithCancel(context.Background())
	c.watchCancel = cancel
	c.watchDone = make(chan struct{})

	events := c.hostSource.Watch(ctx)
	go c.watchHosts(ctx, events, c.watchDone)
}

// stopWatch cancels the topology subscription and waits for the watch
// goroutine. Callers hold the lifecycle lock.
func (c *Client) stopWatch() {
	if c.watchCancel == nil {
		return
	}
	c.watchCancel()
	<-c.watchDone
	c.watchCancel = nil
	c.watchDone = nil
}

func (c *Client) watchHosts(ctx context.Context, events <-chan types.HostEvent, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.handleHostEvent(ctx, ev)
		}
	}
}

func (c *Client) handleHostEvent(ctx context.Context, ev types.HostEvent) {
	host := ev.Host
	c.config.Logger.Info("host event", "event", ev.Type.String(), "host", host.String())

	switch ev.Type {
	case types.HostAdded:
		c.registry.add(host)

	case types.HostRemoved:
		pool, ok := c.registry.remove(host.ID)
		if ok && pool != nil {
			if err := pool.Shutdown(ctx); err != nil {
				c.config.Logger.Warn("pool shutdown for removed host failed",
					"host", host.String(),
					"error", err.Error(),
				)
			}
		}

	case types.HostUp:
		e, ok := c.registry.get(host.ID)
		if !ok {
			e, _ = c.registry.add(host)
		}
		e.up.Store(true)

	case types.HostDown:
		if e, ok := c.registry.get(host.ID); ok {
			e.up.Store(false)
		}
	}

	c.rerate()
	c.config.Metrics.SetHostsUp(len(c.registry.upHosts()))
}

// rerate recomputes the distance of every registered host after a topology
// change. A policy may rate a host by the hosts around it, so one event can
// move any host between Remote and Ignored. Up hosts that are no longer
// ignored get their pool initialized.
func (c *Client) rerate() {
	c.profiles.InvalidateAll()

	for _, e := range c.registry.all() {
		if c.profiles.Distance(e.host) == types.DistanceIgnored || !e.up.Load() {
			continue
		}
		if pool, created := c.registry.ensurePool(e, c.pools); created {
			pool.Initialize()
		}
	}

	if info := c.controlState.Load(); info != nil {
		d, ok := c.profiles.CachedDistance(info.host.ID)
		if !ok {
			d = c.profiles.Rate(info.host)
		}
		c.controlState.Store(&controlInfo{host: info.host, distance: d})
	}
}

// Shutdown closes every pool and the control connection.
//
// Shutdown waits for an in-flight connect to finish before tearing anything
// down. It is idempotent; after it returns the client stays disconnected.
//
// Parameters:
//   - ctx: Context passed to pool shutdowns
//
// Returns:
//   - error: Combined pool and control connection close failures
func (c *Client) Shutdown(ctx context.Context) error {
	c.shutdown.Store(true)

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	c.setState(types.StateShuttingDown)
	c.config.Logger.Info("shutting down")
	c.stopWatch()

	var result *multierror.Error
	for host, pool := range c.registry.takePools() {
		if err := pool.Shutdown(ctx); err != nil {
			result = multierror.Append(result, &types.HostError{Host: host.Address, Operation: "shutdown", Cause: err})
		}
	}
	if err := c.control.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("cqlguard: close control connection: %w", err))
	}

	c.controlState.Store(nil)
	c.setState(types.StateDisconnected)
	c.config.Logger.Info("shut down")

	return result.ErrorOrNil()
}
