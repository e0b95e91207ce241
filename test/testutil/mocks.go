package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/arloliu/cqlguard"
	"github.com/arloliu/cqlguard/types"
)

// NewHosts returns n hosts of one data center, addressed "<dc>-node<i>:9042".
//
// Parameters:
//   - n: Number of hosts
//   - dc: Data center name
//
// Returns:
//   - []types.Host: Hosts with random IDs
func NewHosts(n int, dc string) []types.Host {
	hosts := make([]types.Host, n)
	for i := range hosts {
		hosts[i] = types.Host{
			ID:         uuid.New(),
			Address:    fmt.Sprintf("%s-node%d:9042", dc, i+1),
			Datacenter: dc,
			Rack:       "rack1",
		}
	}

	return hosts
}

// MockControlConnection is a mock implementation of cqlguard.ControlConnection.
type MockControlConnection struct {
	// Host is returned by Connect unless OnConnect is set.
	Host types.Host

	// ConnectErr is returned by Connect unless OnConnect is set.
	ConnectErr error

	// OnConnect overrides Connect.
	OnConnect func(ctx context.Context) (types.Host, error)

	connects atomic.Int32
	closes   atomic.Int32
}

// Compile-time assertion that MockControlConnection implements cqlguard.ControlConnection.
var _ cqlguard.ControlConnection = (*MockControlConnection)(nil)

// NewMockControlConnection creates a control connection that lands on host.
func NewMockControlConnection(host types.Host) *MockControlConnection {
	return &MockControlConnection{Host: host}
}

// Connect records the call and returns the configured outcome.
func (m *MockControlConnection) Connect(ctx context.Context) (types.Host, error) {
	m.connects.Add(1)
	if m.OnConnect != nil {
		return m.OnConnect(ctx)
	}

	return m.Host, m.ConnectErr
}

// Close records the call.
func (m *MockControlConnection) Close() error {
	m.closes.Add(1)
	return nil
}

// ConnectCount returns the number of Connect calls.
func (m *MockControlConnection) ConnectCount() int {
	return int(m.connects.Load())
}

// CloseCount returns the number of Close calls.
func (m *MockControlConnection) CloseCount() int {
	return int(m.closes.Load())
}

// MockHostProvider is a mock implementation of cqlguard.HostProvider.
//
// Events passed to Emit are delivered to the active Watch subscription.
type MockHostProvider struct {
	mu     sync.RWMutex
	hosts  []types.Host
	events chan types.HostEvent
}

// Compile-time assertion that MockHostProvider implements cqlguard.HostProvider.
var _ cqlguard.HostProvider = (*MockHostProvider)(nil)

// NewMockHostProvider creates a provider that knows hosts.
func NewMockHostProvider(hosts ...types.Host) *MockHostProvider {
	return &MockHostProvider{
		hosts:  hosts,
		events: make(chan types.HostEvent, 64),
	}
}

// Hosts returns the configured hosts.
func (m *MockHostProvider) Hosts() []types.Host {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.Host, len(m.hosts))
	copy(out, m.hosts)

	return out
}

// Watch forwards emitted events until ctx ends.
func (m *MockHostProvider) Watch(ctx context.Context) <-chan types.HostEvent {
	out := make(chan types.HostEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-m.events:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// Emit queues a topology event.
func (m *MockHostProvider) Emit(ev types.HostEvent) {
	m.events <- ev
}

// MockPoolProvider is a mock implementation of cqlguard.PoolProvider.
//
// It tracks how many warmups run at once across all of its pools.
type MockPoolProvider struct {
	// OnWarmup overrides the warmup of every pool. nil warms up instantly.
	OnWarmup func(ctx context.Context, host types.Host) error

	mu    sync.Mutex
	pools map[uuid.UUID]*MockPool

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

// Compile-time assertion that MockPoolProvider implements cqlguard.PoolProvider.
var _ cqlguard.PoolProvider = (*MockPoolProvider)(nil)

// NewMockPoolProvider creates a pool provider.
func NewMockPoolProvider() *MockPoolProvider {
	return &MockPoolProvider{pools: make(map[uuid.UUID]*MockPool)}
}

// Pool returns the pool of host, creating it on first use.
func (m *MockPoolProvider) Pool(host types.Host) cqlguard.HostPool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.pools[host.ID]; ok {
		return p
	}
	p := &MockPool{host: host, provider: m}
	m.pools[host.ID] = p

	return p
}

// PoolFor returns the pool created for a host, or nil.
func (m *MockPoolProvider) PoolFor(id uuid.UUID) *MockPool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.pools[id]
}

// PoolCount returns the number of pools created.
func (m *MockPoolProvider) PoolCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.pools)
}

// MaxConcurrentWarmups returns the highest number of warmups observed in flight.
func (m *MockPoolProvider) MaxConcurrentWarmups() int {
	return int(m.maxInFlight.Load())
}

// MockPool is a mock implementation of cqlguard.HostPool.
type MockPool struct {
	host     types.Host
	provider *MockPoolProvider

	warmups     atomic.Int32
	warmed      atomic.Bool
	warming     atomic.Bool
	initialized atomic.Bool
	shutdown    atomic.Bool

	// ShutdownDuringWarmup is set when Shutdown ran while a warmup was in progress.
	ShutdownDuringWarmup atomic.Bool
}

// Warmup runs the provider's OnWarmup hook.
func (p *MockPool) Warmup(ctx context.Context, _ string) error {
	p.warmups.Add(1)
	p.warming.Store(true)
	defer p.warming.Store(false)

	n := p.provider.inFlight.Add(1)
	defer p.provider.inFlight.Add(-1)
	for {
		highest := p.provider.maxInFlight.Load()
		if n <= highest || p.provider.maxInFlight.CompareAndSwap(highest, n) {
			break
		}
	}

	if p.provider.OnWarmup != nil {
		if err := p.provider.OnWarmup(ctx, p.host); err != nil {
			return err
		}
	}
	p.warmed.Store(true)

	return nil
}

// Initialize records a lazy initialization.
func (p *MockPool) Initialize() {
	p.initialized.Store(true)
}

// Shutdown records the call.
func (p *MockPool) Shutdown(_ context.Context) error {
	if p.warming.Load() {
		p.ShutdownDuringWarmup.Store(true)
	}
	p.shutdown.Store(true)

	return nil
}

// WarmupCount returns the number of Warmup calls.
func (p *MockPool) WarmupCount() int { return int(p.warmups.Load()) }

// IsWarmedUp reports whether a warmup completed successfully.
func (p *MockPool) IsWarmedUp() bool { return p.warmed.Load() }

// IsInitialized reports whether Initialize was called.
func (p *MockPool) IsInitialized() bool { return p.initialized.Load() }

// IsShutdown reports whether Shutdown was called.
func (p *MockPool) IsShutdown() bool { return p.shutdown.Load() }

// DispatchCall records one attempt sent through MockDispatcher.
type DispatchCall struct {
	Host        types.Host
	Query       string
	Consistency types.Consistency
}

// MockDispatcher is a mock implementation of cqlguard.Dispatcher.
type MockDispatcher struct {
	// OnSend decides the outcome of each attempt. nil succeeds with an empty result.
	OnSend func(ctx context.Context, host types.Host, req *cqlguard.Request) (*types.Result, error)

	mu    sync.Mutex
	calls []DispatchCall
}

// Compile-time assertion that MockDispatcher implements cqlguard.Dispatcher.
var _ cqlguard.Dispatcher = (*MockDispatcher)(nil)

// NewMockDispatcher creates a dispatcher driven by onSend.
func NewMockDispatcher(onSend func(ctx context.Context, host types.Host, req *cqlguard.Request) (*types.Result, error)) *MockDispatcher {
	return &MockDispatcher{OnSend: onSend}
}

// Send records the attempt and runs OnSend.
func (m *MockDispatcher) Send(ctx context.Context, host types.Host, req *cqlguard.Request) (*types.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, DispatchCall{Host: host, Query: req.Query, Consistency: req.Options.Consistency})
	m.mu.Unlock()

	if m.OnSend != nil {
		return m.OnSend(ctx, host, req)
	}

	return &types.Result{}, nil
}

// Calls returns the recorded attempts.
func (m *MockDispatcher) Calls() []DispatchCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]DispatchCall, len(m.calls))
	copy(out, m.calls)

	return out
}

// CallCount returns the number of attempts.
func (m *MockDispatcher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.calls)
}

// MockMetadata is a mock implementation of cqlguard.MetadataProvider.
type MockMetadata struct {
	// OnCompare decides each comparison. nil always agrees.
	OnCompare func(ctx context.Context, host types.Host) (bool, error)

	// RefreshErr is returned by RefreshSchema.
	RefreshErr error

	compares  atomic.Int32
	mu        sync.Mutex
	refreshed []types.SchemaChange
}

// Compile-time assertion that MockMetadata implements cqlguard.MetadataProvider.
var _ cqlguard.MetadataProvider = (*MockMetadata)(nil)

// NewMockMetadata creates a metadata provider whose schema always agrees.
func NewMockMetadata() *MockMetadata {
	return &MockMetadata{}
}

// CompareSchemaVersions records the call and runs OnCompare.
func (m *MockMetadata) CompareSchemaVersions(ctx context.Context, host types.Host) (bool, error) {
	m.compares.Add(1)
	if m.OnCompare != nil {
		return m.OnCompare(ctx, host)
	}

	return true, nil
}

// RefreshSchema records the change.
func (m *MockMetadata) RefreshSchema(_ context.Context, change types.SchemaChange) error {
	m.mu.Lock()
	m.refreshed = append(m.refreshed, change)
	m.mu.Unlock()

	return m.RefreshErr
}

// CompareCount returns the number of schema comparisons.
func (m *MockMetadata) CompareCount() int {
	return int(m.compares.Load())
}

// Refreshed returns the schema changes passed to RefreshSchema.
func (m *MockMetadata) Refreshed() []types.SchemaChange {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.SchemaChange, len(m.refreshed))
	copy(out, m.refreshed)

	return out
}

// MockCluster bundles a full set of mock collaborators.
type MockCluster struct {
	Hosts      []types.Host
	Control    *MockControlConnection
	Provider   *MockHostProvider
	Pools      *MockPoolProvider
	Dispatcher *MockDispatcher
	Metadata   *MockMetadata
}

// NewMockCluster creates mocks for a cluster of n hosts in data center "dc1".
// The control connection lands on the first host.
func NewMockCluster(n int) *MockCluster {
	hosts := NewHosts(n, "dc1")

	return &MockCluster{
		Hosts:      hosts,
		Control:    NewMockControlConnection(hosts[0]),
		Provider:   NewMockHostProvider(hosts...),
		Pools:      NewMockPoolProvider(),
		Dispatcher: NewMockDispatcher(nil),
		Metadata:   NewMockMetadata(),
	}
}

// NewClient creates a client on top of the mocks.
func (m *MockCluster) NewClient(opts ...cqlguard.Option) (*cqlguard.Client, error) {
	return cqlguard.NewClient(m.Control, m.Provider, m.Pools, m.Dispatcher, m.Metadata, opts...)
}
