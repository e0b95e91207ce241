package policy

import (
	"sync"
	"sync/atomic"

	"github.com/arloliu/cqlguard/types"
)

// HostLister gives load-balancing policies a view of the cluster.
type HostLister interface {
	// Hosts returns every known host that is currently up.
	Hosts() []types.Host
}

// LoadBalancingPolicy rates hosts and orders them for each operation.
type LoadBalancingPolicy interface {
	// Init is called once, while the client connects, before any Distance
	// or NewQueryPlan call.
	Init(hosts HostLister) error

	// Distance rates a host. Ignored hosts never get a pool.
	Distance(host types.Host) types.Distance

	// NewQueryPlan returns the hosts to try for one operation, in order.
	NewQueryPlan(keyspace string, info types.OperationInfo) []types.Host
}

// RoundRobin rates every host as local and rotates the starting host of each
// query plan.
type RoundRobin struct {
	hosts   atomic.Value // HostLister
	counter atomic.Uint64
}

// Compile-time assertion that RoundRobin implements LoadBalancingPolicy.
var _ LoadBalancingPolicy = (*RoundRobin)(nil)

// NewRoundRobin creates a new RoundRobin policy.
//
// Returns:
//   - *RoundRobin: A new round-robin load-balancing policy
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Init records the host lister.
func (r *RoundRobin) Init(hosts HostLister) error {
	r.hosts.Store(listerBox{hosts})
	return nil
}

// Distance always returns DistanceLocal.
func (r *RoundRobin) Distance(_ types.Host) types.Distance {
	return types.DistanceLocal
}

// NewQueryPlan returns every up host, starting one position further than the
// previous plan.
func (r *RoundRobin) NewQueryPlan(_ string, _ types.OperationInfo) []types.Host {
	hosts := loadHosts(&r.hosts)
	if len(hosts) == 0 {
		return nil
	}

	start := int(r.counter.Add(1) % uint64(len(hosts)))

	return rotate(hosts, start)
}

// DCAwareRoundRobin prefers hosts of the local data center.
//
// Hosts of the local data center are DistanceLocal. Up to usedHostsPerRemoteDC
// hosts of every other data center are DistanceRemote and are appended to the
// query plan after the local ones; the rest are DistanceIgnored.
type DCAwareRoundRobin struct {
	localDC              string
	usedHostsPerRemoteDC int

	mu      sync.RWMutex
	hosts   HostLister
	counter atomic.Uint64
}

// Compile-time assertion that DCAwareRoundRobin implements LoadBalancingPolicy.
var _ LoadBalancingPolicy = (*DCAwareRoundRobin)(nil)

// DCAwareOption configures a DCAwareRoundRobin policy.
type DCAwareOption func(*DCAwareRoundRobin)

// WithUsedHostsPerRemoteDC sets how many hosts of each remote data center are
// used as a fallback.
//
// Parameters:
//   - n: Hosts per remote data center (default: 0, remote hosts are ignored)
//
// Returns:
//   - DCAwareOption: Configuration option
func WithUsedHostsPerRemoteDC(n int) DCAwareOption {
	return func(p *DCAwareRoundRobin) {
		if n >= 0 {
			p.usedHostsPerRemoteDC = n
		}
	}
}

// NewDCAwareRoundRobin creates a data-center aware policy.
//
// Parameters:
//   - localDC: Name of the local data center; empty infers it from the first
//     host seen in Init
//   - opts: Optional configuration options
//
// Returns:
//   - *DCAwareRoundRobin: A new policy
func NewDCAwareRoundRobin(localDC string, opts ...DCAwareOption) *DCAwareRoundRobin {
	p := &DCAwareRoundRobin{localDC: localDC}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// LocalDC returns the local data center name.
func (p *DCAwareRoundRobin) LocalDC() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.localDC
}

// Init records the host lister and infers the local data center if unset.
func (p *DCAwareRoundRobin) Init(hosts HostLister) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.hosts = hosts
	if p.localDC == "" {
		for _, h := range hosts.Hosts() {
			if h.Datacenter != "" {
				p.localDC = h.Datacenter
				break
			}
		}
	}

	return nil
}

// Distance rates a host by data center.
func (p *DCAwareRoundRobin) Distance(host types.Host) types.Distance {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if host.Datacenter == p.localDC {
		return types.DistanceLocal
	}
	if p.usedHostsPerRemoteDC == 0 || p.hosts == nil {
		return types.DistanceIgnored
	}

	for _, h := range p.remoteHosts(host.Datacenter) {
		if h.ID == host.ID {
			return types.DistanceRemote
		}
	}

	return types.DistanceIgnored
}

// NewQueryPlan returns the rotated local hosts followed by the used remote hosts.
func (p *DCAwareRoundRobin) NewQueryPlan(_ string, _ types.OperationInfo) []types.Host {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.hosts == nil {
		return nil
	}

	all := p.hosts.Hosts()
	local := make([]types.Host, 0, len(all))
	remoteDCs := make([]string, 0)
	seen := make(map[string]struct{})
	for _, h := range all {
		if h.Datacenter == p.localDC {
			local = append(local, h)
			continue
		}
		if _, ok := seen[h.Datacenter]; !ok {
			seen[h.Datacenter] = struct{}{}
			remoteDCs = append(remoteDCs, h.Datacenter)
		}
	}

	plan := make([]types.Host, 0, len(all))
	if len(local) > 0 {
		start := int(p.counter.Add(1) % uint64(len(local)))
		plan = append(plan, rotate(local, start)...)
	}
	if p.usedHostsPerRemoteDC > 0 {
		for _, dc := range remoteDCs {
			plan = append(plan, p.remoteHosts(dc)...)
		}
	}

	return plan
}

// remoteHosts returns the used hosts of a remote data center, in the order
// the lister reports them. Callers hold p.mu.
func (p *DCAwareRoundRobin) remoteHosts(dc string) []types.Host {
	used := make([]types.Host, 0, p.usedHostsPerRemoteDC)
	for _, h := range p.hosts.Hosts() {
		if h.Datacenter != dc {
			continue
		}
		used = append(used, h)
		if len(used) == p.usedHostsPerRemoteDC {
			break
		}
	}

	return used
}

// AllowList restricts a child policy to an explicit set of addresses.
//
// Hosts outside the list are DistanceIgnored and never appear in query plans.
type AllowList struct {
	child   LoadBalancingPolicy
	allowed map[string]struct{}
}

// Compile-time assertion that AllowList implements LoadBalancingPolicy.
var _ LoadBalancingPolicy = (*AllowList)(nil)

// NewAllowList wraps child.
//
// Parameters:
//   - child: Policy that rates and orders the allowed hosts
//   - addresses: Allowed host addresses ("ip:port")
//
// Returns:
//   - *AllowList: A new policy
func NewAllowList(child LoadBalancingPolicy, addresses ...string) *AllowList {
	allowed := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		allowed[addr] = struct{}{}
	}

	return &AllowList{child: child, allowed: allowed}
}

// Init initializes the child policy.
func (a *AllowList) Init(hosts HostLister) error {
	return a.child.Init(hosts)
}

// Distance returns the child's distance for allowed hosts and
// DistanceIgnored for the rest.
func (a *AllowList) Distance(host types.Host) types.Distance {
	if _, ok := a.allowed[host.Address]; !ok {
		return types.DistanceIgnored
	}

	return a.child.Distance(host)
}

// NewQueryPlan filters the child's plan.
func (a *AllowList) NewQueryPlan(keyspace string, info types.OperationInfo) []types.Host {
	plan := a.child.NewQueryPlan(keyspace, info)
	filtered := plan[:0:0]
	for _, h := range plan {
		if _, ok := a.allowed[h.Address]; ok {
			filtered = append(filtered, h)
		}
	}

	return filtered
}

// listerBox lets atomic.Value hold HostLister values of differing concrete types.
type listerBox struct {
	HostLister
}

func loadHosts(v *atomic.Value) []types.Host {
	box, ok := v.Load().(listerBox)
	if !ok || box.HostLister == nil {
		return nil
	}

	return box.Hosts()
}

func rotate(hosts []types.Host, start int) []types.Host {
	out := make([]types.Host, 0, len(hosts))
	out = append(out, hosts[start:]...)
	out = append(out, hosts[:start]...)

	return out
}
