package cqlguard

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/cqlguard/types"
)

// DefaultProfileName is the name of the profile used when an execution does
// not select one. It is always registered.
const DefaultProfileName = "default"

// ExecutionProfile is a named bundle of per-operation settings.
//
// Profiles are immutable once built. Settings left unset are resolved from the
// default profile when the client is created.
type ExecutionProfile struct {
	name              string
	consistency       *types.Consistency
	serialConsistency *types.Consistency
	readTimeout       *time.Duration
	retryPolicy       RetryPolicy
	lbPolicy          LoadBalancingPolicy
	specPolicy        SpeculativeExecutionPolicy
}

// ProfileOption configures an ExecutionProfile.
type ProfileOption func(*ExecutionProfile)

// WithProfileConsistency sets the profile's consistency level.
func WithProfileConsistency(consistency Consistency) ProfileOption {
	return func(p *ExecutionProfile) {
		p.consistency = &consistency
	}
}

// WithProfileSerialConsistency sets the profile's serial consistency level.
func WithProfileSerialConsistency(consistency Consistency) ProfileOption {
	return func(p *ExecutionProfile) {
		p.serialConsistency = &consistency
	}
}

// WithProfileReadTimeout sets the profile's per-attempt timeout.
func WithProfileReadTimeout(d time.Duration) ProfileOption {
	return func(p *ExecutionProfile) {
		p.readTimeout = &d
	}
}

// WithProfileRetryPolicy sets the profile's retry policy.
func WithProfileRetryPolicy(rp RetryPolicy) ProfileOption {
	return func(p *ExecutionProfile) {
		p.retryPolicy = rp
	}
}

// WithProfileLoadBalancingPolicy sets the profile's load-balancing policy.
func WithProfileLoadBalancingPolicy(lb LoadBalancingPolicy) ProfileOption {
	return func(p *ExecutionProfile) {
		p.lbPolicy = lb
	}
}

// WithProfileSpeculativeExecutionPolicy sets the profile's speculative execution policy.
func WithProfileSpeculativeExecutionPolicy(sp SpeculativeExecutionPolicy) ProfileOption {
	return func(p *ExecutionProfile) {
		p.specPolicy = sp
	}
}

// NewExecutionProfile builds a profile.
//
// Parameters:
//   - name: Unique profile name; "default" replaces the default profile
//   - opts: Settings of the profile; unset ones are inherited from the default profile
//
// Returns:
//   - *ExecutionProfile: The profile
//
// Example:
//
//	analytics := cqlguard.NewExecutionProfile("analytics",
//	    cqlguard.WithProfileConsistency(cqlguard.One),
//	    cqlguard.WithProfileReadTimeout(time.Minute),
//	)
func NewExecutionProfile(name string, opts ...ProfileOption) *ExecutionProfile {
	p := &ExecutionProfile{name: name}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the profile name.
func (p *ExecutionProfile) Name() string { return p.name }

// Consistency returns the consistency level; zero value (ANY) if unresolved.
func (p *ExecutionProfile) Consistency() Consistency {
	if p.consistency == nil {
		return types.Any
	}

	return *p.consistency
}

// SerialConsistency returns the serial consistency level.
func (p *ExecutionProfile) SerialConsistency() Consistency {
	if p.serialConsistency == nil {
		return types.Serial
	}

	return *p.serialConsistency
}

// ReadTimeout returns the per-attempt timeout.
func (p *ExecutionProfile) ReadTimeout() time.Duration {
	if p.readTimeout == nil {
		return 0
	}

	return *p.readTimeout
}

// RetryPolicy returns the retry policy.
func (p *ExecutionProfile) RetryPolicy() RetryPolicy { return p.retryPolicy }

// LoadBalancingPolicy returns the load-balancing policy.
func (p *ExecutionProfile) LoadBalancingPolicy() LoadBalancingPolicy { return p.lbPolicy }

// SpeculativeExecutionPolicy returns the speculative execution policy.
func (p *ExecutionProfile) SpeculativeExecutionPolicy() SpeculativeExecutionPolicy {
	return p.specPolicy
}

// inherit returns a copy of p whose unset settings are taken from base.
func (p *ExecutionProfile) inherit(base *ExecutionProfile) *ExecutionProfile {
	out := *p
	if out.consistency == nil {
		out.consistency = base.consistency
	}
	if out.serialConsistency == nil {
		out.serialConsistency = base.serialConsistency
	}
	if out.readTimeout == nil {
		out.readTimeout = base.readTimeout
	}
	if out.retryPolicy == nil {
		out.retryPolicy = base.retryPolicy
	}
	if out.lbPolicy == nil {
		out.lbPolicy = base.lbPolicy
	}
	if out.specPolicy == nil {
		out.specPolicy = base.specPolicy
	}

	return &out
}

// ProfileManager owns the registered execution profiles and the host
// distance side table derived from their load-balancing policies.
type ProfileManager struct {
	profiles map[string]*ExecutionProfile
	names    []string
	policies []LoadBalancingPolicy
	cache    *xsync.MapOf[uuid.UUID, types.Distance]
}

// NewProfileManager resolves the configured profiles.
//
// The default profile is the supplied "default" profile, if any, completed
// with the top-level settings of cfg; otherwise it is built from those
// settings alone. Every other profile inherits unset settings from the
// default profile.
//
// Parameters:
//   - cfg: Client configuration
//
// Returns:
//   - *ProfileManager: The manager
//   - error: types.ErrDuplicateProfile when two profiles share a name
func NewProfileManager(cfg *ClientConfig) (*ProfileManager, error) {
	consistency := cfg.Consistency
	serial := cfg.SerialConsistency
	readTimeout := cfg.ReadTimeout
	topLevel := &ExecutionProfile{
		name:              DefaultProfileName,
		consistency:       &consistency,
		serialConsistency: &serial,
		readTimeout:       &readTimeout,
		retryPolicy:       cfg.RetryPolicy,
		lbPolicy:          cfg.LoadBalancingPolicy,
		specPolicy:        cfg.SpeculativeExecutionPolicy,
	}

	seen := make(map[string]struct{}, len(cfg.Profiles))
	defaultProfile := topLevel
	for _, p := range cfg.Profiles {
		if p == nil {
			continue
		}
		if _, dup := seen[p.name]; dup {
			return nil, fmt.Errorf("%w: %q", types.ErrDuplicateProfile, p.name)
		}
		seen[p.name] = struct{}{}
		if p.name == DefaultProfileName {
			defaultProfile = p.inherit(topLevel)
		}
	}

	m := &ProfileManager{
		profiles: make(map[string]*ExecutionProfile, len(cfg.Profiles)+1),
		cache:    xsync.NewMapOf[uuid.UUID, types.Distance](),
	}
	m.register(defaultProfile)
	for _, p := range cfg.Profiles {
		if p == nil || p.name == DefaultProfileName {
			continue
		}
		m.register(p.inherit(defaultProfile))
	}

	return m, nil
}

func (m *ProfileManager) register(p *ExecutionProfile) {
	m.profiles[p.name] = p
	m.names = append(m.names, p.name)

	for _, existing := range m.policies {
		if samePolicy(existing, p.lbPolicy) {
			return
		}
	}
	m.policies = append(m.policies, p.lbPolicy)
}

// samePolicy reports whether a and b are the same policy instance.
func samePolicy(a, b LoadBalancingPolicy) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta == nil || ta != tb || !ta.Comparable() {
		return false
	}

	return a == b
}

// Profile returns the profile registered under name. An empty name selects
// the default profile.
//
// Parameters:
//   - name: Profile name
//
// Returns:
//   - *ExecutionProfile: The resolved profile
//   - bool: false when no profile has that name
func (m *ProfileManager) Profile(name string) (*ExecutionProfile, bool) {
	if name == "" {
		name = DefaultProfileName
	}
	p, ok := m.profiles[name]

	return p, ok
}

// Default returns the default profile.
func (m *ProfileManager) Default() *ExecutionProfile {
	return m.profiles[DefaultProfileName]
}

// Names returns the registered profile names, default first.
func (m *ProfileManager) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)

	return out
}

// LoadBalancingPolicies returns the distinct load-balancing policies of all
// profiles, in registration order.
func (m *ProfileManager) LoadBalancingPolicies() []LoadBalancingPolicy {
	out := make([]LoadBalancingPolicy, len(m.policies))
	copy(out, m.policies)

	return out
}

// Init initializes every distinct load-balancing policy exactly once.
//
// Parameters:
//   - hosts: View of the cluster handed to the policies
//
// Returns:
//   - error: The first initialization error
func (m *ProfileManager) Init(hosts HostLister) error {
	for _, lb := range m.policies {
		if err := lb.Init(hosts); err != nil {
			return fmt.Errorf("cqlguard: init load-balancing policy %T: %w", lb, err)
		}
	}

	return nil
}

// Distance computes the distance of host as the closest rating among all
// distinct load-balancing policies, and records it in the side table.
//
// A host is Local if any policy rates it Local, and Ignored only if every
// policy ignores it.
//
// Parameters:
//   - host: Host to rate
//
// Returns:
//   - types.Distance: The computed distance
func (m *ProfileManager) Distance(host Host) Distance {
	d := m.Rate(host)
	m.cache.Store(host.ID, d)

	return d
}

// Rate computes the same distance as Distance without touching the side
// table. Request paths use it so that only lifecycle and topology handling
// write the cache.
func (m *ProfileManager) Rate(host Host) Distance {
	d := types.DistanceIgnored
	for _, lb := range m.policies {
		if pd := lb.Distance(host); pd < d {
			d = pd
		}
		if d == types.DistanceLocal {
			break
		}
	}

	return d
}

// CachedDistance returns the last distance computed for a host.
//
// Parameters:
//   - id: Host ID
//
// Returns:
//   - types.Distance: The cached distance
//   - bool: false when the host was never rated or was invalidated
func (m *ProfileManager) CachedDistance(id uuid.UUID) (Distance, bool) {
	return m.cache.Load(id)
}

// Invalidate drops the cached distance of a host.
func (m *ProfileManager) Invalidate(id uuid.UUID) {
	m.cache.Delete(id)
}

// InvalidateAll drops every cached distance.
func (m *ProfileManager) InvalidateAll() {
	m.cache.Clear()
}
