package topology

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/arloliu/cqlguard"
	"github.com/arloliu/cqlguard/types"
)

// Local provides an in-memory host provider for testing and static clusters.
//
// Unlike NATS, this implementation is driven programmatically: AddHost,
// RemoveHost and SetHostUp update the membership and emit the matching
// host events to every Watch subscription.
type Local struct {
	mu      sync.RWMutex
	members *membership
	events  *broadcaster
}

var _ cqlguard.HostProvider = (*Local)(nil)

// NewLocal creates a new in-memory host provider.
//
// Parameters:
//   - hosts: Initial members, all up
//
// Returns:
//   - *Local: A new local topology instance
func NewLocal(hosts ...types.Host) *Local {
	return &Local{
		members: membershipFrom(HostList{Hosts: hosts}),
		events:  newBroadcaster(),
	}
}

// Hosts returns the members that are up, in the order they were added.
func (l *Local) Hosts() []types.Host {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.members.upHosts()
}

// Watch returns a channel that receives host events.
//
// Each call creates an independent subscription that only sees changes made
// after it. The channel is closed when ctx is cancelled or Close is called.
//
// Parameters:
//   - ctx: Context bounding the subscription
//
// Returns:
//   - <-chan types.HostEvent: Channel of topology changes
func (l *Local) Watch(ctx context.Context) <-chan types.HostEvent {
	return l.events.subscribe(ctx)
}

// AddHost adds a member, or replaces a member with the same ID whose address
// or location changed.
//
// Parameters:
//   - host: The member to add, up
func (l *Local) AddHost(host types.Host) {
	l.update(func(m *membership) {
		if _, ok := m.members[host.ID]; !ok {
			m.order = append(m.order, host.ID)
		}
		m.members[host.ID] = member{host: host, up: true}
	})
}

// RemoveHost removes a member. Unknown IDs are ignored.
func (l *Local) RemoveHost(id uuid.UUID) {
	l.update(func(m *membership) {
		m.remove(id)
	})
}

// SetHostUp marks a member up or down.
//
// Parameters:
//   - id: The member's host ID
//   - up: true if the member is reachable
//
// Returns:
//   - bool: false if no member has that ID
func (l *Local) SetHostUp(id uuid.UUID, up bool) bool {
	found := false
	l.update(func(m *membership) {
		mb, ok := m.members[id]
		if !ok {
			return
		}
		found = true
		mb.up = up
		m.members[id] = mb
	})

	return found
}

// IsUp reports whether a member exists and is up.
func (l *Local) IsUp(id uuid.UUID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	mb, ok := l.members.members[id]

	return ok && mb.up
}

// Close closes every Watch subscription. Later subscriptions are closed
// immediately.
func (l *Local) Close() error {
	l.events.close()
	return nil
}

func (l *Local) update(mutate func(*membership)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.members.clone()
	mutate(next)
	events := diff(l.members, next)
	l.members = next
	l.events.publish(events)
}
