package topology

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/arloliu/cqlguard/types"
)

type member struct {
	host types.Host
	up   bool
}

// membership is a snapshot of the cluster in discovery order.
type membership struct {
	members map[uuid.UUID]member
	order   []uuid.UUID
}

func newMembership() *membership {
	return &membership{members: make(map[uuid.UUID]member)}
}

func membershipFrom(list HostList) *membership {
	m := newMembership()
	for _, h := range list.Hosts {
		if _, dup := m.members[h.ID]; dup {
			continue
		}
		m.members[h.ID] = member{host: h, up: !list.IsDown(h.ID)}
		m.order = append(m.order, h.ID)
	}

	return m
}

func (m *membership) clone() *membership {
	out := &membership{
		members: make(map[uuid.UUID]member, len(m.members)),
		order:   make([]uuid.UUID, len(m.order)),
	}
	for id, mb := range m.members {
		out.members[id] = mb
	}
	copy(out.order, m.order)

	return out
}

// upHosts returns the hosts that are up, in discovery order.
func (m *membership) upHosts() []types.Host {
	out := make([]types.Host, 0, len(m.order))
	for _, id := range m.order {
		if mb := m.members[id]; mb.up {
			out = append(out, mb.host)
		}
	}

	return out
}

func (m *membership) remove(id uuid.UUID) {
	delete(m.members, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

// diff returns the events that turn prev into next.
//
// A host whose address or location changed is reported as removed and added
// again. A new host that is already down is reported as added, then down.
func diff(prev, next *membership) []types.HostEvent {
	var events []types.HostEvent

	for _, id := range prev.order {
		old := prev.members[id]
		cur, ok := next.members[id]
		if !ok || cur.host != old.host {
			events = append(events, types.HostEvent{Type: types.HostRemoved, Host: old.host})
		}
	}

	for _, id := range next.order {
		cur := next.members[id]
		old, ok := prev.members[id]
		if !ok || cur.host != old.host {
			events = append(events, types.HostEvent{Type: types.HostAdded, Host: cur.host})
			if !cur.up {
				events = append(events, types.HostEvent{Type: types.HostDown, Host: cur.host})
			}
			continue
		}
		switch {
		case cur.up && !old.up:
			events = append(events, types.HostEvent{Type: types.HostUp, Host: cur.host})
		case !cur.up && old.up:
			events = append(events, types.HostEvent{Type: types.HostDown, Host: cur.host})
		}
	}

	return events
}

// broadcaster fans host events out to every Watch subscription. Each
// subscription queues events without bound so a slow consumer never loses
// membership changes.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[*subscription]struct{}
	done   chan struct{}
	closed bool
}

type subscription struct {
	mu     sync.Mutex
	queue  []types.HostEvent
	signal chan struct{}
	out    chan types.HostEvent
}

func newBroadcaster() *broadcaster {
	return &broadcaster{
		subs: make(map[*subscription]struct{}),
		done: make(chan struct{}),
	}
}

// subscribe returns a channel that receives events published from now on.
// It is closed when ctx ends or the broadcaster closes.
func (b *broadcaster) subscribe(ctx context.Context) <-chan types.HostEvent {
	s := &subscription{
		signal: make(chan struct{}, 1),
		out:    make(chan types.HostEvent),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(s.out)

		return s.out
	}
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go b.deliver(ctx, s)

	return s.out
}

func (b *broadcaster) deliver(ctx context.Context, s *subscription) {
	defer close(s.out)
	defer func() {
		b.mu.Lock()
		delete(b.subs, s)
		b.mu.Unlock()
	}()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-ctx.Done():
				return
			case <-b.done:
				return
			case <-s.signal:
				continue
			}
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- ev:
		case <-ctx.Done():
			return
		case <-b.done:
			return
		}
	}
}

func (b *broadcaster) publish(events []types.HostEvent) {
	if len(events) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.subs {
		s.mu.Lock()
		s.queue = append(s.queue, events...)
		s.mu.Unlock()

		select {
		case s.signal <- struct{}{}:
		default:
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.done)
	}
}
