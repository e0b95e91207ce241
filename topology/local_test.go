package topology

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/cqlguard/types"
)

func newHost(addr, dc string) types.Host {
	return types.Host{ID: uuid.New(), Address: addr, Datacenter: dc, Rack: "rack1"}
}

// nextEvent waits for one event on ch.
func nextEvent(t *testing.T, ch <-chan types.HostEvent) types.HostEvent {
	t.Helper()

	select {
	case ev, ok := <-ch:
		require.True(t, ok, "event channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for host event")
		return types.HostEvent{}
	}
}

func TestNewLocal(t *testing.T) {
	a, b := newHost("10.0.0.1:9042", "dc1"), newHost("10.0.0.2:9042", "dc1")
	local := NewLocal(a, b)
	defer local.Close()

	assert.Equal(t, []types.Host{a, b}, local.Hosts())
	assert.True(t, local.IsUp(a.ID))
	assert.False(t, local.IsUp(uuid.New()))
}

func TestLocalEvents(t *testing.T) {
	a := newHost("10.0.0.1:9042", "dc1")
	local := NewLocal(a)
	defer local.Close()

	events := local.Watch(t.Context())

	b := newHost("10.0.0.2:9042", "dc2")
	local.AddHost(b)
	ev := nextEvent(t, events)
	assert.Equal(t, types.HostAdded, ev.Type)
	assert.Equal(t, b, ev.Host)

	require.True(t, local.SetHostUp(a.ID, false))
	ev = nextEvent(t, events)
	assert.Equal(t, types.HostDown, ev.Type)
	assert.Equal(t, a.ID, ev.Host.ID)
	assert.Equal(t, []types.Host{b}, local.Hosts())

	// No change, no event.
	require.True(t, local.SetHostUp(a.ID, false))
	require.True(t, local.SetHostUp(a.ID, true))
	ev = nextEvent(t, events)
	assert.Equal(t, types.HostUp, ev.Type)

	local.RemoveHost(b.ID)
	ev = nextEvent(t, events)
	assert.Equal(t, types.HostRemoved, ev.Type)
	assert.Equal(t, b.ID, ev.Host.ID)

	assert.False(t, local.SetHostUp(b.ID, true))
	assert.Equal(t, []types.Host{a}, local.Hosts())
}

func TestLocalHostMoved(t *testing.T) {
	a := newHost("10.0.0.1:9042", "dc1")
	local := NewLocal(a)
	defer local.Close()

	events := local.Watch(t.Context())

	moved := a
	moved.Address = "10.0.1.1:9042"
	local.AddHost(moved)

	ev := nextEvent(t, events)
	assert.Equal(t, types.HostRemoved, ev.Type)
	assert.Equal(t, a.Address, ev.Host.Address)
	ev = nextEvent(t, events)
	assert.Equal(t, types.HostAdded, ev.Type)
	assert.Equal(t, moved.Address, ev.Host.Address)
	assert.Equal(t, []types.Host{moved}, local.Hosts())
}

func TestLocalIndependentSubscriptions(t *testing.T) {
	local := NewLocal()
	defer local.Close()

	ctx1, cancel1 := context.WithCancel(t.Context())
	first := local.Watch(ctx1)
	second := local.Watch(t.Context())

	h := newHost("10.0.0.1:9042", "dc1")
	local.AddHost(h)
	assert.Equal(t, h, nextEvent(t, first).Host)
	assert.Equal(t, h, nextEvent(t, second).Host)

	cancel1()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-first:
			return !ok
		default:
			return false
		}
	}, time.Second, time.Millisecond)

	local.RemoveHost(h.ID)
	assert.Equal(t, types.HostRemoved, nextEvent(t, second).Type)
}

func TestLocalSlowConsumerKeepsEvents(t *testing.T) {
	local := NewLocal()
	defer local.Close()

	events := local.Watch(t.Context())

	hosts := make([]types.Host, 200)
	for i := range hosts {
		hosts[i] = newHost("10.0.0.1:9042", "dc1")
		local.AddHost(hosts[i])
	}

	for i := range hosts {
		ev := nextEvent(t, events)
		require.Equal(t, hosts[i].ID, ev.Host.ID)
	}
}

func TestLocalClose(t *testing.T) {
	local := NewLocal()
	events := local.Watch(context.Background())

	require.NoError(t, local.Close())
	require.NoError(t, local.Close())

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}

	_, ok := <-local.Watch(context.Background())
	assert.False(t, ok)
}

func TestDiff(t *testing.T) {
	a, b, c := newHost("a:9042", "dc1"), newHost("b:9042", "dc1"), newHost("c:9042", "dc1")

	prev := membershipFrom(HostList{Hosts: []types.Host{a, b}, Down: []uuid.UUID{b.ID}})
	next := membershipFrom(HostList{Hosts: []types.Host{b, c}, Down: []uuid.UUID{c.ID}})

	assert.Equal(t, []types.HostEvent{
		{Type: types.HostRemoved, Host: a},
		{Type: types.HostUp, Host: b},
		{Type: types.HostAdded, Host: c},
		{Type: types.HostDown, Host: c},
	}, diff(prev, next))

	assert.Empty(t, diff(next, next.clone()))
}

func TestMembershipIgnoresDuplicates(t *testing.T) {
	a := newHost("a:9042", "dc1")
	m := membershipFrom(HostList{Hosts: []types.Host{a, a}})

	assert.Equal(t, []types.Host{a}, m.upHosts())
}
