package topology_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/cqlguard/test/testutil"
	"github.com/arloliu/cqlguard/topology"
	"github.com/arloliu/cqlguard/types"
)

const hostsKey = "cqlguard.topology.hosts"

func putHosts(t *testing.T, kv jetstream.KeyValue, list topology.HostList) {
	t.Helper()

	data, err := json.Marshal(list)
	require.NoError(t, err)
	_, err = kv.Put(t.Context(), hostsKey, data)
	require.NoError(t, err)
}

func waitEvent(t *testing.T, ch <-chan types.HostEvent) types.HostEvent {
	t.Helper()

	select {
	case ev, ok := <-ch:
		require.True(t, ok, "event channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for host event")
		return types.HostEvent{}
	}
}

func TestNewNATSNilKV(t *testing.T) {
	_, err := topology.NewNATS(t.Context(), nil)
	require.ErrorIs(t, err, topology.ErrNilKeyValue)
}

func TestNewNATSDefaults(t *testing.T) {
	kv := testutil.NewTopologyBucket(t, "test-defaults")

	provider, err := topology.NewNATS(t.Context(), kv)
	require.NoError(t, err)
	defer provider.Close()

	assert.Equal(t, hostsKey, provider.Config().Key)
	assert.Equal(t, 5*time.Second, provider.Config().PollInterval)
	assert.Equal(t, 10*time.Second, provider.Config().InitialFetchTimeout)
	assert.NotNil(t, provider.Config().Logger)
	assert.Empty(t, provider.Hosts())
}

func TestNewNATSOptions(t *testing.T) {
	kv := testutil.NewTopologyBucket(t, "test-options")
	logger := testutil.NewTestLogger(t)

	provider, err := topology.NewNATS(t.Context(), kv,
		topology.WithKey("custom.hosts.key"),
		topology.WithPollInterval(10*time.Second),
		topology.WithInitialFetchTimeout(30*time.Second),
		topology.WithLogger(logger),
	)
	require.NoError(t, err)
	defer provider.Close()

	assert.Equal(t, "custom.hosts.key", provider.Config().Key)
	assert.Equal(t, 10*time.Second, provider.Config().PollInterval)
	assert.Equal(t, 30*time.Second, provider.Config().InitialFetchTimeout)
	assert.Same(t, logger, provider.Config().Logger)
}

func TestNATSInitialMembership(t *testing.T) {
	kv := testutil.NewTopologyBucket(t, "test-initial")

	hosts := testutil.NewHosts(3, "dc1")
	putHosts(t, kv, topology.HostList{Hosts: hosts, Down: []uuid.UUID{hosts[2].ID}})

	provider, err := topology.NewNATS(t.Context(), kv)
	require.NoError(t, err)
	defer provider.Close()

	assert.Equal(t, hosts[:2], provider.Hosts())
}

func TestNATSMembershipChanges(t *testing.T) {
	kv := testutil.NewTopologyBucket(t, "test-changes")

	hosts := testutil.NewHosts(3, "dc1")
	putHosts(t, kv, topology.HostList{Hosts: hosts[:2]})

	provider, err := topology.NewNATS(t.Context(), kv)
	require.NoError(t, err)
	defer provider.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	events := provider.Watch(ctx)

	// Add the third host.
	putHosts(t, kv, topology.HostList{Hosts: hosts})
	ev := waitEvent(t, events)
	assert.Equal(t, types.HostAdded, ev.Type)
	assert.Equal(t, hosts[2], ev.Host)

	// Mark the first host down.
	putHosts(t, kv, topology.HostList{Hosts: hosts, Down: []uuid.UUID{hosts[0].ID}})
	ev = waitEvent(t, events)
	assert.Equal(t, types.HostDown, ev.Type)
	assert.Equal(t, hosts[0].ID, ev.Host.ID)
	assert.Equal(t, hosts[1:], provider.Hosts())

	// Remove the second host.
	putHosts(t, kv, topology.HostList{Hosts: []types.Host{hosts[0], hosts[2]}, Down: []uuid.UUID{hosts[0].ID}})
	ev = waitEvent(t, events)
	assert.Equal(t, types.HostRemoved, ev.Type)
	assert.Equal(t, hosts[1].ID, ev.Host.ID)
}

func TestNATSKeyDeleted(t *testing.T) {
	kv := testutil.NewTopologyBucket(t, "test-delete")

	hosts := testutil.NewHosts(2, "dc1")
	putHosts(t, kv, topology.HostList{Hosts: hosts})

	provider, err := topology.NewNATS(t.Context(), kv)
	require.NoError(t, err)
	defer provider.Close()

	events := provider.Watch(t.Context())
	require.NoError(t, kv.Delete(t.Context(), hostsKey))

	removed := map[uuid.UUID]bool{}
	for range hosts {
		ev := waitEvent(t, events)
		assert.Equal(t, types.HostRemoved, ev.Type)
		removed[ev.Host.ID] = true
	}
	assert.Len(t, removed, 2)
	assert.Empty(t, provider.Hosts())
}

func TestNATSInvalidValueKeepsMembership(t *testing.T) {
	kv := testutil.NewTopologyBucket(t, "test-invalid")

	hosts := testutil.NewHosts(2, "dc1")
	putHosts(t, kv, topology.HostList{Hosts: hosts})

	provider, err := topology.NewNATS(t.Context(), kv)
	require.NoError(t, err)
	defer provider.Close()

	events := provider.Watch(t.Context())

	_, err = kv.Put(t.Context(), hostsKey, []byte("{not json"))
	require.NoError(t, err)

	// A valid update after the invalid one is the next event seen.
	extra := testutil.NewHosts(1, "dc2")[0]
	putHosts(t, kv, topology.HostList{Hosts: append(append([]types.Host{}, hosts...), extra)})

	ev := waitEvent(t, events)
	assert.Equal(t, types.HostAdded, ev.Type)
	assert.Equal(t, extra.ID, ev.Host.ID)
	assert.Len(t, provider.Hosts(), 3)
}

func TestNATSClose(t *testing.T) {
	kv := testutil.NewTopologyBucket(t, "test-close")

	provider, err := topology.NewNATS(t.Context(), kv)
	require.NoError(t, err)

	events := provider.Watch(context.Background())
	require.NoError(t, provider.Close())
	require.NoError(t, provider.Close())

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
}
