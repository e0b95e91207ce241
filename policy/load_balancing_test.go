package policy

import (
	"testing"

	"github.com/arloliu/cqlguard/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type staticHosts []types.Host

func (s staticHosts) Hosts() []types.Host { return s }

func newHost(addr, dc string) types.Host {
	return types.Host{ID: uuid.New(), Address: addr, Datacenter: dc}
}

func TestRoundRobinRotates(t *testing.T) {
	hosts := staticHosts{newHost("h1", "dc1"), newHost("h2", "dc1"), newHost("h3", "dc1")}
	p := NewRoundRobin()
	require.NoError(t, p.Init(hosts))

	first := p.NewQueryPlan("ks", types.OperationInfo{})
	second := p.NewQueryPlan("ks", types.OperationInfo{})

	require.Len(t, first, 3)
	require.Len(t, second, 3)
	require.NotEqual(t, first[0].Address, second[0].Address)
	require.ElementsMatch(t, []types.Host(hosts), first)

	require.Equal(t, types.DistanceLocal, p.Distance(hosts[0]))
}

func TestRoundRobinBeforeInit(t *testing.T) {
	p := NewRoundRobin()
	require.Empty(t, p.NewQueryPlan("ks", types.OperationInfo{}))
}

func TestDCAwareRoundRobinDistance(t *testing.T) {
	local1 := newHost("l1", "dc1")
	local2 := newHost("l2", "dc1")
	remote1 := newHost("r1", "dc2")
	remote2 := newHost("r2", "dc2")
	hosts := staticHosts{local1, remote1, local2, remote2}

	p := NewDCAwareRoundRobin("dc1", WithUsedHostsPerRemoteDC(1))
	require.NoError(t, p.Init(hosts))

	require.Equal(t, types.DistanceLocal, p.Distance(local1))
	require.Equal(t, types.DistanceLocal, p.Distance(local2))
	require.Equal(t, types.DistanceRemote, p.Distance(remote1))
	require.Equal(t, types.DistanceIgnored, p.Distance(remote2))

	plan := p.NewQueryPlan("ks", types.OperationInfo{})
	require.Len(t, plan, 3)
	require.Equal(t, "dc1", plan[0].Datacenter)
	require.Equal(t, "dc1", plan[1].Datacenter)
	require.Equal(t, remote1.Address, plan[2].Address)
}

func TestDCAwareRoundRobinIgnoresRemoteByDefault(t *testing.T) {
	hosts := staticHosts{newHost("l1", "dc1"), newHost("r1", "dc2")}
	p := NewDCAwareRoundRobin("")
	require.NoError(t, p.Init(hosts))

	require.Equal(t, "dc1", p.LocalDC())
	require.Equal(t, types.DistanceIgnored, p.Distance(hosts[1]))
	require.Len(t, p.NewQueryPlan("ks", types.OperationInfo{}), 1)
}

func TestAllowList(t *testing.T) {
	hosts := staticHosts{newHost("h1", "dc1"), newHost("h2", "dc1"), newHost("h3", "dc1")}
	p := NewAllowList(NewRoundRobin(), "h1", "h3")
	require.NoError(t, p.Init(hosts))

	require.Equal(t, types.DistanceLocal, p.Distance(hosts[0]))
	require.Equal(t, types.DistanceIgnored, p.Distance(hosts[1]))

	for i := 0; i < 3; i++ {
		plan := p.NewQueryPlan("ks", types.OperationInfo{})
		require.Len(t, plan, 2)
		for _, h := range plan {
			require.NotEqual(t, "h2", h.Address)
		}
	}
}
