package v1_test

import (
	"context"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/cqlguard"
	v1 "github.com/arloliu/cqlguard/adapter/cql/v1" //nolint:revive // required for v1_test package
	"github.com/arloliu/cqlguard/test/testutil"
	"github.com/arloliu/cqlguard/types"
)

func newUnconnected(t *testing.T, opts ...v1.Option) *v1.Session {
	t.Helper()

	// Nothing listens on port 1, so connecting fails fast.
	cluster := gocql.NewCluster("127.0.0.1")
	cluster.Port = 1
	cluster.ConnectTimeout = 200 * time.Millisecond
	cluster.Timeout = 200 * time.Millisecond
	cluster.DisableInitialHostLookup = true

	s, err := v1.NewSession(cluster, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestNewSessionNilCluster(t *testing.T) {
	s, err := v1.NewSession(nil)
	require.ErrorIs(t, err, v1.ErrNilCluster)
	require.Nil(t, s)
}

func TestSessionOptions(t *testing.T) {
	s := newUnconnected(t)
	cfg := s.Config()
	require.Equal(t, v1.DefaultPeerRefreshInterval, cfg.PeerRefreshInterval)
	require.Equal(t, v1.DefaultInitializeTimeout, cfg.InitializeTimeout)
	require.Equal(t, v1.DefaultWarmupQuery, cfg.WarmupQuery)
	require.NotNil(t, cfg.Logger)

	s = newUnconnected(t,
		v1.WithPeerRefreshInterval(0),
		v1.WithInitializeTimeout(time.Second),
		v1.WithWarmupQuery("SELECT release_version FROM system.local"),
		v1.WithLogger(testutil.NewTestLogger(t)),
		// Invalid values are ignored.
		v1.WithInitializeTimeout(-time.Second),
		v1.WithWarmupQuery(""),
		v1.WithLogger(nil),
	)
	cfg = s.Config()
	require.Zero(t, cfg.PeerRefreshInterval)
	require.Equal(t, time.Second, cfg.InitializeTimeout)
	require.Equal(t, "SELECT release_version FROM system.local", cfg.WarmupQuery)
}

func TestSessionUnreachableCluster(t *testing.T) {
	s := newUnconnected(t)

	_, err := s.Connect(t.Context())
	require.Error(t, err)
	require.Empty(t, s.Hosts())
}

func TestSessionConnectHonorsContext(t *testing.T) {
	s := newUnconnected(t)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := s.Connect(ctx)
	require.Error(t, err)
}

func TestSessionBeforeConnect(t *testing.T) {
	s := newUnconnected(t)
	host := testutil.NewHosts(1, "dc1")[0]

	_, err := s.Send(t.Context(), host, &cqlguard.Request{Query: "SELECT * FROM system.local"})
	var reqErr *types.RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, types.KindConnection, reqErr.Kind)
	require.ErrorIs(t, err, v1.ErrNotConnected)

	_, err = s.CompareSchemaVersions(t.Context(), host)
	require.ErrorIs(t, err, v1.ErrNotConnected)

	require.ErrorIs(t, s.Refresh(t.Context()), v1.ErrNotConnected)
	require.ErrorIs(t, s.Pool(host).Warmup(t.Context(), ""), v1.ErrNotConnected)

	err = s.RefreshSchema(t.Context(), types.SchemaChange{Change: "CREATED", Target: "TABLE", Keyspace: "shop", Name: "orders"})
	require.ErrorIs(t, err, v1.ErrNotConnected)

	require.NoError(t, s.Close())
}

func TestSessionRefreshSchemaSkipsDroppedKeyspace(t *testing.T) {
	s := newUnconnected(t)

	require.NoError(t, s.RefreshSchema(t.Context(), types.SchemaChange{Change: "DROPPED", Target: "KEYSPACE", Keyspace: "shop"}))
	require.NoError(t, s.RefreshSchema(t.Context(), types.SchemaChange{Change: "CREATED", Target: "KEYSPACE"}))
}

func TestSessionPools(t *testing.T) {
	s := newUnconnected(t)
	hosts := testutil.NewHosts(2, "dc1")

	a := s.Pool(hosts[0])
	require.Same(t, a, s.Pool(hosts[0]))
	require.NotSame(t, a, s.Pool(hosts[1]))

	require.NoError(t, a.Shutdown(t.Context()))
	require.ErrorIs(t, a.Warmup(t.Context(), ""), v1.ErrPoolShutdown)

	// A pool handed out after shutdown is a new one.
	require.NotSame(t, a, s.Pool(hosts[0]))

	// Background initialization of a pool without a session only logs.
	s.Pool(hosts[1]).Initialize()
}
