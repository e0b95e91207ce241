package integration_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/cqlguard"
	v1 "github.com/arloliu/cqlguard/adapter/cql/v1"
	"github.com/arloliu/cqlguard/contrib/metrics/vm"
	"github.com/arloliu/cqlguard/policy"
	"github.com/arloliu/cqlguard/test/testutil"
	"github.com/arloliu/cqlguard/types"
)

func TestCassandraEndToEnd(t *testing.T) {
	testutil.SkipIfNoIntegration(t)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Minute)
	defer cancel()

	container, err := testutil.StartCassandra(ctx, t)
	require.NoError(t, err)

	session, err := v1.NewSession(container.Cluster(), v1.WithPeerRefreshInterval(time.Second))
	require.NoError(t, err)

	collector := vm.New(vm.WithPrefix("cqlguard_it"))
	client, err := cqlguard.NewClient(session, session, session, session, session,
		cqlguard.WithKeyspace(container.Keyspace),
		cqlguard.WithConsistency(types.One),
		cqlguard.WithMetrics(collector),
		cqlguard.WithProfiles(
			cqlguard.NewExecutionProfile("strict",
				cqlguard.WithProfileConsistency(types.All),
				cqlguard.WithProfileRetryPolicy(policy.NewFallthroughRetryPolicy()),
			),
		),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, client.Shutdown(context.Background())) }()

	require.NoError(t, client.Connect(ctx))
	require.Equal(t, types.StateConnected, client.State())
	require.NoError(t, client.WarmupErrors())

	controlHost, distance, ok := client.ControlHost()
	require.True(t, ok)
	require.Equal(t, types.DistanceLocal, distance)
	require.Len(t, client.Hosts(), 1)
	require.Equal(t, controlHost.ID, client.Hosts()[0].ID)

	t.Run("schema change waits for agreement", func(t *testing.T) {
		rs, err := client.Execute(ctx,
			"CREATE TABLE IF NOT EXISTS orders (id int PRIMARY KEY, total int)", nil)
		require.NoError(t, err)
		require.NotNil(t, rs.SchemaChange)
		require.Equal(t, "orders", rs.SchemaChange.Name)
		require.True(t, rs.Info.SchemaInAgreement)

		agreed, err := client.CheckSchemaAgreement(ctx)
		require.NoError(t, err)
		require.True(t, agreed)
	})

	t.Run("read and write", func(t *testing.T) {
		for i := range 5 {
			_, err := client.Execute(ctx, "INSERT INTO orders (id, total) VALUES (?, ?)", []any{i, i * 10},
				cqlguard.WithIdempotent(true))
			require.NoError(t, err)
		}

		rs, err := client.Execute(ctx, "SELECT id, total FROM orders WHERE id = ?", []any{3})
		require.NoError(t, err)
		require.Len(t, rs.Rows, 1)
		require.EqualValues(t, 30, rs.Rows[0]["total"])
		require.Equal(t, controlHost.ID, rs.Info.QueriedHost.ID)
		require.Equal(t, 1, rs.Info.Attempts)
		require.Equal(t, types.One, rs.Info.AchievedConsistency)
	})

	t.Run("paging", func(t *testing.T) {
		rs, err := client.Execute(ctx, "SELECT id FROM orders", nil, cqlguard.WithPageSize(2))
		require.NoError(t, err)
		require.Len(t, rs.Rows, 2)
		require.NotEmpty(t, rs.PageState)

		next, err := client.Execute(ctx, "SELECT id FROM orders", nil,
			cqlguard.WithPageSize(2), cqlguard.WithPageState(rs.PageState))
		require.NoError(t, err)
		require.Len(t, next.Rows, 2)
	})

	t.Run("unsatisfiable consistency is rethrown", func(t *testing.T) {
		// A single node cannot serve THREE.
		_, err := client.Execute(ctx, "SELECT id FROM orders WHERE id = ?", []any{1},
			cqlguard.WithProfile("strict"), cqlguard.WithExecConsistency(types.Three))

		var unavailable *types.UnavailableError
		require.ErrorAs(t, err, &unavailable)

		var execErr *types.ExecutionError
		require.ErrorAs(t, err, &execErr)
	})

	t.Run("syntax errors are not retried", func(t *testing.T) {
		_, err := client.Execute(ctx, "SELEC id FROM orders", nil, cqlguard.WithProfile("strict"))
		require.Error(t, err)
		require.Empty(t, types.ErrorCategory(err))

		var execErr *types.ExecutionError
		require.False(t, errors.As(err, &execErr))
	})

	t.Run("dropping the table", func(t *testing.T) {
		rs, err := client.Execute(ctx, "DROP TABLE orders", nil)
		require.NoError(t, err)
		require.Equal(t, "DROPPED", rs.SchemaChange.Change)
	})
}
