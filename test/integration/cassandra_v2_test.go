package integration_test

import (
	"context"
	"testing"
	"time"

	gocql "github.com/apache/cassandra-gocql-driver/v2"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/cqlguard"
	v2 "github.com/arloliu/cqlguard/adapter/cql/v2"
	"github.com/arloliu/cqlguard/policy"
	"github.com/arloliu/cqlguard/test/testutil"
	"github.com/arloliu/cqlguard/types"
)

func TestCassandraApacheDriver(t *testing.T) {
	testutil.SkipIfNoIntegration(t)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Minute)
	defer cancel()

	container, err := testutil.StartCassandra(ctx, t, testutil.WithTestKeyspace("cqlguard_v2"))
	require.NoError(t, err)

	cluster := gocql.NewCluster(container.Host)
	cluster.Keyspace = container.Keyspace
	cluster.Timeout = 30 * time.Second
	cluster.ConnectTimeout = 30 * time.Second

	session, err := v2.NewSession(cluster, v2.WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)

	client, err := cqlguard.NewClient(session, session, session, session, session,
		cqlguard.WithKeyspace(container.Keyspace),
		cqlguard.WithConsistency(types.One),
		cqlguard.WithProfiles(
			cqlguard.NewExecutionProfile("strict",
				cqlguard.WithProfileConsistency(types.Three),
				cqlguard.WithProfileRetryPolicy(policy.NewFallthroughRetryPolicy()),
			),
		),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, client.Shutdown(context.Background())) }()

	require.NoError(t, client.Connect(ctx))
	require.NotNil(t, session.Unwrap())
	require.Len(t, client.Hosts(), 1)

	rs, err := client.Execute(ctx, "CREATE TABLE IF NOT EXISTS accounts (id int PRIMARY KEY, owner text)", nil)
	require.NoError(t, err)
	require.NotNil(t, rs.SchemaChange)
	require.True(t, rs.Info.SchemaInAgreement)

	_, err = client.Execute(ctx, "INSERT INTO accounts (id, owner) VALUES (?, ?)", []any{1, "ada"},
		cqlguard.WithIdempotent(true))
	require.NoError(t, err)

	rs, err = client.Execute(ctx, "SELECT owner FROM accounts WHERE id = ?", []any{1})
	require.NoError(t, err)
	require.Len(t, rs.Rows, 1)
	require.Equal(t, "ada", rs.Rows[0]["owner"])

	_, err = client.Execute(ctx, "SELECT owner FROM accounts", nil, cqlguard.WithProfile("strict"))
	var unavailable *types.UnavailableError
	require.ErrorAs(t, err, &unavailable)
}
