// Package testutil provides test utilities and mock implementations for cqlguard testing.
//
// # Mock Implementations
//
// Every collaborator of cqlguard.Client has a scriptable mock:
//
//   - [MockControlConnection]: cqlguard.ControlConnection
//   - [MockHostProvider]: cqlguard.HostProvider, with Emit for topology events
//   - [MockPoolProvider] and [MockPool]: cqlguard.PoolProvider and cqlguard.HostPool
//   - [MockDispatcher]: cqlguard.Dispatcher, recording every attempt
//   - [MockMetadata]: cqlguard.MetadataProvider
//   - [TestMetricsCollector]: types.MetricsCollector with readable counters
//
// [MockCluster] bundles them around a set of hosts:
//
//	cluster := testutil.NewMockCluster(3)
//	cluster.Dispatcher.OnSend = func(ctx context.Context, host types.Host, req *cqlguard.Request) (*types.Result, error) {
//	    return &types.Result{}, nil
//	}
//	client, _ := cluster.NewClient(cqlguard.WithConsistency(types.Quorum))
//
// # Integration Test Helpers
//
//   - NewTopologyBucket: Starts an embedded NATS server and creates a KV bucket
//   - NewTestLogger: A go-kit logger writing to t.Log
//   - StartCassandra: Starts a Cassandra test container (requires Docker)
//   - SkipIfNoIntegration: Skips under -short or SKIP_INTEGRATION_TESTS
package testutil
