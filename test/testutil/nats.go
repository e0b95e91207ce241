package testutil

import (
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
)

// natsReadyTimeout bounds how long the embedded server may take to accept clients.
const natsReadyTimeout = 5 * time.Second

// NewTopologyBucket starts an in-process NATS server with JetStream and
// creates a key-value bucket for publishing host lists.
//
// The server listens on a random loopback port and keeps its JetStream
// state under t.TempDir(). The bucket keeps a short history so tests can
// observe the revisions a watcher receives. Server and connection are torn
// down when the test completes.
//
// Parameters:
//   - t: The testing context
//   - bucket: Name of the key-value bucket to create
//
// Returns:
//   - jetstream.KeyValue: The empty bucket
func NewTopologyBucket(t *testing.T, bucket string) jetstream.KeyValue {
	t.Helper()

	ns, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      server.RANDOM_PORT,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoSigs:    true,
	})
	require.NoError(t, err, "create nats server")

	ns.Start()
	t.Cleanup(ns.Shutdown)
	if !ns.ReadyForConnections(natsReadyTimeout) {
		t.Fatalf("nats server not ready after %s", natsReadyTimeout)
	}

	nc, err := nats.Connect(ns.ClientURL(), nats.Name(t.Name()))
	require.NoError(t, err, "connect to nats server")
	t.Cleanup(nc.Close)

	js, err := jetstream.New(nc)
	require.NoError(t, err, "create jetstream context")

	kv, err := js.CreateKeyValue(t.Context(), jetstream.KeyValueConfig{
		Bucket:  bucket,
		History: 5,
	})
	require.NoError(t, err, "create bucket %q", bucket)

	return kv
}
