package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/grafana/dskit/backoff"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/cassandra"
)

const (
	// DefaultCassandraImage is the image StartCassandra runs unless overridden.
	DefaultCassandraImage = "cassandra:4.1"
	// DefaultTestKeyspace is the keyspace StartCassandra creates unless overridden.
	DefaultTestKeyspace = "cqlguard_test"
)

// CassandraContainer is a running single-node Cassandra with a test keyspace.
type CassandraContainer struct {
	Container *cassandra.CassandraContainer
	Host      string
	Keyspace  string
}

type cassandraSettings struct {
	image    string
	keyspace string
	ready    backoff.Config
}

// CassandraOption customizes StartCassandra.
type CassandraOption func(*cassandraSettings)

// WithCassandraImage runs a different Cassandra image.
func WithCassandraImage(image string) CassandraOption {
	return func(s *cassandraSettings) {
		if image != "" {
			s.image = image
		}
	}
}

// WithTestKeyspace creates and uses a different keyspace.
func WithTestKeyspace(keyspace string) CassandraOption {
	return func(s *cassandraSettings) {
		if keyspace != "" {
			s.keyspace = keyspace
		}
	}
}

// SkipIfNoIntegration skips t under -short or when SKIP_INTEGRATION_TESTS is set.
func SkipIfNoIntegration(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv("SKIP_INTEGRATION_TESTS") != "" {
		t.Skip("skipping integration test: SKIP_INTEGRATION_TESTS is set")
	}
}

// StartCassandra runs a Cassandra container, waits until it serves CQL and
// creates the test keyspace with replication factor 1.
//
// The container is terminated when the test completes.
//
// Parameters:
//   - ctx: Context for container operations
//   - t: Testing context for cleanup registration
//   - opts: Image and keyspace overrides
//
// Returns:
//   - *CassandraContainer: Container with connection details
//   - error: Error if the container does not start or never becomes ready
func StartCassandra(ctx context.Context, t *testing.T, opts ...CassandraOption) (*CassandraContainer, error) {
	t.Helper()

	settings := cassandraSettings{
		image:    DefaultCassandraImage,
		keyspace: DefaultTestKeyspace,
		ready:    backoff.Config{MinBackoff: time.Second, MaxBackoff: 5 * time.Second, MaxRetries: 10},
	}
	for _, opt := range opts {
		opt(&settings)
	}

	// A small heap keeps the node inside CI memory limits.
	container, err := cassandra.Run(ctx, settings.image,
		testcontainers.WithEnv(map[string]string{
			"MAX_HEAP_SIZE":    "512M",
			"HEAP_NEWSIZE":     "128M",
			"CASSANDRA_SNITCH": "SimpleSnitch",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("run cassandra %s: %w", settings.image, err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate cassandra container: %v", err)
		}
	})

	host, err := container.ConnectionHost(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve cassandra host: %w", err)
	}

	c := &CassandraContainer{Container: container, Host: host, Keyspace: settings.keyspace}

	session, err := c.waitReady(ctx, t, settings.ready)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	stmt := fmt.Sprintf("CREATE KEYSPACE IF NOT EXISTS %s "+
		"WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}", settings.keyspace)
	if err := session.Query(stmt).WithContext(ctx).Exec(); err != nil {
		return nil, fmt.Errorf("create keyspace %s: %w", settings.keyspace, err)
	}

	return c, nil
}

// waitReady opens a session on the system keyspace, retrying while the node
// is still bootstrapping.
func (c *CassandraContainer) waitReady(ctx context.Context, t *testing.T, cfg backoff.Config) (*gocql.Session, error) {
	cluster := c.Cluster()
	cluster.Keyspace = "system"

	var lastErr error
	b := backoff.New(ctx, cfg)
	for b.Ongoing() {
		session, err := cluster.CreateSession()
		if err == nil {
			return session, nil
		}
		lastErr = err
		t.Logf("cassandra not ready (attempt %d): %v", b.NumRetries()+1, err)
		b.Wait()
	}

	return nil, fmt.Errorf("cassandra not ready after %d attempts: %w", b.NumRetries(), lastErr)
}

// Cluster returns a gocql cluster config pointing at the container's test keyspace.
func (c *CassandraContainer) Cluster() *gocql.ClusterConfig {
	cluster := gocql.NewCluster(c.Host)
	cluster.Keyspace = c.Keyspace
	cluster.Consistency = gocql.One
	cluster.Timeout = 30 * time.Second
	cluster.ConnectTimeout = 30 * time.Second

	return cluster
}
