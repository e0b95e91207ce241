package v2

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	gocql "github.com/apache/cassandra-gocql-driver/v2"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/cqlguard"
	"github.com/arloliu/cqlguard/adapter/cql/internal/ring"
	"github.com/arloliu/cqlguard/internal/logging"
	"github.com/arloliu/cqlguard/types"
)

var (
	// ErrNilCluster is returned by NewSession when no cluster config is given.
	ErrNilCluster = errors.New("cqlguard/gocql/v2: cluster config cannot be nil")

	// ErrNotConnected is returned when the session is used before Connect.
	ErrNotConnected = errors.New("cqlguard/gocql/v2: session is not connected")

	// ErrAlreadyConnected is returned by Connect on a connected session.
	ErrAlreadyConnected = errors.New("cqlguard/gocql/v2: session already connected")
)

const (
	localQuery = `SELECT host_id, rpc_address, broadcast_address, data_center, rack FROM system.local WHERE key='local'`
	peersQuery = `SELECT host_id, rpc_address, peer, data_center, rack FROM system.peers`
)

// Session adapts a cluster reached through the Apache Cassandra Go driver
// to every collaborator interface of cqlguard.Client.
//
// The same value is passed as control connection, host provider, pool
// provider, dispatcher and metadata provider:
//
//	s, _ := v2.NewSession(gocql.NewCluster("10.0.0.1"))
//	client, _ := cqlguard.NewClient(s, s, s, s, s)
//
// Every query runs through the driver's context-aware calls (ExecContext,
// IterContext, ScanContext), is pinned to the host chosen by the client and
// has driver retries disabled.
type Session struct {
	cluster *gocql.ClusterConfig
	config  Config
	log     types.Logger

	mu          sync.RWMutex
	session     *gocql.Session
	stopRefresh func()

	hosts *ring.Ring
	pools *xsync.MapOf[uuid.UUID, *hostPool]
}

var (
	_ cqlguard.ControlConnection = (*Session)(nil)
	_ cqlguard.HostProvider      = (*Session)(nil)
	_ cqlguard.PoolProvider      = (*Session)(nil)
	_ cqlguard.Dispatcher        = (*Session)(nil)
	_ cqlguard.MetadataProvider  = (*Session)(nil)
)

// NewSession creates an adapter for the given cluster.
//
// The driver session is only created by Connect, and again by a Connect
// after Close.
//
// Parameters:
//   - cluster: Driver cluster configuration
//   - opts: Optional adapter options
//
// Returns:
//   - *Session: A new, unconnected adapter
//   - error: ErrNilCluster if cluster is nil
func NewSession(cluster *gocql.ClusterConfig, opts ...Option) (*Session, error) {
	if cluster == nil {
		return nil, ErrNilCluster
	}

	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	s := &Session{
		cluster: cluster,
		config:  config,
		log:     logging.With(config.Logger, "component", "cql/v2"),
		pools:   xsync.NewMapOf[uuid.UUID, *hostPool](),
	}
	s.hosts = ring.New(func(id uuid.UUID) { s.pools.Delete(id) })

	return s, nil
}

// Config returns the adapter configuration.
func (s *Session) Config() Config {
	return s.config
}

// Unwrap returns the driver session, or nil before Connect.
//
// It gives access to driver features cqlguard does not cover, such as
// batches or prepared statement metadata.
func (s *Session) Unwrap() *gocql.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.session
}

// Connect creates the driver session and returns the node it is connected to.
//
// Parameters:
//   - ctx: Bounds session creation and the initial topology queries
//
// Returns:
//   - types.Host: The node that answered system.local
//   - error: Session creation or topology query failure, or ErrAlreadyConnected
func (s *Session) Connect(ctx context.Context) (types.Host, error) {
	if s.Unwrap() != nil {
		return types.Host{}, ErrAlreadyConnected
	}

	sess, err := s.createSession(ctx)
	if err != nil {
		return types.Host{}, err
	}

	local, peers, err := s.discover(ctx, sess)
	if err != nil {
		sess.Close()
		return types.Host{}, err
	}

	s.mu.Lock()
	if s.session != nil {
		s.mu.Unlock()
		sess.Close()

		return types.Host{}, ErrAlreadyConnected
	}
	s.session = sess
	s.mu.Unlock()

	s.hosts.Sync(append([]types.Host{local}, peers...))

	stop := ring.StartRefresh(s.config.PeerRefreshInterval, s.Refresh, s.log)
	s.mu.Lock()
	if s.session == sess {
		s.stopRefresh, stop = stop, nil
	}
	s.mu.Unlock()
	if stop != nil {
		// closed while connecting
		stop()
	}

	s.log.Info("driver session connected", "host", local.String(), "peers", len(peers))

	return local, nil
}

// createSession runs the driver's blocking CreateSession under ctx. A
// session that arrives after ctx ended is closed.
func (s *Session) createSession(ctx context.Context) (*gocql.Session, error) {
	type created struct {
		session *gocql.Session
		err     error
	}

	ch := make(chan created, 1)
	go func() {
		sess, err := s.cluster.CreateSession()
		ch <- created{session: sess, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("cqlguard/gocql/v2: create session: %w", r.err)
		}

		return r.session, nil
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.session != nil {
				r.session.Close()
			}
		}()

		return nil, ctx.Err()
	}
}

// Close stops the peer refresh loop and closes the driver session.
//
// Watch subscriptions stay open so that a later Connect can resume them.
func (s *Session) Close() error {
	s.mu.Lock()
	sess, stop := s.session, s.stopRefresh
	s.session, s.stopRefresh = nil, nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	if sess != nil {
		sess.Close()
	}

	return nil
}

// Hosts returns the nodes discovered from system.local and system.peers.
func (s *Session) Hosts() []types.Host {
	return s.hosts.Hosts()
}

// Watch returns a channel of topology changes detected by the peer refresh.
func (s *Session) Watch(ctx context.Context) <-chan types.HostEvent {
	return s.hosts.Watch(ctx)
}

// Pool returns the pool handle of host.
func (s *Session) Pool(host types.Host) cqlguard.HostPool {
	pool, _ := s.pools.LoadOrCompute(host.ID, func() *hostPool {
		return &hostPool{session: s, host: host}
	})

	return pool
}

// Refresh re-reads the peer list immediately.
//
// Parameters:
//   - ctx: Bounds the topology queries
//
// Returns:
//   - error: ErrNotConnected, or a query failure
func (s *Session) Refresh(ctx context.Context) error {
	sess, err := s.current()
	if err != nil {
		return err
	}

	local, peers, err := s.discover(ctx, sess)
	if err != nil {
		return err
	}
	s.hosts.Sync(append([]types.Host{local}, peers...))

	return nil
}

func (s *Session) current() (*gocql.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil || s.session.Closed() {
		return nil, ErrNotConnected
	}

	return s.session, nil
}

func (s *Session) discover(ctx context.Context, sess *gocql.Session) (types.Host, []types.Host, error) {
	var (
		id               gocql.UUID
		rpc, bcast, peer net.IP
		dc, rack         string
	)

	err := sess.Query(localQuery).Consistency(gocql.One).ScanContext(ctx, &id, &rpc, &bcast, &dc, &rack)
	if err != nil {
		return types.Host{}, nil, fmt.Errorf("cqlguard/gocql/v2: read system.local: %w", err)
	}
	local := ring.NewHost(id, rpc, bcast, s.cluster.Port, dc, rack)

	var peers []types.Host
	iter := sess.Query(peersQuery).Consistency(gocql.One).IterContext(ctx)
	for iter.Scan(&id, &rpc, &peer, &dc, &rack) {
		if id == (gocql.UUID{}) {
			continue
		}
		peers = append(peers, ring.NewHost(id, rpc, peer, s.cluster.Port, dc, rack))
	}
	if err := iter.Close(); err != nil {
		return types.Host{}, nil, fmt.Errorf("cqlguard/gocql/v2: read system.peers: %w", err)
	}

	return local, peers, nil
}
