package v1

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/cqlguard"
	"github.com/arloliu/cqlguard/adapter/cql/internal/ring"
	"github.com/arloliu/cqlguard/internal/logging"
	"github.com/arloliu/cqlguard/types"
)

var (
	// ErrNilCluster is returned by NewSession when no cluster config is given.
	ErrNilCluster = errors.New("cqlguard/gocql: cluster config cannot be nil")

	// ErrNotConnected is returned when the session is used before Connect.
	ErrNotConnected = errors.New("cqlguard/gocql: session is not connected")
)

// Session adapts a gocql cluster to every collaborator interface of
// cqlguard.Client.
//
// The same value is passed as control connection, host provider, pool
// provider, dispatcher and metadata provider:
//
//	s, _ := v1.NewSession(gocql.NewCluster("10.0.0.1"))
//	client, _ := cqlguard.NewClient(s, s, s, s, s)
//
// Each attempt is pinned to the host chosen by the client and gocql's own
// retry policy is disabled, so retries are decided by cqlguard only.
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
// The gocql session is only created by Connect.
//
// Parameters:
//   - cluster: gocql cluster configuration
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
		log:     logging.With(config.Logger, "component", "cql/v1"),
		pools:   xsync.NewMapOf[uuid.UUID, *hostPool](),
	}
	s.hosts = ring.New(func(id uuid.UUID) { s.pools.Delete(id) })

	return s, nil
}

// Config returns the adapter configuration.
func (s *Session) Config() Config {
	return s.config
}

// Connect creates the gocql session and returns the node it is connected to.
//
// The peer list is read once before returning and then refreshed every
// PeerRefreshInterval until Close.
//
// Parameters:
//   - ctx: Bounds session creation and the initial topology queries
//
// Returns:
//   - types.Host: The node that answered system.local
//   - error: Session creation or topology query failure
func (s *Session) Connect(ctx context.Context) (types.Host, error) {
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

		return types.Host{}, errors.New("cqlguard/gocql: session already connected")
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

	s.log.Info("gocql session connected", "host", local.String(), "peers", len(peers))

	return local, nil
}

// createSession runs gocql's blocking CreateSession under ctx.
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
			return nil, fmt.Errorf("cqlguard/gocql: create session: %w", r.err)
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

// Close stops the peer refresh loop and closes the gocql session.
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
//
// Parameters:
//   - ctx: Context bounding the subscription
//
// Returns:
//   - <-chan types.HostEvent: Channel of topology changes
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

// discover reads the connected node from system.local and the rest of the
// ring from system.peers.
func (s *Session) discover(ctx context.Context, sess *gocql.Session) (types.Host, []types.Host, error) {
	var (
		id          gocql.UUID
		rpc, bcast  net.IP
		dc, rack    string
		peers       []types.Host
		port        = s.cluster.Port
		localRecord = `SELECT host_id, rpc_address, broadcast_address, data_center, rack FROM system.local WHERE key='local'`
	)

	err := sess.Query(localRecord).WithContext(ctx).Consistency(gocql.One).Scan(&id, &rpc, &bcast, &dc, &rack)
	if err != nil {
		return types.Host{}, nil, fmt.Errorf("cqlguard/gocql: read system.local: %w", err)
	}
	local := ring.NewHost(id, rpc, bcast, port, dc, rack)

	iter := sess.Query(`SELECT host_id, rpc_address, peer, data_center, rack FROM system.peers`).
		WithContext(ctx).Consistency(gocql.One).Iter()

	var peer net.IP
	for iter.Scan(&id, &rpc, &peer, &dc, &rack) {
		if id == (gocql.UUID{}) {
			continue
		}
		peers = append(peers, ring.NewHost(id, rpc, peer, port, dc, rack))
	}
	if err := iter.Close(); err != nil {
		return types.Host{}, nil, fmt.Errorf("cqlguard/gocql: read system.peers: %w", err)
	}

	return local, peers, nil
}
