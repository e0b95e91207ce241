// Package ring tracks the nodes a CQL driver session discovers from
// system.local and system.peers.
package ring

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arloliu/cqlguard/topology"
	"github.com/arloliu/cqlguard/types"
)

// DefaultPort is the native protocol port used when the cluster config has none.
const DefaultPort = 9042

// Ring is the membership of a driver session.
//
// It embeds a topology.Local, so Hosts, Watch and IsUp serve the client
// directly, and Sync turns each discovery into host events.
type Ring struct {
	*topology.Local

	mu       sync.Mutex
	known    map[uuid.UUID]types.Host
	onRemove func(id uuid.UUID)
}

// New creates an empty ring. onRemove, if not nil, is called for every host
// that disappears from a discovery.
func New(onRemove func(id uuid.UUID)) *Ring {
	return &Ring{
		Local:    topology.NewLocal(),
		known:    make(map[uuid.UUID]types.Host),
		onRemove: onRemove,
	}
}

// Sync reconciles the ring with a fresh discovery. New and changed hosts
// are added, hosts missing from discovered are removed.
func (r *Ring) Sync(discovered []types.Host) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[uuid.UUID]struct{}, len(discovered))
	for _, h := range discovered {
		seen[h.ID] = struct{}{}
		if prev, ok := r.known[h.ID]; ok && prev == h {
			continue
		}
		r.known[h.ID] = h
		r.AddHost(h)
	}

	for id := range r.known {
		if _, ok := seen[id]; ok {
			continue
		}
		delete(r.known, id)
		r.RemoveHost(id)
		if r.onRemove != nil {
			r.onRemove(id)
		}
	}
}

// NewHost builds a host from a system.local or system.peers row.
//
// rpc is the address clients connect to; fallback (broadcast_address or
// peer) is used when rpc is missing or unspecified.
//
// Parameters:
//   - id: host_id column
//   - rpc: rpc_address column
//   - fallback: Address used when rpc is unusable
//   - port: Native protocol port, DefaultPort when not positive
//   - dc: data_center column
//   - rack: rack column
//
// Returns:
//   - types.Host: The host
func NewHost(id [16]byte, rpc, fallback net.IP, port int, dc, rack string) types.Host {
	if rpc == nil || rpc.IsUnspecified() {
		rpc = fallback
	}
	if port <= 0 {
		port = DefaultPort
	}

	return types.Host{
		ID:         uuid.UUID(id),
		Address:    net.JoinHostPort(rpc.String(), strconv.Itoa(port)),
		Datacenter: dc,
		Rack:       rack,
	}
}

// StartRefresh calls refresh every interval in a new goroutine.
//
// Failures are logged unless the loop is being stopped. The returned
// function stops the loop and waits for it to exit. A non-positive interval
// starts nothing.
//
// Parameters:
//   - interval: Time between refreshes
//   - refresh: Re-reads the peer list
//   - log: Receives refresh failures
//
// Returns:
//   - func(): Stops the loop
func StartRefresh(interval time.Duration, refresh func(context.Context) error, log types.Logger) func() {
	if interval <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := refresh(ctx); err != nil && ctx.Err() == nil {
					log.Warn("peer refresh failed", "error", err.Error())
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
