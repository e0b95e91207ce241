package cqlguard

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/arloliu/cqlguard/types"
)

// hostEntry is the client's listener state for one host.
type hostEntry struct {
	host types.Host
	up   atomic.Bool
	pool HostPool // guarded by hostRegistry.mu
}

// hostRegistry tracks the hosts the client listens to, in discovery order.
type hostRegistry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*hostEntry
	order   []uuid.UUID
}

func newHostRegistry() *hostRegistry {
	return &hostRegistry{entries: make(map[uuid.UUID]*hostEntry)}
}

// add registers host as up. It returns the entry and whether it was new.
func (r *hostRegistry) add(host types.Host) (*hostEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[host.ID]; ok {
		return e, false
	}

	e := &hostEntry{host: host}
	e.up.Store(true)
	r.entries[host.ID] = e
	r.order = append(r.order, host.ID)

	return e, true
}

// remove detaches a host and hands back its pool, which may be nil.
func (r *hostRegistry) remove(id uuid.UUID) (HostPool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	delete(r.entries, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	pool := e.pool
	e.pool = nil

	return pool, true
}

func (r *hostRegistry) get(id uuid.UUID) (*hostEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]

	return e, ok
}

// all returns every entry in discovery order.
func (r *hostRegistry) all() []*hostEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*hostEntry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id])
	}

	return out
}

// upHosts returns the hosts currently up, in discovery order.
func (r *hostRegistry) upHosts() []types.Host {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.Host, 0, len(r.order))
	for _, id := range r.order {
		if e := r.entries[id]; e.up.Load() {
			out = append(out, e.host)
		}
	}

	return out
}

func (r *hostRegistry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// ensurePool returns the pool of e, asking provider for one on first use.
// created is true when this call made the pool.
func (r *hostRegistry) ensurePool(e *hostEntry, provider PoolProvider) (pool HostPool, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.pool != nil {
		return e.pool, false
	}
	e.pool = provider.Pool(e.host)

	return e.pool, true
}

// takePools returns every created pool and forgets them.
func (r *hostRegistry) takePools() map[types.Host]HostPool {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[types.Host]HostPool)
	for _, e := range r.entries {
		if e.pool != nil {
			out[e.host] = e.pool
			e.pool = nil
		}
	}

	return out
}

// reset forgets every host.
func (r *hostRegistry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[uuid.UUID]*hostEntry)
	r.order = nil
}
