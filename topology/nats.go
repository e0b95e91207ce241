package topology

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/cqlguard"
	"github.com/arloliu/cqlguard/internal/logging"
	"github.com/arloliu/cqlguard/types"
)

// ErrNilKeyValue is returned by NewNATS when no KeyValue store is given.
var ErrNilKeyValue = errors.New("cqlguard/topology: KeyValue store is nil")

// NATS provides cluster membership from a NATS KV bucket.
//
// It reads a HostList JSON document from a configurable key, then watches the
// key and turns every change into host events. A deleted or purged key means
// an empty cluster. A value that does not parse is ignored and the last
// known membership is kept.
//
// The watch runs from NewNATS until Close. Any number of Watch subscriptions
// may be open at once.
type NATS struct {
	kv     jetstream.KeyValue
	config WatcherConfig
	log    types.Logger

	mu      sync.RWMutex
	members *membership
	events  *broadcaster

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

var _ cqlguard.HostProvider = (*NATS)(nil)

// NewNATS creates a NATS KV host provider and loads the current membership.
//
// Parameters:
//   - ctx: Context for the initial fetch
//   - kv: A NATS JetStream KeyValue store
//   - opts: Optional configuration options
//
// Returns:
//   - *NATS: A new provider, already watching the key
//   - error: ErrNilKeyValue, or a failure of the initial fetch other than a missing key
//
// Example:
//
//	nc, _ := nats.Connect("nats://localhost:4222")
//	js, _ := jetstream.New(nc)
//	kv, _ := js.KeyValue(ctx, "cassandra-topology")
//
//	hosts, _ := topology.NewNATS(ctx, kv,
//	    topology.WithKey("prod.hosts"),
//	    topology.WithPollInterval(10*time.Second),
//	)
//	defer hosts.Close()
func NewNATS(ctx context.Context, kv jetstream.KeyValue, opts ...WatcherOption) (*NATS, error) {
	if kv == nil {
		return nil, ErrNilKeyValue
	}

	config := DefaultWatcherConfig()
	for _, opt := range opts {
		opt(&config)
	}

	n := &NATS{
		kv:      kv,
		config:  config,
		log:     logging.With(config.Logger, "component", "topology.nats", "key", config.Key),
		members: newMembership(),
		events:  newBroadcaster(),
		done:    make(chan struct{}),
	}

	if err := n.fetch(ctx); err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	go n.watchLoop(watchCtx)

	return n, nil
}

// Hosts returns the members that are up, in document order.
func (n *NATS) Hosts() []types.Host {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.members.upHosts()
}

// Watch returns a channel that receives host events.
//
// Each call creates an independent subscription that only sees changes made
// after it. The channel is closed when ctx is cancelled or Close is called.
//
// Parameters:
//   - ctx: Context bounding the subscription
//
// Returns:
//   - <-chan types.HostEvent: Channel of topology changes
func (n *NATS) Watch(ctx context.Context) <-chan types.HostEvent {
	return n.events.subscribe(ctx)
}

// Config returns the watcher configuration.
//
// This method is primarily useful for testing to verify configuration options.
//
// Returns:
//   - WatcherConfig: The current watcher configuration
func (n *NATS) Config() WatcherConfig {
	return n.config
}

// Close stops watching the key and closes every subscription.
//
// This method is safe to call multiple times.
func (n *NATS) Close() error {
	n.once.Do(func() {
		n.cancel()
		<-n.done
		n.events.close()
	})

	return nil
}

// watchLoop is the main watch loop that monitors the NATS KV key.
func (n *NATS) watchLoop(ctx context.Context) {
	defer close(n.done)

	watcher, err := n.kv.Watch(ctx, n.config.Key, jetstream.UpdatesOnly())
	if err != nil {
		n.log.Warn("topology watch failed, polling instead", "error", err.Error())
		n.pollLoop(ctx)
		return
	}
	defer func() { _ = watcher.Stop() }()

	// A change between the initial fetch and the watch start would otherwise be missed.
	_ = n.fetch(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-watcher.Updates():
			if !ok {
				n.log.Warn("topology watch closed, polling instead")
				n.pollLoop(ctx)
				return
			}
			if entry == nil {
				continue
			}
			n.processEntry(entry)
		}
	}
}

// pollLoop is a fallback polling loop when watch fails.
func (n *NATS) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(n.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := n.fetch(ctx); err != nil && ctx.Err() == nil {
				n.log.Warn("topology poll failed", "error", err.Error())
			}
		}
	}
}

// fetch reads the current value of the key and applies it.
func (n *NATS) fetch(ctx context.Context) error {
	fetchCtx, cancel := context.WithTimeout(ctx, n.config.InitialFetchTimeout)
	defer cancel()

	entry, err := n.kv.Get(fetchCtx, n.config.Key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		n.apply(newMembership())
		return nil
	}
	if err != nil {
		return fmt.Errorf("cqlguard/topology: fetch %q: %w", n.config.Key, err)
	}

	n.processEntry(entry)

	return nil
}

// processEntry parses a KV entry and applies the membership it describes.
func (n *NATS) processEntry(entry jetstream.KeyValueEntry) {
	if entry.Operation() == jetstream.KeyValueDelete || entry.Operation() == jetstream.KeyValuePurge {
		n.apply(newMembership())
		return
	}

	var list HostList
	if err := json.Unmarshal(entry.Value(), &list); err != nil {
		n.log.Error("ignoring invalid host list", "revision", entry.Revision(), "error", err.Error())
		return
	}

	n.apply(membershipFrom(list))
}

func (n *NATS) apply(next *membership) {
	n.mu.Lock()
	defer n.mu.Unlock()

	events := diff(n.members, next)
	n.members = next
	n.events.publish(events)
}
