package v2

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	gocql "github.com/apache/cassandra-gocql-driver/v2"

	"github.com/arloliu/cqlguard/types"
)

// ErrPoolShutdown is returned by Warmup after the pool was shut down.
var ErrPoolShutdown = errors.New("cqlguard/gocql/v2: pool has been shut down")

// hostPool is a handle on the connections the driver keeps for one host.
// The driver owns the sockets; a pinned query makes it open them.
type hostPool struct {
	session *Session
	host    types.Host

	initOnce sync.Once
	shutdown atomic.Bool
}

func (p *hostPool) Warmup(ctx context.Context, keyspace string) error {
	if p.shutdown.Load() {
		return ErrPoolShutdown
	}

	sess, err := p.session.current()
	if err != nil {
		return err
	}

	q := pinned(sess, p.host, p.session.config.WarmupQuery).Consistency(gocql.One)
	if err := q.ExecContext(ctx); err != nil {
		return fmt.Errorf("cqlguard/gocql/v2: warm up %s: %w", p.host.Address, Classify(err))
	}

	if keyspace != "" && keyspace != p.session.cluster.Keyspace {
		if _, err := sess.KeyspaceMetadata(keyspace); err != nil {
			return fmt.Errorf("cqlguard/gocql/v2: keyspace %q: %w", keyspace, err)
		}
	}

	return nil
}

func (p *hostPool) Initialize() {
	p.initOnce.Do(func() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), p.session.config.InitializeTimeout)
			defer cancel()

			if err := p.Warmup(ctx, ""); err != nil && !errors.Is(err, ErrPoolShutdown) {
				p.session.log.Debug("pool initialization failed", "host", p.host.String(), "error", err.Error())
			}
		}()
	})
}

func (p *hostPool) Shutdown(_ context.Context) error {
	p.shutdown.Store(true)
	p.session.pools.Delete(p.host.ID)

	return nil
}
