package v1

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gocql/gocql"

	"github.com/arloliu/cqlguard/types"
)

// ErrPoolShutdown is returned by Warmup after the pool was shut down.
var ErrPoolShutdown = errors.New("cqlguard/gocql: pool has been shut down")

// hostPool is a handle on the connections gocql keeps for one host.
//
// gocql owns the sockets; warming up means sending a pinned query so the
// driver has to open them, and shutting down stops this handle from being
// used again.
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

	q := sess.Query(p.session.config.WarmupQuery).
		WithContext(ctx).
		Consistency(gocql.One).
		RetryPolicy(noRetry).
		SetHostID(p.host.ID.String())
	defer q.Release()

	if err := q.Exec(); err != nil {
		return fmt.Errorf("cqlguard/gocql: warm up %s: %w", p.host.Address, Classify(err))
	}

	if keyspace != "" && keyspace != p.session.cluster.Keyspace {
		if _, err := sess.KeyspaceMetadata(keyspace); err != nil {
			return fmt.Errorf("cqlguard/gocql: keyspace %q: %w", keyspace, err)
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
				p.session.log.Debug("pool initialization failed",
					"host", p.host.String(), "error", err.Error())
			}
		}()
	})
}

func (p *hostPool) Shutdown(_ context.Context) error {
	p.shutdown.Store(true)
	p.session.pools.Delete(p.host.ID)

	return nil
}
