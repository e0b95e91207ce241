package cqlguard_test

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/arloliu/cqlguard/policy"
	"github.com/arloliu/cqlguard/types"
)

// orderedPolicy rates hosts from a fixed table and plans them in lister order.
type orderedPolicy struct {
	mu        sync.RWMutex
	lister    policy.HostLister
	distances map[uuid.UUID]types.Distance
	fallback  types.Distance

	inits         atomic.Int32
	distanceCalls atomic.Int32
}

func newOrderedPolicy(fallback types.Distance) *orderedPolicy {
	return &orderedPolicy{distances: make(map[uuid.UUID]types.Distance), fallback: fallback}
}

func (p *orderedPolicy) rate(id uuid.UUID, d types.Distance) *orderedPolicy {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.distances[id] = d

	return p
}

func (p *orderedPolicy) Init(hosts policy.HostLister) error {
	p.inits.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lister = hosts

	return nil
}

func (p *orderedPolicy) Distance(host types.Host) types.Distance {
	p.distanceCalls.Add(1)
	p.mu.RLock()
	defer p.mu.RUnlock()
	if d, ok := p.distances[host.ID]; ok {
		return d
	}

	return p.fallback
}

func (p *orderedPolicy) NewQueryPlan(_ string, _ types.OperationInfo) []types.Host {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.lister == nil {
		return nil
	}

	return p.lister.Hosts()
}

// downgradingPolicy retries unavailable errors once on the same host at ONE.
type downgradingPolicy struct {
	policy.FallthroughRetryPolicy
}

func (downgradingPolicy) OnUnavailable(info types.OperationInfo, _ types.Consistency, _, _ int) types.Decision {
	if info.AttemptCount > 0 {
		return types.RethrowDecision()
	}
	one := types.One

	return types.RetryDecision(&one, true)
}
