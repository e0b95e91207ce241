package policy

import (
	"sync/atomic"
	"time"

	"github.com/arloliu/cqlguard/types"
)

// SpeculativeExecutionPolicy produces a fresh schedule of speculative
// executions for every operation.
type SpeculativeExecutionPolicy interface {
	// NewPlan returns the schedule for one operation. The plan is owned by
	// that operation and never shared.
	NewPlan(keyspace, query string) SpeculativePlan
}

// SpeculativePlan yields the delays between speculative executions.
type SpeculativePlan interface {
	// NextExecution returns the delay before the next speculative execution,
	// or false when no more executions should be started. Once it returns
	// false it keeps returning false.
	NextExecution() (time.Duration, bool)
}

// NoSpeculativeExecution never starts a speculative execution.
type NoSpeculativeExecution struct{}

// Compile-time assertion that NoSpeculativeExecution implements SpeculativeExecutionPolicy.
var _ SpeculativeExecutionPolicy = (*NoSpeculativeExecution)(nil)

// NewNoSpeculativeExecution creates the policy that never speculates.
func NewNoSpeculativeExecution() *NoSpeculativeExecution {
	return &NoSpeculativeExecution{}
}

// NewPlan returns a plan that immediately stops.
func (p *NoSpeculativeExecution) NewPlan(_, _ string) SpeculativePlan {
	return noPlan{}
}

type noPlan struct{}

func (noPlan) NextExecution() (time.Duration, bool) {
	return 0, false
}

// ConstantSpeculativeExecution starts up to maxExecutions speculative
// executions, each delay after the previous one.
type ConstantSpeculativeExecution struct {
	delay         time.Duration
	maxExecutions int
}

// Compile-time assertion that ConstantSpeculativeExecution implements SpeculativeExecutionPolicy.
var _ SpeculativeExecutionPolicy = (*ConstantSpeculativeExecution)(nil)

// NewConstantSpeculativeExecution creates a constant-delay speculative execution policy.
//
// Parameters:
//   - delay: Delay before each speculative execution, must not be negative
//   - maxExecutions: Number of speculative executions per operation, must be positive
//
// Returns:
//   - *ConstantSpeculativeExecution: The policy
//   - error: types.ErrInvalidSpeculativeDelay or types.ErrInvalidSpeculativeMax
func NewConstantSpeculativeExecution(delay time.Duration, maxExecutions int) (*ConstantSpeculativeExecution, error) {
	if delay < 0 {
		return nil, types.ErrInvalidSpeculativeDelay
	}
	if maxExecutions <= 0 {
		return nil, types.ErrInvalidSpeculativeMax
	}

	return &ConstantSpeculativeExecution{delay: delay, maxExecutions: maxExecutions}, nil
}

// Delay returns the configured delay.
func (p *ConstantSpeculativeExecution) Delay() time.Duration {
	return p.delay
}

// MaxExecutions returns the configured number of speculative executions.
func (p *ConstantSpeculativeExecution) MaxExecutions() int {
	return p.maxExecutions
}

// NewPlan returns a plan that yields the delay maxExecutions times.
func (p *ConstantSpeculativeExecution) NewPlan(_, _ string) SpeculativePlan {
	return &constantPlan{delay: p.delay, remaining: int64(p.maxExecutions)}
}

type constantPlan struct {
	delay     time.Duration
	remaining int64
}

func (p *constantPlan) NextExecution() (time.Duration, bool) {
	if atomic.AddInt64(&p.remaining, -1) < 0 {
		// Keep the counter from drifting on repeated calls after exhaustion.
		atomic.StoreInt64(&p.remaining, -1)
		return 0, false
	}

	return p.delay, true
}
