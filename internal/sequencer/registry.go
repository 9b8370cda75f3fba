package sequencer

import (
	"context"
	"sync"
	"time"

	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/pkg/logger"
	"github.com/okian/cadence/pkg/metrics"
)

// registryShutdownTimeout bounds how long Shutdown waits per machine.
const registryShutdownTimeout = 5 * time.Second

// Registry owns one machine per account id and dispatches engagement
// events to them. Event order per account is preserved by the machine's
// FIFO queue; machines for different accounts run fully concurrently.
type Registry struct {
	mu       sync.RWMutex
	machines map[string]*Machine

	deps Deps
	opts []Option

	logger logger.Logger
}

// NewRegistry creates a registry that builds machines with deps and opts.
func NewRegistry(deps Deps, opts ...Option) *Registry {
	if deps.Logger == nil {
		deps.Logger = logger.Get().Named("sequencer")
	}
	return &Registry{
		machines: make(map[string]*Machine),
		deps:     deps,
		opts:     opts,
		logger:   deps.Logger,
	}
}

// Start creates and runs a machine for the plan's account. A second start
// while the account's sequence is non-terminal is rejected with
// ErrAlreadyActive.
func (r *Registry) Start(ctx context.Context, plan model.TouchpointPlan, profile model.AccountProfile) (*Machine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.machines[plan.AccountID]; ok && !existing.State().Terminal() {
		return nil, ErrAlreadyActive
	}

	m, err := NewMachine(plan, profile, r.deps, r.opts...)
	if err != nil {
		return nil, err
	}
	r.machines[plan.AccountID] = m

	active := 0
	for _, mm := range r.machines {
		if !mm.State().Terminal() {
			active++
		}
	}
	metrics.UpdateActiveSequencers(active)

	go m.Run(ctx)
	go func() {
		<-m.Done()
		metrics.UpdateActiveSequencers(r.ActiveCount())
	}()
	return m, nil
}

// Dispatch routes an engagement event to the owning machine. Returns
// ErrUnknownAccount when no sequence exists for the account.
func (r *Registry) Dispatch(ctx context.Context, ev model.EngagementEvent) error {
	r.mu.RLock()
	m, ok := r.machines[ev.AccountID]
	r.mu.RUnlock()
	if !ok {
		return ErrUnknownAccount
	}
	if !m.Enqueue(ev) {
		r.logger.Debug(ctx, "event dropped; sequence terminal or queue full",
			logger.String("accountID", ev.AccountID),
			logger.String("kind", string(ev.Kind)),
		)
	}
	return nil
}

// Suppress forces the account's sequence toward the suppressed state from
// any non-terminal state, outranking any armed timeout.
func (r *Registry) Suppress(_ context.Context, accountID, reason string) error {
	r.mu.RLock()
	m, ok := r.machines[accountID]
	r.mu.RUnlock()
	if !ok {
		return ErrUnknownAccount
	}
	m.Suppress(reason)
	return nil
}

// Machine returns the machine for an account, if any.
func (r *Registry) Machine(accountID string) (*Machine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.machines[accountID]
	return m, ok
}

// ActiveCount returns the number of non-terminal machines.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, m := range r.machines {
		if !m.State().Terminal() {
			n++
		}
	}
	return n
}

// Wait blocks until every registered machine reaches a terminal state or
// ctx expires. Returns true when all machines finished.
func (r *Registry) Wait(ctx context.Context) bool {
	r.mu.RLock()
	machines := make([]*Machine, 0, len(r.machines))
	for _, m := range r.machines {
		machines = append(machines, m)
	}
	r.mu.RUnlock()

	for _, m := range machines {
		select {
		case <-m.Done():
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// SuppressAll forces every non-terminal machine to the suppressed state.
// Used when a campaign deadline elapses.
func (r *Registry) SuppressAll(_ context.Context, reason string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.machines {
		if !m.State().Terminal() {
			m.Suppress(reason)
		}
	}
}

// Shutdown suppresses everything and waits briefly for machines to drain.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.SuppressAll(ctx, "shutdown")
	waitCtx, cancel := context.WithTimeout(ctx, registryShutdownTimeout)
	defer cancel()
	if !r.Wait(waitCtx) {
		return waitCtx.Err()
	}
	return nil
}
