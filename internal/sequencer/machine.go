// Package sequencer drives per-account touchpoint sequences as finite
// state machines.
//
// Each machine owns one account's plan. All transitions for an account run
// on the machine's single run loop goroutine, so they are serialized
// without locks on the hot path; different accounts' machines run fully
// concurrently.
package sequencer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/okian/cadence/internal/collab"
	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/pkg/logger"
	"github.com/okian/cadence/pkg/metrics"
)

// State is a sequence lifecycle state.
type State string

// Sequence states. Responded, Exhausted, and Suppressed are terminal.
const (
	StatePlanned    State = "planned"
	StateActive     State = "active"
	StateResponded  State = "responded"
	StateExhausted  State = "exhausted"
	StateSuppressed State = "suppressed"
)

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateResponded || s == StateExhausted || s == StateSuppressed
}

// Sink receives sequencing side effects. Implementations must be safe for
// concurrent use across machines.
type Sink interface {
	OnEmitted(accountID string, intent model.TouchpointIntent)
	OnEntryFailed(accountID, channel, cause string)
	OnEntrySkipped(accountID, channel, reason string)
	OnEngagement(ev model.EngagementEvent)
	OnFinished(accountID string, state State, converted bool)
}

// Deps are the collaborators one machine needs to emit touchpoints.
type Deps struct {
	Gate      collab.ComplianceGate
	Adapter   collab.ChannelAdapter
	Generator collab.ContentGenerator
	Sink      Sink
	Logger    logger.Logger
}

// Default machine configuration constants.
const (
	defaultEventBuffer    = 16
	defaultResponseWindow = 72 * time.Hour
)

// Option applies a configuration option to a Machine.
type Option func(*Machine)

// WithEventBuffer sets the per-account engagement event queue depth.
func WithEventBuffer(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.eventBuffer = n
		}
	}
}

// WithResponseWindow sets how long the machine waits for a qualifying
// response after the last entry before declaring the sequence exhausted.
func WithResponseWindow(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.responseWindow = d
		}
	}
}

// Machine is one account's touchpoint sequence state machine.
type Machine struct {
	plan    model.TouchpointPlan
	profile model.AccountProfile
	deps    Deps

	eventBuffer    int
	responseWindow time.Duration

	// events and suppress feed the run loop; all state below is owned by
	// that loop and published via snapshots.
	events   chan model.EngagementEvent
	suppress chan string
	done     chan struct{}

	snap   snapshot
	snapCh chan snapshot
}

// snapshot is the externally visible machine state.
type snapshot struct {
	state     State
	plan      model.TouchpointPlan
	converted bool
}

// NewMachine builds a machine in the Planned state. Run must be called to
// activate it.
func NewMachine(plan model.TouchpointPlan, profile model.AccountProfile, deps Deps, opts ...Option) (*Machine, error) {
	if len(plan.Entries) == 0 {
		return nil, ErrEmptyPlan
	}
	entries := make([]model.TouchpointEntry, len(plan.Entries))
	copy(entries, plan.Entries)
	for i := range entries {
		entries[i].Status = model.TouchpointPending
	}
	plan.Entries = entries

	m := &Machine{
		plan:           plan,
		profile:        profile,
		deps:           deps,
		eventBuffer:    defaultEventBuffer,
		responseWindow: defaultResponseWindow,
		done:           make(chan struct{}),
		snapCh:         make(chan snapshot, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.events = make(chan model.EngagementEvent, m.eventBuffer)
	m.suppress = make(chan string, 1)
	m.snap = snapshot{state: StatePlanned, plan: m.clonePlan()}
	m.snapCh <- m.snap
	return m, nil
}

// State returns the current sequence state.
func (m *Machine) State() State {
	s := <-m.snapCh
	m.snapCh <- s
	return s.state
}

// Plan returns a copy of the plan with current entry statuses.
func (m *Machine) Plan() model.TouchpointPlan {
	s := <-m.snapCh
	m.snapCh <- s
	return s.plan
}

// Converted reports whether a qualifying response was observed.
func (m *Machine) Converted() bool {
	s := <-m.snapCh
	m.snapCh <- s
	return s.converted
}

// Done is closed when the machine reaches a terminal state.
func (m *Machine) Done() <-chan struct{} { return m.done }

// Enqueue appends an engagement event to the account's FIFO queue.
// Returns false if the machine is terminal or the queue is full.
func (m *Machine) Enqueue(ev model.EngagementEvent) bool {
	select {
	case <-m.done:
		return false
	default:
	}
	select {
	case m.events <- ev:
		return true
	default:
		return false
	}
}

// Suppress forces the machine toward the suppressed terminal state. It
// takes priority over any armed timeout: a pending emission whose timer has
// already fired is abandoned before the intent is sent.
func (m *Machine) Suppress(reason string) {
	select {
	case m.suppress <- reason:
	default:
		// A suppression is already queued; one is enough.
	}
}

// Run activates the machine and processes events until a terminal state or
// context cancellation. It must be called exactly once.
func (m *Machine) Run(ctx context.Context) {
	defer close(m.done)

	state := StateActive
	converted := false
	entries := m.plan.Entries
	m.publish(state, entries, converted)

	var timer *time.Timer
	var timerC <-chan time.Time
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}
	// Arming cancels any previously armed timeout first, so a re-rank
	// never leaves a stale timer behind to double-emit.
	arm := func(d time.Duration) {
		stopTimer()
		timer = time.NewTimer(d)
		timerC = timer.C
	}
	defer stopTimer()

	finish := func(s State) {
		state = s
		m.markPendingSkipped(entries, string(s))
		m.publish(state, entries, converted)
		m.deps.Sink.OnFinished(m.plan.AccountID, s, converted)
	}

	// First emission happens on entry to Active.
	next := m.emitFrom(ctx, 0, entries)
	if next < 0 {
		finish(StateSuppressed)
		return
	}
	if next >= len(entries) {
		arm(m.responseWindow)
	} else {
		arm(entries[next].Offset)
	}
	m.publish(state, entries, converted)

	for {
		select {
		case <-ctx.Done():
			finish(StateSuppressed)
			return

		case reason := <-m.suppress:
			m.deps.Logger.Info(ctx, "sequence suppressed",
				logger.String("accountID", m.plan.AccountID),
				logger.String("reason", reason),
			)
			finish(StateSuppressed)
			return

		case ev := <-m.events:
			metrics.RecordEngagementEvent(string(ev.Kind))
			m.deps.Sink.OnEngagement(ev)

			switch {
			case ev.Kind.Negative():
				finish(StateSuppressed)
				return
			case ev.Kind.MeetsObjective():
				converted = true
				finish(StateResponded)
				return
			case ev.Kind.Positive():
				rerank(entries, ev.Channel)
				if idx := nextPending(entries, 0); idx < len(entries) {
					arm(entries[idx].Offset)
				}
				m.publish(state, entries, converted)
			}

		case <-timerC:
			timerC = nil
			// A suppression command outranks a fired timer: drain it
			// before emitting anything.
			select {
			case reason := <-m.suppress:
				m.deps.Logger.Info(ctx, "sequence suppressed before emission",
					logger.String("accountID", m.plan.AccountID),
					logger.String("reason", reason),
				)
				finish(StateSuppressed)
				return
			default:
			}

			idx := nextPending(entries, 0)
			if idx >= len(entries) {
				// Response window elapsed with nothing left to send.
				finish(StateExhausted)
				return
			}
			next := m.emitFrom(ctx, idx, entries)
			if next < 0 {
				finish(StateSuppressed)
				return
			}
			if next >= len(entries) {
				arm(m.responseWindow)
			} else {
				arm(entries[next].Offset)
			}
			m.publish(state, entries, converted)
		}
	}
}

// emitFrom attempts to emit the first pending entry at or after idx,
// skipping over adapter rejections. It returns the index of the next
// pending entry after the emission, len(entries) when none remain, or -1
// when the compliance gate suppressed the account.
func (m *Machine) emitFrom(ctx context.Context, idx int, entries []model.TouchpointEntry) int {
	for i := nextPending(entries, idx); i < len(entries); i = nextPending(entries, i+1) {
		if err := m.deps.Gate.CheckSuppression(ctx, m.plan.AccountID); err != nil {
			return -1
		}

		entry := &entries[i]
		content, err := m.deps.Generator.Generate(ctx, collab.ContentRequest{
			AccountID: m.plan.AccountID,
			Channel:   entry.Channel,
			Objective: entry.Objective,
			Profile:   m.profile,
		})
		if err != nil {
			entry.Status = model.TouchpointFailed
			metrics.RecordTouchpointFailed()
			m.deps.Sink.OnEntryFailed(m.plan.AccountID, entry.Channel, err.Error())
			continue
		}

		intent := model.TouchpointIntent{
			IntentID:   uuid.NewString(),
			AccountID:  m.plan.AccountID,
			CampaignID: m.plan.CampaignID,
			Channel:    entry.Channel,
			Objective:  entry.Objective,
			Body:       content.Body,
			CreatedAt:  time.Now().UTC(),
		}
		// Adapter rejection is recoverable: the entry is marked failed
		// and sequencing continues with the next one.
		if err := m.deps.Adapter.Send(ctx, intent); err != nil {
			entry.Status = model.TouchpointFailed
			metrics.RecordTouchpointFailed()
			m.deps.Sink.OnEntryFailed(m.plan.AccountID, entry.Channel, err.Error())
			continue
		}

		entry.Status = model.TouchpointSent
		metrics.RecordTouchpointEmitted()
		m.deps.Sink.OnEmitted(m.plan.AccountID, intent)
		return nextPending(entries, i+1)
	}
	return len(entries)
}

// markPendingSkipped marks every remaining pending entry skipped. Terminal
// entry statuses never transition backward.
func (m *Machine) markPendingSkipped(entries []model.TouchpointEntry, reason string) {
	for i := range entries {
		if entries[i].Status == model.TouchpointPending {
			entries[i].Status = model.TouchpointSkipped
			metrics.RecordTouchpointSkipped()
			m.deps.Sink.OnEntrySkipped(m.plan.AccountID, entries[i].Channel, reason)
		}
	}
}

// publish stores the externally visible snapshot.
func (m *Machine) publish(state State, entries []model.TouchpointEntry, converted bool) {
	plan := m.plan
	plan.Entries = make([]model.TouchpointEntry, len(entries))
	copy(plan.Entries, entries)

	s := <-m.snapCh
	s.state = state
	s.plan = plan
	s.converted = converted
	m.snapCh <- s
}

func (m *Machine) clonePlan() model.TouchpointPlan {
	plan := m.plan
	plan.Entries = make([]model.TouchpointEntry, len(m.plan.Entries))
	copy(plan.Entries, m.plan.Entries)
	return plan
}

// nextPending returns the index of the first pending entry at or after
// idx, or len(entries).
func nextPending(entries []model.TouchpointEntry, idx int) int {
	if idx < 0 {
		idx = 0
	}
	for i := idx; i < len(entries); i++ {
		if entries[i].Status == model.TouchpointPending {
			return i
		}
	}
	return len(entries)
}

// rerank pulls pending entries on the engaged channel ahead of other
// pending entries, preserving relative order within each group. Entries in
// a terminal status never move.
func rerank(entries []model.TouchpointEntry, channel string) {
	var preferred, rest []model.TouchpointEntry
	var positions []int
	for i, e := range entries {
		if e.Status != model.TouchpointPending {
			continue
		}
		positions = append(positions, i)
		if e.Channel == channel {
			preferred = append(preferred, e)
		} else {
			rest = append(rest, e)
		}
	}
	reordered := append(preferred, rest...)
	for j, pos := range positions {
		entries[pos] = reordered[j]
	}
}
