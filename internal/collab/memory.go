package collab

import (
	"context"
	"sync"

	"github.com/okian/cadence/internal/domain/model"
)

// StaticEnrichment serves attribute records from a fixed map. Useful for
// demos and tests; production wires a real provider.
type StaticEnrichment struct {
	mu      sync.RWMutex
	records map[string]AttributeRecord
}

var _ Enrichment = (*StaticEnrichment)(nil)

// NewStaticEnrichment creates a provider over the given records.
func NewStaticEnrichment(records map[string]AttributeRecord) *StaticEnrichment {
	if records == nil {
		records = make(map[string]AttributeRecord)
	}
	return &StaticEnrichment{records: records}
}

// Put adds or replaces a record.
func (e *StaticEnrichment) Put(rec AttributeRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records[rec.AccountID] = rec
}

// Fetch implements Enrichment.
func (e *StaticEnrichment) Fetch(_ context.Context, accountID string) (AttributeRecord, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, ok := e.records[accountID]
	if !ok {
		return AttributeRecord{}, ErrNotFound
	}
	return rec, nil
}

// StaticSignalSource serves the signal log from a fixed map.
type StaticSignalSource struct {
	mu      sync.RWMutex
	signals map[string][]model.Signal
}

var _ SignalSource = (*StaticSignalSource)(nil)

// NewStaticSignalSource creates a source over the given log.
func NewStaticSignalSource(signals map[string][]model.Signal) *StaticSignalSource {
	if signals == nil {
		signals = make(map[string][]model.Signal)
	}
	return &StaticSignalSource{signals: signals}
}

// Append records signals for an account.
func (s *StaticSignalSource) Append(accountID string, sigs ...model.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals[accountID] = append(s.signals[accountID], sigs...)
}

// Signals implements SignalSource. The returned slice is a copy.
func (s *StaticSignalSource) Signals(_ context.Context, accountID string) ([]model.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Signal(nil), s.signals[accountID]...), nil
}

// RecordingAdapter accepts every intent and remembers it. Stands in for a
// real channel adapter in demos and tests.
type RecordingAdapter struct {
	mu      sync.Mutex
	intents []model.TouchpointIntent
}

var _ ChannelAdapter = (*RecordingAdapter)(nil)

// NewRecordingAdapter creates an adapter that accepts everything.
func NewRecordingAdapter() *RecordingAdapter {
	return &RecordingAdapter{}
}

// Send implements ChannelAdapter.
func (a *RecordingAdapter) Send(_ context.Context, intent model.TouchpointIntent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.intents = append(a.intents, intent)
	return nil
}

// Intents returns a copy of everything accepted so far.
func (a *RecordingAdapter) Intents() []model.TouchpointIntent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.TouchpointIntent(nil), a.intents...)
}

// ListGate suppresses accounts on an explicit opt-out list and allows
// everyone else.
type ListGate struct {
	mu         sync.RWMutex
	suppressed map[string]string // account id -> reason
}

var _ ComplianceGate = (*ListGate)(nil)

// NewListGate creates an empty gate.
func NewListGate() *ListGate {
	return &ListGate{suppressed: make(map[string]string)}
}

// SuppressAccount adds an account to the opt-out list.
func (g *ListGate) SuppressAccount(accountID, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.suppressed[accountID] = reason
}

// CheckSuppression implements ComplianceGate.
func (g *ListGate) CheckSuppression(_ context.Context, accountID string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if reason, ok := g.suppressed[accountID]; ok {
		return Suppressed(reason)
	}
	return nil
}
