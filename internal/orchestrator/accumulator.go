package orchestrator

import (
	"sync"
	"time"

	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/sequencer"
)

// accumulator builds the campaign result as a monotonically updated
// running total. All mutation goes through its mutex, so account workers
// completing at arbitrary times merge safely, and Progress can be read at
// any point mid-run.
type accumulator struct {
	mu     sync.Mutex
	result model.CampaignResult
}

// Compile-time check that the accumulator absorbs sequencer side effects.
var _ sequencer.Sink = (*accumulator)(nil)

func newAccumulator(campaignID string, startedAt time.Time) *accumulator {
	return &accumulator{
		result: model.CampaignResult{
			CampaignID: campaignID,
			StartedAt:  startedAt,
			Outcomes:   make(map[string]model.AccountOutcome),
		},
	}
}

// recordOutcome registers an account that made it through the pipeline.
// A sequence can reach a terminal state before this runs, so an existing
// status and conversion flag are preserved.
func (a *accumulator) recordOutcome(o model.AccountOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if prev, ok := a.result.Outcomes[o.AccountID]; ok {
		o.Status = prev.Status
		o.Converted = prev.Converted
	}
	a.result.Outcomes[o.AccountID] = o
	a.result.AccountsProcessed++
	a.result.PipelineValue += o.PipelineValue
}

// recordFailure registers an account whose pipeline pass failed. Failed
// accounts carry no pipeline value and are excluded from engagement-rate
// denominators (they never emit touchpoints).
func (a *accumulator) recordFailure(accountID, stage, cause string, at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.result.Outcomes[accountID] = model.AccountOutcome{
		AccountID:    accountID,
		Status:       model.OutcomeFailed,
		FailedStage:  stage,
		FailureCause: cause,
	}
	a.result.AccountsFailed++
	a.result.Diagnostics = append(a.result.Diagnostics, model.Diagnostic{
		AccountID: accountID,
		Stage:     stage,
		Cause:     cause,
		At:        at,
	})
}

// addDiagnostics appends normalization drop records.
func (a *accumulator) addDiagnostics(diags []model.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.result.Diagnostics = append(a.result.Diagnostics, diags...)
}

// OnEmitted implements sequencer.Sink.
func (a *accumulator) OnEmitted(_ string, _ model.TouchpointIntent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.result.TouchpointsEmitted++
}

// OnEntryFailed implements sequencer.Sink.
func (a *accumulator) OnEntryFailed(accountID, channel, cause string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.result.TouchpointsFailed++
	a.result.Diagnostics = append(a.result.Diagnostics, model.Diagnostic{
		AccountID: accountID,
		Stage:     "touchpoint:" + channel,
		Cause:     cause,
		At:        time.Now().UTC(),
	})
}

// OnEntrySkipped implements sequencer.Sink.
func (a *accumulator) OnEntrySkipped(accountID, channel, reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.result.TouchpointsSkipped++
	a.result.Diagnostics = append(a.result.Diagnostics, model.Diagnostic{
		AccountID: accountID,
		Stage:     "touchpoint:" + channel,
		Cause:     "skipped: " + reason,
		At:        time.Now().UTC(),
	})
}

// OnEngagement implements sequencer.Sink.
func (a *accumulator) OnEngagement(_ model.EngagementEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.result.EngagementEvents++
}

// OnFinished implements sequencer.Sink: folds the terminal sequencer state
// into the account's outcome.
func (a *accumulator) OnFinished(accountID string, state sequencer.State, converted bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	o, ok := a.result.Outcomes[accountID]
	if !ok {
		o = model.AccountOutcome{AccountID: accountID}
	}
	switch state {
	case sequencer.StateResponded:
		o.Status = model.OutcomeResponded
	case sequencer.StateExhausted:
		o.Status = model.OutcomeExhausted
	case sequencer.StateSuppressed:
		o.Status = model.OutcomeSuppressed
	}
	o.Converted = o.Converted || converted
	a.result.Outcomes[accountID] = o
}

// finalize stamps the completion time. Further merges are not expected but
// remain safe.
func (a *accumulator) finalize(at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.result.FinishedAt = at
	a.result.Finalized = true
}

// Progress returns a snapshot of the running result.
func (a *accumulator) Progress() *model.CampaignResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	snap := a.result
	snap.Outcomes = make(map[string]model.AccountOutcome, len(a.result.Outcomes))
	for k, v := range a.result.Outcomes {
		snap.Outcomes[k] = v
	}
	snap.Diagnostics = append([]model.Diagnostic(nil), a.result.Diagnostics...)
	return &snap
}
