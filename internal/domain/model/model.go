// Package model contains domain models passed between layers.
package model

import "time"

// SignalType identifies a behavioral or firmographic signal category.
type SignalType string

// Registered signal types.
const (
	SignalPricingPageVisit   SignalType = "pricing_page_visit"
	SignalRateSheetDownload  SignalType = "rate_sheet_download"
	SignalCompetitorResearch SignalType = "competitor_research"
	SignalContentDownload    SignalType = "content_download"
	SignalWebsiteVisit       SignalType = "website_visit"
	SignalFundingEvent       SignalType = "funding_event"
	SignalExecChange         SignalType = "exec_change"
	SignalExpansionNews      SignalType = "expansion_news"
)

// Signal is a single recorded behavioral or firmographic observation.
// Immutable once recorded.
type Signal struct {
	ID        string
	AccountID string
	Source    string // originating system, e.g. "web", "crm", "news"
	Type      SignalType
	RawValue  float64
	Timestamp time.Time
}

// ScoredSignal is a Signal with its decayed contribution under a specific
// weight set version. Derived, recomputed on every scoring pass.
type ScoredSignal struct {
	Signal           Signal
	Weight           float64
	Contribution     float64 // weight * exp(-decay * ageDays)
	IntentTagged     bool
	WeightSetVersion string
}

// FinancialMetrics holds normalized [0,1] values per financial dimension.
type FinancialMetrics map[string]float64

// Financial dimensions scored by the engine.
const (
	DimRevenueGrowth  = "revenue_growth"
	DimProfitability  = "profitability"
	DimCashFlow       = "cash_flow"
	DimDebtRatio      = "debt_ratio"
	DimPaymentHistory = "payment_history"
)

// FinancialDimensions lists every dimension a weight set must cover.
var FinancialDimensions = []string{
	DimRevenueGrowth,
	DimProfitability,
	DimCashFlow,
	DimDebtRatio,
	DimPaymentHistory,
}

// AccountProfile is the scored state of one account. Owned by the scoring
// engine; one live profile per account id.
type AccountProfile struct {
	AccountID        string
	Attributes       map[string]string
	FinancialHealth  float64
	Intent           float64
	Confidence       float64
	LowConfidence    bool
	WeightSetVersion string
	LastScoredAt     time.Time
}

// ActionTier is the discrete treatment category for an account.
type ActionTier string

// Action tiers in descending treatment intensity.
const (
	TierHighTouch         ActionTier = "high_touch"
	TierAutomatedNurture  ActionTier = "automated_nurture"
	TierContentFocus      ActionTier = "content_focus"
	TierLongTermAwareness ActionTier = "long_term_awareness"
)

// TouchpointStatus tracks one plan entry's lifecycle.
type TouchpointStatus string

// Entry statuses. Sent, Skipped, and Failed are terminal.
const (
	TouchpointPending TouchpointStatus = "pending"
	TouchpointSent    TouchpointStatus = "sent"
	TouchpointSkipped TouchpointStatus = "skipped"
	TouchpointFailed  TouchpointStatus = "failed"
)

// Terminal reports whether a status admits no further transition.
func (s TouchpointStatus) Terminal() bool {
	return s == TouchpointSent || s == TouchpointSkipped || s == TouchpointFailed
}

// TouchpointEntry is one scheduled outreach action within a plan.
type TouchpointEntry struct {
	Channel   string
	Offset    time.Duration // delay from the previous emission
	Objective string
	Status    TouchpointStatus
}

// TouchpointPlan is the ordered outreach sequence for one account in one
// campaign.
type TouchpointPlan struct {
	AccountID  string
	CampaignID string
	Entries    []TouchpointEntry
}

// TouchpointIntent is the record emitted to the external channel adapter.
// Acceptance does not imply delivery.
type TouchpointIntent struct {
	IntentID   string
	AccountID  string
	CampaignID string
	Channel    string
	Objective  string
	Body       string
	CreatedAt  time.Time
}

// EngagementKind classifies an engagement event.
type EngagementKind string

// Engagement event kinds.
const (
	EngagementOpen          EngagementKind = "open"
	EngagementClick         EngagementKind = "click"
	EngagementReply         EngagementKind = "reply"
	EngagementMeetingBooked EngagementKind = "meeting_booked"
	EngagementOptOut        EngagementKind = "opt_out"
	EngagementBounce        EngagementKind = "bounce"
)

// Positive reports whether the kind indicates interest.
func (k EngagementKind) Positive() bool {
	switch k {
	case EngagementOpen, EngagementClick, EngagementReply, EngagementMeetingBooked:
		return true
	default:
		return false
	}
}

// Negative reports whether the kind forces suppression.
func (k EngagementKind) Negative() bool {
	return k == EngagementOptOut || k == EngagementBounce
}

// MeetsObjective reports whether the kind closes out a sequence as responded.
func (k EngagementKind) MeetsObjective() bool {
	return k == EngagementReply || k == EngagementMeetingBooked
}

// EngagementEvent is an append-only record of account engagement reported
// back by a channel.
type EngagementEvent struct {
	AccountID string
	IntentID  string // touchpoint intent reference
	Channel   string
	Kind      EngagementKind
	Timestamp time.Time
}

// OutcomeStatus classifies how one account finished a campaign.
type OutcomeStatus string

// Per-account outcomes.
const (
	OutcomeResponded  OutcomeStatus = "responded"
	OutcomeExhausted  OutcomeStatus = "exhausted"
	OutcomeSuppressed OutcomeStatus = "suppressed"
	OutcomeFailed     OutcomeStatus = "failed"
)

// AccountOutcome records one account's pass through a campaign. Consumed by
// the feedback calibrator.
type AccountOutcome struct {
	AccountID     string
	Tier          ActionTier
	Status        OutcomeStatus
	FailedStage   string // set when Status is failed
	FailureCause  string
	SignalTypes   []SignalType // signal types that contributed to scoring
	Converted     bool         // qualifying response observed
	PipelineValue float64
}

// Diagnostic records a dropped signal or touchpoint with enough context for
// audit review.
type Diagnostic struct {
	AccountID string
	Stage     string
	Cause     string
	At        time.Time
}

// CampaignResult aggregates a campaign run. Built incrementally by the
// orchestrator; safe to snapshot mid-run for progress reporting.
type CampaignResult struct {
	CampaignID         string
	StartedAt          time.Time
	FinishedAt         time.Time
	Finalized          bool
	AccountsProcessed  int
	AccountsFailed     int
	TouchpointsEmitted int
	TouchpointsFailed  int
	TouchpointsSkipped int
	EngagementEvents   int
	PipelineValue      float64
	Outcomes           map[string]AccountOutcome
	Diagnostics        []Diagnostic
}

// EngagementRate returns engagement events per emitted touchpoint over
// non-failed accounts. Failed accounts are excluded from the denominator by
// construction: their touchpoints are never emitted.
func (r *CampaignResult) EngagementRate() float64 {
	if r.TouchpointsEmitted == 0 {
		return 0
	}
	return float64(r.EngagementEvents) / float64(r.TouchpointsEmitted)
}
