// Package collab defines the contracts for external collaborators: data
// enrichment, content generation, channel delivery, and compliance.
//
// Implementations are swapped at orchestrator construction time; the core
// never inspects concrete types at runtime.
package collab

import (
	"context"
	"time"

	"github.com/okian/cadence/internal/domain/model"
)

// AttributeRecord is the opaque firmographic payload returned by an
// enrichment provider.
type AttributeRecord struct {
	AccountID  string
	Attributes map[string]string
	Financials model.FinancialMetrics
	DealSize   float64 // raw deal size estimate, currency units
	// Vulnerability estimates how exposed the incumbent provider is, [0,1].
	Vulnerability float64
	FetchedAt     time.Time
}

// Enrichment fetches firmographic and financial attributes for an account.
type Enrichment interface {
	// Fetch returns ErrNotFound when the provider has no record.
	Fetch(ctx context.Context, accountID string) (AttributeRecord, error)
}

// SignalSource exposes the immutable signal log for an account. The core
// never writes to it.
type SignalSource interface {
	Signals(ctx context.Context, accountID string) ([]model.Signal, error)
}

// ContentRequest describes a content generation ask for one touchpoint.
type ContentRequest struct {
	AccountID string
	Channel   string
	Objective string
	Profile   model.AccountProfile
}

// Content is generated text plus the provider's channel-fit estimate.
type Content struct {
	Body       string
	ChannelFit float64 // provider quality estimate, [0,1]
	Fallback   bool    // true when produced by the template fallback
}

// ContentGenerator maps a content request to generated text. Failures are
// recoverable: callers fall back to a template-based objective.
type ContentGenerator interface {
	Generate(ctx context.Context, req ContentRequest) (Content, error)
}

// ChannelAdapter accepts touchpoint intents for asynchronous delivery.
// Acceptance does not imply delivery; engagement is reported back through
// EngagementEvents.
type ChannelAdapter interface {
	// Send returns ErrSendRejected (with reason) when the channel
	// refuses the intent.
	Send(ctx context.Context, intent model.TouchpointIntent) error
}

// ComplianceGate is consulted before every touchpoint emission.
type ComplianceGate interface {
	// CheckSuppression returns ErrSuppressed (with reason) when the
	// account must not be contacted. Suppression is not a failure.
	CheckSuppression(ctx context.Context, accountID string) error
}
