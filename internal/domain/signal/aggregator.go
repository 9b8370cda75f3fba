// Package signal normalizes heterogeneous raw signals into uniform scored
// signals under the active weight set.
package signal

import (
	"context"
	"math"
	"time"

	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/domain/weights"
	"github.com/okian/cadence/pkg/metrics"
)

// Default aggregation configuration constants.
const (
	defaultRetentionDays = 180
	hoursPerDay          = 24
)

// Drop reasons recorded in diagnostics.
const (
	DropUnknownType = "unknown_signal_type"
	DropExpired     = "beyond_retention_horizon"
)

// typeInfo describes one registered signal type.
type typeInfo struct {
	intentTagged bool
}

// registry is the fixed set of signal types the aggregator accepts.
var registry = map[model.SignalType]typeInfo{
	model.SignalPricingPageVisit:   {intentTagged: true},
	model.SignalRateSheetDownload:  {intentTagged: true},
	model.SignalCompetitorResearch: {intentTagged: true},
	model.SignalContentDownload:    {intentTagged: true},
	model.SignalWebsiteVisit:       {intentTagged: true},
	model.SignalFundingEvent:       {intentTagged: false},
	model.SignalExecChange:         {intentTagged: false},
	model.SignalExpansionNews:      {intentTagged: false},
}

// Known reports whether t is a registered signal type.
func Known(t model.SignalType) bool {
	_, ok := registry[t]
	return ok
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithRetentionHorizon bounds the aggregation window: signals older than
// days contribute nothing and are dropped.
func WithRetentionHorizon(days int) Option {
	return func(a *Aggregator) {
		if days > 0 {
			a.retentionDays = days
		}
	}
}

// Aggregator normalizes raw signals. It never mutates the signal log.
type Aggregator struct {
	retentionDays int
}

// NewAggregator creates an aggregator with configuration options.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		retentionDays: defaultRetentionDays,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Normalize converts raw signals to scored signals under ws, evaluated at
// now. Unknown-type and expired signals are excluded, never fatal to the
// batch; each exclusion is returned as a diagnostic so no drop is silent.
func (a *Aggregator) Normalize(ctx context.Context, raws []model.Signal, ws weights.WeightSet, now time.Time) ([]model.ScoredSignal, []model.Diagnostic) {
	scored := make([]model.ScoredSignal, 0, len(raws))
	var diags []model.Diagnostic

	for _, raw := range raws {
		select {
		case <-ctx.Done():
			return scored, diags
		default:
		}

		info, ok := registry[raw.Type]
		if !ok {
			metrics.RecordSignalDropped(DropUnknownType)
			diags = append(diags, model.Diagnostic{
				AccountID: raw.AccountID,
				Stage:     "normalize",
				Cause:     ErrUnknownSignalType.Error() + ": " + string(raw.Type),
				At:        now,
			})
			continue
		}

		ageDays := now.Sub(raw.Timestamp).Hours() / hoursPerDay
		if ageDays < 0 {
			ageDays = 0
		}
		if ageDays > float64(a.retentionDays) {
			metrics.RecordSignalDropped(DropExpired)
			diags = append(diags, model.Diagnostic{
				AccountID: raw.AccountID,
				Stage:     "normalize",
				Cause:     DropExpired,
				At:        now,
			})
			continue
		}

		weight := ws.Signals[raw.Type]
		scored = append(scored, model.ScoredSignal{
			Signal:           raw,
			Weight:           weight,
			Contribution:     weight * math.Exp(-ws.DecayFactor*ageDays),
			IntentTagged:     info.intentTagged,
			WeightSetVersion: ws.Version,
		})
		metrics.RecordSignalNormalized()
	}

	return scored, diags
}
