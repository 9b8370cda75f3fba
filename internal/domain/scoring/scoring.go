// Package scoring computes composite financial-health and intent scores.
//
// The engine is a pure function of its inputs: identical (signals,
// financials, weight set, reference time) always produce identical scores.
// There is no hidden state and no clock read.
package scoring

import (
	"context"
	"math"
	"time"

	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/domain/weights"
	"github.com/okian/cadence/pkg/metrics"
)

// Default confidence configuration constants.
const (
	defaultMinSignals = 3
	defaultMinSources = 2
)

// ScoredAccount is the result of one scoring pass.
type ScoredAccount struct {
	AccountID        string
	FinancialHealth  float64
	Intent           float64
	Confidence       float64
	LowConfidence    bool
	WeightSetVersion string
	ScoredAt         time.Time
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithMinSignals sets the signal count below which confidence degrades.
func WithMinSignals(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.minSignals = n
		}
	}
}

// WithMinSources sets the distinct-source count below which the account is
// flagged low confidence.
func WithMinSources(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.minSources = n
		}
	}
}

// Engine computes account scores against one weight set version.
type Engine struct {
	minSignals int
	minSources int
}

// NewEngine creates a scoring engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		minSignals: defaultMinSignals,
		minSources: defaultMinSources,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score computes the account's financial health, intent, and confidence
// under ws. The scored signals must already be normalized against the same
// weight set version; the engine never re-reads the current version.
func (e *Engine) Score(ctx context.Context, accountID string, scored []model.ScoredSignal, financials model.FinancialMetrics, ws weights.WeightSet, now time.Time) (ScoredAccount, error) {
	start := time.Now()
	defer func() {
		metrics.RecordScoringPass()
		metrics.RecordScoringLatency(float64(time.Since(start).Milliseconds()))
	}()

	select {
	case <-ctx.Done():
		return ScoredAccount{}, ctx.Err()
	default:
	}

	var health float64
	for _, dim := range model.FinancialDimensions {
		health += ws.Financial[dim] * clamp01(financials[dim])
	}

	var intentSum float64
	sources := make(map[string]struct{})
	for _, s := range scored {
		sources[s.Signal.Source] = struct{}{}
		if s.IntentTagged {
			intentSum += s.Contribution
		}
	}

	confidence := confidence(len(scored), len(sources), e.minSignals, e.minSources)

	return ScoredAccount{
		AccountID:        accountID,
		FinancialHealth:  clamp01(health),
		Intent:           squash(intentSum, ws.SquashGain),
		Confidence:       confidence,
		LowConfidence:    len(sources) < e.minSources,
		WeightSetVersion: ws.Version,
		ScoredAt:         now,
	}, nil
}

// squash maps the non-negative intent sum into [0,1) with a scaled
// logistic: 2/(1+e^(-k*x)) - 1. Monotonic in x, zero at zero.
func squash(x, gain float64) float64 {
	if x <= 0 {
		return 0
	}
	return 2/(1+math.Exp(-gain*x)) - 1
}

// confidence blends signal volume and source diversity, each saturating at
// its configured minimum.
func confidence(signalCount, sourceCount, minSignals, minSources int) float64 {
	volume := math.Min(1, float64(signalCount)/float64(minSignals))
	diversity := math.Min(1, float64(sourceCount)/float64(minSources))
	return volume * diversity
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
