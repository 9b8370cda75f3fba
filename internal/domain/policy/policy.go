// Package policy maps scored accounts into discrete action tiers.
//
// The blend weights and tier thresholds are plain parameters validated at
// load time, never constants baked into the scoring math.
package policy

import (
	"math"

	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/domain/scoring"
	"github.com/okian/cadence/pkg/metrics"
)

// weightSumTolerance bounds the allowed deviation of the component weight
// sum from 1.0.
const weightSumTolerance = 1e-6

// ComponentWeights blend the composite prioritization score.
type ComponentWeights struct {
	FinancialHealth float64 `koanf:"financial_health"`
	Intent          float64 `koanf:"intent"`
	DealSize        float64 `koanf:"deal_size"`
	Vulnerability   float64 `koanf:"vulnerability"`
}

// Thresholds are the composite cut points between tiers, strictly
// descending in (0,1).
type Thresholds struct {
	HighTouch    float64 `koanf:"high_touch"`    // composite > HighTouch
	Nurture      float64 `koanf:"nurture"`       // composite in [Nurture, HighTouch]
	ContentFocus float64 `koanf:"content_focus"` // composite in [ContentFocus, Nurture)
}

// Params hold the full prioritization configuration.
type Params struct {
	Weights    ComponentWeights `koanf:"weights"`
	Thresholds Thresholds       `koanf:"thresholds"`
}

// DefaultParams returns the stock blend and thresholds.
func DefaultParams() Params {
	return Params{
		Weights: ComponentWeights{
			FinancialHealth: 0.30,
			Intent:          0.40,
			DealSize:        0.20,
			Vulnerability:   0.10,
		},
		Thresholds: Thresholds{
			HighTouch:    0.80,
			Nurture:      0.60,
			ContentFocus: 0.40,
		},
	}
}

// Validate checks weight sums and threshold ordering.
func (p Params) Validate() error {
	w := p.Weights
	sum := w.FinancialHealth + w.Intent + w.DealSize + w.Vulnerability
	if math.Abs(sum-1.0) > weightSumTolerance {
		return errInvalid("component weights must sum to 1.0")
	}
	for _, v := range []float64{w.FinancialHealth, w.Intent, w.DealSize, w.Vulnerability} {
		if v < 0 {
			return errInvalid("component weights must be non-negative")
		}
	}
	t := p.Thresholds
	if !(t.HighTouch > t.Nurture && t.Nurture > t.ContentFocus) {
		return errInvalid("thresholds must be strictly descending")
	}
	if t.HighTouch >= 1 || t.ContentFocus <= 0 {
		return errInvalid("thresholds must lie in (0,1)")
	}
	return nil
}

// Composite blends the four components into the single prioritization
// score. All inputs are expected in [0,1] and clamped defensively.
func (p Params) Composite(scored scoring.ScoredAccount, dealSizeNorm, vulnerability float64) float64 {
	w := p.Weights
	return w.FinancialHealth*clamp01(scored.FinancialHealth) +
		w.Intent*clamp01(scored.Intent) +
		w.DealSize*clamp01(dealSizeNorm) +
		w.Vulnerability*clamp01(vulnerability)
}

// Prioritize maps a scored account to a tier. Low-confidence accounts are
// capped at automated nurture: scarce evidence never promotes to
// high-touch on its own.
func Prioritize(scored scoring.ScoredAccount, dealSizeNorm, vulnerability float64, params Params) model.ActionTier {
	composite := params.Composite(scored, dealSizeNorm, vulnerability)
	tier := tierFor(composite, params.Thresholds)

	if scored.LowConfidence && tier == model.TierHighTouch {
		tier = model.TierAutomatedNurture
	}

	metrics.RecordTierAssignment(string(tier))
	return tier
}

// tierFor applies the cut points. The high-touch edge is exclusive and the
// nurture edge inclusive, so a composite of exactly HighTouch lands in
// automated nurture.
func tierFor(composite float64, t Thresholds) model.ActionTier {
	switch {
	case composite > t.HighTouch:
		return model.TierHighTouch
	case composite >= t.Nurture:
		return model.TierAutomatedNurture
	case composite >= t.ContentFocus:
		return model.TierContentFocus
	default:
		return model.TierLongTermAwareness
	}
}

// NormalizeDealSize maps a raw deal size into [0,1] against a ceiling.
func NormalizeDealSize(value, ceiling float64) float64 {
	if ceiling <= 0 {
		return 0
	}
	return clamp01(value / ceiling)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
