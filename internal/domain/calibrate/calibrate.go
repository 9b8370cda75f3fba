// Package calibrate derives candidate weight sets from closed-campaign
// outcomes.
//
// Calibration never touches the current weight set: it returns a new,
// validated candidate whose publication is a separate, explicit registry
// step.
package calibrate

import (
	"context"
	"math"

	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/domain/weights"
	"github.com/okian/cadence/pkg/metrics"
)

// Default calibration configuration constants.
const (
	defaultMaxDelta     = 0.10
	defaultLearningRate = 0.50
	defaultMinSample    = 5
)

// Option applies a configuration option to the Calibrator.
type Option func(*Calibrator)

// WithMaxDelta bounds the absolute per-cycle adjustment of any one weight,
// preventing oscillation from small samples.
func WithMaxDelta(d float64) Option {
	return func(c *Calibrator) {
		if d > 0 {
			c.maxDelta = d
		}
	}
}

// WithLearningRate scales the observed conversion lift into a weight delta.
func WithLearningRate(r float64) Option {
	return func(c *Calibrator) {
		if r > 0 {
			c.learningRate = r
		}
	}
}

// WithMinSample sets the minimum number of terminal account outcomes
// required before any adjustment is made.
func WithMinSample(n int) Option {
	return func(c *Calibrator) {
		if n > 0 {
			c.minSample = n
		}
	}
}

// Calibrator turns outcome samples into candidate weight sets.
type Calibrator struct {
	maxDelta     float64
	learningRate float64
	minSample    int
}

// NewCalibrator creates a calibrator with configuration options.
func NewCalibrator(opts ...Option) *Calibrator {
	c := &Calibrator{
		maxDelta:     defaultMaxDelta,
		learningRate: defaultLearningRate,
		minSample:    defaultMinSample,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calibrate consumes fully terminal campaigns and returns a candidate
// weight set derived from current. Signal weights move toward signal types
// whose presence correlated with conversion, each move bounded by the
// configured max delta. The candidate is validated before being returned.
func (c *Calibrator) Calibrate(ctx context.Context, campaigns []*model.CampaignResult, current weights.WeightSet) (weights.WeightSet, error) {
	select {
	case <-ctx.Done():
		return weights.WeightSet{}, ctx.Err()
	default:
	}

	var outcomes []model.AccountOutcome
	for _, cr := range campaigns {
		if !cr.Finalized {
			return weights.WeightSet{}, ErrCampaignOpen
		}
		for _, o := range cr.Outcomes {
			// Failed accounts never ran a sequence; they carry no
			// conversion evidence.
			if o.Status == model.OutcomeFailed {
				continue
			}
			outcomes = append(outcomes, o)
		}
	}
	if len(outcomes) < c.minSample {
		return weights.WeightSet{}, ErrSampleTooSmall
	}

	overall := conversionRate(outcomes, nil)

	adjusted := make(map[model.SignalType]float64, len(current.Signals))
	for st, w := range current.Signals {
		lift := conversionRate(outcomes, &st) - overall
		delta := clampAbs(lift*c.learningRate, c.maxDelta)
		adjusted[st] = math.Max(0, w+delta)
	}

	candidate := current.Derive(current.Financial, adjusted)
	if err := candidate.Validate(); err != nil {
		return weights.WeightSet{}, err
	}

	metrics.RecordCalibrationRun()
	return candidate, nil
}

// conversionRate returns the converted fraction of outcomes, optionally
// restricted to outcomes that carried the given signal type. Returns 0 for
// an empty slice.
func conversionRate(outcomes []model.AccountOutcome, st *model.SignalType) float64 {
	var total, converted int
	for _, o := range outcomes {
		if st != nil && !hasSignal(o, *st) {
			continue
		}
		total++
		if o.Converted {
			converted++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(converted) / float64(total)
}

func hasSignal(o model.AccountOutcome, st model.SignalType) bool {
	for _, t := range o.SignalTypes {
		if t == st {
			return true
		}
	}
	return false
}

func clampAbs(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}
