// Package weights manages versioned, immutable scoring weight sets.
//
// A WeightSet is never mutated after construction. The Registry hands out
// the current version by value copy, so in-flight scoring passes keep the
// version they captured at pass start regardless of later publishes.
package weights

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/okian/cadence/internal/domain/model"
)

// WeightSumTolerance is the allowed deviation of the financial dimension
// weight sum from 1.0.
const WeightSumTolerance = 1e-6

// WeightSet is one immutable version of the scoring configuration.
type WeightSet struct {
	Version       string
	ParentVersion string
	EffectiveFrom time.Time

	// Financial maps each financial dimension to its weight. The weights
	// must sum to 1.0 within WeightSumTolerance.
	Financial map[string]float64

	// Signals maps signal types to their base intent weights.
	Signals map[model.SignalType]float64

	// DecayFactor is the exponential decay rate per day of signal age.
	DecayFactor float64

	// SquashGain steepens the logistic squash applied to the summed
	// intent contributions.
	SquashGain float64
}

// New builds a validated WeightSet with a fresh version id.
func New(financial map[string]float64, signals map[model.SignalType]float64, decayFactor, squashGain float64) (WeightSet, error) {
	ws := WeightSet{
		Version:       uuid.NewString(),
		EffectiveFrom: time.Now().UTC(),
		Financial:     copyFinancial(financial),
		Signals:       copySignals(signals),
		DecayFactor:   decayFactor,
		SquashGain:    squashGain,
	}
	if err := ws.Validate(); err != nil {
		return WeightSet{}, err
	}
	return ws, nil
}

// Derive returns a copy of ws with the given maps, a new version id, and a
// parent link. Used by calibration to produce candidates.
func (ws WeightSet) Derive(financial map[string]float64, signals map[model.SignalType]float64) WeightSet {
	return WeightSet{
		Version:       uuid.NewString(),
		ParentVersion: ws.Version,
		EffectiveFrom: time.Now().UTC(),
		Financial:     copyFinancial(financial),
		Signals:       copySignals(signals),
		DecayFactor:   ws.DecayFactor,
		SquashGain:    ws.SquashGain,
	}
}

// Validate checks the set against the scoring engine's requirements.
func (ws WeightSet) Validate() error {
	if ws.DecayFactor <= 0 {
		return errInvalid("decay factor must be positive")
	}
	if ws.SquashGain <= 0 {
		return errInvalid("squash gain must be positive")
	}
	if len(ws.Signals) == 0 {
		return errInvalid("signal weights must not be empty")
	}
	for st, w := range ws.Signals {
		if w < 0 {
			return errInvalid("negative weight for signal " + string(st))
		}
	}
	var sum float64
	for _, dim := range model.FinancialDimensions {
		w, ok := ws.Financial[dim]
		if !ok {
			return errInvalid("missing financial dimension " + dim)
		}
		if w < 0 {
			return errInvalid("negative weight for dimension " + dim)
		}
		sum += w
	}
	if len(ws.Financial) != len(model.FinancialDimensions) {
		return errInvalid("unknown financial dimension present")
	}
	if math.Abs(sum-1.0) > WeightSumTolerance {
		return errInvalid("financial weights must sum to 1.0")
	}
	return nil
}

func copyFinancial(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copySignals(in map[model.SignalType]float64) map[model.SignalType]float64 {
	out := make(map[model.SignalType]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
