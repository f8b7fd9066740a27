package cost

import (
	"math"

	"github.com/matzehuels/mixorder/pkg/errors"
)

// Params weights the components of a transition. All values are fixed for
// the lifetime of a Model.
type Params struct {
	// TempoThreshold is the BPM difference above which a transition pays
	// TempoPenalty.
	TempoThreshold float64 `json:"tempo_threshold"`
	TempoPenalty   float64 `json:"tempo_penalty"`
	// TempoBreakFactor scales TempoThreshold to the point where the tempo
	// gap is a hard break and key compatibility no longer matters.
	TempoBreakFactor float64 `json:"tempo_break_factor"`
	TempoWeight      float64 `json:"tempo_cost_weight"`
	// NonHarmonicCost marks "no direct relationship" in the direct table.
	NonHarmonicCost float64 `json:"non_harmonic_cost"`
	ShiftPenalty    float64 `json:"shift_penalty"`
	ShiftWeight     float64 `json:"shift_weight"`
}

// Default cost parameters.
const (
	DefaultTempoThreshold   = 4.5
	DefaultTempoPenalty     = 5
	DefaultTempoBreakFactor = 2
	DefaultTempoWeight      = 3
	DefaultNonHarmonicCost  = 5
	DefaultShiftPenalty     = 1
	DefaultShiftWeight      = 1
)

// DefaultParams returns the standard tuning.
func DefaultParams() Params {
	return Params{
		TempoThreshold:   DefaultTempoThreshold,
		TempoPenalty:     DefaultTempoPenalty,
		TempoBreakFactor: DefaultTempoBreakFactor,
		TempoWeight:      DefaultTempoWeight,
		NonHarmonicCost:  DefaultNonHarmonicCost,
		ShiftPenalty:     DefaultShiftPenalty,
		ShiftWeight:      DefaultShiftWeight,
	}
}

// EffectiveShiftPenalty is the scalar cost of one shifted track.
func (p Params) EffectiveShiftPenalty() float64 {
	return p.ShiftPenalty * p.ShiftWeight
}

// Validate rejects negative or non-finite weights.
func (p Params) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"tempo_threshold", p.TempoThreshold},
		{"tempo_penalty", p.TempoPenalty},
		{"tempo_break_factor", p.TempoBreakFactor},
		{"tempo_cost_weight", p.TempoWeight},
		{"non_harmonic_cost", p.NonHarmonicCost},
		{"shift_penalty", p.ShiftPenalty},
		{"shift_weight", p.ShiftWeight},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return errors.New(errors.ErrCodeInvalidParam, "%s must be a finite non-negative number, got %v", f.name, f.v)
		}
	}
	return nil
}
