package anneal

import (
	"math"

	"github.com/matzehuels/mixorder/pkg/errors"
)

// Params controls one annealing attempt.
type Params struct {
	TotalIterations int     `json:"total_iterations"`
	InitialTemp     float64 `json:"initial_temp"`
	FinalTemp       float64 `json:"final_temp"`
	// MultiSwapFactor times the track count bounds the number of moves taken
	// in escape mode before returning to the incumbent.
	MultiSwapFactor int `json:"multi_swap_factor"`
}

// Default annealing parameters.
const (
	DefaultTotalIterations = 410000
	DefaultInitialTemp     = 500
	DefaultFinalTemp       = 0.1
	DefaultMultiSwapFactor = 2
)

// DefaultParams returns the standard tuning.
func DefaultParams() Params {
	return Params{
		TotalIterations: DefaultTotalIterations,
		InitialTemp:     DefaultInitialTemp,
		FinalTemp:       DefaultFinalTemp,
		MultiSwapFactor: DefaultMultiSwapFactor,
	}
}

// Validate rejects schedules that cannot produce a cooling factor.
func (p Params) Validate() error {
	if p.TotalIterations < 1 {
		return errors.New(errors.ErrCodeInvalidParam, "total_iterations must be at least 1, got %d", p.TotalIterations)
	}
	if !(p.InitialTemp > 0) || math.IsInf(p.InitialTemp, 0) {
		return errors.New(errors.ErrCodeInvalidParam, "initial_temp must be a finite positive number, got %v", p.InitialTemp)
	}
	if !(p.FinalTemp > 0) || math.IsInf(p.FinalTemp, 0) {
		return errors.New(errors.ErrCodeInvalidParam, "final_temp must be a finite positive number, got %v", p.FinalTemp)
	}
	if p.MultiSwapFactor < 0 || p.MultiSwapFactor > math.MaxInt32 {
		return errors.New(errors.ErrCodeInvalidParam, "multi_swap_factor must be in [0, %d], got %d", math.MaxInt32, p.MultiSwapFactor)
	}
	return nil
}

// escapeLimit is the number of escape moves allowed for n tracks,
// saturating instead of overflowing.
func (p Params) escapeLimit(n int) int {
	if n > 0 && p.MultiSwapFactor > math.MaxInt/n {
		return math.MaxInt
	}
	return p.MultiSwapFactor * n
}

// CoolingFactor is the per-iteration temperature multiplier that takes
// InitialTemp to FinalTemp in exactly TotalIterations steps.
func (p Params) CoolingFactor() float64 {
	return math.Exp(math.Log(p.FinalTemp/p.InitialTemp) / float64(p.TotalIterations))
}
