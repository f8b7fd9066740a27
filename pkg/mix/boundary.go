package mix

import (
	"context"
	"math"
	"time"

	"github.com/matzehuels/mixorder/pkg/errors"
	"github.com/matzehuels/mixorder/pkg/mix/anneal"
	"github.com/matzehuels/mixorder/pkg/mix/cost"
)

// Parameter bundle keys accepted by CostParamsFromMap and AnnealParamsFromMap.
var (
	CostParamKeys   = []string{"tempo_threshold", "tempo_penalty", "tempo_break_factor", "tempo_cost_weight", "non_harmonic_cost", "shift_penalty", "shift_weight"}
	AnnealParamKeys = []string{"total_iterations", "initial_temp", "final_temp", "multi_swap_factor"}
)

func lookup(m map[string]float64, key string) (float64, error) {
	v, ok := m[key]
	if !ok {
		return 0, errors.New(errors.ErrCodeMissingParam, "missing parameter %q", key)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New(errors.ErrCodeInvalidParam, "parameter %q must be finite, got %v", key, v)
	}
	return v, nil
}

// CostParamsFromMap converts a dynamic bundle into typed cost weights.
// Unknown keys are ignored.
func CostParamsFromMap(m map[string]float64) (cost.Params, error) {
	var vals [7]float64
	for i, key := range CostParamKeys {
		v, err := lookup(m, key)
		if err != nil {
			return cost.Params{}, err
		}
		vals[i] = v
	}
	p := cost.Params{
		TempoThreshold:   vals[0],
		TempoPenalty:     vals[1],
		TempoBreakFactor: vals[2],
		TempoWeight:      vals[3],
		NonHarmonicCost:  vals[4],
		ShiftPenalty:     vals[5],
		ShiftWeight:      vals[6],
	}
	return p, p.Validate()
}

// AnnealParamsFromMap converts a dynamic bundle into typed annealing
// parameters. Integer parameters are truncated and must fit in 32 bits.
func AnnealParamsFromMap(m map[string]float64) (anneal.Params, error) {
	var vals [4]float64
	for i, key := range AnnealParamKeys {
		v, err := lookup(m, key)
		if err != nil {
			return anneal.Params{}, err
		}
		vals[i] = v
	}
	for _, i := range []int{0, 3} {
		if vals[i] < math.MinInt32 || vals[i] > math.MaxInt32 {
			return anneal.Params{}, errors.New(errors.ErrCodeInvalidParam, "parameter %q out of range, got %v", AnnealParamKeys[i], vals[i])
		}
	}
	p := anneal.Params{
		TotalIterations: int(vals[0]),
		InitialTemp:     vals[1],
		FinalTemp:       vals[2],
		MultiSwapFactor: int(vals[3]),
	}
	return p, p.Validate()
}

// budgetFromSeconds converts a budget in seconds, clamping negatives to 0.
func budgetFromSeconds(s float64) (time.Duration, error) {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0, errors.New(errors.ErrCodeInvalidParam, "time budget must be finite, got %v", s)
	}
	if s < 0 {
		return 0, nil
	}
	return time.Duration(s * float64(time.Second)), nil
}

// OptimizeMix is the table-level heuristic entry point: raw tables, dynamic
// parameter bundles and a budget in seconds.
func OptimizeMix(ctx context.Context, tables cost.Tables, costParams, annealParams map[string]float64, seconds float64, seed int64) (*Outcome, error) {
	cp, err := CostParamsFromMap(costParams)
	if err != nil {
		return nil, err
	}
	ap, err := AnnealParamsFromMap(annealParams)
	if err != nil {
		return nil, err
	}
	budget, err := budgetFromSeconds(seconds)
	if err != nil {
		return nil, err
	}
	return Optimize(ctx, Problem{Tables: tables, Params: cp}, ap, budget, seed)
}

// SolveMixExact is the table-level exact entry point.
func SolveMixExact(ctx context.Context, tables cost.Tables, costParams map[string]float64) (*Outcome, error) {
	cp, err := CostParamsFromMap(costParams)
	if err != nil {
		return nil, err
	}
	return SolveExact(ctx, Problem{Tables: tables, Params: cp})
}
