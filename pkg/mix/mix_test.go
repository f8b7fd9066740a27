package mix

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/mixorder/pkg/camelot"
	"github.com/matzehuels/mixorder/pkg/errors"
	"github.com/matzehuels/mixorder/pkg/mix/anneal"
	"github.com/matzehuels/mixorder/pkg/mix/cost"
)

func tablesFor(bpms []int32, keys ...string) cost.Tables {
	ct := camelot.BuildTables(camelot.DefaultScheme())
	ids := make([]uint8, len(keys))
	for i, k := range keys {
		ids[i] = uint8(camelot.MustParse(k))
	}
	return cost.Tables{BPM: bpms, Keys: ids, Shift: ct.Shift, Direct: ct.Direct, Indirect: ct.Indirect}
}

func costMap() map[string]float64 {
	return map[string]float64{
		"tempo_threshold":    4.5,
		"tempo_penalty":      5,
		"tempo_break_factor": 2,
		"tempo_cost_weight":  3,
		"non_harmonic_cost":  5,
		"shift_penalty":      1,
		"shift_weight":       1,
	}
}

func annealMap() map[string]float64 {
	return map[string]float64{
		"total_iterations":  3000,
		"initial_temp":      100,
		"final_temp":        0.1,
		"multi_swap_factor": 2,
	}
}

func TestCostParamsFromMap(t *testing.T) {
	p, err := CostParamsFromMap(costMap())
	require.NoError(t, err)
	assert.Equal(t, cost.DefaultParams(), p)

	for _, key := range CostParamKeys {
		t.Run(key, func(t *testing.T) {
			m := costMap()
			delete(m, key)
			_, err := CostParamsFromMap(m)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeMissingParam))
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestAnnealParamsFromMap(t *testing.T) {
	p, err := AnnealParamsFromMap(annealMap())
	require.NoError(t, err)
	assert.Equal(t, anneal.Params{TotalIterations: 3000, InitialTemp: 100, FinalTemp: 0.1, MultiSwapFactor: 2}, p)

	m := annealMap()
	delete(m, "final_temp")
	_, err = AnnealParamsFromMap(m)
	assert.ErrorContains(t, err, "final_temp")

	m = annealMap()
	m["total_iterations"] = 0
	_, err = AnnealParamsFromMap(m)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidParam))

	for _, key := range []string{"total_iterations", "multi_swap_factor"} {
		for _, v := range []float64{1e12, -1e19} {
			m = annealMap()
			m[key] = v
			_, err = AnnealParamsFromMap(m)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidParam), "%s = %v", key, v)
			assert.ErrorContains(t, err, key)
		}
	}
}

func TestOptimizeMix(t *testing.T) {
	tables := tablesFor([]int32{120, 122, 124, 126, 121}, "8A", "9A", "10A", "3B", "8B")
	out, err := OptimizeMix(context.Background(), tables, costMap(), annealMap(), 0, 42)
	require.NoError(t, err)
	assert.Equal(t, ModeAnneal, out.Mode)
	assert.Len(t, out.Attempts, 1)
	assert.Len(t, out.Solution.Order, 5)
	require.NotNil(t, out.Stats)
	assert.Len(t, out.Stats.Avg, 5)
}

func TestOptimizeMixRejectsBadInput(t *testing.T) {
	one := tablesFor([]int32{120}, "8A")
	_, err := OptimizeMix(context.Background(), one, costMap(), annealMap(), 1, 0)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	two := tablesFor([]int32{120, 121}, "8A", "9A")
	m := annealMap()
	delete(m, "initial_temp")
	_, err = OptimizeMix(context.Background(), two, costMap(), m, 1, 0)
	assert.True(t, errors.Is(err, errors.ErrCodeMissingParam))
}

func TestSolveMixExact(t *testing.T) {
	tables := tablesFor([]int32{124, 124, 124, 124}, "10A", "8A", "9A", "7A")
	out, err := SolveMixExact(context.Background(), tables, costMap())
	require.NoError(t, err)
	assert.Equal(t, ModeExact, out.Mode)
	assert.InDelta(t, 1.5, out.Solution.Cost, 1e-9)
	assert.Nil(t, out.Attempts)

	bpms := make([]int32, 21)
	keys := make([]string, 21)
	for i := range bpms {
		bpms[i] = 120
		keys[i] = "8A"
	}
	_, err = SolveMixExact(context.Background(), tablesFor(bpms, keys...), costMap())
	assert.True(t, errors.Is(err, errors.ErrCodeUnsupportedSize))

	_, err = SolveMixExact(context.Background(), tablesFor([]int32{120}, "8A"), costMap())
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestAnnealerValidation(t *testing.T) {
	p := Problem{Tables: tablesFor([]int32{120, 121}, "8A", "9A"), Params: cost.DefaultParams()}

	_, err := Annealer{Params: anneal.Params{}, Budget: time.Second}.Solve(context.Background(), p)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidParam))

	_, err = Annealer{Params: anneal.DefaultParams(), Budget: -time.Second}.Solve(context.Background(), p)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidParam))
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeAuto, "auto": ModeAuto, "exact": ModeExact, "anneal": ModeAnneal} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("greedy")
	assert.Error(t, err)
}

func TestModeResolve(t *testing.T) {
	assert.Equal(t, ModeExact, ModeAuto.Resolve(8, 0))
	assert.Equal(t, ModeAnneal, ModeAuto.Resolve(13, 0))
	assert.Equal(t, ModeExact, ModeAuto.Resolve(16, 16))
	assert.Equal(t, ModeAnneal, ModeAuto.Resolve(21, 30))
	assert.Equal(t, ModeAnneal, ModeAnneal.Resolve(3, 0))
	assert.Equal(t, ModeExact, ModeExact.Resolve(30, 0))
}
