// Package exact finds the cheapest set by dynamic programming over subsets.
//
// State (mask, last, shift) holds the cheapest open path that visits exactly
// the tracks in mask and ends at track last played with the given shift.
// The table is flat and addressed mask*n*3 + last*3 + shiftIndex, with
// shiftIndex = shift+1. Time is O(n^2 * 2^n * 9) and memory O(n * 2^n * 3),
// so the solver refuses more than MaxTracks tracks.
package exact

import (
	"context"
	"math"

	"github.com/matzehuels/mixorder/pkg/errors"
	"github.com/matzehuels/mixorder/pkg/mix/cost"
)

// MaxTracks is the largest instance the solver accepts.
const MaxTracks = 20

// matchTolerance bounds the difference accepted when walking the table back
// from the optimum.
const matchTolerance = 1e-9

// cancelCheckInterval is how many masks are relaxed between context checks.
const cancelCheckInterval = 1 << 12

// Options bounds the solver.
type Options struct {
	// MaxTableBytes rejects instances whose table would exceed this many
	// bytes. Zero means no limit beyond MaxTracks.
	MaxTableBytes int64
}

// TableBytes returns the size of the table for n tracks.
func TableBytes(n int) int64 {
	return int64(1) << n * int64(n) * 3 * 8
}

// Solve returns an optimal arrangement for the tracks of m.
//
// Only ctx cancellation or an oversized instance produce an error.
func Solve(ctx context.Context, m *cost.Model, opts Options) (cost.Solution, error) {
	n := m.N()
	if n < 2 {
		return cost.Solution{}, errors.New(errors.ErrCodeInvalidInput, "need at least 2 tracks, got %d", n)
	}
	if n > MaxTracks {
		return cost.Solution{}, errors.New(errors.ErrCodeUnsupportedSize, "exact solver supports at most %d tracks, got %d", MaxTracks, n)
	}
	if opts.MaxTableBytes > 0 && TableBytes(n) > opts.MaxTableBytes {
		return cost.Solution{}, errors.New(errors.ErrCodeUnsupportedSize,
			"exact table for %d tracks needs %d bytes, limit is %d", n, TableBytes(n), opts.MaxTableBytes)
	}

	s := newSolver(m)
	if err := s.fill(ctx); err != nil {
		return cost.Solution{}, err
	}
	best, last, shift := s.optimum()
	order, shifts := s.backtrack(best, last, shift)
	if len(order) != n {
		return cost.Solution{}, errors.New(errors.ErrCodeInternal, "reconstructed %d of %d tracks", len(order), n)
	}

	sol := m.Solution(order, shifts)
	sol.Cost = best
	return sol, nil
}

type solver struct {
	m         *cost.Model
	n         int
	dp        []float64
	edge      []float64
	shiftCost [3]float64
}

func newSolver(m *cost.Model) *solver {
	n := m.N()
	s := &solver{
		m:    m,
		n:    n,
		dp:   make([]float64, (1<<n)*n*3),
		edge: make([]float64, n*3*n*3),
	}
	sp := m.Params().EffectiveShiftPenalty()
	s.shiftCost = [3]float64{sp, 0, sp}

	for i := 0; i < n; i++ {
		for si := 0; si < 3; si++ {
			for j := 0; j < n; j++ {
				for sj := 0; sj < 3; sj++ {
					s.edge[s.edgeIndex(i, si, j, sj)] = m.Transition(i, j, int8(si-1), int8(sj-1))
				}
			}
		}
	}
	return s
}

func (s *solver) index(mask, last, si int) int {
	return mask*s.n*3 + last*3 + si
}

func (s *solver) edgeIndex(i, si, j, sj int) int {
	return ((i*3+si)*s.n+j)*3 + sj
}

func (s *solver) fill(ctx context.Context) error {
	n := s.n
	inf := math.Inf(1)
	for i := range s.dp {
		s.dp[i] = inf
	}
	for i := 0; i < n; i++ {
		for si := 0; si < 3; si++ {
			s.dp[s.index(1<<i, i, si)] = s.shiftCost[si]
		}
	}

	full := 1<<n - 1
	for mask := 1; mask <= full; mask++ {
		if mask%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for last := 0; last < n; last++ {
			if mask&(1<<last) == 0 {
				continue
			}
			for si := 0; si < 3; si++ {
				cur := s.dp[s.index(mask, last, si)]
				if math.IsInf(cur, 1) {
					continue
				}
				for j := 0; j < n; j++ {
					if mask&(1<<j) != 0 {
						continue
					}
					next := mask | 1<<j
					for sj := 0; sj < 3; sj++ {
						c := cur + s.edge[s.edgeIndex(last, si, j, sj)] + s.shiftCost[sj]
						if idx := s.index(next, j, sj); c < s.dp[idx] {
							s.dp[idx] = c
						}
					}
				}
			}
		}
	}
	return nil
}

func (s *solver) optimum() (best float64, last, si int) {
	full := 1<<s.n - 1
	best = math.Inf(1)
	for l := 0; l < s.n; l++ {
		for k := 0; k < 3; k++ {
			if c := s.dp[s.index(full, l, k)]; c < best {
				best, last, si = c, l, k
			}
		}
	}
	return best, last, si
}

// backtrack rebuilds the path ending at (last, si) without a predecessor
// table by searching for the state whose relaxation reproduces each value.
func (s *solver) backtrack(best float64, last, si int) ([]int, []int8) {
	shifts := make([]int8, s.n)
	order := []int{last}
	shifts[last] = int8(si - 1)

	mask := 1<<s.n - 1
	cur := best
	for mask&(mask-1) != 0 {
		prev := mask ^ 1<<last
		found := false
		for pl := 0; pl < s.n && !found; pl++ {
			if prev&(1<<pl) == 0 {
				continue
			}
			for ps := 0; ps < 3; ps++ {
				pv := s.dp[s.index(prev, pl, ps)]
				if math.IsInf(pv, 1) {
					continue
				}
				if math.Abs(pv+s.edge[s.edgeIndex(pl, ps, last, si)]+s.shiftCost[si]-cur) < matchTolerance {
					mask, last, si, cur = prev, pl, ps, pv
					order = append(order, pl)
					shifts[pl] = int8(ps - 1)
					found = true
					break
				}
			}
		}
		if !found {
			break
		}
	}

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, shifts
}
