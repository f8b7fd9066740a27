// Package anneal orders tracks by simulated annealing.
//
// An attempt starts from a random order and random shifts and performs a
// fixed number of swap moves under a geometric cooling schedule. After each
// swap the shifts of the two moved tracks are re-optimized locally and the
// candidate cost is computed from the affected pairs only.
//
// Acceptance compares the candidate against the best cost found so far, not
// against the current trajectory. A worse candidate accepted by the
// Metropolis test switches the attempt into escape mode: it keeps walking
// from that candidate, accepting every move, until it either finds a new
// best or exhausts MultiSwapFactor*n moves, after which it snaps back to the
// incumbent.
package anneal

import (
	"math"
	"math/rand"

	"github.com/matzehuels/mixorder/pkg/mix/cost"
)

// attempt is the mutable state of a single annealing pass. It is never
// shared between goroutines.
type attempt struct {
	m   *cost.Model
	p   Params
	rng *rand.Rand

	order  []int
	shifts []int8

	bestOrder  []int
	bestShifts []int8
	bestCost   float64
	current    float64

	temp       float64
	cooling    float64
	escaping   bool
	escapes    int
	maxEscapes int
	edges      [4]int
}

func newAttempt(m *cost.Model, p Params, rng *rand.Rand) *attempt {
	n := m.N()
	a := &attempt{
		m:          m,
		p:          p,
		rng:        rng,
		order:      rng.Perm(n),
		shifts:     make([]int8, n),
		bestOrder:  make([]int, n),
		bestShifts: make([]int8, n),
		temp:       p.InitialTemp,
		cooling:    p.CoolingFactor(),
		maxEscapes: p.escapeLimit(n),
	}
	for i := range a.shifts {
		a.shifts[i] = int8(rng.Intn(3) - 1)
	}
	copy(a.bestOrder, a.order)
	copy(a.bestShifts, a.shifts)
	a.bestCost = m.Cost(a.order, a.shifts)
	a.current = a.bestCost
	return a
}

// Attempt runs one annealing pass over the tracks of m. The model and params
// must already be validated and m must hold at least two tracks.
func Attempt(m *cost.Model, p Params, rng *rand.Rand) cost.Solution {
	a := newAttempt(m, p, rng)
	for i := 0; i < p.TotalIterations; i++ {
		a.step()
	}
	return a.result()
}

func (a *attempt) step() {
	if !a.escaping {
		copy(a.order, a.bestOrder)
		copy(a.shifts, a.bestShifts)
		a.current = a.bestCost
	}

	n := len(a.order)
	x := a.rng.Intn(n)
	y := a.rng.Intn(n - 1)
	if y >= x {
		y++
	}

	edges := cost.AffectedEdges(x, y, n, &a.edges)
	oldEdges := a.m.SumEdges(edges, a.order, a.shifts)
	oldShifted := a.shiftedAt(x, y)

	a.order[x], a.order[y] = a.order[y], a.order[x]
	a.m.OptimizeShiftAt(a.order, a.shifts, x)
	a.m.OptimizeShiftAt(a.order, a.shifts, y)

	newEdges := a.m.SumEdges(edges, a.order, a.shifts)
	shiftDelta := a.m.Params().EffectiveShiftPenalty() * float64(a.shiftedAt(x, y)-oldShifted)
	candidate := a.current + (newEdges - oldEdges) + shiftDelta

	switch {
	case candidate < a.bestCost:
		copy(a.bestOrder, a.order)
		copy(a.bestShifts, a.shifts)
		a.bestCost = a.m.Cost(a.order, a.shifts)
		a.current = a.bestCost
		a.escaping = false
		a.escapes = 0
	case a.escaping:
		a.current = candidate
		a.escapes++
		if a.escapes > a.maxEscapes {
			a.escaping = false
			a.escapes = 0
		}
	case math.Exp((a.bestCost-candidate)/a.temp) > a.rng.Float64():
		a.escaping = true
		a.escapes = 0
		a.current = candidate
	}

	a.temp *= a.cooling
}

// shiftedAt counts the nonzero shifts of the tracks at two positions.
func (a *attempt) shiftedAt(x, y int) int {
	c := 0
	if a.shifts[a.order[x]] != 0 {
		c++
	}
	if a.shifts[a.order[y]] != 0 {
		c++
	}
	return c
}

// result snapshots the incumbent with its full breakdown. bestCost is
// already resynced by a full scan on every improvement.
func (a *attempt) result() cost.Solution {
	return a.m.Solution(a.bestOrder, a.bestShifts)
}
