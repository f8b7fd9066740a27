// Package cost scores track orderings.
//
// A set is an open path over n tracks. Each adjacent pair pays a harmonic
// cost (looked up from Camelot tables after applying per-track key shifts)
// plus a weighted tempo cost; every shifted track pays a flat penalty.
// The Model is read-only after construction and safe for concurrent use.
package cost

import (
	"math"

	"github.com/matzehuels/mixorder/pkg/camelot"
	"github.com/matzehuels/mixorder/pkg/errors"
)

// Tables are the per-invocation inputs of the cost model. The model never
// mutates them.
type Tables struct {
	BPM      []int32   `json:"bpms"`
	Keys     []uint8   `json:"key_ids"`
	Shift    []uint8   `json:"shift_table"`
	Direct   []float64 `json:"direct_costs"`
	Indirect []float64 `json:"indirect_costs"`
}

// Len returns the number of tracks.
func (t Tables) Len() int { return len(t.BPM) }

// Validate checks that the tables describe at least two tracks and have the
// shapes the lookups assume.
func (t Tables) Validate() error {
	if len(t.BPM) != len(t.Keys) {
		return errors.New(errors.ErrCodeInvalidTable, "got %d tempos for %d keys", len(t.BPM), len(t.Keys))
	}
	if len(t.BPM) < 2 {
		return errors.New(errors.ErrCodeInvalidInput, "need at least 2 tracks, got %d", len(t.BPM))
	}
	for i, k := range t.Keys {
		if k >= camelot.NumKeys {
			return errors.New(errors.ErrCodeInvalidTable, "track %d has key id %d, want < %d", i, k, camelot.NumKeys)
		}
	}
	return camelot.ValidateTables(t.Shift, t.Direct, t.Indirect)
}

// Breakdown splits a sequence cost into its unweighted components.
type Breakdown struct {
	Harmonic float64 `json:"harmonic"`
	Tempo    float64 `json:"tempo"`
	Shift    float64 `json:"shift"`
}

// Total combines the components with the model weights.
func (b Breakdown) Total(p Params) float64 {
	return b.Harmonic + p.TempoWeight*b.Tempo + p.ShiftWeight*b.Shift
}

// Model evaluates transitions and sequences for a fixed set of tracks.
type Model struct {
	t       Tables
	p       Params
	breakAt float64
}

// New returns a model over t weighted by p. Callers are expected to have
// validated both; New itself never fails.
func New(t Tables, p Params) *Model {
	return &Model{t: t, p: p, breakAt: p.TempoBreakFactor * p.TempoThreshold}
}

// N returns the number of tracks.
func (m *Model) N() int { return len(m.t.BPM) }

// Params returns the model weights.
func (m *Model) Params() Params { return m.p }

// Tables returns the model inputs.
func (m *Model) Tables() Tables { return m.t }

// EffectiveKey returns the key id heard for track i under shift s.
func (m *Model) EffectiveKey(i int, s int8) uint8 {
	return m.t.Shift[int(m.t.Keys[i])*3+int(s)+1]
}

// Components returns the harmonic cost and the unweighted tempo cost of
// moving from track i1 (shift s1) to track i2 (shift s2).
//
// A tempo gap beyond the break point costs TempoPenalty*TempoBreakFactor in
// tempo and nothing in harmony. Otherwise a pair with no direct relationship
// that also cannot be bridged through a third key pays triple.
func (m *Model) Components(i1, i2 int, s1, s2 int8) (h, t float64) {
	diff := math.Abs(float64(m.t.BPM[i1]) - float64(m.t.BPM[i2]))
	if diff > m.breakAt {
		return 0, m.p.TempoPenalty * m.p.TempoBreakFactor
	}
	idx := int(m.EffectiveKey(i1, s1))*camelot.NumKeys + int(m.EffectiveKey(i2, s2))
	h = m.t.Direct[idx]
	if h == m.p.NonHarmonicCost && m.t.Indirect[idx] >= m.p.NonHarmonicCost {
		h += 2 * m.p.NonHarmonicCost
	}
	if diff > m.p.TempoThreshold {
		t = m.p.TempoPenalty
	}
	return h, t
}

// Transition returns the scalar cost of one adjacent pair.
func (m *Model) Transition(i1, i2 int, s1, s2 int8) float64 {
	h, t := m.Components(i1, i2, s1, s2)
	return h + m.p.TempoWeight*t
}

// Sequence recomputes the full breakdown of order. shifts is indexed by
// track, not by position.
func (m *Model) Sequence(order []int, shifts []int8) Breakdown {
	var b Breakdown
	for j := 0; j+1 < len(order); j++ {
		i1, i2 := order[j], order[j+1]
		h, t := m.Components(i1, i2, shifts[i1], shifts[i2])
		b.Harmonic += h
		b.Tempo += t
	}
	for _, i := range order {
		if shifts[i] != 0 {
			b.Shift += m.p.ShiftPenalty
		}
	}
	return b
}

// Cost is Sequence(order, shifts).Total.
func (m *Model) Cost(order []int, shifts []int8) float64 {
	return m.Sequence(order, shifts).Total(m.p)
}

// edge returns the cost of the pair at positions (pos, pos+1).
func (m *Model) edge(order []int, shifts []int8, pos int) float64 {
	i1, i2 := order[pos], order[pos+1]
	return m.Transition(i1, i2, shifts[i1], shifts[i2])
}

// SumEdges sums the pair costs at the given positions.
func (m *Model) SumEdges(edges []int, order []int, shifts []int8) float64 {
	var sum float64
	for _, pos := range edges {
		sum += m.edge(order, shifts, pos)
	}
	return sum
}

// incident sums the costs of the pairs touching position pos.
func (m *Model) incident(order []int, shifts []int8, pos int) (sum float64, count int) {
	if pos > 0 {
		sum += m.edge(order, shifts, pos-1)
		count++
	}
	if pos < len(order)-1 {
		sum += m.edge(order, shifts, pos)
		count++
	}
	return sum, count
}

// OptimizeShiftAt sets the shift of the track at pos to whichever of -1, 0
// and +1 minimizes the cost of its incident pairs, holding its neighbors
// fixed. Only a strict improvement replaces the current shift.
func (m *Model) OptimizeShiftAt(order []int, shifts []int8, pos int) {
	i := order[pos]
	cur := shifts[i]
	best, _ := m.incident(order, shifts, pos)
	bestShift := cur
	for s := int8(-1); s <= 1; s++ {
		shifts[i] = s
		if c, _ := m.incident(order, shifts, pos); c < best {
			best, bestShift = c, s
		}
	}
	shifts[i] = bestShift
}

// TrackCosts writes into out, indexed by track, the mean cost of the pairs
// each track takes part in. out must have length N.
func (m *Model) TrackCosts(order []int, shifts []int8, out []float64) {
	for pos, i := range order {
		sum, count := m.incident(order, shifts, pos)
		if count == 0 {
			out[i] = 0
			continue
		}
		out[i] = sum / float64(count)
	}
}

// AffectedEdges returns the pair positions whose cost can change when the
// tracks at positions a and b are swapped: a-1, a, b-1 and b, clipped to
// [0, n-1) and de-duplicated. The result aliases buf.
func AffectedEdges(a, b, n int, buf *[4]int) []int {
	out := buf[:0]
	for _, p := range [4]int{a - 1, a, b - 1, b} {
		out = appendEdge(out, p, n)
	}
	return out
}

func appendEdge(out []int, p, n int) []int {
	if p < 0 || p >= n-1 {
		return out
	}
	for _, q := range out {
		if q == p {
			return out
		}
	}
	return append(out, p)
}

// Solution is an arrangement together with its cost.
type Solution struct {
	Order     []int     `json:"order"`
	Shifts    []int8    `json:"shifts"`
	Cost      float64   `json:"cost"`
	Breakdown Breakdown `json:"breakdown"`
}

// Solution copies order and shifts and scores them with a full scan.
func (m *Model) Solution(order []int, shifts []int8) Solution {
	o := append([]int(nil), order...)
	s := append([]int8(nil), shifts...)
	b := m.Sequence(o, s)
	return Solution{Order: o, Shifts: s, Cost: b.Total(m.p), Breakdown: b}
}
