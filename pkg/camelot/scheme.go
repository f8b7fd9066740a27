package camelot

import (
	"fmt"

	"github.com/matzehuels/mixorder/pkg/errors"
)

// Scheme assigns a harmonic cost to a move between two keys.
type Scheme struct {
	ExactMatch            float64 `json:"exact_match" toml:"exact_match" yaml:"exact_match" validate:"gte=0"`
	SameNumberScaleChange float64 `json:"same_number_scale_change" toml:"same_number_scale_change" yaml:"same_number_scale_change" validate:"gte=0"`
	AdjacentSameScale     float64 `json:"adjacent_same_scale" toml:"adjacent_same_scale" yaml:"adjacent_same_scale" validate:"gte=0"`
	AdjacentScaleChange   float64 `json:"adjacent_scale_change" toml:"adjacent_scale_change" yaml:"adjacent_scale_change" validate:"gte=0"`
	NonHarmonic           float64 `json:"non_harmonic" toml:"non_harmonic" yaml:"non_harmonic" validate:"gt=0"`
}

// DefaultScheme returns the standard Camelot mixing costs.
func DefaultScheme() Scheme {
	return Scheme{
		ExactMatch:            0,
		SameNumberScaleChange: 0.5,
		AdjacentSameScale:     0.5,
		AdjacentScaleChange:   5,
		NonHarmonic:           5,
	}
}

// Cost returns the direct harmonic cost of moving from a to b.
func (s Scheme) Cost(a, b Key) float64 {
	sameScale := a.Minor() == b.Minor()
	switch Distance(a, b) {
	case 0:
		if sameScale {
			return s.ExactMatch
		}
		return s.SameNumberScaleChange
	case 1:
		if sameScale {
			return s.AdjacentSameScale
		}
		return s.AdjacentScaleChange
	}
	return s.NonHarmonic
}

// Indirect returns the cheapest two-step cost from a to b through any key.
func (s Scheme) Indirect(a, b Key) float64 {
	best := s.Cost(a, 0) + s.Cost(0, b)
	for k := Key(1); k < NumKeys; k++ {
		if c := s.Cost(a, k) + s.Cost(k, b); c < best {
			best = c
		}
	}
	return best
}

// Tables holds the flat lookup tables used by the cost model.
type Tables struct {
	// Shift maps key*3 + (shift+1) to the effective key id.
	Shift []uint8
	// Direct and Indirect are addressed from*NumKeys + to.
	Direct   []float64
	Indirect []float64
}

// Shift table and cost table sizes.
const (
	ShiftTableLen = NumKeys * 3
	CostTableLen  = NumKeys * NumKeys
)

// BuildTables precomputes the shift table and both cost tables for s.
func BuildTables(s Scheme) Tables {
	t := Tables{
		Shift:    make([]uint8, ShiftTableLen),
		Direct:   make([]float64, CostTableLen),
		Indirect: make([]float64, CostTableLen),
	}
	for _, k := range All() {
		for shift := -1; shift <= 1; shift++ {
			t.Shift[int(k)*3+shift+1] = uint8(k.Shift(shift))
		}
	}
	for _, a := range All() {
		for _, b := range All() {
			idx := int(a)*NumKeys + int(b)
			t.Direct[idx] = s.Cost(a, b)
			t.Indirect[idx] = s.Indirect(a, b)
		}
	}
	return t
}

// ValidateTables checks table shapes and that every shift entry is a key id.
func ValidateTables(shift []uint8, direct, indirect []float64) error {
	if len(shift) != ShiftTableLen {
		return errors.New(errors.ErrCodeInvalidTable, "shift table has %d entries, want %d", len(shift), ShiftTableLen)
	}
	for i, k := range shift {
		if k >= NumKeys {
			return errors.New(errors.ErrCodeInvalidTable, "shift table entry %d is %d, want < %d", i, k, NumKeys)
		}
	}
	if len(direct) != CostTableLen {
		return errors.New(errors.ErrCodeInvalidTable, "direct cost table has %d entries, want %d", len(direct), CostTableLen)
	}
	if len(indirect) != CostTableLen {
		return errors.New(errors.ErrCodeInvalidTable, "indirect cost table has %d entries, want %d", len(indirect), CostTableLen)
	}
	return nil
}

// Bridge is a key and shift that could sit between two clashing keys.
type Bridge struct {
	Key   Key `json:"key"`
	Shift int `json:"shift"`
}

// Effective returns the key heard after applying the shift.
func (b Bridge) Effective() Key { return b.Key.Shift(b.Shift) }

func (b Bridge) String() string {
	return fmt.Sprintf("%s(%+d)", b.Key, b.Shift)
}

// Bridges lists every (key, shift) whose effective key is a cheap move both
// from prev and into next, where cheap means no more than the adjacent
// same-scale cost.
func (s Scheme) Bridges(prev, next Key) []Bridge {
	limit := s.AdjacentSameScale
	var out []Bridge
	for _, k := range All() {
		for shift := -1; shift <= 1; shift++ {
			eff := k.Shift(shift)
			if s.Cost(prev, eff) <= limit && s.Cost(eff, next) <= limit {
				out = append(out, Bridge{Key: k, Shift: shift})
			}
		}
	}
	return out
}
