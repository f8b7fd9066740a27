package cost

import "encoding/json"

// tablesJSON spells the byte slices as number arrays; encoding/json would
// otherwise emit them as base64 strings.
type tablesJSON struct {
	BPM      []int32   `json:"bpms"`
	Keys     []int     `json:"key_ids"`
	Shift    []int     `json:"shift_table"`
	Direct   []float64 `json:"direct_costs"`
	Indirect []float64 `json:"indirect_costs"`
}

// MarshalJSON implements json.Marshaler.
func (t Tables) MarshalJSON() ([]byte, error) {
	return json.Marshal(tablesJSON{
		BPM:      t.BPM,
		Keys:     widen(t.Keys),
		Shift:    widen(t.Shift),
		Direct:   t.Direct,
		Indirect: t.Indirect,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Values outside 0..255 are
// truncated and then rejected by Validate.
func (t *Tables) UnmarshalJSON(data []byte) error {
	var raw tablesJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Tables{
		BPM:      raw.BPM,
		Keys:     narrow(raw.Keys),
		Shift:    narrow(raw.Shift),
		Direct:   raw.Direct,
		Indirect: raw.Indirect,
	}
	return nil
}

func widen(b []uint8) []int {
	if b == nil {
		return nil
	}
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}

func narrow(v []int) []uint8 {
	if v == nil {
		return nil
	}
	out := make([]uint8, len(v))
	for i, x := range v {
		if x < 0 || x > 255 {
			x = 255
		}
		out[i] = uint8(x)
	}
	return out
}
