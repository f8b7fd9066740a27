package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/matzehuels/mixorder/pkg/pipeline"
)

// labelWidth is the column width of track labels in the summary table.
const labelWidth = 40

// SummaryRow is one line of the per-track summary.
type SummaryRow struct {
	Position int
	Label    string
	pipeline.TrackStat
}

// Summary returns per-track statistics sorted by average cost, worst first.
// Ties keep play order.
func Summary(res *pipeline.Result) []SummaryRow {
	rows := make([]SummaryRow, len(res.Tracks))
	for i, t := range res.Tracks {
		rows[i] = SummaryRow{Position: i + 1, Label: t.Label(), TrackStat: res.TrackStats[i]}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Avg > rows[j].Avg
	})
	return rows
}

// MixLine formats position pos of the final order.
func MixLine(res *pipeline.Result, pos int) string {
	t := res.Tracks[pos]
	bpm := fmt.Sprintf("BPM %3d", t.BPM)
	key := fmt.Sprintf("%3s [%+d]", res.Keys[pos], res.Shifts[pos])
	eff := fmt.Sprintf("%5s", res.Effective[pos])

	trans := "(Start)"
	var hint string
	if pos > 0 {
		tr := res.Transitions[pos-1]
		trans = fmt.Sprintf("(H=%4.1f  T=%4.1f)", tr.Harmonic, tr.Tempo)
		hint = BridgeHint(tr)
	}
	return fmt.Sprintf("%2d. %-7s  %-10s -> %-5s  %-20s  %s%s", pos+1, bpm, key, eff, trans, t.Label(), hint)
}

// BridgeHint returns "  << 2A(+1) / 9A(+0)" for a clashing transition, or
// an empty string when there is nothing to suggest.
func BridgeHint(tr pipeline.Transition) string {
	if len(tr.Bridges) == 0 {
		return ""
	}
	parts := make([]string, len(tr.Bridges))
	for i, b := range tr.Bridges {
		parts[i] = b.String()
	}
	return "  << " + strings.Join(parts, " / ")
}

// Report writes the cost breakdown, the per-track summary and the final mix.
func Report(w io.Writer, res *pipeline.Result) error {
	var b strings.Builder
	bd := res.Breakdown
	fmt.Fprintf(&b, "Best Overall Cost: %5.1f (%s", res.Cost, res.Mode)
	if n := len(res.Attempts); n > 0 {
		fmt.Fprintf(&b, ", %d attempts", n)
	}
	if res.CacheHit {
		b.WriteString(", cached")
	}
	b.WriteString(")\n")
	fmt.Fprintf(&b, "Cost Breakdown: Harmonic: %5.1f, Tempo: %5.1f, Shift: %5.1f\n", bd.Harmonic, bd.Tempo, bd.Shift)

	b.WriteString("\nPer-track transition costs (sorted worst first):\n")
	fmt.Fprintf(&b, "%-*s %6s %6s %6s %6s\n", labelWidth, "Track", "Min", "Avg", "Max", "#Runs")
	for _, r := range Summary(res) {
		fmt.Fprintf(&b, "%-*.*s %6.2f %6.2f %6.2f %6d\n", labelWidth, labelWidth, r.Label, r.Min, r.Avg, r.Max, r.Runs)
	}

	b.WriteString("\nFinal Mix Order:\n")
	for pos := range res.Tracks {
		b.WriteString(MixLine(res, pos))
		b.WriteByte('\n')
	}

	if len(res.Skipped) > 0 {
		fmt.Fprintf(&b, "\nSkipped %d tracks:\n", len(res.Skipped))
		for _, s := range res.Skipped {
			fmt.Fprintf(&b, "  %s (%s)\n", s.Track.Label(), s.Reason)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
