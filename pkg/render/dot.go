package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/mixorder/pkg/pipeline"
)

// DOTOptions configures chain diagram rendering.
type DOTOptions struct {
	// Detailed adds tempo and keys to node labels.
	// When false, only the title is shown.
	Detailed bool
}

// clashColor marks transitions that pay the doubled non-harmonic cost or
// a tempo penalty.
const clashColor = "firebrick"

// ToDOT converts a result to a Graphviz chain in play order. Edge labels
// carry the transition cost; expensive edges are drawn in red.
func ToDOT(res *pipeline.Result, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph Mix {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=11];\n")
	buf.WriteString("\n")

	for i, t := range res.Tracks {
		label := fmt.Sprintf("%d. %s", i+1, t.Title)
		if opts.Detailed {
			label += fmt.Sprintf("\n%d BPM  %s", t.BPM, res.Effective[i])
			if s := res.Shifts[i]; s != 0 {
				label += fmt.Sprintf(" (%s%+d)", res.Keys[i], s)
			}
		}
		attrs := fmt.Sprintf("label=%q", label)
		if res.Shifts[i] != 0 {
			attrs += ", fillcolor=lightyellow"
		}
		fmt.Fprintf(&buf, "  t%d [%s];\n", i, attrs)
	}

	buf.WriteString("\n")
	for i, tr := range res.Transitions {
		attrs := fmt.Sprintf("label=\"%.1f\"", tr.Cost)
		if tr.Tempo > 0 || len(tr.Bridges) > 0 {
			attrs += ", color=" + clashColor + ", fontcolor=" + clashColor
		}
		fmt.Fprintf(&buf, "  t%d -> t%d [%s];\n", i, i+1, attrs)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the SVG scales from the
// origin regardless of the translation Graphviz emits.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
